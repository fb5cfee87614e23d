// Package sanitization keeps externally-influenced strings safe for logs
// and for the single-line custom-resource failure reason.
package sanitization

import "strings"

// SanitizeLogString removes line breaks that could enable log forging.
func SanitizeLogString(value string) string {
	if value == "" {
		return value
	}
	value = strings.ReplaceAll(value, "\r", "")
	value = strings.ReplaceAll(value, "\n", " ")
	return value
}

// SingleLine collapses a value to one trimmed line with control characters
// removed. Failure reasons delivered to the response URL must be single-line.
func SingleLine(value string) string {
	value = SanitizeLogString(value)
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r < 0x20 || r == 0x7f {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Truncate caps a value at max bytes, appending an ellipsis marker when cut.
func Truncate(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}
