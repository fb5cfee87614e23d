// Package naming builds the deterministic DNS names and identifiers the
// certificate engine is keyed by.
package naming

import "strings"

// NormalizeDomain canonicalizes a DNS name for comparison: lowercased,
// surrounding whitespace and the trailing root dot removed.
func NormalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	return strings.TrimSuffix(domain, ".")
}

// FQDN returns the fully-qualified form Route53 stores record names in.
func FQDN(domain string) string {
	domain = NormalizeDomain(domain)
	if domain == "" {
		return ""
	}
	return domain + "."
}

// ServiceDomain returns the canonical per-service NLB domain:
// <service>-nlb.<env>.<app>.<domain>.
func ServiceDomain(service, env, app, domain string) string {
	return strings.Join([]string{
		NormalizeDomain(service) + "-nlb",
		NormalizeDomain(env),
		NormalizeDomain(app),
		NormalizeDomain(domain),
	}, ".")
}

// EnvDomain returns the environment's delegated domain: <env>.<app>.<domain>.
func EnvDomain(env, app, domain string) string {
	return strings.Join([]string{
		NormalizeDomain(env),
		NormalizeDomain(app),
		NormalizeDomain(domain),
	}, ".")
}

// AppDomain returns the application's delegated domain: <app>.<domain>.
func AppDomain(app, domain string) string {
	return NormalizeDomain(app) + "." + NormalizeDomain(domain)
}

// PhysicalResourceID derives the stable custom-resource identifier:
// /<service>/<aliases joined by comma, insertion order>.
//
// The id must not change across Update invocations that keep the alias set,
// so callers pass aliases already deduplicated in their original order.
func PhysicalResourceID(service string, aliases []string) string {
	return "/" + strings.TrimSpace(service) + "/" + strings.Join(aliases, ",")
}

// Dedupe returns aliases normalized and with duplicates removed,
// preserving first-seen order.
func Dedupe(aliases []string) []string {
	seen := make(map[string]struct{}, len(aliases))
	out := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		key := NormalizeDomain(alias)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
