package certtheory

import (
	"errors"
	"fmt"

	"github.com/theory-cloud/certtheory/pkg/certificates"
	"github.com/theory-cloud/certtheory/pkg/dns"
	"github.com/theory-cloud/certtheory/pkg/sanitization"
)

// Stable error codes. The failure reason is the only diagnostic surfaced
// outside logs, so codes and messages must stay descriptive and stable.
const (
	errorCodeUnsupportedRequestType = "cert.unsupported_request_type"
	errorCodeInvalidProperties      = "cert.invalid_properties"
	errorCodeAliasConflict          = "cert.alias_conflict"
	errorCodeZoneResolutionFailed   = "cert.zone_resolution_failed"
	errorCodeRecordLookupFailed     = "cert.record_lookup_failed"
	errorCodeRequestFailed          = "cert.request_failed"
	errorCodeValidationTimeout      = "cert.validation_options_timeout"
	errorCodeValidationQueryFailed  = "cert.validation_options_query_failed"
	errorCodeChangeSubmitFailed     = "cert.record_change_submit_failed"
	errorCodePropagationWaitFailed  = "cert.propagation_wait_failed"
	errorCodeValidationWaitFailed   = "cert.validation_wait_failed"
	errorCodeDeadlineExceeded       = "cert.deadline_exceeded"
	errorCodeInternal               = "cert.internal"
)

// UnsupportedRequestTypeError reports a request type outside
// Create/Update/Delete.
type UnsupportedRequestTypeError struct {
	RequestType string
}

func (e *UnsupportedRequestTypeError) Error() string {
	return fmt.Sprintf("unsupported request type %q", e.RequestType)
}

// InvalidPropertiesError reports a missing or malformed resource property.
type InvalidPropertiesError struct {
	Property string
	Detail   string
}

func (e *InvalidPropertiesError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invalid resource property %s: %s", e.Property, e.Detail)
	}
	return fmt.Sprintf("missing required resource property %s", e.Property)
}

// DeadlineExceededError reports that the invocation deadline fired before
// the pipeline finished.
type DeadlineExceededError struct{}

func (e *DeadlineExceededError) Error() string {
	return "invocation deadline exceeded before reconciliation finished"
}

// ErrorCode maps any pipeline error to its stable code.
func ErrorCode(err error) string {
	var (
		unsupported *UnsupportedRequestTypeError
		invalid     *InvalidPropertiesError
		deadline    *DeadlineExceededError

		conflict    *dns.ConflictError
		zone        *dns.ZoneResolutionError
		lookup      *dns.LookupError
		submit      *dns.ChangeSubmitError
		propagation *dns.PropagationWaitError

		request      *certificates.RequestError
		pollTimeout  *certificates.ValidationTimeoutError
		query        *certificates.QueryError
		validateWait *certificates.ValidationWaitError
	)
	switch {
	case errors.As(err, &unsupported):
		return errorCodeUnsupportedRequestType
	case errors.As(err, &invalid):
		return errorCodeInvalidProperties
	case errors.As(err, &deadline):
		return errorCodeDeadlineExceeded
	case errors.As(err, &conflict):
		return errorCodeAliasConflict
	case errors.As(err, &zone):
		return errorCodeZoneResolutionFailed
	case errors.As(err, &lookup):
		return errorCodeRecordLookupFailed
	case errors.As(err, &submit):
		return errorCodeChangeSubmitFailed
	case errors.As(err, &propagation):
		return errorCodePropagationWaitFailed
	case errors.As(err, &request):
		return errorCodeRequestFailed
	case errors.As(err, &pollTimeout):
		return errorCodeValidationTimeout
	case errors.As(err, &query):
		return errorCodeValidationQueryFailed
	case errors.As(err, &validateWait):
		return errorCodeValidationWaitFailed
	default:
		return errorCodeInternal
	}
}

// FailureReason renders err as the single-line reason delivered to the
// response URL.
func FailureReason(err error) string {
	return sanitization.SingleLine(fmt.Sprintf("%s: %s", ErrorCode(err), err.Error()))
}
