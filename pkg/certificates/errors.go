package certificates

import "fmt"

// RequestError reports a failed certificate request. Not retried at this
// layer; transport-level retries belong to the SDK.
type RequestError struct {
	Domain string
	Err    error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("certificates: request for %s failed: %v", e.Domain, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// ValidationTimeoutError reports that validation options never materialized
// for every requested domain within the bounded attempt count.
type ValidationTimeoutError struct {
	Attempts int
	Missing  []string
}

func (e *ValidationTimeoutError) Error() string {
	return fmt.Sprintf("certificates: validation options incomplete after %d attempts, missing %v", e.Attempts, e.Missing)
}

// QueryError reports a hard DescribeCertificate failure during polling.
type QueryError struct {
	ARN string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("certificates: describe %s failed: %v", e.ARN, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// ValidationWaitError reports a failed or timed-out wait for issuance.
type ValidationWaitError struct {
	ARN string
	Err error
}

func (e *ValidationWaitError) Error() string {
	return fmt.Sprintf("certificates: wait for %s to validate failed: %v", e.ARN, e.Err)
}

func (e *ValidationWaitError) Unwrap() error { return e.Err }
