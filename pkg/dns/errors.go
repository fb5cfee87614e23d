package dns

import "fmt"

// ConflictError reports an alias whose existing record routes to a load
// balancer other than this service's.
type ConflictError struct {
	Alias         string
	ForeignTarget string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("dns: alias %s already points to %s, which is not this service's load balancer", e.Alias, e.ForeignTarget)
}

// ZoneResolutionError reports a domain that matches none of the hosted-zone
// suffixes this service may manage.
type ZoneResolutionError struct {
	Domain string
	Err    error
}

func (e *ZoneResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dns: resolving hosted zone for %s: %v", e.Domain, e.Err)
	}
	return fmt.Sprintf("dns: %s is not under any hosted zone this service manages", e.Domain)
}

func (e *ZoneResolutionError) Unwrap() error { return e.Err }

// LookupError reports a failed record-set query.
type LookupError struct {
	HostedZoneID string
	Name         string
	Err          error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("dns: listing record sets for %s in zone %s: %v", e.Name, e.HostedZoneID, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// ChangeSubmitError reports a failed change-batch submission for one zone.
type ChangeSubmitError struct {
	HostedZoneID string
	Err          error
}

func (e *ChangeSubmitError) Error() string {
	return fmt.Sprintf("dns: submitting change batch to zone %s: %v", e.HostedZoneID, e.Err)
}

func (e *ChangeSubmitError) Unwrap() error { return e.Err }

// PropagationWaitError reports a change batch that never reached INSYNC.
type PropagationWaitError struct {
	HostedZoneID string
	ChangeID     string
	Err          error
}

func (e *PropagationWaitError) Error() string {
	return fmt.Sprintf("dns: waiting for change %s in zone %s: %v", e.ChangeID, e.HostedZoneID, e.Err)
}

func (e *PropagationWaitError) Unwrap() error { return e.Err }
