package certtheory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"go.uber.org/zap"

	"github.com/theory-cloud/certtheory/pkg/certificates"
	"github.com/theory-cloud/certtheory/pkg/dns"
)

// Result is the single terminal outcome of one invocation.
type Result struct {
	PhysicalResourceID string
	Data               map[string]interface{}
	Err                error
}

// Run executes the lifecycle pipeline for req, racing it against the
// deadline signal. The physical resource id is computed before any stage
// that can fail, so even a failed outcome reports a stable identifier.
func (m *Manager) Run(ctx context.Context, req Request) Result {
	physicalID := req.PhysicalResourceID()
	log := m.log.With(
		zap.String("request_type", string(req.Type)),
		zap.String("physical_resource_id", physicalID),
	)

	done := make(chan Result, 1)
	go func() {
		done <- m.run(ctx, req, physicalID, log)
	}()

	select {
	case res := <-done:
		return res
	case <-m.deadline(ctx):
		log.Error("deadline fired before pipeline finished")
		return Result{PhysicalResourceID: physicalID, Err: &DeadlineExceededError{}}
	}
}

func (m *Manager) run(ctx context.Context, req Request, physicalID string, log *zap.Logger) Result {
	started := m.clock.Now()

	var (
		data map[string]interface{}
		err  error
	)
	switch req.Type {
	case RequestCreate, RequestUpdate:
		data, err = m.reconcile(ctx, req, log)
	case RequestDelete:
		err = m.teardown(ctx, req, log)
	default:
		err = &UnsupportedRequestTypeError{RequestType: string(req.Type)}
	}

	if err != nil {
		log.Error("pipeline failed",
			zap.String("error_code", ErrorCode(err)),
			zap.Error(err),
			zap.Duration("elapsed", m.clock.Now().Sub(started)),
		)
		return Result{PhysicalResourceID: physicalID, Err: err}
	}

	log.Info("pipeline succeeded", zap.Duration("elapsed", m.clock.Now().Sub(started)))
	return Result{PhysicalResourceID: physicalID, Data: data}
}

// reconcile runs the Create/Update path: conflicts, certificate request,
// validation-option polling, record upserts (plus deletes for aliases an
// update removed), propagation, and the validated wait.
func (m *Manager) reconcile(ctx context.Context, req Request, log *zap.Logger) (map[string]interface{}, error) {
	if req.Type == RequestUpdate && req.AliasesUnchanged() {
		log.Info("alias set unchanged, nothing to reconcile")
		return nil, nil
	}

	removed := req.RemovedAliases()
	zones, err := m.dns.ResolveZones(ctx, req.ZoneResolverConfig(), append(req.Domains(), removed...))
	if err != nil {
		return nil, err
	}

	candidates := req.Aliases
	if req.Type == RequestUpdate {
		candidates = req.AddedAliases()
	}
	checks := make([]dns.AliasCandidate, len(candidates))
	for i, alias := range candidates {
		checks[i] = dns.AliasCandidate{Alias: alias, HostedZoneID: zones[alias]}
	}
	if err := m.dns.CheckAliasConflicts(ctx, checks, req.LoadBalancerDNS); err != nil {
		return nil, err
	}

	handle, err := m.certs.Request(ctx, certificates.RequestInput{
		Domain:                  req.ServiceDomain(),
		SubjectAlternativeNames: req.Aliases,
		IdempotencyToken:        idempotencyToken(req.RequestID),
		Tags: map[string]string{
			"certtheory-service": req.ServiceName,
			"certtheory-env":     req.EnvName,
			"certtheory-app":     req.AppName,
		},
	})
	if err != nil {
		return nil, err
	}

	targets, err := m.certs.PollValidationOptions(ctx, handle.ARN, req.Domains())
	if err != nil {
		return nil, err
	}

	changes := make([]dns.Change, 0, len(targets)+len(req.Aliases))
	for _, target := range targets {
		changes = append(changes, dns.UpsertValidation(dns.ValidationRecord{
			DomainName:   target.DomainName,
			HostedZoneID: zones[target.DomainName],
			Name:         target.RecordName,
			Type:         target.RecordType,
			Value:        target.RecordValue,
		}))
	}
	for _, alias := range req.Aliases {
		changes = append(changes, dns.UpsertAlias(dns.AliasRecord{
			Name:               alias,
			HostedZoneID:       zones[alias],
			TargetDNS:          req.LoadBalancerDNS,
			TargetHostedZoneID: req.LoadBalancerHostedZoneID,
		}))
	}

	staleDeletes, err := m.ownedDeletes(ctx, removed, zones, req.LoadBalancerDNS)
	if err != nil {
		return nil, err
	}
	changes = append(changes, staleDeletes...)

	refs, err := m.dns.Apply(ctx, changes)
	if err != nil {
		return nil, err
	}
	if err := m.dns.WaitChanges(ctx, refs); err != nil {
		return nil, err
	}

	if err := m.certs.WaitValidated(ctx, handle.ARN); err != nil {
		return nil, err
	}

	return map[string]interface{}{"CertificateARN": handle.ARN}, nil
}

// teardown runs the Delete path: discover and delete every owned record
// for the primary domain and all aliases, then wait for propagation. No
// certificate stage is meaningful during teardown.
//
// The engine never creates an A record for the primary service domain, so
// only its validation CNAME is claimed there; alias domains surrender both
// their alias record and their validation record.
func (m *Manager) teardown(ctx context.Context, req Request, log *zap.Logger) error {
	zones, err := m.dns.ResolveZones(ctx, req.ZoneResolverConfig(), req.Domains())
	if err != nil {
		return err
	}

	changes, err := m.ownedDeletes(ctx, req.Aliases, zones, req.LoadBalancerDNS)
	if err != nil {
		return err
	}
	primary, err := m.ownedDeletes(ctx, []string{req.ServiceDomain()}, zones, "")
	if err != nil {
		return err
	}
	changes = append(changes, primary...)
	if len(changes) == 0 {
		log.Info("no owned records remain, teardown already complete")
		return nil
	}

	refs, err := m.dns.Apply(ctx, changes)
	if err != nil {
		return err
	}
	return m.dns.WaitChanges(ctx, refs)
}

// ownedDeletes discovers the records this service owns for each domain and
// builds DELETE changes for them. Domains with no surviving records yield
// nothing, which is the desired end state already.
func (m *Manager) ownedDeletes(ctx context.Context, domains []string, zones map[string]string, loadBalancerDNS string) ([]dns.Change, error) {
	var changes []dns.Change
	for _, domain := range domains {
		owned, err := m.dns.OwnedRecords(ctx, zones[domain], domain, loadBalancerDNS)
		if err != nil {
			return nil, err
		}
		for _, record := range owned {
			changes = append(changes, dns.DeleteRecord(record))
		}
	}
	return changes, nil
}

// idempotencyToken derives the ACM idempotency token from the request id,
// so provider-side retries of one event converge on one certificate.
func idempotencyToken(requestID string) string {
	if requestID == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(requestID))
	return hex.EncodeToString(sum[:])[:32]
}
