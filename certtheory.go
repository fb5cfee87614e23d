// Package certtheory provisions and maintains DNS-validated TLS
// certificates and DNS alias records for load-balanced services, driven by
// CloudFormation custom-resource lifecycle events.
//
// The engine is idempotent and resumable: every invocation recomputes the
// desired state from the request and live provider queries, so a retry
// after a partial failure converges instead of corrupting. Nothing is
// persisted here; the certificate and the DNS records are the source of
// truth.
package certtheory

import (
	"context"

	"go.uber.org/zap"

	"github.com/theory-cloud/certtheory/pkg/certificates"
	"github.com/theory-cloud/certtheory/pkg/dns"
)

// CertificateService is the certificate-side collaborator: request,
// validation-option polling, and the validated wait.
type CertificateService interface {
	Request(ctx context.Context, input certificates.RequestInput) (certificates.Handle, error)
	PollValidationOptions(ctx context.Context, arn string, domains []string) ([]certificates.ValidationTarget, error)
	WaitValidated(ctx context.Context, arn string) error
}

// DNSService is the record-side collaborator: zone resolution, conflict
// checking, change batches, and propagation waits.
type DNSService interface {
	ResolveZones(ctx context.Context, config dns.ZoneResolverConfig, domains []string) (map[string]string, error)
	CheckAliasConflicts(ctx context.Context, candidates []dns.AliasCandidate, loadBalancerDNS string) error
	OwnedRecords(ctx context.Context, hostedZoneID, domain, loadBalancerDNS string) ([]dns.ExistingRecord, error)
	Apply(ctx context.Context, changes []dns.Change) ([]dns.ChangeRef, error)
	WaitChanges(ctx context.Context, refs []dns.ChangeRef) error
}

var (
	_ CertificateService = (*certificates.Service)(nil)
	_ DNSService         = (*dns.Service)(nil)
)

// Manager sequences the lifecycle stages for one custom-resource request.
type Manager struct {
	certs    CertificateService
	dns      DNSService
	clock    Clock
	ids      IDGenerator
	deadline DeadlineSignal
	log      *zap.Logger
}

type Option func(*Manager)

// New creates a Manager over the two provider collaborators.
func New(certs CertificateService, dnsService DNSService, opts ...Option) *Manager {
	m := &Manager{
		certs:    certs,
		dns:      dnsService,
		clock:    RealClock{},
		ids:      RandomIDGenerator{},
		deadline: ContextDeadlineSignal,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(m)
	}
	return m
}

func WithClock(clock Clock) Option {
	return func(m *Manager) {
		if clock == nil {
			m.clock = RealClock{}
			return
		}
		m.clock = clock
	}
}

func WithIDGenerator(ids IDGenerator) Option {
	return func(m *Manager) {
		if ids == nil {
			m.ids = RandomIDGenerator{}
			return
		}
		m.ids = ids
	}
}

func WithDeadlineSignal(signal DeadlineSignal) Option {
	return func(m *Manager) {
		if signal == nil {
			m.deadline = ContextDeadlineSignal
			return
		}
		m.deadline = signal
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) {
		if log == nil {
			m.log = zap.NewNop()
			return
		}
		m.log = log
	}
}
