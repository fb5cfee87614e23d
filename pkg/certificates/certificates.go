// Package certificates requests DNS-validated ACM certificates and tracks
// them through issuance: request, validation-option polling, validated wait.
package certificates

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/service/acm"
	"go.uber.org/zap"

	"github.com/theory-cloud/certtheory/pkg/retry"
)

// Handle identifies a requested certificate and its last observed status.
type Handle struct {
	ARN    string
	Status string
}

// ValidationTarget is the DNS record a certificate authority requires for
// one domain before it will issue. Immutable once resolved.
type ValidationTarget struct {
	DomainName  string
	RecordName  string
	RecordType  string
	RecordValue string
}

// RequestInput describes one certificate request.
type RequestInput struct {
	Domain                  string
	SubjectAlternativeNames []string

	// IdempotencyToken lets provider-side retries of the same invocation
	// converge on a single certificate. Max 32 characters, [a-zA-Z0-9_].
	IdempotencyToken string

	Tags map[string]string
}

// ServiceConfig configures a Service. Zero values fall back to defaults.
type ServiceConfig struct {
	// PollPolicy bounds validation-option polling.
	PollPolicy retry.Policy

	// Sleep is the interval sleep used between poll attempts.
	Sleep retry.Sleeper

	// ValidationWaitTimeout caps the wait for the ISSUED state.
	ValidationWaitTimeout time.Duration

	Logger *zap.Logger
}

// Service is the certificate-side collaborator of the lifecycle engine.
type Service struct {
	api    API
	waiter ValidatedWaiter
	config ServiceConfig
}

// NewService creates a Service over the given ACM surface.
func NewService(api API, waiter ValidatedWaiter, config ServiceConfig) *Service {
	if config.PollPolicy.MaxAttempts == 0 {
		config.PollPolicy.MaxAttempts = DefaultPollAttempts
	}
	if config.PollPolicy.Interval == 0 {
		config.PollPolicy.Interval = DefaultPollInterval
	}
	if config.Sleep == nil {
		config.Sleep = retry.ContextSleeper
	}
	if config.ValidationWaitTimeout == 0 {
		config.ValidationWaitTimeout = DefaultValidationWaitTimeout
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &Service{api: api, waiter: waiter, config: config}
}

// NewServiceFromClient wires a Service to a concrete ACM client.
func NewServiceFromClient(client *acm.Client, config ServiceConfig) *Service {
	return NewService(client, acm.NewCertificateValidatedWaiter(client), config)
}

const (
	DefaultPollAttempts          = 10
	DefaultPollInterval          = 30 * time.Second
	DefaultValidationWaitTimeout = 9 * time.Minute
)
