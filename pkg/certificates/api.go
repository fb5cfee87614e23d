package certificates

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/acm"
)

// API is the subset of the ACM client the engine consumes.
type API interface {
	RequestCertificate(
		ctx context.Context,
		params *acm.RequestCertificateInput,
		optFns ...func(*acm.Options),
	) (*acm.RequestCertificateOutput, error)

	DescribeCertificate(
		ctx context.Context,
		params *acm.DescribeCertificateInput,
		optFns ...func(*acm.Options),
	) (*acm.DescribeCertificateOutput, error)
}

// ValidatedWaiter waits for a certificate to reach the ISSUED state.
type ValidatedWaiter interface {
	Wait(
		ctx context.Context,
		params *acm.DescribeCertificateInput,
		maxWaitDur time.Duration,
		optFns ...func(*acm.CertificateValidatedWaiterOptions),
	) error
}

var (
	_ API             = (*acm.Client)(nil)
	_ ValidatedWaiter = (*acm.CertificateValidatedWaiter)(nil)
)
