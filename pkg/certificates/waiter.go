package certificates

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	"go.uber.org/zap"
)

// WaitValidated blocks until the certificate reaches ISSUED or the
// configured wait timeout elapses. Callers skip this entirely on teardown,
// where issuance is meaningless.
func (s *Service) WaitValidated(ctx context.Context, arn string) error {
	err := s.waiter.Wait(ctx, &acm.DescribeCertificateInput{
		CertificateArn: aws.String(arn),
	}, s.config.ValidationWaitTimeout)
	if err != nil {
		return &ValidationWaitError{ARN: arn, Err: err}
	}

	s.config.Logger.Info("certificate validated", zap.String("certificate_arn", arn))
	return nil
}
