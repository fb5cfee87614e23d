package certificates

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	"github.com/aws/aws-sdk-go-v2/service/acm/types"
	"go.uber.org/zap"
)

// StatusPendingValidation is the status a freshly requested DNS-validated
// certificate starts in.
const StatusPendingValidation = string(types.CertificateStatusPendingValidation)

// Request asks the provider for a new DNS-validated certificate covering
// input.Domain plus all subject alternative names. The returned Handle is
// in PENDING_VALIDATION; issuance happens asynchronously once the
// validation records exist.
func (s *Service) Request(ctx context.Context, input RequestInput) (Handle, error) {
	req := &acm.RequestCertificateInput{
		DomainName:       aws.String(input.Domain),
		ValidationMethod: types.ValidationMethodDns,
	}
	if len(input.SubjectAlternativeNames) > 0 {
		req.SubjectAlternativeNames = input.SubjectAlternativeNames
	}
	if input.IdempotencyToken != "" {
		req.IdempotencyToken = aws.String(input.IdempotencyToken)
	}
	for key, value := range input.Tags {
		req.Tags = append(req.Tags, types.Tag{
			Key:   aws.String(key),
			Value: aws.String(value),
		})
	}

	out, err := s.api.RequestCertificate(ctx, req)
	if err != nil {
		return Handle{}, &RequestError{Domain: input.Domain, Err: err}
	}

	arn := aws.ToString(out.CertificateArn)
	s.config.Logger.Info("certificate requested",
		zap.String("domain", input.Domain),
		zap.Strings("subject_alternative_names", input.SubjectAlternativeNames),
		zap.String("certificate_arn", arn),
	)
	return Handle{ARN: arn, Status: StatusPendingValidation}, nil
}
