package certificates

import (
	"context"
	"errors"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	"go.uber.org/zap"

	"github.com/theory-cloud/certtheory/pkg/naming"
	"github.com/theory-cloud/certtheory/pkg/retry"
)

// PollValidationOptions fetches certificate metadata until every domain in
// domains has a populated validation record, or the poll policy is
// exhausted. The provider fills validation options in asynchronously after
// the request, so the first attempts routinely come back partial.
//
// A hard describe error aborts the poll immediately; exhaustion returns a
// *ValidationTimeoutError naming the attempt count and the domains still
// missing records.
func (s *Service) PollValidationOptions(ctx context.Context, arn string, domains []string) ([]ValidationTarget, error) {
	wanted := make(map[string]struct{}, len(domains))
	for _, domain := range domains {
		wanted[naming.NormalizeDomain(domain)] = struct{}{}
	}

	var targets []ValidationTarget
	missing := missingDomains(wanted, nil)

	err := retry.Poll(ctx, s.config.PollPolicy, s.config.Sleep, func(ctx context.Context) (bool, error) {
		out, err := s.api.DescribeCertificate(ctx, &acm.DescribeCertificateInput{
			CertificateArn: aws.String(arn),
		})
		if err != nil {
			return false, &QueryError{ARN: arn, Err: err}
		}
		if out.Certificate == nil {
			return false, nil
		}

		resolved := make(map[string]ValidationTarget, len(wanted))
		for _, option := range out.Certificate.DomainValidationOptions {
			domain := naming.NormalizeDomain(aws.ToString(option.DomainName))
			if _, ok := wanted[domain]; !ok {
				continue
			}
			if option.ResourceRecord == nil {
				continue
			}
			resolved[domain] = ValidationTarget{
				DomainName:  domain,
				RecordName:  aws.ToString(option.ResourceRecord.Name),
				RecordType:  string(option.ResourceRecord.Type),
				RecordValue: aws.ToString(option.ResourceRecord.Value),
			}
		}

		missing = missingDomains(wanted, resolved)
		if len(missing) > 0 {
			s.config.Logger.Debug("validation options still pending",
				zap.String("certificate_arn", arn),
				zap.Strings("missing", missing),
			)
			return false, nil
		}

		targets = targets[:0]
		for _, domain := range sortedKeys(wanted) {
			targets = append(targets, resolved[domain])
		}
		return true, nil
	})

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		return nil, &ValidationTimeoutError{Attempts: exhausted.Attempts, Missing: missing}
	}
	if err != nil {
		return nil, err
	}
	return targets, nil
}

func missingDomains(wanted map[string]struct{}, resolved map[string]ValidationTarget) []string {
	var missing []string
	for domain := range wanted {
		if _, ok := resolved[domain]; !ok {
			missing = append(missing, domain)
		}
	}
	sort.Strings(missing)
	return missing
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
