package dns

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"

	"github.com/theory-cloud/certtheory/pkg/naming"
)

const lookupPageSize = 20

// acmValidationSuffix is the target domain ACM issues validation CNAMEs
// into; records pointing elsewhere are not ours to delete.
const acmValidationSuffix = ".acm-validations.aws"

// FindAliasRecord returns the record set named exactly like alias in the
// given zone, or nil when none exists.
func (s *Service) FindAliasRecord(ctx context.Context, hostedZoneID, alias string) (*ExistingRecord, error) {
	name := naming.FQDN(alias)

	out, err := s.api.ListResourceRecordSets(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(hostedZoneID),
		StartRecordName: aws.String(name),
		MaxItems:        aws.Int32(1),
	})
	if err != nil {
		return nil, &LookupError{HostedZoneID: hostedZoneID, Name: alias, Err: err}
	}

	for _, rrset := range out.ResourceRecordSets {
		if naming.NormalizeDomain(aws.ToString(rrset.Name)) != naming.NormalizeDomain(alias) {
			continue
		}
		if rrset.Type != r53types.RRTypeA && rrset.Type != r53types.RRTypeCname {
			continue
		}
		return &ExistingRecord{HostedZoneID: hostedZoneID, RecordSet: rrset}, nil
	}
	return nil, nil
}

// Target returns the DNS name an existing record routes to: the alias
// target for A-alias records, the first value for plain records.
func (e *ExistingRecord) Target() string {
	if e.RecordSet.AliasTarget != nil {
		return naming.NormalizeDomain(aws.ToString(e.RecordSet.AliasTarget.DNSName))
	}
	if len(e.RecordSet.ResourceRecords) > 0 {
		return naming.NormalizeDomain(aws.ToString(e.RecordSet.ResourceRecords[0].Value))
	}
	return ""
}

// OwnedRecords lists the records this service owns for one domain in one
// zone: the alias record when it targets loadBalancerDNS, plus any
// certificate-validation CNAME under the domain. Used to build teardown
// deletes, since nothing else persists what was created.
//
// With an empty loadBalancerDNS only validation CNAMEs are collected. The
// primary service domain's A record belongs to the load balancer stack,
// not to this engine, so its teardown passes "" here.
//
// Route53 returns record sets in DNS order, so the domain's subtree is
// contiguous from StartRecordName; scanning stops at the first name outside
// the subtree.
func (s *Service) OwnedRecords(ctx context.Context, hostedZoneID, domain, loadBalancerDNS string) ([]ExistingRecord, error) {
	domain = naming.NormalizeDomain(domain)
	lbDNS := naming.NormalizeDomain(loadBalancerDNS)

	var owned []ExistingRecord
	startName := naming.FQDN(domain)
	var startType r53types.RRType

	for page := 0; page < 5; page++ {
		in := &route53.ListResourceRecordSetsInput{
			HostedZoneId:    aws.String(hostedZoneID),
			StartRecordName: aws.String(startName),
			MaxItems:        aws.Int32(lookupPageSize),
		}
		if startType != "" {
			in.StartRecordType = startType
		}

		out, err := s.api.ListResourceRecordSets(ctx, in)
		if err != nil {
			return nil, &LookupError{HostedZoneID: hostedZoneID, Name: domain, Err: err}
		}

		for _, rrset := range out.ResourceRecordSets {
			name := naming.NormalizeDomain(aws.ToString(rrset.Name))
			if name != domain && !strings.HasSuffix(name, "."+domain) {
				return owned, nil
			}
			if rec, ok := ownedRecord(rrset, hostedZoneID, domain, lbDNS); ok {
				owned = append(owned, rec)
			}
		}

		if !out.IsTruncated {
			return owned, nil
		}
		startName = aws.ToString(out.NextRecordName)
		startType = out.NextRecordType
	}
	return owned, nil
}

func ownedRecord(rrset r53types.ResourceRecordSet, hostedZoneID, domain, lbDNS string) (ExistingRecord, bool) {
	rec := ExistingRecord{HostedZoneID: hostedZoneID, RecordSet: rrset}
	name := naming.NormalizeDomain(aws.ToString(rrset.Name))

	// The alias record itself, only when it already routes to us.
	if name == domain && rrset.Type == r53types.RRTypeA && rrset.AliasTarget != nil {
		if lbDNS != "" && rec.Target() == lbDNS {
			return rec, true
		}
		return ExistingRecord{}, false
	}

	// ACM validation CNAME: _<token>.<domain> pointing at acm-validations.aws.
	if rrset.Type == r53types.RRTypeCname && strings.HasPrefix(name, "_") && strings.HasSuffix(name, "."+domain) {
		if strings.HasSuffix(rec.Target(), acmValidationSuffix) {
			return rec, true
		}
	}
	return ExistingRecord{}, false
}
