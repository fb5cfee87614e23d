package dns

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/route53"
)

// API is the subset of the Route53 client the engine consumes.
type API interface {
	ListResourceRecordSets(
		ctx context.Context,
		params *route53.ListResourceRecordSetsInput,
		optFns ...func(*route53.Options),
	) (*route53.ListResourceRecordSetsOutput, error)

	ListHostedZonesByName(
		ctx context.Context,
		params *route53.ListHostedZonesByNameInput,
		optFns ...func(*route53.Options),
	) (*route53.ListHostedZonesByNameOutput, error)

	ChangeResourceRecordSets(
		ctx context.Context,
		params *route53.ChangeResourceRecordSetsInput,
		optFns ...func(*route53.Options),
	) (*route53.ChangeResourceRecordSetsOutput, error)
}

// ChangedWaiter waits for a submitted change batch to reach INSYNC.
type ChangedWaiter interface {
	Wait(
		ctx context.Context,
		params *route53.GetChangeInput,
		maxWaitDur time.Duration,
		optFns ...func(*route53.ResourceRecordSetsChangedWaiterOptions),
	) error
}

var (
	_ API           = (*route53.Client)(nil)
	_ ChangedWaiter = (*route53.ResourceRecordSetsChangedWaiter)(nil)
)
