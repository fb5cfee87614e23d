package dns

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/stretchr/testify/require"
)

type fakeRoute53 struct {
	mu sync.Mutex

	listFn  func(*route53.ListResourceRecordSetsInput) (*route53.ListResourceRecordSetsOutput, error)
	zonesFn func(*route53.ListHostedZonesByNameInput) (*route53.ListHostedZonesByNameOutput, error)
	// changeFn is keyed by call order (1-based) so tests can fail the first
	// submission and accept the retry.
	changeFn func(call int, in *route53.ChangeResourceRecordSetsInput) (*route53.ChangeResourceRecordSetsOutput, error)

	listCalls   int
	zoneCalls   int
	changeCalls []*route53.ChangeResourceRecordSetsInput
}

func (f *fakeRoute53) ListResourceRecordSets(_ context.Context, in *route53.ListResourceRecordSetsInput, _ ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	if f.listFn == nil {
		return &route53.ListResourceRecordSetsOutput{}, nil
	}
	return f.listFn(in)
}

func (f *fakeRoute53) ListHostedZonesByName(_ context.Context, in *route53.ListHostedZonesByNameInput, _ ...func(*route53.Options)) (*route53.ListHostedZonesByNameOutput, error) {
	f.mu.Lock()
	f.zoneCalls++
	f.mu.Unlock()
	return f.zonesFn(in)
}

func (f *fakeRoute53) ChangeResourceRecordSets(_ context.Context, in *route53.ChangeResourceRecordSetsInput, _ ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error) {
	f.mu.Lock()
	f.changeCalls = append(f.changeCalls, in)
	call := len(f.changeCalls)
	f.mu.Unlock()
	if f.changeFn == nil {
		return &route53.ChangeResourceRecordSetsOutput{
			ChangeInfo: &r53types.ChangeInfo{Id: aws.String("/change/C1")},
		}, nil
	}
	return f.changeFn(call, in)
}

type fakeChangedWaiter struct {
	mu    sync.Mutex
	ids   []string
	errBy map[string]error
}

func (f *fakeChangedWaiter) Wait(_ context.Context, in *route53.GetChangeInput, _ time.Duration, _ ...func(*route53.ResourceRecordSetsChangedWaiterOptions)) error {
	id := aws.ToString(in.Id)
	f.mu.Lock()
	f.ids = append(f.ids, id)
	f.mu.Unlock()
	if f.errBy == nil {
		return nil
	}
	return f.errBy[id]
}

func newTestService(api *fakeRoute53, waiter *fakeChangedWaiter) *Service {
	if waiter == nil {
		waiter = &fakeChangedWaiter{}
	}
	return NewService(api, waiter, ServiceConfig{})
}

func aliasRRSet(name, target string) r53types.ResourceRecordSet {
	return r53types.ResourceRecordSet{
		Name: aws.String(name),
		Type: r53types.RRTypeA,
		AliasTarget: &r53types.AliasTarget{
			DNSName:              aws.String(target),
			HostedZoneId:         aws.String("Z2LB"),
			EvaluateTargetHealth: true,
		},
	}
}

func cnameRRSet(name, value string) r53types.ResourceRecordSet {
	return r53types.ResourceRecordSet{
		Name: aws.String(name),
		Type: r53types.RRTypeCname,
		TTL:  aws.Int64(60),
		ResourceRecords: []r53types.ResourceRecord{
			{Value: aws.String(value)},
		},
	}
}

func TestZoneResolver(t *testing.T) {
	t.Parallel()

	api := &fakeRoute53{
		zonesFn: func(in *route53.ListHostedZonesByNameInput) (*route53.ListHostedZonesByNameOutput, error) {
			return &route53.ListHostedZonesByNameOutput{
				HostedZones: []r53types.HostedZone{
					{Id: aws.String("/hostedzone/ZROOT"), Name: aws.String(aws.ToString(in.DNSName) + ".")},
				},
			}, nil
		},
	}
	resolver := newTestService(api, nil).ZoneResolver(ZoneResolverConfig{
		EnvDomain:       "prod.store.example.com",
		EnvHostedZoneID: "ZENV",
		AppDomain:       "store.example.com",
		RootDomain:      "example.com",
	})
	ctx := context.Background()

	zone, err := resolver.Resolve(ctx, "api-nlb.prod.store.example.com")
	require.NoError(t, err)
	require.Equal(t, "ZENV", zone)
	require.Zero(t, api.zoneCalls)

	zone, err = resolver.Resolve(ctx, "a.example.com")
	require.NoError(t, err)
	require.Equal(t, "ZROOT", zone)

	// Memoized per zone domain.
	_, err = resolver.Resolve(ctx, "b.example.com")
	require.NoError(t, err)
	require.Equal(t, 1, api.zoneCalls)

	_, err = resolver.Resolve(ctx, "a.unrelated.net")
	var zoneErr *ZoneResolutionError
	require.ErrorAs(t, err, &zoneErr)
	require.Equal(t, "a.unrelated.net", zoneErr.Domain)
}

func TestZoneResolver_NoMatchingZone(t *testing.T) {
	t.Parallel()

	api := &fakeRoute53{
		zonesFn: func(*route53.ListHostedZonesByNameInput) (*route53.ListHostedZonesByNameOutput, error) {
			return &route53.ListHostedZonesByNameOutput{}, nil
		},
	}
	resolver := newTestService(api, nil).ZoneResolver(ZoneResolverConfig{
		EnvDomain:       "prod.store.example.com",
		EnvHostedZoneID: "ZENV",
		AppDomain:       "store.example.com",
		RootDomain:      "example.com",
	})

	_, err := resolver.Resolve(context.Background(), "a.example.com")
	var zoneErr *ZoneResolutionError
	require.ErrorAs(t, err, &zoneErr)
}

func TestCheckAliasConflicts(t *testing.T) {
	t.Parallel()

	records := map[string]r53types.ResourceRecordSet{
		"ours.example.com.":    aliasRRSet("ours.example.com.", "my-lb.elb.amazonaws.com."),
		"foreign.example.com.": aliasRRSet("foreign.example.com.", "other-lb.elb.amazonaws.com."),
	}
	api := &fakeRoute53{
		listFn: func(in *route53.ListResourceRecordSetsInput) (*route53.ListResourceRecordSetsOutput, error) {
			out := &route53.ListResourceRecordSetsOutput{}
			if rrset, ok := records[aws.ToString(in.StartRecordName)]; ok {
				out.ResourceRecordSets = []r53types.ResourceRecordSet{rrset}
			}
			return out, nil
		},
	}
	svc := newTestService(api, nil)
	ctx := context.Background()

	err := svc.CheckAliasConflicts(ctx, []AliasCandidate{
		{Alias: "ours.example.com", HostedZoneID: "Z1"},
		{Alias: "new.example.com", HostedZoneID: "Z1"},
	}, "my-lb.elb.amazonaws.com")
	require.NoError(t, err)

	err = svc.CheckAliasConflicts(ctx, []AliasCandidate{
		{Alias: "foreign.example.com", HostedZoneID: "Z1"},
	}, "my-lb.elb.amazonaws.com")

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, "foreign.example.com", conflict.Alias)
	require.Equal(t, "other-lb.elb.amazonaws.com", conflict.ForeignTarget)
}

func TestCheckAliasConflicts_LookupErrorPropagates(t *testing.T) {
	t.Parallel()

	api := &fakeRoute53{
		listFn: func(*route53.ListResourceRecordSetsInput) (*route53.ListResourceRecordSetsOutput, error) {
			return nil, errors.New("denied")
		},
	}
	svc := newTestService(api, nil)

	err := svc.CheckAliasConflicts(context.Background(), []AliasCandidate{
		{Alias: "a.example.com", HostedZoneID: "Z1"},
	}, "my-lb.elb.amazonaws.com")

	var lookupErr *LookupError
	require.ErrorAs(t, err, &lookupErr)
}

func TestOwnedRecords(t *testing.T) {
	t.Parallel()

	api := &fakeRoute53{
		listFn: func(in *route53.ListResourceRecordSetsInput) (*route53.ListResourceRecordSetsOutput, error) {
			require.Equal(t, "a.example.com.", aws.ToString(in.StartRecordName))
			return &route53.ListResourceRecordSetsOutput{
				ResourceRecordSets: []r53types.ResourceRecordSet{
					aliasRRSet("a.example.com.", "my-lb.elb.amazonaws.com."),
					cnameRRSet("_t1.a.example.com.", "_x.acm-validations.aws."),
					cnameRRSet("other.a.example.com.", "somewhere.else.net."),
					// First name outside the subtree ends the scan.
					aliasRRSet("b.example.com.", "my-lb.elb.amazonaws.com."),
				},
			}, nil
		},
	}
	svc := newTestService(api, nil)

	owned, err := svc.OwnedRecords(context.Background(), "Z1", "a.example.com", "my-lb.elb.amazonaws.com")
	require.NoError(t, err)
	require.Len(t, owned, 2)
	require.Equal(t, "a.example.com.", aws.ToString(owned[0].RecordSet.Name))
	require.Equal(t, "_t1.a.example.com.", aws.ToString(owned[1].RecordSet.Name))
}

func TestOwnedRecords_SkipsForeignAliasRecord(t *testing.T) {
	t.Parallel()

	api := &fakeRoute53{
		listFn: func(*route53.ListResourceRecordSetsInput) (*route53.ListResourceRecordSetsOutput, error) {
			return &route53.ListResourceRecordSetsOutput{
				ResourceRecordSets: []r53types.ResourceRecordSet{
					aliasRRSet("a.example.com.", "other-lb.elb.amazonaws.com."),
				},
			}, nil
		},
	}
	svc := newTestService(api, nil)

	owned, err := svc.OwnedRecords(context.Background(), "Z1", "a.example.com", "my-lb.elb.amazonaws.com")
	require.NoError(t, err)
	require.Empty(t, owned)
}

func TestOwnedRecords_EmptyTargetCollectsValidationOnly(t *testing.T) {
	t.Parallel()

	api := &fakeRoute53{
		listFn: func(*route53.ListResourceRecordSetsInput) (*route53.ListResourceRecordSetsOutput, error) {
			return &route53.ListResourceRecordSetsOutput{
				ResourceRecordSets: []r53types.ResourceRecordSet{
					aliasRRSet("svc-nlb.prod.store.example.com.", "lb-123.elb.amazonaws.com."),
					cnameRRSet("_t1.svc-nlb.prod.store.example.com.", "_x.acm-validations.aws."),
				},
			}, nil
		},
	}
	svc := newTestService(api, nil)

	owned, err := svc.OwnedRecords(context.Background(), "Z1", "svc-nlb.prod.store.example.com", "")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	require.Equal(t, "_t1.svc-nlb.prod.store.example.com.", aws.ToString(owned[0].RecordSet.Name))
}

func TestApply_GroupsByZone(t *testing.T) {
	t.Parallel()

	api := &fakeRoute53{
		changeFn: func(call int, _ *route53.ChangeResourceRecordSetsInput) (*route53.ChangeResourceRecordSetsOutput, error) {
			ids := []string{"/change/C1", "/change/C2"}
			return &route53.ChangeResourceRecordSetsOutput{
				ChangeInfo: &r53types.ChangeInfo{Id: aws.String(ids[call-1])},
			}, nil
		},
	}
	svc := newTestService(api, nil)

	refs, err := svc.Apply(context.Background(), []Change{
		UpsertAlias(AliasRecord{Name: "a.example.com", HostedZoneID: "Z1", TargetDNS: "lb.elb.amazonaws.com", TargetHostedZoneID: "ZLB"}),
		UpsertValidation(ValidationRecord{DomainName: "a.example.com", HostedZoneID: "Z1", Name: "_t.a.example.com", Value: "v.acm-validations.aws."}),
		UpsertAlias(AliasRecord{Name: "b.other.com", HostedZoneID: "Z2", TargetDNS: "lb.elb.amazonaws.com", TargetHostedZoneID: "ZLB"}),
	})
	require.NoError(t, err)
	require.Len(t, refs, 2)
	require.Len(t, api.changeCalls, 2)

	sizes := map[string]int{}
	for _, call := range api.changeCalls {
		sizes[aws.ToString(call.HostedZoneId)] = len(call.ChangeBatch.Changes)
	}
	require.Equal(t, map[string]int{"Z1": 2, "Z2": 1}, sizes)
}

func TestApply_EmptyIsNoop(t *testing.T) {
	t.Parallel()

	api := &fakeRoute53{}
	svc := newTestService(api, nil)

	refs, err := svc.Apply(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, refs)
	require.Empty(t, api.changeCalls)
}

func TestApply_DropsNotFoundDeletesAndResubmits(t *testing.T) {
	t.Parallel()

	api := &fakeRoute53{
		changeFn: func(call int, in *route53.ChangeResourceRecordSetsInput) (*route53.ChangeResourceRecordSetsOutput, error) {
			if call == 1 {
				return nil, &r53types.InvalidChangeBatch{
					Messages: []string{
						"Tried to delete resource record set [name='gone.example.com.', type='A'] but it was not found",
					},
				}
			}
			return &route53.ChangeResourceRecordSetsOutput{
				ChangeInfo: &r53types.ChangeInfo{Id: aws.String("/change/C9")},
			}, nil
		},
	}
	svc := newTestService(api, nil)

	refs, err := svc.Apply(context.Background(), []Change{
		UpsertAlias(AliasRecord{Name: "b.example.com", HostedZoneID: "Z1", TargetDNS: "lb.elb.amazonaws.com", TargetHostedZoneID: "ZLB"}),
		DeleteRecord(ExistingRecord{HostedZoneID: "Z1", RecordSet: aliasRRSet("gone.example.com.", "lb.elb.amazonaws.com.")}),
	})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Equal(t, "/change/C9", refs[0].ChangeID)

	require.Len(t, api.changeCalls, 2)
	retry := api.changeCalls[1].ChangeBatch.Changes
	require.Len(t, retry, 1)
	require.Equal(t, "b.example.com.", aws.ToString(retry[0].ResourceRecordSet.Name))
}

func TestApply_DeleteOnlyBatchAllAbsentIsSuccess(t *testing.T) {
	t.Parallel()

	api := &fakeRoute53{
		changeFn: func(int, *route53.ChangeResourceRecordSetsInput) (*route53.ChangeResourceRecordSetsOutput, error) {
			return nil, &r53types.InvalidChangeBatch{
				Messages: []string{
					"Tried to delete resource record set [name='gone.example.com.', type='A'] but it was not found",
				},
			}
		},
	}
	svc := newTestService(api, nil)

	refs, err := svc.Apply(context.Background(), []Change{
		DeleteRecord(ExistingRecord{HostedZoneID: "Z1", RecordSet: aliasRRSet("gone.example.com.", "lb.elb.amazonaws.com.")}),
	})
	require.NoError(t, err)
	require.Empty(t, refs)
	require.Len(t, api.changeCalls, 1)
}

func TestApply_UnstructuredNotFoundDropsOnlyNamedDeletes(t *testing.T) {
	t.Parallel()

	api := &fakeRoute53{
		changeFn: func(call int, _ *route53.ChangeResourceRecordSetsInput) (*route53.ChangeResourceRecordSetsOutput, error) {
			if call == 1 {
				// Plain error, no typed InvalidChangeBatch attached.
				return nil, errors.New("InvalidChangeBatch: [Tried to delete resource record set [name='gone.example.com.', type='A'] but it was not found]")
			}
			return &route53.ChangeResourceRecordSetsOutput{
				ChangeInfo: &r53types.ChangeInfo{Id: aws.String("/change/C7")},
			}, nil
		},
	}
	svc := newTestService(api, nil)

	refs, err := svc.Apply(context.Background(), []Change{
		DeleteRecord(ExistingRecord{HostedZoneID: "Z1", RecordSet: aliasRRSet("gone.example.com.", "lb.elb.amazonaws.com.")}),
		DeleteRecord(ExistingRecord{HostedZoneID: "Z1", RecordSet: aliasRRSet("kept.example.com.", "lb.elb.amazonaws.com.")}),
	})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Equal(t, "/change/C7", refs[0].ChangeID)

	require.Len(t, api.changeCalls, 2)
	retry := api.changeCalls[1].ChangeBatch.Changes
	require.Len(t, retry, 1)
	require.Equal(t, "kept.example.com.", aws.ToString(retry[0].ResourceRecordSet.Name))
}

func TestApply_OtherSubmitErrorsAreFatal(t *testing.T) {
	t.Parallel()

	api := &fakeRoute53{
		changeFn: func(int, *route53.ChangeResourceRecordSetsInput) (*route53.ChangeResourceRecordSetsOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	svc := newTestService(api, nil)

	_, err := svc.Apply(context.Background(), []Change{
		UpsertAlias(AliasRecord{Name: "a.example.com", HostedZoneID: "Z1", TargetDNS: "lb.elb.amazonaws.com", TargetHostedZoneID: "ZLB"}),
	})

	var submitErr *ChangeSubmitError
	require.ErrorAs(t, err, &submitErr)
	require.Equal(t, "Z1", submitErr.HostedZoneID)
}

func TestWaitChanges(t *testing.T) {
	t.Parallel()

	waiter := &fakeChangedWaiter{}
	svc := newTestService(&fakeRoute53{}, waiter)

	err := svc.WaitChanges(context.Background(), []ChangeRef{
		{HostedZoneID: "Z1", ChangeID: "/change/C1"},
		{HostedZoneID: "Z2", ChangeID: "/change/C2"},
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"/change/C1", "/change/C2"}, waiter.ids)
}

func TestWaitChanges_FailureIsFatal(t *testing.T) {
	t.Parallel()

	waiter := &fakeChangedWaiter{errBy: map[string]error{"/change/C2": errors.New("exceeded max wait time")}}
	svc := newTestService(&fakeRoute53{}, waiter)

	err := svc.WaitChanges(context.Background(), []ChangeRef{
		{HostedZoneID: "Z1", ChangeID: "/change/C1"},
		{HostedZoneID: "Z2", ChangeID: "/change/C2"},
	})

	var waitErr *PropagationWaitError
	require.ErrorAs(t, err, &waitErr)
	require.Equal(t, "Z2", waitErr.HostedZoneID)
	require.Equal(t, "/change/C2", waitErr.ChangeID)
}
