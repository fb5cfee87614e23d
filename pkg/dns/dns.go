// Package dns reconciles Route53 state for a service's aliases: conflict
// detection against foreign load balancers, per-zone change batches for
// alias and certificate-validation records, and propagation waits.
//
// An alias may live in a hosted zone other than the service's environment
// zone (a shared application or root-domain zone), so every record carries
// its resolved hosted zone id and mutations are grouped per zone. A change
// batch is atomic within its zone only; there is no cross-zone transaction,
// and convergence under retries comes from idempotent upserts.
package dns

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"go.uber.org/zap"

	"github.com/theory-cloud/certtheory/pkg/naming"
)

// AliasRecord is the desired A-alias record routing one alias to this
// service's load balancer in the alias's resolved hosted zone.
type AliasRecord struct {
	Name               string
	HostedZoneID       string
	TargetDNS          string
	TargetHostedZoneID string
}

// ValidationRecord is the desired certificate-validation CNAME for one
// domain, in that domain's resolved hosted zone.
type ValidationRecord struct {
	DomainName   string
	HostedZoneID string
	Name         string
	Type         string
	Value        string
}

// Action is a record mutation kind.
type Action string

const (
	ActionUpsert Action = "UPSERT"
	ActionDelete Action = "DELETE"
)

// Change is one record mutation destined for one hosted zone.
type Change struct {
	Action       Action
	HostedZoneID string
	RecordSet    r53types.ResourceRecordSet
}

// ChangeRef identifies a submitted change batch for propagation waiting.
type ChangeRef struct {
	HostedZoneID string
	ChangeID     string
}

// ExistingRecord is a record set found in a zone, kept verbatim so DELETE
// changes can reproduce it exactly.
type ExistingRecord struct {
	HostedZoneID string
	RecordSet    r53types.ResourceRecordSet
}

const validationRecordTTL = 60

// UpsertAlias builds the UPSERT change for an alias record.
func UpsertAlias(rec AliasRecord) Change {
	return Change{
		Action:       ActionUpsert,
		HostedZoneID: rec.HostedZoneID,
		RecordSet: r53types.ResourceRecordSet{
			Name: aws.String(naming.FQDN(rec.Name)),
			Type: r53types.RRTypeA,
			AliasTarget: &r53types.AliasTarget{
				DNSName:              aws.String(naming.FQDN(rec.TargetDNS)),
				HostedZoneId:         aws.String(rec.TargetHostedZoneID),
				EvaluateTargetHealth: true,
			},
		},
	}
}

// UpsertValidation builds the UPSERT change for a validation record.
func UpsertValidation(rec ValidationRecord) Change {
	recordType := r53types.RRType(rec.Type)
	if rec.Type == "" {
		recordType = r53types.RRTypeCname
	}
	return Change{
		Action:       ActionUpsert,
		HostedZoneID: rec.HostedZoneID,
		RecordSet: r53types.ResourceRecordSet{
			Name: aws.String(naming.FQDN(rec.Name)),
			Type: recordType,
			TTL:  aws.Int64(validationRecordTTL),
			ResourceRecords: []r53types.ResourceRecord{
				{Value: aws.String(rec.Value)},
			},
		},
	}
}

// DeleteRecord builds the DELETE change for a record found by lookup.
func DeleteRecord(existing ExistingRecord) Change {
	return Change{
		Action:       ActionDelete,
		HostedZoneID: existing.HostedZoneID,
		RecordSet:    existing.RecordSet,
	}
}

// ServiceConfig configures a Service. Zero values fall back to defaults.
type ServiceConfig struct {
	// PropagationWaitTimeout caps each per-change INSYNC wait.
	PropagationWaitTimeout time.Duration

	Logger *zap.Logger
}

// Service is the DNS-side collaborator of the lifecycle engine.
type Service struct {
	api    API
	waiter ChangedWaiter
	config ServiceConfig
}

// NewService creates a Service over the given Route53 surface.
func NewService(api API, waiter ChangedWaiter, config ServiceConfig) *Service {
	if config.PropagationWaitTimeout == 0 {
		config.PropagationWaitTimeout = DefaultPropagationWaitTimeout
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &Service{api: api, waiter: waiter, config: config}
}

// NewServiceFromClient wires a Service to a concrete Route53 client.
func NewServiceFromClient(client *route53.Client, config ServiceConfig) *Service {
	return NewService(client, route53.NewResourceRecordSetsChangedWaiter(client), config)
}

// DefaultPropagationWaitTimeout matches Route53's documented worst-case
// propagation of a change batch.
const DefaultPropagationWaitTimeout = 5 * time.Minute
