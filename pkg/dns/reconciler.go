package dns

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/theory-cloud/certtheory/pkg/naming"
)

const changeBatchComment = "managed by certtheory"

// Apply groups changes by destination hosted zone and submits one change
// batch per zone, concurrently. Zones are disjoint resources, so there is
// no ordering between batches and no cross-zone rollback: batches already
// committed stay committed when a later one fails.
//
// DELETE changes whose record no longer exists are treated as success: the
// desired end state is already reached, and reconciliation must be safe to
// re-run after a partial prior failure.
func (s *Service) Apply(ctx context.Context, changes []Change) ([]ChangeRef, error) {
	if len(changes) == 0 {
		return nil, nil
	}

	byZone := make(map[string][]Change)
	for _, change := range changes {
		byZone[change.HostedZoneID] = append(byZone[change.HostedZoneID], change)
	}

	zones := make([]string, 0, len(byZone))
	for zone := range byZone {
		zones = append(zones, zone)
	}
	sort.Strings(zones)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		refs     []ChangeRef
	)
	for _, zone := range zones {
		wg.Add(1)
		go func(zone string, zoneChanges []Change) {
			defer wg.Done()

			ref, err := s.submitZone(ctx, zone, zoneChanges)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			if ref != nil {
				refs = append(refs, *ref)
			}
		}(zone, byZone[zone])
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].HostedZoneID < refs[j].HostedZoneID })
	return refs, nil
}

func (s *Service) submitZone(ctx context.Context, hostedZoneID string, changes []Change) (*ChangeRef, error) {
	ref, err := s.changeRecordSets(ctx, hostedZoneID, changes)
	if err == nil {
		return ref, nil
	}

	remaining, recovered := dropNotFoundDeletes(changes, err)
	if !recovered {
		return nil, &ChangeSubmitError{HostedZoneID: hostedZoneID, Err: err}
	}

	s.config.Logger.Info("skipped deletes for records already absent",
		zap.String("hosted_zone_id", hostedZoneID),
		zap.Int("dropped", len(changes)-len(remaining)),
	)
	if len(remaining) == 0 {
		return nil, nil
	}

	ref, err = s.changeRecordSets(ctx, hostedZoneID, remaining)
	if err != nil {
		return nil, &ChangeSubmitError{HostedZoneID: hostedZoneID, Err: err}
	}
	return ref, nil
}

func (s *Service) changeRecordSets(ctx context.Context, hostedZoneID string, changes []Change) (*ChangeRef, error) {
	batch := make([]r53types.Change, len(changes))
	for i, change := range changes {
		rrset := change.RecordSet
		batch[i] = r53types.Change{
			Action:            r53types.ChangeAction(change.Action),
			ResourceRecordSet: &rrset,
		}
	}

	out, err := s.api.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(hostedZoneID),
		ChangeBatch: &r53types.ChangeBatch{
			Changes: batch,
			Comment: aws.String(changeBatchComment),
		},
	})
	if err != nil {
		return nil, err
	}

	ref := &ChangeRef{HostedZoneID: hostedZoneID}
	if out.ChangeInfo != nil {
		ref.ChangeID = aws.ToString(out.ChangeInfo.Id)
	}
	s.config.Logger.Info("change batch submitted",
		zap.String("hosted_zone_id", hostedZoneID),
		zap.String("change_id", ref.ChangeID),
		zap.Int("changes", len(changes)),
	)
	return ref, nil
}

// dropNotFoundDeletes returns changes minus the DELETE entries the provider
// rejected as not found, and whether the error consisted solely of such
// rejections. It inspects the structured InvalidChangeBatch message list
// first and falls back to matching the raw error text only when the typed
// error is unavailable.
func dropNotFoundDeletes(changes []Change, err error) ([]Change, bool) {
	messages := invalidChangeBatchMessages(err)
	if len(messages) == 0 {
		messages = rawRejectionMessages(err.Error())
	}
	if len(messages) == 0 {
		// Unparsable text. Only safe to recover when the whole batch was
		// deletes.
		if !isNotFoundText(err.Error()) || !allDeletes(changes) {
			return nil, false
		}
		return nil, true
	}

	remaining := append([]Change(nil), changes...)
	for _, message := range messages {
		if !isNotFoundText(message) {
			return nil, false
		}
		name, recordType, ok := parseRejectedRecord(message)
		if !ok {
			return nil, false
		}
		matched := false
		for i, change := range remaining {
			if change.Action != ActionDelete {
				continue
			}
			if naming.NormalizeDomain(aws.ToString(change.RecordSet.Name)) != naming.NormalizeDomain(name) {
				continue
			}
			if recordType != "" && string(change.RecordSet.Type) != recordType {
				continue
			}
			remaining = append(remaining[:i], remaining[i+1:]...)
			matched = true
			break
		}
		if !matched {
			return nil, false
		}
	}
	return remaining, true
}

func invalidChangeBatchMessages(err error) []string {
	var icb *r53types.InvalidChangeBatch
	if errors.As(err, &icb) {
		return icb.Messages
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidChangeBatch" {
		return []string{apiErr.ErrorMessage()}
	}
	return nil
}

func isNotFoundText(message string) bool {
	return strings.Contains(message, "but it was not found")
}

// rawRejectionMessages splits an unstructured InvalidChangeBatch error text
// into its per-record rejection fragments, so a partially absent delete
// batch still drops only the records the provider actually named.
func rawRejectionMessages(text string) []string {
	parts := strings.Split(text, "Tried to delete")
	if len(parts) < 2 {
		return nil
	}
	messages := make([]string, 0, len(parts)-1)
	for _, part := range parts[1:] {
		messages = append(messages, "Tried to delete"+part)
	}
	return messages
}

// parseRejectedRecord extracts name and type from a Route53 rejection like
// "Tried to delete resource record set [name='a.example.com.', type='A']
// but it was not found".
func parseRejectedRecord(message string) (name, recordType string, ok bool) {
	name, ok = between(message, "name='", "'")
	if !ok {
		return "", "", false
	}
	recordType, _ = between(message, "type='", "'")
	return name, recordType, true
}

func between(s, start, end string) (string, bool) {
	i := strings.Index(s, start)
	if i < 0 {
		return "", false
	}
	s = s[i+len(start):]
	j := strings.Index(s, end)
	if j < 0 {
		return "", false
	}
	return s[:j], true
}

func allDeletes(changes []Change) bool {
	for _, change := range changes {
		if change.Action != ActionDelete {
			return false
		}
	}
	return true
}
