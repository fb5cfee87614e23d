package dns

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/theory-cloud/certtheory/pkg/naming"
)

// AliasCandidate is one alias to conflict-check in its resolved zone.
type AliasCandidate struct {
	Alias        string
	HostedZoneID string
}

// CheckAliasConflicts verifies that no candidate alias already routes to a
// load balancer other than loadBalancerDNS. Candidates are checked
// concurrently and independently; every conflict is collected rather than
// stopping at the first, so the operator sees the full set at once. A
// lookup failure takes precedence and propagates immediately.
//
// An absent record, or a record already targeting loadBalancerDNS, is not a
// conflict: this service may safely create or overwrite it.
func (s *Service) CheckAliasConflicts(ctx context.Context, candidates []AliasCandidate, loadBalancerDNS string) error {
	if len(candidates) == 0 {
		return nil
	}
	lbDNS := naming.NormalizeDomain(loadBalancerDNS)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		lookupErr error
		conflicts []*ConflictError
	)

	for _, candidate := range candidates {
		wg.Add(1)
		go func(candidate AliasCandidate) {
			defer wg.Done()

			existing, err := s.FindAliasRecord(ctx, candidate.HostedZoneID, candidate.Alias)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if lookupErr == nil {
					lookupErr = err
				}
				return
			}
			if existing == nil {
				return
			}
			if target := existing.Target(); target != "" && target != lbDNS {
				conflicts = append(conflicts, &ConflictError{
					Alias:         naming.NormalizeDomain(candidate.Alias),
					ForeignTarget: target,
				})
			}
		}(candidate)
	}
	wg.Wait()

	if lookupErr != nil {
		return lookupErr
	}
	if len(conflicts) == 0 {
		return nil
	}

	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Alias < conflicts[j].Alias })
	s.config.Logger.Warn("alias conflicts detected", zap.Int("count", len(conflicts)))

	errs := make([]error, len(conflicts))
	for i, conflict := range conflicts {
		errs[i] = conflict
	}
	return errors.Join(errs...)
}
