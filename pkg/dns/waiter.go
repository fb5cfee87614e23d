package dns

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"go.uber.org/zap"
)

// WaitChanges blocks until every submitted change batch reports INSYNC,
// one wait per change id, run concurrently. Any wait failure is fatal to
// the invocation; changes already propagated stay applied.
func (s *Service) WaitChanges(ctx context.Context, refs []ChangeRef) error {
	if len(refs) == 0 {
		return nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, ref := range refs {
		if ref.ChangeID == "" {
			continue
		}
		wg.Add(1)
		go func(ref ChangeRef) {
			defer wg.Done()

			err := s.waiter.Wait(ctx, &route53.GetChangeInput{
				Id: aws.String(ref.ChangeID),
			}, s.config.PropagationWaitTimeout)

			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = &PropagationWaitError{
					HostedZoneID: ref.HostedZoneID,
					ChangeID:     ref.ChangeID,
					Err:          err,
				}
			}
		}(ref)
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	s.config.Logger.Info("change batches in sync", zap.Int("batches", len(refs)))
	return nil
}
