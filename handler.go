package certtheory

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"

	"github.com/theory-cloud/certtheory/pkg/notify"
)

// CustomResourceHandler adapts the Manager to the custom-resource envelope.
// The wrapper delivers exactly one signed response per invocation; a
// non-nil error becomes the FAILED reason, so the reason string built here
// is the only diagnostic the stack operator sees.
//
// notifier may be nil; failure notification is optional and never changes
// the invocation outcome.
func (m *Manager) CustomResourceHandler(notifier *notify.Notifier) cfn.CustomResourceFunction {
	return func(ctx context.Context, event cfn.Event) (string, map[string]interface{}, error) {
		correlationID := m.ids.NewID()
		log := m.log.With(
			zap.String("correlation_id", correlationID),
			zap.String("cfn_request_id", event.RequestID),
			zap.String("logical_resource_id", event.LogicalResourceID),
		)

		req, err := RequestFromEvent(event)
		if err != nil {
			log.Error("rejecting malformed event", zap.Error(err))
			return failedPhysicalID(event), nil, reasonError(err, correlationID)
		}

		res := m.Run(ctx, req)
		physicalID := res.PhysicalResourceID
		if req.Type == RequestDelete && event.PhysicalResourceID != "" {
			// Echo the identity CloudFormation is tearing down; a replaced
			// resource's Delete arrives with the old physical id.
			physicalID = event.PhysicalResourceID
		}

		if res.Err != nil {
			if notifyErr := notifier.Notify(ctx, notify.Failure{
				RequestType:        string(req.Type),
				PhysicalResourceID: physicalID,
				Reason:             FailureReason(res.Err),
				CorrelationID:      correlationID,
				LogGroup:           lambdacontext.LogGroupName,
				LogStream:          lambdacontext.LogStreamName,
			}); notifyErr != nil {
				log.Warn("failure notification not delivered", zap.Error(notifyErr))
			}
			return physicalID, nil, reasonError(res.Err, correlationID)
		}
		return physicalID, res.Data, nil
	}
}

// failedPhysicalID picks an identifier for failures that happen before a
// Request exists. CloudFormation treats an empty physical id on FAILED as a
// protocol error, so there is always a fallback.
func failedPhysicalID(event cfn.Event) string {
	if event.PhysicalResourceID != "" {
		return event.PhysicalResourceID
	}
	return "certtheory-" + event.LogicalResourceID
}

// reasonError renders the single-line FAILED reason, suffixed with the
// log-correlation token when log group/stream context is available.
func reasonError(err error, correlationID string) error {
	reason := FailureReason(err)
	if lambdacontext.LogGroupName != "" && lambdacontext.LogStreamName != "" {
		reason = fmt.Sprintf("%s (logs: %s/%s correlation: %s)",
			reason, lambdacontext.LogGroupName, lambdacontext.LogStreamName, correlationID)
	} else {
		reason = fmt.Sprintf("%s (correlation: %s)", reason, correlationID)
	}
	return errors.New(reason)
}
