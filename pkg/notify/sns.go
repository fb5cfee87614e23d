// Package notify publishes failure notifications for invocations that end
// FAILED, so operators hear about broken stacks without tailing logs.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/theory-cloud/certtheory/pkg/sanitization"
)

type snsAPI interface {
	Publish(
		ctx context.Context,
		params *sns.PublishInput,
		optFns ...func(*sns.Options),
	) (*sns.PublishOutput, error)
}

// Failure is what gets published for one FAILED invocation.
type Failure struct {
	RequestType        string `json:"request_type"`
	PhysicalResourceID string `json:"physical_resource_id"`
	Reason             string `json:"reason"`
	CorrelationID      string `json:"correlation_id,omitempty"`
	LogGroup           string `json:"log_group,omitempty"`
	LogStream          string `json:"log_stream,omitempty"`
}

// Notifier publishes Failures to an SNS topic.
type Notifier struct {
	client   snsAPI
	topicARN string
	subject  string
}

// NewNotifier creates a Notifier. A nil Notifier is valid and does nothing.
func NewNotifier(client snsAPI, topicARN, subject string) *Notifier {
	return &Notifier{
		client:   client,
		topicARN: strings.TrimSpace(topicARN),
		subject:  strings.TrimSpace(subject),
	}
}

// TopicARNEnvVars are checked in order for the notification topic.
var TopicARNEnvVars = []string{
	"CERTTHEORY_FAILURE_TOPIC_ARN",
	"FAILURE_NOTIFICATIONS_TOPIC_ARN",
}

// FromEnvironment returns a Notifier when a topic ARN is configured, nil
// otherwise. Notification is strictly optional.
func FromEnvironment(client snsAPI) *Notifier {
	for _, key := range TopicARNEnvVars {
		if arn := strings.TrimSpace(os.Getenv(key)); arn != "" {
			return NewNotifier(client, arn, os.Getenv("CERTTHEORY_FAILURE_SUBJECT"))
		}
	}
	return nil
}

// Notify publishes one failure. Errors are returned for logging only; a
// failed notification never changes the invocation outcome.
func (n *Notifier) Notify(ctx context.Context, failure Failure) error {
	if n == nil || n.client == nil {
		return nil
	}
	if n.topicARN == "" {
		return errors.New("notify: sns topic arn is empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	failure.Reason = sanitization.SingleLine(failure.Reason)
	body, err := json.Marshal(map[string]any{
		"failure": failure,
		"env": map[string]string{
			"aws_region":               os.Getenv("AWS_REGION"),
			"aws_lambda_function_name": os.Getenv("AWS_LAMBDA_FUNCTION_NAME"),
		},
	})
	if err != nil {
		return err
	}

	subject := n.subject
	if subject == "" {
		subject = "certtheory failure"
	}
	subject = sanitization.Truncate(sanitization.SingleLine(subject), 100)

	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(sanitization.Truncate(string(body), 256*1024)),
	})
	return err
}
