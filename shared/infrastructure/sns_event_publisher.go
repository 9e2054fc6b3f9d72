package infrastructure

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/draftea/order-fulfillment/shared/events"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var _ events.Publisher = (*SNSEventPublisher)(nil)

const (
	maxBatchSize = 10

	EventTypeAttribute     = "event_type"
	CorrelationIDAttribute = "correlation_id"
)

type snsAPI interface {
	PublishBatch(ctx context.Context, params *sns.PublishBatchInput, optFns ...func(*sns.Options)) (*sns.PublishBatchOutput, error)
}

// SNSEventPublisher implements Publisher using AWS SNS
type SNSEventPublisher struct {
	client   snsAPI
	topicArn string
	logger   *zap.Logger
}

// NewSNSEventPublisher creates a new SNSEventPublisher
func NewSNSEventPublisher(client snsAPI, topicArn string, logger *zap.Logger) *SNSEventPublisher {
	return &SNSEventPublisher{
		client:   client,
		topicArn: topicArn,
		logger:   logger,
	}
}

// Publish publishes events to SNS in batches of ten
func (p *SNSEventPublisher) Publish(ctx context.Context, evts ...*events.Event) error {
	if len(evts) == 0 {
		return nil
	}

	gr, ctx := errgroup.WithContext(ctx)

	for _, eventBatch := range splitToChunks(evts, maxBatchSize) {
		gr.Go(func() error {
			return p.batchPublish(ctx, eventBatch)
		})
	}

	return gr.Wait()
}

func (p *SNSEventPublisher) batchPublish(ctx context.Context, batch []*events.Event) error {
	requests := make([]types.PublishBatchRequestEntry, len(batch))

	for i, event := range batch {
		message, err := json.Marshal(event)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal event %s", event.EventType)
		}

		requests[i] = types.PublishBatchRequestEntry{
			Id:                aws.String(event.ID.String()),
			Message:           aws.String(string(message)),
			MessageAttributes: messageAttributes(event),
		}
	}

	res, err := p.client.PublishBatch(ctx, &sns.PublishBatchInput{
		TopicArn:                   aws.String(p.topicArn),
		PublishBatchRequestEntries: requests,
	})
	if err != nil {
		return errors.Wrap(err, "failed to publish batch to SNS")
	}

	if len(res.Failed) == 0 {
		return nil
	}

	failed := make([]string, 0, len(res.Failed))
	for _, entry := range res.Failed {
		id := aws.ToString(entry.Id)
		p.logger.Error("sns entry rejected",
			zap.String("event_id", id),
			zap.String("code", aws.ToString(entry.Code)),
			zap.String("message", aws.ToString(entry.Message)),
		)
		failed = append(failed, id)
	}

	return errors.Errorf("sns rejected %d of %d events: %s", len(failed), len(batch), strings.Join(failed, ","))
}

// messageAttributes exposes the event type for subscription filter policies
func messageAttributes(event *events.Event) map[string]types.MessageAttributeValue {
	attrs := map[string]types.MessageAttributeValue{
		EventTypeAttribute: {
			DataType:    aws.String("String"),
			StringValue: aws.String(event.EventType),
		},
	}

	if event.CorrelationID != "" {
		attrs[CorrelationIDAttribute] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(event.CorrelationID),
		}
	}

	for k, v := range event.Metadata {
		if k == SQSMessageIDKey || k == SQSReceiptHandleKey || v == "" {
			continue
		}
		if _, reserved := attrs[k]; reserved {
			continue
		}

		attrs[k] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(v),
		}
	}

	return attrs
}

// splitToChunks splits slice into chunks of specified size
func splitToChunks[T any](slice []T, chunkSize int) [][]T {
	var chunks [][]T
	for i := 0; i < len(slice); i += chunkSize {
		end := min(i+chunkSize, len(slice))
		chunks = append(chunks, slice[i:end])
	}
	return chunks
}
