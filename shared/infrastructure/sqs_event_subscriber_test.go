package infrastructure

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/draftea/order-fulfillment/shared/events"
	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

// fakeSQS serves one batch of messages, then empty receives
type fakeSQS struct {
	mu         sync.Mutex
	pending    []types.Message
	deleted    []string
	visibility map[string]int32
	receives   []*sqs.ReceiveMessageInput
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receives = append(f.receives, in)

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	out := &sqs.ReceiveMessageOutput{Messages: f.pending}
	f.pending = nil
	return out, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) ChangeMessageVisibility(_ context.Context, in *sqs.ChangeMessageVisibilityInput, _ ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visibility[aws.ToString(in.ReceiptHandle)] = in.VisibilityTimeout
	return &sqs.ChangeMessageVisibilityOutput{}, nil
}

func (f *fakeSQS) settled() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deleted) + len(f.visibility)
}

func sqsMessageFor(t *testing.T, event *events.Event, handle, receiveCount string) types.Message {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)

	return types.Message{
		MessageId:     aws.String("msg-" + handle),
		ReceiptHandle: aws.String(handle),
		Body:          aws.String(string(body)),
		Attributes: map[string]string{
			string(types.MessageSystemAttributeNameApproximateReceiveCount): receiveCount,
		},
	}
}

func TestSQSEventSubscriber_SettlesMessages(t *testing.T) {
	defer goleak.VerifyNone(t)

	ok := events.NewEvent(models.GenerateUUID(), events.OrderCreatedEvent, map[string]string{"order_id": "1"})
	failing := events.NewEvent(models.GenerateUUID(), events.SagaExecutionRequestedEvent, map[string]string{"saga_id": "2"})

	client := &fakeSQS{
		pending: []types.Message{
			sqsMessageFor(t, ok, "h-ok", "1"),
			sqsMessageFor(t, failing, "h-fail", "7"),
		},
		visibility: make(map[string]int32),
	}

	handler := events.EventHandlerFunc(func(_ context.Context, event *events.Event) error {
		if event.EventType == events.SagaExecutionRequestedEvent {
			return errors.New("store unavailable")
		}
		return nil
	})

	subscriber := NewSQSEventSubscriber(client, "queue", handler, zap.NewNop(),
		WithWorkers(2),
		WithVisibilityTimeout(60),
		WithIdleSleep(5*time.Millisecond, 5*time.Millisecond),
	)

	require.NoError(t, subscriber.Start(context.Background()))
	require.NoError(t, subscriber.Start(context.Background()))

	assert.Eventually(t, func() bool { return client.settled() == 2 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, subscriber.Stop(ctx))
	require.NoError(t, subscriber.Stop(ctx))

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Equal(t, []string{"h-ok"}, client.deleted)
	// 60s base plus 30s for every three deliveries
	assert.Equal(t, map[string]int32{"h-fail": 120}, client.visibility)
}

func TestSQSEventSubscriber_ReceiveOptions(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := &fakeSQS{visibility: make(map[string]int32)}
	handler := events.EventHandlerFunc(func(context.Context, *events.Event) error { return nil })

	subscriber := NewSQSEventSubscriber(client, "queue", handler, zap.NewNop(),
		WithWorkers(1),
		WithReaders(3),
		WithWaitTimeSeconds(20),
		WithVisibilityTimeout(660),
		WithIdleSleep(5*time.Millisecond, 5*time.Millisecond),
	)

	require.NoError(t, subscriber.Start(context.Background()))

	assert.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return len(client.receives) >= 3
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, subscriber.Stop(ctx))

	client.mu.Lock()
	defer client.mu.Unlock()
	for _, in := range client.receives {
		assert.Equal(t, "queue", aws.ToString(in.QueueUrl))
		assert.Equal(t, int32(20), in.WaitTimeSeconds)
		assert.Equal(t, int32(660), in.VisibilityTimeout)
	}
}

func TestDecodeMessage(t *testing.T) {
	event := events.NewEvent(models.GenerateUUID(), events.OrderCreatedEvent, map[string]string{"order_id": "1"})
	raw, err := json.Marshal(event)
	require.NoError(t, err)

	envelope, err := json.Marshal(snsEnvelope{Type: "Notification", MessageID: "sns-1", Message: string(raw)})
	require.NoError(t, err)

	tests := []struct {
		name          string
		body          string
		expectedError string
	}{
		{name: "raw event", body: string(raw)},
		{name: "sns envelope", body: string(envelope)},
		{name: "malformed body", body: "{", expectedError: "failed to unmarshal event"},
		{name: "missing event type", body: `{"id":"x"}`, expectedError: "event type is missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := decodeMessage(types.Message{
				MessageId:     aws.String("m-1"),
				ReceiptHandle: aws.String("h-1"),
				Body:          aws.String(tt.body),
				MessageAttributes: map[string]types.MessageAttributeValue{
					"user_id": {DataType: aws.String("String"), StringValue: aws.String("u-1")},
				},
			})

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, event.ID, decoded.ID)
			assert.Equal(t, events.OrderCreatedEvent, decoded.EventType)
			assert.Equal(t, events.Metadata{
				SQSMessageIDKey:     "m-1",
				SQSReceiptHandleKey: "h-1",
				"user_id":           "u-1",
			}, decoded.Metadata)
		})
	}
}
