package infrastructure

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/draftea/order-fulfillment/shared/events"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	SQSMessageIDKey     = "sqs_message_id"
	SQSReceiptHandleKey = "sqs_receipt_handle"
)

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

type sqsMessage struct {
	Message types.Message
	Event   *events.Event
	Err     error
}

// snsEnvelope is the body SQS receives from an SNS subscription without raw delivery
type snsEnvelope struct {
	Type      string `json:"Type"`
	MessageID string `json:"MessageId"`
	Message   string `json:"Message"`
}

// SQSEventSubscriber reads events from an SQS queue and hands them to a handler.
// Handled messages are deleted; failed ones get a growing visibility timeout
// and are redelivered.
type SQSEventSubscriber struct {
	mux     sync.Mutex
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	running atomic.Bool
	options *sqsSubscriberOptions

	client   sqsAPI
	queueURL string
	handler  events.EventHandler
	logger   *zap.Logger
}

type sqsSubscriberOptions struct {
	workers                        int32
	readers                        int32
	cleaners                       int32
	maxNumberOfMessages            int32
	waitTimeSeconds                int32
	visibilityTimeout              int32
	sleepTimeAfterEmptyReceive     time.Duration
	sleepTimeAfterError            time.Duration
	ack                            bool
	extendVisibilityTimeoutOnError bool
	receiveCountRange              int32
	visibilityTimeoutOffset        int32
	maxVisibilityTimeout           int32
}

type SQSSubscriberOption func(*sqsSubscriberOptions)

func WithWorkers(workers int32) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.workers = workers
	}
}

func WithReaders(readers int32) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.readers = readers
	}
}

func WithVisibilityTimeout(timeout int32) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.visibilityTimeout = timeout
	}
}

func WithWaitTimeSeconds(seconds int32) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.waitTimeSeconds = seconds
	}
}

// WithIdleSleep sets the pauses after an empty receive and after a receive error
func WithIdleSleep(afterEmpty, afterError time.Duration) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.sleepTimeAfterEmptyReceive = afterEmpty
		o.sleepTimeAfterError = afterError
	}
}

// NewSQSEventSubscriber creates a new SQS event subscriber
func NewSQSEventSubscriber(
	client sqsAPI,
	queueURL string,
	handler events.EventHandler,
	logger *zap.Logger,
	opts ...SQSSubscriberOption,
) *SQSEventSubscriber {
	options := &sqsSubscriberOptions{
		workers:                        10,
		readers:                        1,
		cleaners:                       2,
		maxNumberOfMessages:            5,
		waitTimeSeconds:                15,
		visibilityTimeout:              60,
		sleepTimeAfterEmptyReceive:     time.Second,
		sleepTimeAfterError:            20 * time.Second,
		ack:                            true,
		extendVisibilityTimeoutOnError: true,
		receiveCountRange:              3,
		visibilityTimeoutOffset:        30,
		maxVisibilityTimeout:           900, // 15 minutes
	}

	for _, opt := range opts {
		opt(options)
	}

	return &SQSEventSubscriber{
		client:   client,
		queueURL: queueURL,
		handler:  handler,
		logger:   logger.With(zap.String("queue_url", queueURL)),
		options:  options,
	}
}

// Start launches the readers, workers and cleaners. Starting twice is a no-op.
func (s *SQSEventSubscriber) Start(ctx context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.running.Load() {
		return nil
	}
	if s.handler == nil {
		return errors.New("no handler configured")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	inbound := make(chan *sqsMessage, s.options.maxNumberOfMessages)
	outbound := make(chan *sqsMessage, s.options.maxNumberOfMessages)

	s.spawn(int(s.options.workers), func() { s.startWorker(ctx, inbound, outbound) })
	s.spawn(int(s.options.readers), func() { s.startReader(ctx, inbound) })
	s.spawn(int(s.options.cleaners), func() { s.startCleaner(ctx, outbound) })

	s.running.Store(true)
	s.logger.Info("sqs subscriber started",
		zap.Int32("workers", s.options.workers),
		zap.Int32("readers", s.options.readers),
	)

	return nil
}

// Stop cancels every goroutine and waits for them to exit
func (s *SQSEventSubscriber) Stop(ctx context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	if !s.running.Load() {
		return nil
	}

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "sqs subscriber did not stop in time")
	}

	s.cancel = nil
	s.running.Store(false)
	s.logger.Info("sqs subscriber stopped")

	return nil
}

func (s *SQSEventSubscriber) spawn(n int, fn func()) {
	for i := 0; i < n; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			fn()
		}()
	}
}

func (s *SQSEventSubscriber) startWorker(ctx context.Context, inbound <-chan *sqsMessage, outbound chan<- *sqsMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case message := <-inbound:
			s.handle(ctx, message)

			select {
			case outbound <- message:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *SQSEventSubscriber) startReader(ctx context.Context, inbound chan<- *sqsMessage) {
	for ctx.Err() == nil {
		received, err := s.read(ctx, inbound)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("failed to receive from sqs", zap.Error(err))
			sleep(ctx, s.options.sleepTimeAfterError)
		case received == 0:
			sleep(ctx, s.options.sleepTimeAfterEmptyReceive)
		}
	}
}

func (s *SQSEventSubscriber) startCleaner(ctx context.Context, outbound <-chan *sqsMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case message := <-outbound:
			if err := s.clean(ctx, message); err != nil {
				s.logger.Error("failed to settle sqs message",
					zap.String("message_id", aws.ToString(message.Message.MessageId)),
					zap.Error(err),
				)
			}
		}
	}
}

func (s *SQSEventSubscriber) read(ctx context.Context, inbound chan<- *sqsMessage) (int, error) {
	output, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(s.queueURL),
		MaxNumberOfMessages: s.options.maxNumberOfMessages,
		WaitTimeSeconds:     s.options.waitTimeSeconds,
		VisibilityTimeout:   s.options.visibilityTimeout,
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameApproximateReceiveCount,
		},
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to receive message from SQS")
	}

	for _, message := range output.Messages {
		event, err := decodeMessage(message)
		if err != nil {
			// left on the queue; the redrive policy moves it to the DLQ
			s.logger.Warn("skipping malformed sqs message",
				zap.String("message_id", aws.ToString(message.MessageId)),
				zap.Error(err),
			)
			continue
		}

		select {
		case inbound <- &sqsMessage{Message: message, Event: event}:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	return len(output.Messages), nil
}

// decodeMessage accepts both raw events and SNS notification envelopes
func decodeMessage(message types.Message) (*events.Event, error) {
	body := []byte(aws.ToString(message.Body))

	var envelope snsEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Type == "Notification" {
		body = []byte(envelope.Message)
	}

	var event events.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal event")
	}
	if event.EventType == "" {
		return nil, errors.New("event type is missing")
	}

	if event.Metadata == nil {
		event.Metadata = make(events.Metadata)
	}
	event.Metadata.Set(SQSMessageIDKey, aws.ToString(message.MessageId))
	if message.ReceiptHandle != nil {
		event.Metadata.Set(SQSReceiptHandleKey, *message.ReceiptHandle)
	}
	for k, v := range message.MessageAttributes {
		if v.StringValue != nil {
			event.Metadata.Set(k, *v.StringValue)
		}
	}

	return &event, nil
}

func (s *SQSEventSubscriber) handle(ctx context.Context, message *sqsMessage) {
	message.Err = s.handler.Handle(ctx, message.Event)
	if message.Err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", message.Event.EventType),
			zap.String("event_id", message.Event.ID.String()),
			zap.Error(message.Err),
		)
	}
}

func (s *SQSEventSubscriber) clean(ctx context.Context, message *sqsMessage) error {
	if message.Err != nil {
		if !s.options.extendVisibilityTimeoutOnError {
			return nil
		}

		_, err := s.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
			QueueUrl:          aws.String(s.queueURL),
			ReceiptHandle:     message.Message.ReceiptHandle,
			VisibilityTimeout: s.retryVisibilityTimeout(message.Message),
		})
		if err != nil {
			return errors.Wrap(err, "failed to extend visibility timeout")
		}
		return nil
	}

	if s.options.ack {
		_, err := s.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(s.queueURL),
			ReceiptHandle: message.Message.ReceiptHandle,
		})
		if err != nil {
			return errors.Wrap(err, "failed to delete message from SQS")
		}
	}

	return nil
}

// retryVisibilityTimeout grows by visibilityTimeoutOffset every receiveCountRange deliveries
func (s *SQSEventSubscriber) retryVisibilityTimeout(message types.Message) int32 {
	receiveCount, err := strconv.Atoi(message.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)])
	if err != nil {
		receiveCount = 1
	}

	timeout := s.options.visibilityTimeout
	timeout += (int32(receiveCount) / s.options.receiveCountRange) * s.options.visibilityTimeoutOffset

	return min(timeout, s.options.maxVisibilityTimeout)
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
