package infrastructure

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/draftea/order-fulfillment/shared/events"
	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, evts ...*events.Event) error {
	return m.Called(ctx, evts).Error(0)
}

type failingStore struct {
	events.Store
}

func (failingStore) Append(context.Context, ...*events.Event) error {
	return errors.New("disk full")
}

func TestRecordingPublisher(t *testing.T) {
	sagaID := models.GenerateUUID()
	started := events.NewEvent(sagaID, events.SagaExecutionRequestedEvent, map[string]string{"saga_id": sagaID.String()}).
		WithMetadata(SQSReceiptHandleKey, "handle")
	finished := events.NewEvent(sagaID, events.SagaCompletedEvent, map[string]string{"status": "COMPLETED"})

	t.Run("stores then publishes", func(t *testing.T) {
		store := NewMemoryEventStore()
		next := &mockPublisher{}
		next.On("Publish", mock.Anything, []*events.Event{started, finished}).Return(nil).Once()

		publisher := NewRecordingPublisher(store, next)
		require.NoError(t, publisher.Publish(context.Background(), started, finished))
		// redelivered events are stored once
		next.On("Publish", mock.Anything, []*events.Event{finished}).Return(nil).Once()
		require.NoError(t, publisher.Publish(context.Background(), finished))

		stream, err := store.GetEvents(context.Background(), sagaID)
		require.NoError(t, err)
		require.Len(t, stream, 2)
		assert.Equal(t, events.SagaExecutionRequestedEvent, stream[0].EventType)
		assert.Equal(t, events.SagaCompletedEvent, stream[1].EventType)
		assert.NotContains(t, stream[0].Metadata, SQSReceiptHandleKey)

		var data map[string]string
		require.NoError(t, stream[1].UnmarshalPayload(&data))
		assert.Equal(t, "COMPLETED", data["status"])
		assert.IsType(t, json.RawMessage{}, stream[1].Data)

		next.AssertExpectations(t)
	})

	t.Run("store failure skips publishing", func(t *testing.T) {
		next := &mockPublisher{}

		err := NewRecordingPublisher(failingStore{}, next).Publish(context.Background(), finished)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to record events")
		next.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("publisher failure is returned", func(t *testing.T) {
		next := &mockPublisher{}
		next.On("Publish", mock.Anything, mock.Anything).Return(errors.New("sns down")).Once()

		err := NewRecordingPublisher(NewMemoryEventStore(), next).Publish(context.Background(), finished)

		assert.EqualError(t, err, "sns down")
	})
}
