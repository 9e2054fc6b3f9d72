package events

import (
	"encoding/json"
	"testing"

	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sagaPayload struct {
	SagaID  models.ID `json:"saga_id"`
	OrderID models.ID `json:"order_id"`
}

func TestEvent_UnmarshalPayload(t *testing.T) {
	sagaID := models.GenerateUUID()
	orderID := models.GenerateUUID()

	tests := []struct {
		name          string
		data          interface{}
		expectedError error
	}{
		{
			name: "typed payload",
			data: sagaPayload{SagaID: sagaID, OrderID: orderID},
		},
		{
			name: "decoded from the wire",
			data: map[string]interface{}{"saga_id": sagaID.String(), "order_id": orderID.String()},
		},
		{
			name: "raw json",
			data: json.RawMessage(`{"saga_id":"` + sagaID.String() + `","order_id":"` + orderID.String() + `"}`),
		},
		{
			name:          "missing payload",
			expectedError: ErrInvalidPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := NewEvent(sagaID, SagaExecutionRequestedEvent, tt.data)

			var payload sagaPayload
			err := event.UnmarshalPayload(&payload)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, sagaPayload{SagaID: sagaID, OrderID: orderID}, payload)
		})
	}
}

func TestEvent_UnmarshalPayloadRequiresPointer(t *testing.T) {
	event := NewEvent(models.GenerateUUID(), OrderCreatedEvent, map[string]string{"order_id": "x"})

	var payload sagaPayload
	assert.ErrorIs(t, event.UnmarshalPayload(payload), ErrInvalidReceiver)
}

func TestMetadata(t *testing.T) {
	event := NewEvent(models.GenerateUUID(), OrderCreatedEvent, nil).
		WithCorrelationID("order-1-1700000000000").
		WithMetadata("user_id", "u-1")

	assert.Equal(t, "order-1-1700000000000", event.CorrelationID)
	value, ok := event.Metadata.Get("user_id")
	assert.True(t, ok)
	assert.Equal(t, "u-1", value)

	clone := event.Metadata.Clone()
	clone.Set("user_id", "u-2")
	value, _ = event.Metadata.Get("user_id")
	assert.Equal(t, "u-1", value)

	var empty Metadata
	empty.Set("ignored", "x")
	assert.Nil(t, empty)
}
