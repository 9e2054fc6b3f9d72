package application

import (
	"context"
	"testing"

	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/draftea/order-fulfillment/order-saga-service/mocks"
	"github.com/draftea/order-fulfillment/shared/events"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRequestOrderFulfillment_Execute(t *testing.T) {
	order := newTestOrder(t)

	tests := []struct {
		name          string
		cmd           *RequestOrderFulfillmentCommand
		setupMocks    func(*mocks.MockOrderRepository, *mocks.MockSagaRepository, *mocks.MockPublisher)
		expectedError string
	}{
		{
			name: "starts saga and queues execution",
			cmd:  &RequestOrderFulfillmentCommand{OrderID: order.ID.String()},
			setupMocks: func(orders *mocks.MockOrderRepository, sagas *mocks.MockSagaRepository, publisher *mocks.MockPublisher) {
				orders.EXPECT().FindByID(mock.Anything, order.ID).Return(order, nil).Once()
				sagas.EXPECT().Create(mock.Anything, mock.MatchedBy(func(saga *domain.SagaRecord) bool {
					return saga.AggregateID == order.ID && saga.Status == domain.SagaStatusStarted
				})).Return(nil).Once()
				publisher.EXPECT().Publish(mock.Anything, mock.MatchedBy(func(evt *events.Event) bool {
					data, ok := evt.Data.(SagaExecutionRequestedData)
					return evt.EventType == events.SagaExecutionRequestedEvent &&
						ok && data.OrderID == order.ID &&
						evt.CorrelationID != ""
				})).Return(nil).Once()
			},
		},
		{
			name: "empty order ID",
			cmd:  &RequestOrderFulfillmentCommand{},
			setupMocks: func(*mocks.MockOrderRepository, *mocks.MockSagaRepository, *mocks.MockPublisher) {
				// No expectations - should fail validation
			},
			expectedError: "order ID is required",
		},
		{
			name: "invalid order ID format",
			cmd:  &RequestOrderFulfillmentCommand{OrderID: "invalid-uuid"},
			setupMocks: func(*mocks.MockOrderRepository, *mocks.MockSagaRepository, *mocks.MockPublisher) {
				// No expectations - should fail validation
			},
			expectedError: "invalid order ID",
		},
		{
			name: "order not found",
			cmd:  &RequestOrderFulfillmentCommand{OrderID: order.ID.String()},
			setupMocks: func(orders *mocks.MockOrderRepository, _ *mocks.MockSagaRepository, _ *mocks.MockPublisher) {
				orders.EXPECT().FindByID(mock.Anything, order.ID).Return(nil, nil).Once()
			},
			expectedError: "order not found",
		},
		{
			name: "order repository error",
			cmd:  &RequestOrderFulfillmentCommand{OrderID: order.ID.String()},
			setupMocks: func(orders *mocks.MockOrderRepository, _ *mocks.MockSagaRepository, _ *mocks.MockPublisher) {
				orders.EXPECT().FindByID(mock.Anything, order.ID).Return(nil, errors.New("database error")).Once()
			},
			expectedError: "failed to find order",
		},
		{
			name: "saga repository error",
			cmd:  &RequestOrderFulfillmentCommand{OrderID: order.ID.String()},
			setupMocks: func(orders *mocks.MockOrderRepository, sagas *mocks.MockSagaRepository, _ *mocks.MockPublisher) {
				orders.EXPECT().FindByID(mock.Anything, order.ID).Return(order, nil).Once()
				sagas.EXPECT().Create(mock.Anything, mock.Anything).Return(errors.New("database error")).Once()
			},
			expectedError: "failed to save saga",
		},
		{
			name: "publisher error",
			cmd:  &RequestOrderFulfillmentCommand{OrderID: order.ID.String()},
			setupMocks: func(orders *mocks.MockOrderRepository, sagas *mocks.MockSagaRepository, publisher *mocks.MockPublisher) {
				orders.EXPECT().FindByID(mock.Anything, order.ID).Return(order, nil).Once()
				sagas.EXPECT().Create(mock.Anything, mock.Anything).Return(nil).Once()
				publisher.EXPECT().Publish(mock.Anything, mock.Anything).Return(errors.New("sns error")).Once()
			},
			expectedError: "failed to publish events",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := mocks.NewMockOrderRepository(t)
			sagas := mocks.NewMockSagaRepository(t)
			publisher := mocks.NewMockPublisher(t)
			tt.setupMocks(orders, sagas, publisher)

			useCase := NewRequestOrderFulfillment(orders, NewStartOrderProcessing(sagas, zap.NewNop()), publisher)
			result, err := useCase.Execute(context.Background(), tt.cmd)

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.Nil(t, result)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, order.ID.String(), result.OrderID)
			assert.NotEmpty(t, result.SagaID)
			assert.Equal(t, string(domain.SagaStatusStarted), result.Status)
			assert.Contains(t, result.CorrelationID, order.ID.String())
		})
	}
}
