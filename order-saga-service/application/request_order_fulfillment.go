package application

import (
	"context"

	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/draftea/order-fulfillment/shared/events"
	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/pkg/errors"
)

// RequestOrderFulfillmentCommand represents the command to start fulfilling a stored order
type RequestOrderFulfillmentCommand struct {
	OrderID string `json:"order_id"`
}

// RequestOrderFulfillmentResponse represents the response of RequestOrderFulfillment
type RequestOrderFulfillmentResponse struct {
	SagaID        string `json:"saga_id"`
	OrderID       string `json:"order_id"`
	CorrelationID string `json:"correlation_id"`
	Status        string `json:"status"`
}

// SagaExecutionRequestedData is the payload of saga.execution.requested
type SagaExecutionRequestedData struct {
	SagaID  models.ID `json:"saga_id"`
	OrderID models.ID `json:"order_id"`
}

// RequestOrderFulfillment starts a saga for an existing order and queues its execution
type RequestOrderFulfillment struct {
	orderRepository      domain.OrderRepository
	startOrderProcessing *StartOrderProcessing
	publisher            events.Publisher
}

// NewRequestOrderFulfillment creates a new RequestOrderFulfillment use case
func NewRequestOrderFulfillment(
	orderRepository domain.OrderRepository,
	startOrderProcessing *StartOrderProcessing,
	publisher events.Publisher,
) *RequestOrderFulfillment {
	return &RequestOrderFulfillment{
		orderRepository:      orderRepository,
		startOrderProcessing: startOrderProcessing,
		publisher:            publisher,
	}
}

// Execute executes the request order fulfillment use case
func (uc *RequestOrderFulfillment) Execute(ctx context.Context, cmd *RequestOrderFulfillmentCommand) (*RequestOrderFulfillmentResponse, error) {
	if cmd.OrderID == "" {
		return nil, errors.Wrap(domain.ErrInvalidInput, "order ID is required")
	}

	orderID, err := models.NewID(cmd.OrderID)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrInvalidInput, "invalid order ID %q", cmd.OrderID)
	}

	order, err := uc.orderRepository.FindByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find order")
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}

	saga, err := uc.startOrderProcessing.Execute(ctx, order)
	if err != nil {
		return nil, err
	}

	event := events.NewEvent(saga.ID, events.SagaExecutionRequestedEvent, SagaExecutionRequestedData{
		SagaID:  saga.ID,
		OrderID: order.ID,
	}).WithCorrelationID(saga.CorrelationID)

	if err := uc.publisher.Publish(ctx, event); err != nil {
		return nil, errors.Wrap(err, "failed to publish events")
	}

	return &RequestOrderFulfillmentResponse{
		SagaID:        saga.ID.String(),
		OrderID:       order.ID.String(),
		CorrelationID: saga.CorrelationID,
		Status:        string(saga.Status),
	}, nil
}
