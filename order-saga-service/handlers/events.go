package handlers

import (
	"context"

	"github.com/draftea/order-fulfillment/order-saga-service/application"
	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/draftea/order-fulfillment/shared/events"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// OrderCreatedData is the part of order.created the saga service reads
type OrderCreatedData struct {
	OrderID string `json:"order_id"`
}

// SagaEventHandlers drives sagas from queued events
type SagaEventHandlers struct {
	requestFulfillment *application.RequestOrderFulfillment
	executeSaga        *application.ExecuteSaga
	logger             *zap.Logger
}

// NewSagaEventHandlers creates new saga event handlers
func NewSagaEventHandlers(
	requestFulfillment *application.RequestOrderFulfillment,
	executeSaga *application.ExecuteSaga,
	logger *zap.Logger,
) *SagaEventHandlers {
	return &SagaEventHandlers{
		requestFulfillment: requestFulfillment,
		executeSaga:        executeSaga,
		logger:             logger,
	}
}

// Handle implements the events.EventHandler interface
func (h *SagaEventHandlers) Handle(ctx context.Context, event *events.Event) error {
	switch event.EventType {
	case events.OrderCreatedEvent:
		return h.HandleOrderCreated(ctx, event)
	case events.SagaExecutionRequestedEvent:
		return h.HandleSagaExecutionRequested(ctx, event)
	default:
		return nil
	}
}

// HandleOrderCreated starts a saga for the new order and queues its execution
func (h *SagaEventHandlers) HandleOrderCreated(ctx context.Context, event *events.Event) error {
	var data OrderCreatedData
	if err := event.UnmarshalPayload(&data); err != nil {
		return errors.Wrap(err, "failed to parse order created data")
	}

	response, err := h.requestFulfillment.Execute(ctx, &application.RequestOrderFulfillmentCommand{
		OrderID: data.OrderID,
	})
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrOrderNotFound):
		// redelivery cannot fix these
		h.logger.Warn("dropping order created event",
			zap.String("event_id", event.ID.String()),
			zap.String("order_id", data.OrderID),
			zap.Error(err),
		)
		return nil
	case err != nil:
		return errors.Wrapf(err, "failed to start saga for order %s", data.OrderID)
	}

	h.logger.Info("order fulfillment requested",
		zap.String("order_id", response.OrderID),
		zap.String("saga_id", response.SagaID),
	)
	return nil
}

// HandleSagaExecutionRequested runs the saga named by the event
func (h *SagaEventHandlers) HandleSagaExecutionRequested(ctx context.Context, event *events.Event) error {
	var data application.SagaExecutionRequestedData
	if err := event.UnmarshalPayload(&data); err != nil {
		return errors.Wrap(err, "failed to parse saga execution requested data")
	}

	metrics, err := h.executeSaga.Execute(ctx, data.SagaID)
	switch {
	case errors.Is(err, domain.ErrSagaAlreadyFinished), errors.Is(err, domain.ErrSagaNotFound):
		h.logger.Info("skipping saga execution",
			zap.String("saga_id", data.SagaID.String()),
			zap.Error(err),
		)
		return nil
	case err != nil:
		// the message is redelivered and the saga resumes from its last step
		return errors.Wrapf(err, "failed to execute saga %s", data.SagaID)
	}

	h.logger.Debug("saga executed",
		zap.String("saga_id", data.SagaID.String()),
		zap.String("final_status", string(metrics.FinalStatus)),
	)
	return nil
}
