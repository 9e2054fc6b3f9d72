package application

import (
	"context"
	"time"

	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// StartOrderProcessing creates a STARTED saga for an order without executing any step
type StartOrderProcessing struct {
	sagaRepository domain.SagaRepository
	logger         *zap.Logger
}

// NewStartOrderProcessing creates a new StartOrderProcessing use case
func NewStartOrderProcessing(sagaRepository domain.SagaRepository, logger *zap.Logger) *StartOrderProcessing {
	return &StartOrderProcessing{
		sagaRepository: sagaRepository,
		logger:         logger,
	}
}

// Execute builds the initial saga state from the order and persists the record
func (uc *StartOrderProcessing) Execute(ctx context.Context, order *domain.Order) (*domain.SagaRecord, error) {
	saga, err := domain.NewOrderProcessingSaga(order, time.Now().UTC())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create saga")
	}

	if err := uc.sagaRepository.Create(ctx, saga); err != nil {
		return nil, errors.Wrap(err, "failed to save saga")
	}

	uc.logger.Info("order processing saga started",
		zap.String("saga_id", saga.ID.String()),
		zap.String("order_id", order.ID.String()),
		zap.String("correlation_id", saga.CorrelationID),
	)

	return saga, nil
}
