package application

import (
	"context"

	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/draftea/order-fulfillment/shared/events"
	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/pkg/errors"
)

// GetSagaHistory lists the events recorded for a saga, oldest first
type GetSagaHistory struct {
	sagaRepository domain.SagaRepository
	eventStore     events.Store
}

// NewGetSagaHistory creates a new GetSagaHistory use case
func NewGetSagaHistory(sagaRepository domain.SagaRepository, eventStore events.Store) *GetSagaHistory {
	return &GetSagaHistory{
		sagaRepository: sagaRepository,
		eventStore:     eventStore,
	}
}

// Execute executes the get saga history use case
func (uc *GetSagaHistory) Execute(ctx context.Context, query *GetSagaQuery) ([]*events.Event, error) {
	if query.SagaID == "" {
		return nil, errors.Wrap(domain.ErrInvalidInput, "saga ID is required")
	}

	sagaID, err := models.NewID(query.SagaID)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrInvalidInput, "invalid saga ID %q", query.SagaID)
	}

	saga, err := uc.sagaRepository.FindByID(ctx, sagaID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find saga")
	}
	if saga == nil {
		return nil, domain.ErrSagaNotFound
	}

	history, err := uc.eventStore.GetEvents(ctx, saga.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load saga events")
	}

	return history, nil
}
