package application

import (
	"context"

	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/pkg/errors"
)

// GetSagaQuery represents the query to get a saga
type GetSagaQuery struct {
	SagaID string `json:"saga_id"`
}

// GetSaga use case
type GetSaga struct {
	sagaRepository domain.SagaRepository
}

// NewGetSaga creates a new GetSaga use case
func NewGetSaga(sagaRepository domain.SagaRepository) *GetSaga {
	return &GetSaga{
		sagaRepository: sagaRepository,
	}
}

// Execute executes the get saga use case
func (uc *GetSaga) Execute(ctx context.Context, query *GetSagaQuery) (*domain.SagaRecord, error) {
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

	return saga, nil
}
