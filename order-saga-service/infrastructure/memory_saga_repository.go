package infrastructure

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/pkg/errors"
)

// MemorySagaRepository keeps saga records in process memory. Records are
// stored as JSON so callers never share state with the store.
type MemorySagaRepository struct {
	mu    sync.RWMutex
	sagas map[models.ID][]byte
}

// NewMemorySagaRepository creates an empty MemorySagaRepository
func NewMemorySagaRepository() *MemorySagaRepository {
	return &MemorySagaRepository{
		sagas: make(map[models.ID][]byte),
	}
}

// Create stores a new saga record
func (r *MemorySagaRepository) Create(_ context.Context, saga *domain.SagaRecord) error {
	data, err := json.Marshal(saga)
	if err != nil {
		return errors.Wrap(err, "failed to marshal saga")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sagas[saga.ID]; exists {
		return errors.Errorf("saga %s already exists", saga.ID)
	}
	r.sagas[saga.ID] = data
	return nil
}

// Save overwrites an existing saga record
func (r *MemorySagaRepository) Save(_ context.Context, saga *domain.SagaRecord) error {
	data, err := json.Marshal(saga)
	if err != nil {
		return errors.Wrap(err, "failed to marshal saga")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sagas[saga.ID]; !exists {
		return errors.Wrapf(domain.ErrSagaNotFound, "saga %s", saga.ID)
	}
	r.sagas[saga.ID] = data
	return nil
}

// FindByID returns nil, nil when the saga does not exist
func (r *MemorySagaRepository) FindByID(_ context.Context, id models.ID) (*domain.SagaRecord, error) {
	r.mu.RLock()
	data, exists := r.sagas[id]
	r.mu.RUnlock()

	if !exists {
		return nil, nil
	}

	var saga domain.SagaRecord
	if err := json.Unmarshal(data, &saga); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal saga")
	}
	return &saga, nil
}
