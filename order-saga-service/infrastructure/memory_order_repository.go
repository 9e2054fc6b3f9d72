package infrastructure

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/pkg/errors"
)

type memoryOrder struct {
	version int
	data    []byte
}

// MemoryOrderRepository keeps orders in process memory with the same version
// rules as PostgresOrderRepository
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[models.ID]memoryOrder
}

// NewMemoryOrderRepository creates an empty MemoryOrderRepository
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders: make(map[models.ID]memoryOrder),
	}
}

// Save inserts the order, or replaces it when the stored version is older.
// Saving the version already stored is a no-op.
func (r *MemoryOrderRepository) Save(_ context.Context, order *domain.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return errors.Wrap(err, "failed to marshal order")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.orders[order.ID]
	switch {
	case !exists || stored.version < order.Version.Value:
		r.orders[order.ID] = memoryOrder{version: order.Version.Value, data: data}
		return nil
	case stored.version == order.Version.Value:
		return nil
	default:
		return errors.Wrapf(ErrConcurrentOrderUpdate, "order %s: stored version %d, saving %d",
			order.ID, stored.version, order.Version.Value)
	}
}

// FindByID returns nil, nil when the order does not exist
func (r *MemoryOrderRepository) FindByID(_ context.Context, id models.ID) (*domain.Order, error) {
	r.mu.RLock()
	stored, exists := r.orders[id]
	r.mu.RUnlock()

	if !exists {
		return nil, nil
	}

	var order domain.Order
	if err := json.Unmarshal(stored.data, &order); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal order")
	}
	return &order, nil
}
