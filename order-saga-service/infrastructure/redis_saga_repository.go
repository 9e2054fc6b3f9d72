package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const sagaKeyPrefix = "order-saga:saga:"

// RedisSagaRepository implements SagaRepository on Redis, one JSON document per saga
type RedisSagaRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisSagaRepository creates a new RedisSagaRepository. A zero ttl keeps sagas forever.
func NewRedisSagaRepository(client redis.UniversalClient, ttl time.Duration) *RedisSagaRepository {
	return &RedisSagaRepository{
		client: client,
		ttl:    ttl,
	}
}

// Create stores a new saga, failing if the id is taken
func (r *RedisSagaRepository) Create(ctx context.Context, saga *domain.SagaRecord) error {
	data, err := json.Marshal(saga)
	if err != nil {
		return errors.Wrap(err, "failed to marshal saga")
	}

	created, err := r.client.SetNX(ctx, sagaKey(saga.ID), data, r.ttl).Result()
	if err != nil {
		return errors.Wrap(err, "failed to insert saga")
	}
	if !created {
		return errors.Errorf("saga %s already exists", saga.ID)
	}

	return nil
}

// Save overwrites an existing saga
func (r *RedisSagaRepository) Save(ctx context.Context, saga *domain.SagaRecord) error {
	data, err := json.Marshal(saga)
	if err != nil {
		return errors.Wrap(err, "failed to marshal saga")
	}

	updated, err := r.client.SetXX(ctx, sagaKey(saga.ID), data, r.ttl).Result()
	if err != nil {
		return errors.Wrap(err, "failed to update saga")
	}
	if !updated {
		return errors.Wrapf(domain.ErrSagaNotFound, "saga %s", saga.ID)
	}

	return nil
}

// FindByID finds a saga by ID
func (r *RedisSagaRepository) FindByID(ctx context.Context, id models.ID) (*domain.SagaRecord, error) {
	data, err := r.client.Get(ctx, sagaKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find saga")
	}

	var saga domain.SagaRecord
	if err := json.Unmarshal(data, &saga); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal saga")
	}

	return &saga, nil
}

func sagaKey(id models.ID) string {
	return sagaKeyPrefix + id.String()
}
