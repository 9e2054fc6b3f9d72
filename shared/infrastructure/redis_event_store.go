package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/draftea/order-fulfillment/shared/events"
	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ events.Store = (*RedisEventStore)(nil)

// RedisEventStore keeps each aggregate stream as a Redis list of JSON events
type RedisEventStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisEventStore creates a new RedisEventStore. A zero ttl keeps streams forever.
func NewRedisEventStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisEventStore {
	return &RedisEventStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Append pushes the events onto their streams in one pipeline
func (s *RedisEventStore) Append(ctx context.Context, evts ...*events.Event) error {
	if len(evts) == 0 {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, event := range evts {
			stored := *event
			stored.Metadata = storedMetadata(event.Metadata)

			data, err := json.Marshal(&stored)
			if err != nil {
				return errors.Wrapf(err, "failed to marshal event %s", event.EventType)
			}

			key := s.streamKey(event.AggregateID)
			pipe.RPush(ctx, key, data)
			if s.ttl > 0 {
				pipe.Expire(ctx, key, s.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "failed to append events")
	}

	return nil
}

// GetEvents returns the stream of one aggregate in append order
func (s *RedisEventStore) GetEvents(ctx context.Context, aggregateID models.ID) ([]*events.Event, error) {
	raw, err := s.client.LRange(ctx, s.streamKey(aggregateID), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get events")
	}

	result := make([]*events.Event, 0, len(raw))
	for _, item := range raw {
		var event struct {
			events.Event
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal event")
		}
		event.Event.Data = event.Data
		result = append(result, &event.Event)
	}

	return result, nil
}

func (s *RedisEventStore) streamKey(aggregateID models.ID) string {
	return s.prefix + aggregateID.String()
}
