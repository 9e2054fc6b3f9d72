package infrastructure

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/draftea/order-fulfillment/shared/events"
	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/pkg/errors"
)

var _ events.Store = (*MemoryEventStore)(nil)

// MemoryEventStore keeps event streams in process memory
type MemoryEventStore struct {
	mu      sync.RWMutex
	streams map[models.ID][]*events.Event
	seen    map[models.ID]struct{}
}

// NewMemoryEventStore creates an empty MemoryEventStore
func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{
		streams: make(map[models.ID][]*events.Event),
		seen:    make(map[models.ID]struct{}),
	}
}

// Append stores a detached copy of each event; ids already stored are skipped
func (s *MemoryEventStore) Append(_ context.Context, evts ...*events.Event) error {
	copies := make([]*events.Event, 0, len(evts))
	for _, event := range evts {
		data, err := event.MarshalPayload()
		if err != nil {
			return errors.Wrapf(err, "failed to marshal event %s", event.EventType)
		}

		stored := *event
		stored.Data = json.RawMessage(data)
		stored.Metadata = storedMetadata(event.Metadata)
		copies = append(copies, &stored)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, event := range copies {
		if _, dup := s.seen[event.ID]; dup {
			continue
		}
		s.seen[event.ID] = struct{}{}
		s.streams[event.AggregateID] = append(s.streams[event.AggregateID], event)
	}

	return nil
}

// GetEvents returns the stream of one aggregate in append order
func (s *MemoryEventStore) GetEvents(_ context.Context, aggregateID models.ID) ([]*events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.streams[aggregateID]
	result := make([]*events.Event, len(stream))
	for i, event := range stream {
		clone := *event
		clone.Metadata = event.Metadata.Clone()
		result[i] = &clone
	}

	return result, nil
}
