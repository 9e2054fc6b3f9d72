package infrastructure

import (
	"context"

	"github.com/draftea/order-fulfillment/shared/events"
	"github.com/pkg/errors"
)

var _ events.Publisher = (*RecordingPublisher)(nil)

// RecordingPublisher appends events to a Store before handing them to the next publisher.
// Events that fail to store are not published.
type RecordingPublisher struct {
	store events.Store
	next  events.Publisher
}

// NewRecordingPublisher creates a new RecordingPublisher
func NewRecordingPublisher(store events.Store, next events.Publisher) *RecordingPublisher {
	return &RecordingPublisher{
		store: store,
		next:  next,
	}
}

// Publish stores then publishes the events
func (p *RecordingPublisher) Publish(ctx context.Context, evts ...*events.Event) error {
	if len(evts) == 0 {
		return nil
	}

	if err := p.store.Append(ctx, evts...); err != nil {
		return errors.Wrap(err, "failed to record events")
	}

	return p.next.Publish(ctx, evts...)
}
