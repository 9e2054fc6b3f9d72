package infrastructure

import (
	"context"
	"sync"

	"github.com/draftea/order-fulfillment/shared/events"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var _ events.EventHandler = (*EventRouter)(nil)

// EventRouter dispatches an event to every handler registered for its type
type EventRouter struct {
	mu       sync.RWMutex
	handlers map[string][]events.EventHandler
	logger   *zap.Logger
}

// NewEventRouter creates an empty EventRouter
func NewEventRouter(logger *zap.Logger) *EventRouter {
	return &EventRouter{
		handlers: make(map[string][]events.EventHandler),
		logger:   logger,
	}
}

// RegisterHandler registers an event handler for a specific event type
func (r *EventRouter) RegisterHandler(eventType string, handler events.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[eventType] = append(r.handlers[eventType], handler)
}

// Handle runs every handler for the event type. Events nobody handles are
// acknowledged; handler errors are returned so the message is redelivered.
func (r *EventRouter) Handle(ctx context.Context, event *events.Event) error {
	r.mu.RLock()
	handlers := r.handlers[event.EventType]
	r.mu.RUnlock()

	if len(handlers) == 0 {
		r.logger.Debug("no handlers registered", zap.String("event_type", event.EventType))
		return nil
	}

	var err error
	for _, handler := range handlers {
		if handlerErr := handler.Handle(ctx, event); handlerErr != nil {
			err = multierr.Append(err, handlerErr)
		}
	}

	if err != nil {
		return errors.Wrapf(err, "handling %s %s", event.EventType, event.ID)
	}
	return nil
}
