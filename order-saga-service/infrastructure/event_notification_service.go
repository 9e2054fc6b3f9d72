package infrastructure

import (
	"context"

	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/draftea/order-fulfillment/shared/events"
	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/pkg/errors"
)

var _ domain.NotificationService = (*EventNotificationService)(nil)

// NotificationData is the payload of the notification events
type NotificationData struct {
	UserID  models.ID           `json:"user_id"`
	Summary domain.OrderSummary `json:"summary"`
}

// EventNotificationService hands notifications to the notification service as events
type EventNotificationService struct {
	publisher events.Publisher
}

// NewEventNotificationService creates a new EventNotificationService
func NewEventNotificationService(publisher events.Publisher) *EventNotificationService {
	return &EventNotificationService{publisher: publisher}
}

// SendOrderConfirmation publishes notification.order.confirmation
func (s *EventNotificationService) SendOrderConfirmation(ctx context.Context, userID models.ID, summary domain.OrderSummary) error {
	return s.publish(ctx, events.NotificationOrderConfirmationEvent, userID, summary)
}

// SendPaymentFailure publishes notification.payment.failure
func (s *EventNotificationService) SendPaymentFailure(ctx context.Context, userID models.ID, summary domain.OrderSummary) error {
	return s.publish(ctx, events.NotificationPaymentFailureEvent, userID, summary)
}

func (s *EventNotificationService) publish(ctx context.Context, eventType string, userID models.ID, summary domain.OrderSummary) error {
	orderID, err := models.NewID(summary.OrderID)
	if err != nil {
		return errors.Wrap(err, "invalid order ID")
	}

	event := events.NewEvent(orderID, eventType, NotificationData{
		UserID:  userID,
		Summary: summary,
	}).WithMetadata("user_id", userID.String())

	if err := s.publisher.Publish(ctx, event); err != nil {
		return errors.Wrapf(err, "failed to publish %s", eventType)
	}

	return nil
}
