package domain

import (
	"time"

	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/pkg/errors"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderItem is a single order line
type OrderItem struct {
	ProductID string       `json:"product_id"`
	Quantity  int          `json:"quantity"`
	Price     models.Money `json:"price"`
}

// Order aggregate root, as far as the saga reads and writes it
type Order struct {
	ID                 models.ID         `json:"id"`
	UserID             models.ID         `json:"user_id"`
	Items              []OrderItem       `json:"items"`
	TotalAmount        models.Money      `json:"total_amount"`
	PaymentMethod      string            `json:"payment_method"`
	Status             OrderStatus       `json:"status"`
	PaymentID          string            `json:"payment_id,omitempty"`
	CancellationReason string            `json:"cancellation_reason,omitempty"`
	ConfirmedAt        *time.Time        `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time        `json:"cancelled_at,omitempty"`
	Timestamps         models.Timestamps `json:"timestamps"`
	Version            models.Version    `json:"version"`
}

// CreateOrder factory method
func CreateOrder(userID models.ID, items []OrderItem, currency, paymentMethod string) (*Order, error) {
	if len(items) == 0 {
		return nil, errors.New("order must have at least one item")
	}
	if currency == "" {
		return nil, errors.New("currency is required")
	}

	total := models.NewMoney(0, currency)
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, errors.Errorf("invalid quantity for product %s", item.ProductID)
		}
		if !item.Price.IsPositive() {
			return nil, errors.Errorf("invalid price for product %s", item.ProductID)
		}
		var err error
		total, err = total.Add(item.Price.Multiply(item.Quantity))
		if err != nil {
			return nil, errors.Wrapf(err, "product %s", item.ProductID)
		}
	}

	return &Order{
		ID:            models.GenerateUUID(),
		UserID:        userID,
		Items:         items,
		TotalAmount:   total,
		PaymentMethod: paymentMethod,
		Status:        OrderStatusPending,
		Timestamps:    models.NewTimestamps(),
		Version:       models.NewVersion(),
	}, nil
}

// Confirm marks the order as confirmed and attaches the payment.
// Confirming an already confirmed order with the same payment is a no-op.
func (o *Order) Confirm(paymentID string) error {
	if o.Status == OrderStatusConfirmed && o.PaymentID == paymentID {
		return nil
	}
	if o.Status == OrderStatusCancelled {
		return errors.Errorf("order %s is cancelled and cannot be confirmed", o.ID)
	}

	now := time.Now().UTC()
	o.Status = OrderStatusConfirmed
	o.PaymentID = paymentID
	o.ConfirmedAt = &now
	o.Timestamps = o.Timestamps.Update()
	o.Version = o.Version.Update()
	return nil
}

// Cancel marks the order as cancelled. Cancelling twice is a no-op.
func (o *Order) Cancel(reason string) error {
	if o.Status == OrderStatusCancelled {
		return nil
	}
	if o.Status == OrderStatusConfirmed {
		return errors.Errorf("order %s is confirmed and cannot be cancelled", o.ID)
	}

	now := time.Now().UTC()
	o.Status = OrderStatusCancelled
	o.CancellationReason = reason
	o.CancelledAt = &now
	o.Timestamps = o.Timestamps.Update()
	o.Version = o.Version.Update()
	return nil
}

// OrderSummary is what the notification service receives
type OrderSummary struct {
	OrderID     string       `json:"order_id"`
	Items       []LineItem   `json:"items"`
	TotalAmount models.Money `json:"total_amount"`
	PaymentID   string       `json:"payment_id,omitempty"`
	Reason      string       `json:"reason,omitempty"`
}
