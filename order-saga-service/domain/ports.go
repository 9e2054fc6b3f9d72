package domain

import (
	"context"
	"time"

	"github.com/draftea/order-fulfillment/shared/models"
)

// StockAvailability is the inventory answer for one product
type StockAvailability struct {
	ProductID         string `json:"product_id"`
	AvailableQuantity int    `json:"available_quantity"`
}

// ReserveStockRequest holds a quantity of one product under a reservation id
type ReserveStockRequest struct {
	ProductID     string        `json:"product_id"`
	Quantity      int           `json:"quantity"`
	ReservationID string        `json:"reservation_id"`
	ReferenceID   string        `json:"reference_id"`
	TTL           time.Duration `json:"-"`
}

// PaymentRequest charges an order
type PaymentRequest struct {
	OrderID       string       `json:"order_id"`
	Amount        models.Money `json:"amount"`
	PaymentMethod string       `json:"payment_method"`
}

// PaymentStatus as reported by the payment service
type PaymentStatus string

const (
	PaymentStatusSucceeded PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusPending   PaymentStatus = "PENDING"
)

// PaymentResponse is the payment service result
type PaymentResponse struct {
	PaymentID     string        `json:"payment_id"`
	TransactionID string        `json:"transaction_id"`
	Status        PaymentStatus `json:"status"`
	FailureReason string        `json:"failure_reason,omitempty"`
}

// InventoryService is the inventory port
type InventoryService interface {
	CheckAvailability(ctx context.Context, productID string, quantity int) (*StockAvailability, error)
	ReserveStock(ctx context.Context, request ReserveStockRequest) error
	ReleaseReservation(ctx context.Context, reservationID, productID string, quantity int) error
}

// PaymentService is the payment port
type PaymentService interface {
	ProcessPayment(ctx context.Context, request PaymentRequest) (*PaymentResponse, error)
	RefundPayment(ctx context.Context, paymentID string, amount models.Money, reason string) error
}

// NotificationService is the notification port
type NotificationService interface {
	SendOrderConfirmation(ctx context.Context, userID models.ID, summary OrderSummary) error
	SendPaymentFailure(ctx context.Context, userID models.ID, summary OrderSummary) error
}

// OrderRepository is the order sink. FindByID returns nil, nil when the order does not exist.
type OrderRepository interface {
	FindByID(ctx context.Context, id models.ID) (*Order, error)
	Save(ctx context.Context, order *Order) error
}

// SagaRepository persists saga records. FindByID returns nil, nil when the saga does not exist.
type SagaRepository interface {
	Create(ctx context.Context, saga *SagaRecord) error
	Save(ctx context.Context, saga *SagaRecord) error
	FindByID(ctx context.Context, id models.ID) (*SagaRecord, error)
}
