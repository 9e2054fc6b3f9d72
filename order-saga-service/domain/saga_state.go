package domain

import (
	"time"

	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/pkg/errors"
)

// OrderSagaStateVersion is bumped whenever the persisted layout changes
const OrderSagaStateVersion = 1

// Compensation names an undo action
type Compensation string

const (
	CompensationReleaseInventory Compensation = "RELEASE_INVENTORY"
	CompensationCancelOrder      Compensation = "CANCEL_ORDER"
	CompensationRefundPayment    Compensation = "REFUND_PAYMENT"
	CompensationNotifyFailure    Compensation = "NOTIFY_FAILURE"
)

// LineItem is an order line as seen by the saga
type LineItem struct {
	ProductID string       `json:"product_id"`
	Quantity  int          `json:"quantity"`
	Price     models.Money `json:"price"`
}

type StockVerificationResult struct {
	Verified   bool      `json:"verified"`
	VerifiedAt time.Time `json:"verified_at"`
}

type ReservationResult struct {
	ReservationID string    `json:"reservation_id"`
	ReservedItems int       `json:"reserved_items"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type PaymentResult struct {
	PaymentID     string `json:"payment_id,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
}

type NotificationResult struct {
	Sent   bool      `json:"sent"`
	Error  string    `json:"error,omitempty"`
	SentAt time.Time `json:"sent_at"`
}

type ConfirmationResult struct {
	Confirmed   bool      `json:"confirmed"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// CompensationFailure records a compensation that ran but did not succeed
type CompensationFailure struct {
	Compensation Compensation `json:"compensation"`
	Error        string       `json:"error"`
	OccurredAt   time.Time    `json:"occurred_at"`
}

// OrderSagaState is the data steps hand to later steps and to compensations
type OrderSagaState struct {
	Version       int          `json:"version"`
	OrderID       models.ID    `json:"order_id"`
	UserID        models.ID    `json:"user_id"`
	Items         []LineItem   `json:"items"`
	TotalAmount   models.Money `json:"total_amount"`
	PaymentMethod string       `json:"payment_method,omitempty"`

	ReservationID string `json:"reservation_id,omitempty"`
	PaymentID     string `json:"payment_id,omitempty"`

	StockVerification  *StockVerificationResult `json:"stock_verification,omitempty"`
	Reservation        *ReservationResult       `json:"reservation,omitempty"`
	Payment            *PaymentResult           `json:"payment,omitempty"`
	NotificationResult *NotificationResult      `json:"notification_result,omitempty"`
	Confirmation       *ConfirmationResult      `json:"confirmation,omitempty"`

	CompensationExecuted []Compensation        `json:"compensation_executed"`
	CompensationFailures []CompensationFailure `json:"compensation_failures,omitempty"`
	LastStepAt           *time.Time            `json:"last_step_at,omitempty"`
}

// StateUpdate carries the fields a step wants merged into the saga state.
// Nil and empty fields leave the current value untouched.
type StateUpdate struct {
	ReservationID      string
	PaymentID          string
	StockVerification  *StockVerificationResult
	Reservation        *ReservationResult
	Payment            *PaymentResult
	NotificationResult *NotificationResult
	Confirmation       *ConfirmationResult
}

// NewOrderSagaState builds the initial state from an order
func NewOrderSagaState(order *Order) (*OrderSagaState, error) {
	if len(order.Items) == 0 {
		return nil, errors.New("order has no items")
	}

	items := make([]LineItem, len(order.Items))
	for i, item := range order.Items {
		items[i] = LineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}

	state := &OrderSagaState{
		Version:              OrderSagaStateVersion,
		OrderID:              order.ID,
		UserID:               order.UserID,
		Items:                items,
		TotalAmount:          order.TotalAmount,
		PaymentMethod:        order.PaymentMethod,
		CompensationExecuted: []Compensation{},
	}

	if err := state.Validate(); err != nil {
		return nil, err
	}
	return state, nil
}

// Validate checks the state loaded from storage is usable
func (s *OrderSagaState) Validate() error {
	if s == nil {
		return errors.Wrap(ErrInvalidSagaState, "state is missing")
	}
	if s.Version != OrderSagaStateVersion {
		return errors.Wrapf(ErrInvalidSagaState, "unsupported state version %d", s.Version)
	}
	if s.OrderID.IsEmpty() {
		return errors.Wrap(ErrInvalidSagaState, "order id is required")
	}
	if len(s.Items) == 0 {
		return errors.Wrap(ErrInvalidSagaState, "at least one item is required")
	}
	for _, item := range s.Items {
		if item.ProductID == "" {
			return errors.Wrap(ErrInvalidSagaState, "item product id is required")
		}
		if item.Quantity <= 0 {
			return errors.Wrapf(ErrInvalidSagaState, "invalid quantity %d for product %s", item.Quantity, item.ProductID)
		}
	}
	if s.TotalAmount.Currency == "" {
		return errors.Wrap(ErrInvalidSagaState, "currency is required")
	}
	return nil
}

// Merge applies a step update on top of the current state
func (s *OrderSagaState) Merge(update *StateUpdate) {
	if update == nil {
		return
	}
	if update.ReservationID != "" {
		s.ReservationID = update.ReservationID
	}
	if update.PaymentID != "" {
		s.PaymentID = update.PaymentID
	}
	if update.StockVerification != nil {
		s.StockVerification = update.StockVerification
	}
	if update.Reservation != nil {
		s.Reservation = update.Reservation
	}
	if update.Payment != nil {
		s.Payment = update.Payment
	}
	if update.NotificationResult != nil {
		s.NotificationResult = update.NotificationResult
	}
	if update.Confirmation != nil {
		s.Confirmation = update.Confirmation
	}
}

// HasExecuted reports whether the compensation already ran for this saga
func (s *OrderSagaState) HasExecuted(compensation Compensation) bool {
	for _, executed := range s.CompensationExecuted {
		if executed == compensation {
			return true
		}
	}
	return false
}

// RecordCompensation appends to the audit trail of executed compensations
func (s *OrderSagaState) RecordCompensation(compensation Compensation) {
	s.CompensationExecuted = append(s.CompensationExecuted, compensation)
}

// RecordCompensationFailure keeps the error of a compensation that could not complete
func (s *OrderSagaState) RecordCompensationFailure(compensation Compensation, err error, now time.Time) {
	s.CompensationFailures = append(s.CompensationFailures, CompensationFailure{
		Compensation: compensation,
		Error:        err.Error(),
		OccurredAt:   now,
	})
}

// Summary builds the order summary handed to the notification service
func (s *OrderSagaState) Summary() OrderSummary {
	return OrderSummary{
		OrderID:     s.OrderID.String(),
		Items:       s.Items,
		TotalAmount: s.TotalAmount,
		PaymentID:   s.PaymentID,
	}
}
