package domain

import (
	"fmt"
	"time"

	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/pkg/errors"
)

// SagaType distinguishes saga kinds
type SagaType string

const (
	SagaTypeOrderProcessing SagaType = "ORDER_PROCESSING"
)

// SagaStatus represents the lifecycle status of a saga run
type SagaStatus string

const (
	SagaStatusStarted            SagaStatus = "STARTED"
	SagaStatusRunning            SagaStatus = "RUNNING"
	SagaStatusCompleted          SagaStatus = "COMPLETED"
	SagaStatusFailed             SagaStatus = "FAILED"
	SagaStatusCompensated        SagaStatus = "COMPENSATED"
	SagaStatusCompensationFailed SagaStatus = "COMPENSATION_FAILED"
	SagaStatusTimeout            SagaStatus = "TIMEOUT"
	SagaStatusCancelled          SagaStatus = "CANCELLED"
)

// IsTerminal reports whether the status can never be left
func (s SagaStatus) IsTerminal() bool {
	switch s {
	case SagaStatusCompleted, SagaStatusFailed, SagaStatusCompensated, SagaStatusCompensationFailed:
		return true
	}
	return false
}

// Step is the last durably committed position of a saga
type Step string

const (
	StepStarted           Step = "STARTED"
	StepStockVerified     Step = "STOCK_VERIFIED"
	StepStockReserved     Step = "STOCK_RESERVED"
	StepPaymentProcessing Step = "PAYMENT_PROCESSING"
	StepPaymentCompleted  Step = "PAYMENT_COMPLETED"
	StepNotificationSent  Step = "NOTIFICATION_SENT"
	StepConfirmed         Step = "CONFIRMED"
)

var stepOrder = []Step{
	StepStarted,
	StepStockVerified,
	StepStockReserved,
	StepPaymentProcessing,
	StepPaymentCompleted,
	StepNotificationSent,
	StepConfirmed,
}

// Index returns the position of the step on the happy path, -1 if unknown
func (s Step) Index() int {
	for i, step := range stepOrder {
		if step == s {
			return i
		}
	}
	return -1
}

// IsValid reports whether the step is part of the sequence
func (s Step) IsValid() bool {
	return s.Index() >= 0
}

// ErrorDetails describes why a saga ended in FAILED or was compensated
type ErrorDetails struct {
	Message    string    `json:"message"`
	Code       string    `json:"code,omitempty"`
	Step       Step      `json:"step,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SagaRecord is the persisted state of one saga run
type SagaRecord struct {
	ID            models.ID       `json:"id"`
	SagaType      SagaType        `json:"saga_type"`
	AggregateID   models.ID       `json:"aggregate_id"`
	CorrelationID string          `json:"correlation_id"`
	CurrentStep   Step            `json:"current_step"`
	Status        SagaStatus      `json:"status"`
	StateData     *OrderSagaState `json:"state_data"`
	RetryCount    int             `json:"retry_count"`
	ErrorDetails  *ErrorDetails   `json:"error_details,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	FailedAt      *time.Time      `json:"failed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewOrderProcessingSaga creates a STARTED saga for the given order
func NewOrderProcessingSaga(order *Order, now time.Time) (*SagaRecord, error) {
	if order == nil {
		return nil, errors.New("order is required")
	}

	state, err := NewOrderSagaState(order)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build saga state")
	}

	return &SagaRecord{
		ID:            models.GenerateUUID(),
		SagaType:      SagaTypeOrderProcessing,
		AggregateID:   order.ID,
		CorrelationID: fmt.Sprintf("%s-%d", order.ID, now.UnixMilli()),
		CurrentStep:   StepStarted,
		Status:        SagaStatusStarted,
		StateData:     state,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// MarkRunning moves a STARTED (or resumed RUNNING) saga to RUNNING
func (s *SagaRecord) MarkRunning(now time.Time) error {
	return s.transition(SagaStatusRunning, now)
}

// AdvanceTo records a committed step; the step may never move backwards
func (s *SagaRecord) AdvanceTo(step Step, now time.Time) error {
	if !step.IsValid() {
		return errors.Errorf("unknown step %q", step)
	}
	if step.Index() < s.CurrentStep.Index() {
		return errors.Errorf("saga %s cannot regress from %s to %s", s.ID, s.CurrentStep, step)
	}
	if err := s.transition(SagaStatusRunning, now); err != nil {
		return err
	}

	s.CurrentStep = step
	s.StateData.LastStepAt = &now
	return nil
}

// HasReached reports whether step is already committed
func (s *SagaRecord) HasReached(step Step) bool {
	return s.CurrentStep.Index() >= step.Index()
}

// Complete marks the saga COMPLETED
func (s *SagaRecord) Complete(now time.Time) error {
	if err := s.transition(SagaStatusCompleted, now); err != nil {
		return err
	}
	s.CompletedAt = &now
	return nil
}

// MarkCompensated marks the saga COMPENSATED. Repeating it is a no-op.
func (s *SagaRecord) MarkCompensated(now time.Time) error {
	return s.transition(SagaStatusCompensated, now)
}

// Fail marks the saga FAILED and records why
func (s *SagaRecord) Fail(details ErrorDetails, now time.Time) error {
	if err := s.transition(SagaStatusFailed, now); err != nil {
		return err
	}
	s.ErrorDetails = &details
	s.FailedAt = &now
	return nil
}

// RecordError attaches error details without changing the status
func (s *SagaRecord) RecordError(details ErrorDetails) {
	s.ErrorDetails = &details
}

func (s *SagaRecord) transition(to SagaStatus, now time.Time) error {
	if s.Status == to {
		s.UpdatedAt = now
		return nil
	}
	if s.Status.IsTerminal() {
		return errors.Wrapf(ErrInvalidTransition, "saga %s is %s and cannot become %s", s.ID, s.Status, to)
	}
	if to == SagaStatusStarted {
		return errors.Wrapf(ErrInvalidTransition, "saga %s cannot return to %s", s.ID, to)
	}

	s.Status = to
	s.UpdatedAt = now
	return nil
}
