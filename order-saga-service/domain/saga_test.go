package domain

import (
	"context"
	"testing"
	"time"

	"github.com/draftea/order-fulfillment/shared/circuitbreaker"
	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder(t *testing.T) *Order {
	t.Helper()
	order, err := CreateOrder(
		models.ID("550e8400-e29b-41d4-a716-446655440010"),
		[]OrderItem{{ProductID: "P1", Quantity: 2, Price: models.NewMoney(50, "USD")}},
		"USD",
		"credit_card",
	)
	require.NoError(t, err)
	return order
}

func TestNewOrderProcessingSaga(t *testing.T) {
	order := testOrder(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	saga, err := NewOrderProcessingSaga(order, now)
	require.NoError(t, err)

	assert.False(t, saga.ID.IsEmpty())
	assert.Equal(t, SagaTypeOrderProcessing, saga.SagaType)
	assert.Equal(t, order.ID, saga.AggregateID)
	assert.Equal(t, order.ID.String()+"-1709294400000", saga.CorrelationID)
	assert.Equal(t, StepStarted, saga.CurrentStep)
	assert.Equal(t, SagaStatusStarted, saga.Status)
	require.NotNil(t, saga.StateData)
	assert.Equal(t, OrderSagaStateVersion, saga.StateData.Version)
	assert.Equal(t, models.NewMoney(100, "USD"), saga.StateData.TotalAmount)
	assert.Equal(t, []LineItem{{ProductID: "P1", Quantity: 2, Price: models.NewMoney(50, "USD")}}, saga.StateData.Items)
	assert.Empty(t, saga.StateData.CompensationExecuted)
}

func TestNewOrderProcessingSaga_RejectsOrderWithoutItems(t *testing.T) {
	order := testOrder(t)
	order.Items = nil

	_, err := NewOrderProcessingSaga(order, time.Now())
	assert.Error(t, err)
}

func TestSagaRecord_AdvanceTo(t *testing.T) {
	saga, err := NewOrderProcessingSaga(testOrder(t), time.Now())
	require.NoError(t, err)
	now := time.Now()

	require.NoError(t, saga.AdvanceTo(StepStockVerified, now))
	assert.Equal(t, SagaStatusRunning, saga.Status)
	assert.Equal(t, StepStockVerified, saga.CurrentStep)
	require.NotNil(t, saga.StateData.LastStepAt)

	require.NoError(t, saga.AdvanceTo(StepStockReserved, now))
	assert.True(t, saga.HasReached(StepStockVerified))
	assert.False(t, saga.HasReached(StepPaymentProcessing))

	err = saga.AdvanceTo(StepStockVerified, now)
	assert.Error(t, err)
	assert.Equal(t, StepStockReserved, saga.CurrentStep)

	assert.Error(t, saga.AdvanceTo(Step("SHIPPED"), now))
}

func TestSagaRecord_TerminalStatusesAreNeverLeft(t *testing.T) {
	tests := []struct {
		name     string
		finish   func(*SagaRecord, time.Time) error
		terminal SagaStatus
	}{
		{
			name:     "completed",
			finish:   (*SagaRecord).Complete,
			terminal: SagaStatusCompleted,
		},
		{
			name:     "compensated",
			finish:   (*SagaRecord).MarkCompensated,
			terminal: SagaStatusCompensated,
		},
		{
			name: "failed",
			finish: func(s *SagaRecord, now time.Time) error {
				return s.Fail(ErrorDetails{Message: "boom"}, now)
			},
			terminal: SagaStatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saga, err := NewOrderProcessingSaga(testOrder(t), time.Now())
			require.NoError(t, err)
			now := time.Now()

			require.NoError(t, saga.MarkRunning(now))
			require.NoError(t, tt.finish(saga, now))
			assert.Equal(t, tt.terminal, saga.Status)
			assert.True(t, saga.Status.IsTerminal())

			// same terminal status again is a no-op
			require.NoError(t, tt.finish(saga, now))

			assert.ErrorIs(t, saga.MarkRunning(now), ErrInvalidTransition)
			assert.ErrorIs(t, saga.AdvanceTo(StepConfirmed, now), ErrInvalidTransition)
			assert.Equal(t, tt.terminal, saga.Status)
		})
	}
}

func TestSagaRecord_FailRecordsDetails(t *testing.T) {
	saga, err := NewOrderProcessingSaga(testOrder(t), time.Now())
	require.NoError(t, err)
	now := time.Now()

	require.NoError(t, saga.Fail(ErrorDetails{Message: "order not found", Code: CodeUnexpectedError, Step: StepConfirmed}, now))

	require.NotNil(t, saga.ErrorDetails)
	assert.Equal(t, "order not found", saga.ErrorDetails.Message)
	require.NotNil(t, saga.FailedAt)
	assert.Nil(t, saga.CompletedAt)
}

func TestOrderSagaState_Merge(t *testing.T) {
	saga, err := NewOrderProcessingSaga(testOrder(t), time.Now())
	require.NoError(t, err)
	state := saga.StateData

	state.Merge(&StateUpdate{
		ReservationID: "res-1",
		Reservation:   &ReservationResult{ReservationID: "res-1", ReservedItems: 1},
	})
	state.Merge(&StateUpdate{
		PaymentID: "pay-1",
		Payment:   &PaymentResult{PaymentID: "pay-1", Status: string(PaymentStatusSucceeded)},
	})
	state.Merge(nil)

	assert.Equal(t, "res-1", state.ReservationID)
	assert.Equal(t, "pay-1", state.PaymentID)
	require.NotNil(t, state.Reservation)
	require.NotNil(t, state.Payment)
	assert.Equal(t, "P1", state.Items[0].ProductID)
}

func TestOrderSagaState_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*OrderSagaState)
		wantErr bool
	}{
		{name: "valid", mutate: func(*OrderSagaState) {}},
		{name: "unknown version", mutate: func(s *OrderSagaState) { s.Version = 99 }, wantErr: true},
		{name: "missing order id", mutate: func(s *OrderSagaState) { s.OrderID = "" }, wantErr: true},
		{name: "no items", mutate: func(s *OrderSagaState) { s.Items = nil }, wantErr: true},
		{name: "zero quantity", mutate: func(s *OrderSagaState) { s.Items[0].Quantity = 0 }, wantErr: true},
		{name: "missing currency", mutate: func(s *OrderSagaState) { s.TotalAmount.Currency = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := NewOrderSagaState(testOrder(t))
			require.NoError(t, err)
			tt.mutate(state)

			err = state.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSagaState)
				return
			}
			assert.NoError(t, err)
		})
	}

	var nilState *OrderSagaState
	assert.ErrorIs(t, nilState.Validate(), ErrInvalidSagaState)
}

func TestOrderSagaState_Compensations(t *testing.T) {
	state, err := NewOrderSagaState(testOrder(t))
	require.NoError(t, err)

	assert.False(t, state.HasExecuted(CompensationCancelOrder))
	state.RecordCompensation(CompensationReleaseInventory)
	state.RecordCompensation(CompensationCancelOrder)
	state.RecordCompensationFailure(CompensationReleaseInventory, errors.New("inventory down"), time.Now())

	assert.True(t, state.HasExecuted(CompensationCancelOrder))
	assert.Equal(t, []Compensation{CompensationReleaseInventory, CompensationCancelOrder}, state.CompensationExecuted)
	require.Len(t, state.CompensationFailures, 1)
	assert.Equal(t, "inventory down", state.CompensationFailures[0].Error)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "retryable service error", err: NewServiceError("inventory", "UNAVAILABLE", "503", true), want: true},
		{name: "business service error", err: NewServiceError("payment", "CARD_DECLINED", "declined", false), want: false},
		{name: "wrapped service error", err: errors.Wrap(NewServiceError("payment", "X", "x", false), "call"), want: false},
		{name: "circuit open", err: errors.Wrap(circuitbreaker.ErrCircuitOpen, "inventory"), want: true},
		{name: "breaker timeout", err: circuitbreaker.ErrTimeout, want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "order not found", err: ErrOrderNotFound, want: false},
		{name: "unknown", err: errors.New("connection reset"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
