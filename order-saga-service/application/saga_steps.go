package application

import (
	"context"
	"fmt"
	"time"

	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/draftea/order-fulfillment/shared/circuitbreaker"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// stepInput is the read-only view a step gets of its saga
type stepInput struct {
	state         domain.OrderSagaState
	reservationID string
}

// sagaStep is one forward step of the order saga. onFailure lists the
// compensations to run when the step fails; an empty list means the failure
// is unexpected and ends the saga FAILED.
type sagaStep struct {
	target    domain.Step
	name      string
	run       func(ctx context.Context, in stepInput) (*domain.StepOutcome, error)
	onFailure []domain.Compensation
}

func (uc *ExecuteSaga) steps() []sagaStep {
	return []sagaStep{
		{
			target:    domain.StepStockVerified,
			name:      "verify_stock",
			run:       uc.verifyStock,
			onFailure: []domain.Compensation{domain.CompensationCancelOrder},
		},
		{
			target:    domain.StepStockReserved,
			name:      "reserve_inventory",
			run:       uc.reserveInventory,
			onFailure: []domain.Compensation{domain.CompensationCancelOrder},
		},
		{
			target: domain.StepPaymentProcessing,
			name:   "process_payment",
			run:    uc.processPayment,
			onFailure: []domain.Compensation{
				domain.CompensationReleaseInventory,
				domain.CompensationCancelOrder,
			},
		},
		{
			target: domain.StepPaymentCompleted,
			name:   "mark_payment_completed",
			run:    uc.markPaymentCompleted,
		},
		{
			target: domain.StepNotificationSent,
			name:   "send_notification",
			run:    uc.sendNotification,
		},
		{
			target: domain.StepConfirmed,
			name:   "confirm_order",
			run:    uc.confirmOrder,
		},
	}
}

func (uc *ExecuteSaga) verifyStock(ctx context.Context, in stepInput) (*domain.StepOutcome, error) {
	state := in.state
	for _, item := range state.Items {
		availability, err := circuitbreaker.Call(ctx, uc.breakers.Inventory, func(ctx context.Context) (*domain.StockAvailability, error) {
			return uc.inventory.CheckAvailability(ctx, item.ProductID, item.Quantity)
		})
		if err != nil {
			return remoteFailure(domain.StepStockVerified, err), nil
		}
		if availability == nil {
			return nil, errors.Errorf("no availability returned for product %s", item.ProductID)
		}

		if availability.AvailableQuantity < item.Quantity {
			return domain.Failed(domain.StepStockVerified, domain.CodeInsufficientStock,
				fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
					item.ProductID, item.Quantity, availability.AvailableQuantity),
				false, nil), nil
		}
	}

	return domain.Succeeded(domain.StepStockVerified, &domain.StateUpdate{
		StockVerification: &domain.StockVerificationResult{
			Verified:   true,
			VerifiedAt: time.Now().UTC(),
		},
	}), nil
}

func (uc *ExecuteSaga) reserveInventory(ctx context.Context, in stepInput) (*domain.StepOutcome, error) {
	state := in.state
	reservationID := in.reservationID

	for _, item := range state.Items {
		err := uc.breakers.Inventory.Execute(ctx, func(ctx context.Context) error {
			return uc.inventory.ReserveStock(ctx, domain.ReserveStockRequest{
				ProductID:     item.ProductID,
				Quantity:      item.Quantity,
				ReservationID: reservationID,
				ReferenceID:   state.OrderID.String(),
				TTL:           uc.options.ReservationTTL,
			})
		})
		if err != nil {
			return remoteFailure(domain.StepStockReserved, err), nil
		}
	}

	return domain.Succeeded(domain.StepStockReserved, &domain.StateUpdate{
		ReservationID: reservationID,
		Reservation: &domain.ReservationResult{
			ReservationID: reservationID,
			ReservedItems: len(state.Items),
			ExpiresAt:     time.Now().UTC().Add(uc.options.ReservationTTL),
		},
	}), nil
}

func (uc *ExecuteSaga) processPayment(ctx context.Context, in stepInput) (*domain.StepOutcome, error) {
	state := in.state
	response, err := circuitbreaker.Call(ctx, uc.breakers.Payment, func(ctx context.Context) (*domain.PaymentResponse, error) {
		return uc.payment.ProcessPayment(ctx, domain.PaymentRequest{
			OrderID:       state.OrderID.String(),
			Amount:        state.TotalAmount,
			PaymentMethod: state.PaymentMethod,
		})
	})
	if err != nil {
		return remoteFailure(domain.StepPaymentProcessing, err), nil
	}
	if response == nil {
		return nil, errors.New("payment service returned no response")
	}

	if response.Status != domain.PaymentStatusSucceeded {
		reason := response.FailureReason
		if reason == "" {
			reason = fmt.Sprintf("payment status %s", response.Status)
		}
		return domain.Failed(domain.StepPaymentProcessing, domain.CodePaymentFailed, reason, false, &domain.StateUpdate{
			Payment: &domain.PaymentResult{
				PaymentID:     response.PaymentID,
				TransactionID: response.TransactionID,
				Status:        string(response.Status),
				FailureReason: reason,
			},
		}), nil
	}

	return domain.Succeeded(domain.StepPaymentProcessing, &domain.StateUpdate{
		PaymentID: response.PaymentID,
		Payment: &domain.PaymentResult{
			PaymentID:     response.PaymentID,
			TransactionID: response.TransactionID,
			Status:        string(response.Status),
		},
	}), nil
}

func (uc *ExecuteSaga) markPaymentCompleted(_ context.Context, _ stepInput) (*domain.StepOutcome, error) {
	return domain.Succeeded(domain.StepPaymentCompleted, nil), nil
}

// sendNotification never fails the saga
func (uc *ExecuteSaga) sendNotification(ctx context.Context, in stepInput) (*domain.StepOutcome, error) {
	state := in.state
	err := uc.breakers.Notification.Execute(ctx, func(ctx context.Context) error {
		return uc.notification.SendOrderConfirmation(ctx, state.UserID, state.Summary())
	})

	result := &domain.NotificationResult{
		Sent:   err == nil,
		SentAt: time.Now().UTC(),
	}
	if err != nil {
		result.Error = err.Error()
		uc.logger.Warn("order confirmation notification failed",
			zap.String("order_id", state.OrderID.String()),
			zap.Error(err),
		)
	}

	return domain.Succeeded(domain.StepNotificationSent, &domain.StateUpdate{
		NotificationResult: result,
	}), nil
}

func (uc *ExecuteSaga) confirmOrder(ctx context.Context, in stepInput) (*domain.StepOutcome, error) {
	state := in.state
	order, err := uc.orderRepository.FindByID(ctx, state.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find order")
	}
	if order == nil {
		return domain.Failed(domain.StepConfirmed, domain.CodeUnexpectedError,
			errors.Wrapf(domain.ErrOrderNotFound, "order %s", state.OrderID).Error(), false, nil), nil
	}

	if err := order.Confirm(state.PaymentID); err != nil {
		return domain.Failed(domain.StepConfirmed, domain.CodeUnexpectedError, err.Error(), false, nil), nil
	}
	if err := uc.orderRepository.Save(ctx, order); err != nil {
		return nil, errors.Wrap(err, "failed to save order")
	}

	return domain.Succeeded(domain.StepConfirmed, &domain.StateUpdate{
		Confirmation: &domain.ConfirmationResult{
			Confirmed:   true,
			ConfirmedAt: time.Now().UTC(),
		},
	}), nil
}

// reservationID is derived from the saga creation time so every attempt and
// every resumed run reserves under the same id
func reservationID(saga *domain.SagaRecord) string {
	if saga.StateData.ReservationID != "" {
		return saga.StateData.ReservationID
	}
	return fmt.Sprintf("res-%s-%d", saga.AggregateID, saga.CreatedAt.UnixMilli())
}

// remoteFailure turns a port error into a failed outcome, keeping its retryability
func remoteFailure(step domain.Step, err error) *domain.StepOutcome {
	return domain.Failed(step, domain.ErrorCode(err, domain.CodeStepError), err.Error(), domain.IsRetryable(err), nil)
}
