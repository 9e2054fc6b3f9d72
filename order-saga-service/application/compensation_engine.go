package application

import (
	"context"
	"strings"
	"time"

	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/draftea/order-fulfillment/shared/telemetry"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// CompensationEngine undoes completed saga steps. Compensation failures are
// logged and recorded on the saga, never returned.
type CompensationEngine struct {
	sagaRepository  domain.SagaRepository
	orderRepository domain.OrderRepository
	inventory       domain.InventoryService
	payment         domain.PaymentService
	notification    domain.NotificationService
	breakers        *CircuitBreakers
	timeout         time.Duration
	logger          *zap.Logger
}

// NewCompensationEngine creates a new CompensationEngine
func NewCompensationEngine(
	sagaRepository domain.SagaRepository,
	orderRepository domain.OrderRepository,
	inventory domain.InventoryService,
	payment domain.PaymentService,
	notification domain.NotificationService,
	breakers *CircuitBreakers,
	timeout time.Duration,
	logger *zap.Logger,
) *CompensationEngine {
	return &CompensationEngine{
		sagaRepository:  sagaRepository,
		orderRepository: orderRepository,
		inventory:       inventory,
		payment:         payment,
		notification:    notification,
		breakers:        breakers,
		timeout:         timeout,
		logger:          logger,
	}
}

// Run executes the given compensations in order and marks the saga COMPENSATED.
// Compensations already listed in the saga audit trail are skipped. The only
// error returned is a failure to persist the saga.
func (e *CompensationEngine) Run(ctx context.Context, saga *domain.SagaRecord, compensations ...domain.Compensation) error {
	// cleanup must not be cut short by the caller or the saga deadline
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	log := e.logger.With(
		zap.String("saga_id", saga.ID.String()),
		zap.String("order_id", saga.AggregateID.String()),
	)

	for _, compensation := range compensations {
		if saga.StateData.HasExecuted(compensation) {
			log.Info("compensation already executed, skipping", zap.String("compensation", string(compensation)))
			continue
		}

		err := e.execute(ctx, saga, compensation)
		now := time.Now().UTC()
		if err != nil {
			log.Error("compensation failed",
				zap.String("compensation", string(compensation)),
				zap.Error(err),
			)
			saga.StateData.RecordCompensationFailure(compensation, err, now)
		} else {
			log.Info("compensation executed", zap.String("compensation", string(compensation)))
		}
		telemetry.RecordCompensation(ctx, string(compensation), err == nil)

		saga.StateData.RecordCompensation(compensation)
		if err := saga.MarkCompensated(now); err != nil {
			return err
		}
		if err := e.sagaRepository.Save(ctx, saga); err != nil {
			return errors.Wrap(err, "failed to save saga after compensation")
		}
	}

	if err := saga.MarkCompensated(time.Now().UTC()); err != nil {
		return err
	}
	return nil
}

func (e *CompensationEngine) execute(ctx context.Context, saga *domain.SagaRecord, compensation domain.Compensation) error {
	ctx, span := telemetry.StartSpan(ctx, "saga.compensation."+strings.ToLower(string(compensation)))
	defer span.End()

	switch compensation {
	case domain.CompensationReleaseInventory:
		return e.releaseInventory(ctx, saga)
	case domain.CompensationCancelOrder:
		return e.cancelOrder(ctx, saga)
	case domain.CompensationRefundPayment:
		return e.refundPayment(ctx, saga)
	case domain.CompensationNotifyFailure:
		return e.notifyFailure(ctx, saga)
	default:
		return errors.Errorf("unknown compensation %q", compensation)
	}
}

func (e *CompensationEngine) releaseInventory(ctx context.Context, saga *domain.SagaRecord) error {
	state := saga.StateData
	if state.ReservationID == "" {
		return nil
	}

	var firstErr error
	failed := 0
	for _, item := range state.Items {
		err := e.breakers.Inventory.Execute(ctx, func(ctx context.Context) error {
			return e.inventory.ReleaseReservation(ctx, state.ReservationID, item.ProductID, item.Quantity)
		})
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "release %s", item.ProductID)
			}
		}
	}

	if firstErr != nil {
		return errors.Wrapf(firstErr, "%d of %d releases failed", failed, len(state.Items))
	}
	return nil
}

func (e *CompensationEngine) cancelOrder(ctx context.Context, saga *domain.SagaRecord) error {
	order, err := e.orderRepository.FindByID(ctx, saga.StateData.OrderID)
	if err != nil {
		return errors.Wrap(err, "failed to find order")
	}
	if order == nil {
		return errors.Wrapf(domain.ErrOrderNotFound, "order %s", saga.StateData.OrderID)
	}

	if err := order.Cancel(failureReason(saga)); err != nil {
		return err
	}

	return errors.Wrap(e.orderRepository.Save(ctx, order), "failed to save order")
}

func (e *CompensationEngine) refundPayment(ctx context.Context, saga *domain.SagaRecord) error {
	state := saga.StateData
	if state.PaymentID == "" {
		return nil
	}

	return e.breakers.Payment.Execute(ctx, func(ctx context.Context) error {
		return e.payment.RefundPayment(ctx, state.PaymentID, state.TotalAmount, failureReason(saga))
	})
}

func (e *CompensationEngine) notifyFailure(ctx context.Context, saga *domain.SagaRecord) error {
	summary := saga.StateData.Summary()
	summary.Reason = failureReason(saga)

	return e.breakers.Notification.Execute(ctx, func(ctx context.Context) error {
		return e.notification.SendPaymentFailure(ctx, saga.StateData.UserID, summary)
	})
}

func failureReason(saga *domain.SagaRecord) string {
	if saga.ErrorDetails != nil && saga.ErrorDetails.Message != "" {
		return saga.ErrorDetails.Message
	}
	return "order processing failed"
}
