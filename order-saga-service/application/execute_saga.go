package application

import (
	"context"
	"time"

	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/draftea/order-fulfillment/shared/events"
	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/draftea/order-fulfillment/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// SagaFinishedData is the payload of the terminal saga events
type SagaFinishedData struct {
	SagaID               models.ID             `json:"saga_id"`
	OrderID              models.ID             `json:"order_id"`
	Status               domain.SagaStatus     `json:"status"`
	CurrentStep          domain.Step           `json:"current_step"`
	CompensationExecuted []domain.Compensation `json:"compensation_executed"`
	Error                *domain.ErrorDetails  `json:"error,omitempty"`
}

// ExecuteSaga runs an order processing saga from its last committed step to a terminal status
type ExecuteSaga struct {
	sagaRepository  domain.SagaRepository
	orderRepository domain.OrderRepository
	inventory       domain.InventoryService
	payment         domain.PaymentService
	notification    domain.NotificationService
	breakers        *CircuitBreakers
	publisher       events.Publisher
	executor        *StepExecutor
	compensations   *CompensationEngine
	options         SagaOptions
	logger          *zap.Logger
}

// NewExecuteSaga creates a new ExecuteSaga use case
func NewExecuteSaga(
	sagaRepository domain.SagaRepository,
	orderRepository domain.OrderRepository,
	inventory domain.InventoryService,
	payment domain.PaymentService,
	notification domain.NotificationService,
	breakers *CircuitBreakers,
	publisher events.Publisher,
	options SagaOptions,
	logger *zap.Logger,
) *ExecuteSaga {
	return &ExecuteSaga{
		sagaRepository:  sagaRepository,
		orderRepository: orderRepository,
		inventory:       inventory,
		payment:         payment,
		notification:    notification,
		breakers:        breakers,
		publisher:       publisher,
		executor:        NewStepExecutor(options.Retry, logger),
		compensations: NewCompensationEngine(
			sagaRepository, orderRepository, inventory, payment, notification,
			breakers, options.CompensationTimeout, logger,
		),
		options: options,
		logger:  logger,
	}
}

// Execute runs the saga. It returns domain.ErrSagaNotFound without touching
// any remote service when the saga does not exist, and ErrSagaAlreadyFinished
// for sagas in a terminal status. Business failures are reported through
// SagaMetrics.FinalStatus, not as errors.
func (uc *ExecuteSaga) Execute(ctx context.Context, sagaID models.ID) (*domain.SagaMetrics, error) {
	ctx, span := telemetry.StartSpan(ctx, "saga.execute")
	defer span.End()
	span.SetAttributes(attribute.String("saga.id", sagaID.String()))

	started := time.Now()

	saga, err := uc.sagaRepository.FindByID(ctx, sagaID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find saga")
	}
	if saga == nil {
		return nil, errors.Wrapf(domain.ErrSagaNotFound, "saga %s", sagaID)
	}
	if saga.Status.IsTerminal() {
		return nil, errors.Wrapf(domain.ErrSagaAlreadyFinished, "saga %s is %s", sagaID, saga.Status)
	}

	log := uc.logger.With(
		zap.String("saga_id", saga.ID.String()),
		zap.String("order_id", saga.AggregateID.String()),
		zap.String("correlation_id", saga.CorrelationID),
	)
	run := &sagaRun{
		saga: saga,
		log:  log,
		metrics: &domain.SagaMetrics{
			SagaID:      saga.ID,
			OrderID:     saga.AggregateID,
			StepMetrics: []domain.StepMetric{},
		},
	}

	metrics, err := uc.run(ctx, run)
	metrics.TotalDuration = time.Since(started)
	metrics.TotalDurationMs = metrics.TotalDuration.Milliseconds()

	span.SetAttributes(attribute.String("saga.final_status", string(metrics.FinalStatus)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	telemetry.RecordSagaExecution(ctx, string(metrics.FinalStatus), metrics.TotalDuration)

	log.Info("saga execution finished",
		zap.String("final_status", string(metrics.FinalStatus)),
		zap.Bool("compensation_executed", metrics.CompensationExecuted),
		zap.Duration("duration", metrics.TotalDuration),
	)

	return metrics, err
}

type sagaRun struct {
	saga    *domain.SagaRecord
	metrics *domain.SagaMetrics
	log     *zap.Logger
}

func (uc *ExecuteSaga) run(ctx context.Context, run *sagaRun) (*domain.SagaMetrics, error) {
	saga := run.saga

	if err := saga.StateData.Validate(); err != nil {
		return uc.fail(ctx, run, saga.CurrentStep, err)
	}

	if err := saga.MarkRunning(time.Now().UTC()); err != nil {
		return uc.fail(ctx, run, saga.CurrentStep, err)
	}
	if err := uc.sagaRepository.Save(ctx, saga); err != nil {
		return uc.fail(ctx, run, saga.CurrentStep, errors.Wrap(err, "failed to save saga"))
	}

	sagaCtx, cancel := context.WithTimeout(ctx, uc.options.Timeout)
	defer cancel()

	for _, step := range uc.steps() {
		if err := ctx.Err(); err != nil {
			return uc.interrupted(run, err)
		}
		if saga.HasReached(step.target) {
			run.log.Debug("step already committed, skipping", zap.String("step", step.name))
			continue
		}

		result := uc.runStep(sagaCtx, saga, step)
		run.metrics.StepMetrics = append(run.metrics.StepMetrics,
			domain.NewStepMetric(step.target, result.Elapsed, result.Retries, result.Outcome.Success))
		saga.RetryCount += result.Retries

		outcome := result.Outcome
		if !outcome.Success && ctx.Err() != nil {
			return uc.interrupted(run, ctx.Err())
		}
		saga.StateData.Merge(outcome.Data)

		if !outcome.Success {
			return uc.stepFailed(ctx, run, step, outcome)
		}

		if err := saga.AdvanceTo(step.target, time.Now().UTC()); err != nil {
			return uc.fail(ctx, run, step.target, err)
		}
		if err := uc.sagaRepository.Save(ctx, saga); err != nil {
			return uc.fail(ctx, run, step.target, errors.Wrap(err, "failed to save saga"))
		}
		run.log.Info("saga step committed", zap.String("step", step.name), zap.Int("retries", result.Retries))
	}

	if err := saga.Complete(time.Now().UTC()); err != nil {
		return uc.fail(ctx, run, saga.CurrentStep, err)
	}
	if err := uc.sagaRepository.Save(ctx, saga); err != nil {
		return uc.fail(ctx, run, saga.CurrentStep, errors.Wrap(err, "failed to save saga"))
	}

	run.metrics.FinalStatus = domain.SagaStatusCompleted
	uc.publishFinished(ctx, run, events.SagaCompletedEvent)
	return run.metrics, nil
}

func (uc *ExecuteSaga) runStep(ctx context.Context, saga *domain.SagaRecord, step sagaStep) StepResult {
	ctx, span := telemetry.StartSpan(ctx, "saga.step."+step.name)
	defer span.End()

	// steps get a copy of the state; a step losing the timeout race may still be running
	in := stepInput{
		state:         *saga.StateData,
		reservationID: reservationID(saga),
	}
	result := uc.executor.Run(ctx, step.target, func(ctx context.Context) (*domain.StepOutcome, error) {
		return step.run(ctx, in)
	})

	span.SetAttributes(
		attribute.Bool("step.success", result.Outcome.Success),
		attribute.Int("step.retries", result.Retries),
	)
	if !result.Outcome.Success {
		span.SetStatus(codes.Error, result.Outcome.Error.Message)
	}
	return result
}

func (uc *ExecuteSaga) stepFailed(ctx context.Context, run *sagaRun, step sagaStep, outcome *domain.StepOutcome) (*domain.SagaMetrics, error) {
	stepErr := outcome.Error
	run.log.Warn("saga step failed",
		zap.String("step", step.name),
		zap.String("code", stepErr.Code),
		zap.Bool("retryable", stepErr.Retryable),
		zap.String("error", stepErr.Message),
	)

	if len(step.onFailure) == 0 {
		return uc.fail(ctx, run, step.target, stepErr)
	}

	run.saga.RecordError(domain.ErrorDetails{
		Message:    stepErr.Message,
		Code:       stepErr.Code,
		Step:       step.target,
		OccurredAt: time.Now().UTC(),
	})
	return uc.compensate(ctx, run, step.onFailure)
}

func (uc *ExecuteSaga) compensate(ctx context.Context, run *sagaRun, compensations []domain.Compensation) (*domain.SagaMetrics, error) {
	run.metrics.CompensationExecuted = true
	if err := uc.compensations.Run(ctx, run.saga, compensations...); err != nil {
		run.metrics.FinalStatus = run.saga.Status
		return run.metrics, errors.Wrap(err, "failed to compensate saga")
	}

	run.metrics.FinalStatus = domain.SagaStatusCompensated
	uc.publishFinished(ctx, run, events.SagaCompensatedEvent)
	return run.metrics, nil
}

// fail handles failures that are not business outcomes. Unless configured
// otherwise it leaves completed side effects in place and ends the saga FAILED.
func (uc *ExecuteSaga) fail(ctx context.Context, run *sagaRun, step domain.Step, cause error) (*domain.SagaMetrics, error) {
	if err := ctx.Err(); err != nil {
		return uc.interrupted(run, err)
	}

	saga := run.saga
	details := domain.ErrorDetails{
		Message:    cause.Error(),
		Code:       domain.CodeUnexpectedError,
		Step:       step,
		OccurredAt: time.Now().UTC(),
	}
	var stepErr *domain.StepError
	if errors.As(cause, &stepErr) && stepErr.Code != "" {
		details.Code = stepErr.Code
	}

	run.log.Error("saga failed unexpectedly", zap.String("step", string(step)), zap.Error(cause))

	if uc.options.CompensateOnUnexpectedError && saga.StateData != nil && saga.StateData.Validate() == nil {
		saga.RecordError(details)
		return uc.compensate(ctx, run, unexpectedFailureCompensations(saga))
	}

	if err := saga.Fail(details, time.Now().UTC()); err != nil {
		run.metrics.FinalStatus = saga.Status
		return run.metrics, errors.Wrap(err, "failed to mark saga as failed")
	}
	run.metrics.FinalStatus = domain.SagaStatusFailed

	// persisted on a detached context so an expired deadline still records the failure
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.options.CompensationTimeout)
	defer cancel()
	if err := uc.sagaRepository.Save(saveCtx, saga); err != nil {
		return run.metrics, errors.Wrap(err, "failed to save failed saga")
	}

	uc.publishFinished(ctx, run, events.SagaFailedEvent)
	return run.metrics, nil
}

// interrupted stops a run whose caller went away. Nothing is compensated and
// the record stays RUNNING at its last committed step, so a redelivered
// request resumes it.
func (uc *ExecuteSaga) interrupted(run *sagaRun, cause error) (*domain.SagaMetrics, error) {
	run.log.Warn("saga execution interrupted",
		zap.String("last_committed_step", string(run.saga.CurrentStep)),
		zap.Error(cause),
	)
	run.metrics.FinalStatus = run.saga.Status
	return run.metrics, errors.Wrap(cause, "saga execution interrupted")
}

// unexpectedFailureCompensations undoes whatever the saga got to before failing
func unexpectedFailureCompensations(saga *domain.SagaRecord) []domain.Compensation {
	state := saga.StateData
	var compensations []domain.Compensation
	if state.PaymentID != "" {
		compensations = append(compensations, domain.CompensationRefundPayment)
	}
	if state.ReservationID != "" {
		compensations = append(compensations, domain.CompensationReleaseInventory)
	}
	if saga.HasReached(domain.StepPaymentProcessing) {
		compensations = append(compensations, domain.CompensationNotifyFailure)
	}
	return append(compensations, domain.CompensationCancelOrder)
}

func (uc *ExecuteSaga) publishFinished(ctx context.Context, run *sagaRun, eventType string) {
	saga := run.saga
	data := SagaFinishedData{
		SagaID:      saga.ID,
		OrderID:     saga.AggregateID,
		Status:      saga.Status,
		CurrentStep: saga.CurrentStep,
		Error:       saga.ErrorDetails,
	}
	if saga.StateData != nil {
		data.CompensationExecuted = saga.StateData.CompensationExecuted
	}
	event := events.NewEvent(saga.ID, eventType, data).WithCorrelationID(saga.CorrelationID)

	if err := uc.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		run.log.Error("failed to publish saga event", zap.String("event_type", eventType), zap.Error(err))
	}
}
