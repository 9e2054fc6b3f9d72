package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Saga metric names
const (
	SagaExecutionsMetric  = "saga_executions_total"
	SagaStepRetriesMetric = "saga_step_retries_total"
	SagaDurationMetric    = "saga_duration_seconds"
	CircuitBreakerMetric  = "circuit_breaker_state"
	CompensationsMetric   = "saga_compensations_total"
)

// RecordSagaExecution counts a finished saga run and records its duration
func RecordSagaExecution(ctx context.Context, finalStatus string, duration time.Duration) {
	RecordCounter(ctx, SagaExecutionsMetric, "Saga executions by final status", 1,
		attribute.String("final_status", finalStatus),
	)
	RecordHistogram(ctx, SagaDurationMetric, "Saga execution duration", duration.Seconds(),
		attribute.String("final_status", finalStatus),
	)
}

// RecordStepRetry counts one retry of a saga step
func RecordStepRetry(ctx context.Context, step string) {
	RecordCounter(ctx, SagaStepRetriesMetric, "Saga step retries", 1,
		attribute.String("step", step),
	)
}

// RecordCompensation counts an executed compensation and whether it succeeded
func RecordCompensation(ctx context.Context, compensation string, success bool) {
	RecordCounter(ctx, CompensationsMetric, "Saga compensations executed", 1,
		attribute.String("compensation", compensation),
		attribute.Bool("success", success),
	)
}

// RecordBreakerState publishes a breaker state as 0 closed, 1 half open, 2 open
func RecordBreakerState(ctx context.Context, breaker string, state string) {
	var value float64
	switch state {
	case "HALF_OPEN":
		value = 1
	case "OPEN":
		value = 2
	}
	RecordGauge(ctx, CircuitBreakerMetric, "Circuit breaker state", value,
		attribute.String("breaker", breaker),
	)
}
