package domain

import (
	"time"

	"github.com/draftea/order-fulfillment/shared/models"
)

// StepError describes why a step failed
type StepError struct {
	Message   string `json:"message"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}

func (e *StepError) Error() string {
	return e.Code + ": " + e.Message
}

// StepOutcome is the result of one step attempt
type StepOutcome struct {
	Success bool
	Step    Step
	Data    *StateUpdate
	Error   *StepError
	Elapsed time.Duration
}

// Succeeded builds a successful outcome
func Succeeded(step Step, data *StateUpdate) *StepOutcome {
	return &StepOutcome{Success: true, Step: step, Data: data}
}

// Failed builds a failed outcome. data may carry details of the failure.
func Failed(step Step, code, message string, retryable bool, data *StateUpdate) *StepOutcome {
	return &StepOutcome{
		Step: step,
		Data: data,
		Error: &StepError{
			Message:   message,
			Code:      code,
			Retryable: retryable,
		},
	}
}

// StepMetric is the per-step entry of SagaMetrics
type StepMetric struct {
	Step       Step          `json:"step"`
	Duration   time.Duration `json:"-"`
	DurationMs int64         `json:"duration_ms"`
	RetryCount int           `json:"retry_count"`
	Success    bool          `json:"success"`
}

// NewStepMetric builds a StepMetric from an outcome and the retries it took
func NewStepMetric(step Step, elapsed time.Duration, retries int, success bool) StepMetric {
	return StepMetric{
		Step:       step,
		Duration:   elapsed,
		DurationMs: elapsed.Milliseconds(),
		RetryCount: retries,
		Success:    success,
	}
}

// SagaMetrics summarises one ExecuteSaga call
type SagaMetrics struct {
	SagaID               models.ID     `json:"saga_id"`
	OrderID              models.ID     `json:"order_id"`
	TotalDuration        time.Duration `json:"-"`
	TotalDurationMs      int64         `json:"total_duration_ms"`
	StepMetrics          []StepMetric  `json:"step_metrics"`
	CompensationExecuted bool          `json:"compensation_executed"`
	FinalStatus          SagaStatus    `json:"final_status"`
}
