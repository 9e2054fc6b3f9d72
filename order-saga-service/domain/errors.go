package domain

import (
	"context"
	"fmt"

	"github.com/draftea/order-fulfillment/shared/circuitbreaker"
	"github.com/pkg/errors"
)

var (
	ErrSagaNotFound        = errors.New("saga not found")
	ErrSagaAlreadyFinished = errors.New("saga already finished")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidSagaState    = errors.New("invalid saga state")
	ErrInvalidTransition   = errors.New("invalid saga status transition")
	ErrInvalidInput        = errors.New("invalid input")
)

// Step failure codes
const (
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodePaymentFailed     = "PAYMENT_FAILED"
	CodeStepTimeout       = "STEP_TIMEOUT"
	CodeStepError         = "STEP_ERROR"
	CodeUnexpectedError   = "UNEXPECTED_ERROR"
)

// ServiceError is a failure reported by a remote dependency
type ServiceError struct {
	Service   string
	Code      string
	Message   string
	Retryable bool
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Service, e.Message, e.Code)
}

// NewServiceError creates a ServiceError
func NewServiceError(service, code, message string, retryable bool) *ServiceError {
	return &ServiceError{
		Service:   service,
		Code:      code,
		Message:   message,
		Retryable: retryable,
	}
}

// IsRetryable tells transient failures apart from business ones
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Retryable
	}

	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen),
		errors.Is(err, circuitbreaker.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrInvalidSagaState):
		return false
	}

	// unknown errors are treated as transport failures
	return true
}

// ErrorCode extracts the ServiceError code, falling back to the given default
func ErrorCode(err error, fallback string) string {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) && serviceErr.Code != "" {
		return serviceErr.Code
	}
	return fallback
}
