package application

import (
	"time"

	"github.com/draftea/order-fulfillment/shared/circuitbreaker"
	"github.com/draftea/order-fulfillment/shared/retrypolicy"
)

// SagaOptions tunes saga execution
type SagaOptions struct {
	Retry retrypolicy.Policy
	// Timeout bounds a whole ExecuteSaga run
	Timeout             time.Duration
	ReservationTTL      time.Duration
	CompensationTimeout time.Duration
	// CompensateOnUnexpectedError runs the progress-appropriate compensation
	// chain instead of leaving the saga FAILED with side effects in place
	CompensateOnUnexpectedError bool
}

// DefaultSagaOptions returns the production defaults
func DefaultSagaOptions() SagaOptions {
	return SagaOptions{
		Retry:               retrypolicy.DefaultPolicy(),
		Timeout:             10 * time.Minute,
		ReservationTTL:      30 * time.Minute,
		CompensationTimeout: 30 * time.Second,
	}
}

// CircuitBreakers holds one breaker per remote dependency
type CircuitBreakers struct {
	Inventory    *circuitbreaker.CircuitBreaker
	Payment      *circuitbreaker.CircuitBreaker
	Notification *circuitbreaker.CircuitBreaker
}

// NewCircuitBreakers creates the three dependency breakers
func NewCircuitBreakers(inventory, payment, notification circuitbreaker.Config, opts ...circuitbreaker.Option) *CircuitBreakers {
	if inventory.Name == "" {
		inventory.Name = "inventory"
	}
	if payment.Name == "" {
		payment.Name = "payment"
	}
	if notification.Name == "" {
		notification.Name = "notification"
	}

	return &CircuitBreakers{
		Inventory:    circuitbreaker.New(inventory, opts...),
		Payment:      circuitbreaker.New(payment, opts...),
		Notification: circuitbreaker.New(notification, opts...),
	}
}
