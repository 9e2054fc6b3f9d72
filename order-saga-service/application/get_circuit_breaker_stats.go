package application

import "github.com/draftea/order-fulfillment/shared/circuitbreaker"

// CircuitBreakerStats is a snapshot of every dependency breaker
type CircuitBreakerStats struct {
	Inventory    circuitbreaker.Stats `json:"inventory"`
	Payment      circuitbreaker.Stats `json:"payment"`
	Notification circuitbreaker.Stats `json:"notification"`
}

// GetCircuitBreakerStats use case
type GetCircuitBreakerStats struct {
	breakers *CircuitBreakers
}

// NewGetCircuitBreakerStats creates a new GetCircuitBreakerStats use case
func NewGetCircuitBreakerStats(breakers *CircuitBreakers) *GetCircuitBreakerStats {
	return &GetCircuitBreakerStats{
		breakers: breakers,
	}
}

// Execute returns the current breaker snapshots
func (uc *GetCircuitBreakerStats) Execute() CircuitBreakerStats {
	return CircuitBreakerStats{
		Inventory:    uc.breakers.Inventory.Stats(),
		Payment:      uc.breakers.Payment.Stats(),
		Notification: uc.breakers.Notification.Stats(),
	}
}
