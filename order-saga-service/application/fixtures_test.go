package application

import (
	"context"
	"testing"
	"time"

	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/draftea/order-fulfillment/order-saga-service/infrastructure"
	"github.com/draftea/order-fulfillment/order-saga-service/mocks"
	"github.com/draftea/order-fulfillment/shared/circuitbreaker"
	"github.com/draftea/order-fulfillment/shared/events"
	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/draftea/order-fulfillment/shared/retrypolicy"
	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sagaFixture struct {
	sagas        *infrastructure.MemorySagaRepository
	orders       *mocks.MockOrderRepository
	inventory    *mocks.MockInventoryService
	payment      *mocks.MockPaymentService
	notification *mocks.MockNotificationService
	publisher    *mocks.MockPublisher
	breakers     *CircuitBreakers
	options      SagaOptions
}

func newSagaFixture(t *testing.T) *sagaFixture {
	t.Helper()
	breakerConfig := circuitbreaker.Config{FailureThreshold: 100, Timeout: time.Second}

	return &sagaFixture{
		sagas:        infrastructure.NewMemorySagaRepository(),
		orders:       mocks.NewMockOrderRepository(t),
		inventory:    mocks.NewMockInventoryService(t),
		payment:      mocks.NewMockPaymentService(t),
		notification: mocks.NewMockNotificationService(t),
		publisher:    mocks.NewMockPublisher(t),
		breakers:     NewCircuitBreakers(breakerConfig, breakerConfig, breakerConfig),
		options:      testSagaOptions(),
	}
}

func testSagaOptions() SagaOptions {
	return SagaOptions{
		Retry: retrypolicy.Policy{
			MaxRetries:    3,
			RetryDelay:    time.Millisecond,
			MaxRetryDelay: 5 * time.Millisecond,
		},
		Timeout:             5 * time.Second,
		ReservationTTL:      30 * time.Minute,
		CompensationTimeout: 5 * time.Second,
	}
}

func (f *sagaFixture) useCase() *ExecuteSaga {
	return NewExecuteSaga(f.sagas, f.orders, f.inventory, f.payment, f.notification,
		f.breakers, f.publisher, f.options, zap.NewNop())
}

func (f *sagaFixture) start(t *testing.T, order *domain.Order) *domain.SagaRecord {
	t.Helper()
	saga, err := NewStartOrderProcessing(f.sagas, zap.NewNop()).Execute(context.Background(), order)
	require.NoError(t, err)
	return saga
}

func (f *sagaFixture) load(t *testing.T, id models.ID) *domain.SagaRecord {
	t.Helper()
	saga, err := f.sagas.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, saga)
	return saga
}

func (f *sagaFixture) expectPublished(eventType string) {
	f.publisher.EXPECT().Publish(mock.Anything, mock.MatchedBy(func(evt *events.Event) bool {
		return evt.EventType == eventType
	})).Return(nil).Once()
}

// newTestOrder builds {items:[{P1, 2, 50}], total 100 USD}
func newTestOrder(t *testing.T, items ...domain.OrderItem) *domain.Order {
	t.Helper()
	if len(items) == 0 {
		items = []domain.OrderItem{{ProductID: "P1", Quantity: 2, Price: models.NewMoney(50, "USD")}}
	}
	order, err := domain.CreateOrder(models.ID(faker.UUIDHyphenated()), items, "USD", "credit_card")
	require.NoError(t, err)
	return order
}

func stock(productID string, available int) *domain.StockAvailability {
	return &domain.StockAvailability{ProductID: productID, AvailableQuantity: available}
}

func succeededPayment(paymentID string) *domain.PaymentResponse {
	return &domain.PaymentResponse{
		PaymentID:     paymentID,
		TransactionID: "tx-" + paymentID,
		Status:        domain.PaymentStatusSucceeded,
	}
}
