package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/draftea/order-fulfillment/order-saga-service/application"
	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/draftea/order-fulfillment/order-saga-service/infrastructure"
	"github.com/draftea/order-fulfillment/order-saga-service/mocks"
	"github.com/draftea/order-fulfillment/shared/circuitbreaker"
	"github.com/draftea/order-fulfillment/shared/events"
	sharedinfra "github.com/draftea/order-fulfillment/shared/infrastructure"
	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/draftea/order-fulfillment/shared/retrypolicy"
	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type handlerFixture struct {
	sagas        *infrastructure.MemorySagaRepository
	history      *sharedinfra.MemoryEventStore
	orders       *mocks.MockOrderRepository
	inventory    *mocks.MockInventoryService
	payment      *mocks.MockPaymentService
	notification *mocks.MockNotificationService
	publisher    *mocks.MockPublisher

	requestFulfillment *application.RequestOrderFulfillment
	executeSaga        *application.ExecuteSaga
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	f := &handlerFixture{
		sagas:        infrastructure.NewMemorySagaRepository(),
		history:      sharedinfra.NewMemoryEventStore(),
		orders:       mocks.NewMockOrderRepository(t),
		inventory:    mocks.NewMockInventoryService(t),
		payment:      mocks.NewMockPaymentService(t),
		notification: mocks.NewMockNotificationService(t),
		publisher:    mocks.NewMockPublisher(t),
	}

	breakerConfig := circuitbreaker.Config{FailureThreshold: 5, Timeout: time.Second}
	options := application.SagaOptions{
		Retry:               retrypolicy.Policy{MaxRetries: 1, RetryDelay: time.Millisecond, MaxRetryDelay: time.Millisecond},
		Timeout:             5 * time.Second,
		ReservationTTL:      time.Minute,
		CompensationTimeout: time.Second,
	}

	publisher := sharedinfra.NewRecordingPublisher(f.history, f.publisher)
	f.requestFulfillment = application.NewRequestOrderFulfillment(
		f.orders, application.NewStartOrderProcessing(f.sagas, zap.NewNop()), publisher,
	)
	f.executeSaga = application.NewExecuteSaga(
		f.sagas, f.orders, f.inventory, f.payment, f.notification,
		application.NewCircuitBreakers(breakerConfig, breakerConfig, breakerConfig),
		publisher, options, zap.NewNop(),
	)

	return f
}

func (f *handlerFixture) httpHandlers(breakers *application.CircuitBreakers) *SagaHandlers {
	return NewSagaHandlers(
		f.requestFulfillment,
		f.executeSaga,
		application.NewGetSaga(f.sagas),
		application.NewGetSagaHistory(f.sagas, f.history),
		application.NewGetCircuitBreakerStats(breakers),
		zap.NewNop(),
	)
}

func (f *handlerFixture) startSaga(t *testing.T, order *domain.Order) *domain.SagaRecord {
	t.Helper()
	saga, err := application.NewStartOrderProcessing(f.sagas, zap.NewNop()).Execute(context.Background(), order)
	require.NoError(t, err)
	return saga
}

// expectOutOfStock makes the saga for order end COMPENSATED after the stock check
func (f *handlerFixture) expectOutOfStock(order *domain.Order) {
	f.inventory.EXPECT().CheckAvailability(mock.Anything, "P1", 2).
		Return(&domain.StockAvailability{ProductID: "P1", AvailableQuantity: 0}, nil).Once()
	f.orders.EXPECT().FindByID(mock.Anything, order.ID).Return(order, nil).Once()
	f.orders.EXPECT().Save(mock.Anything, mock.Anything).Return(nil).Once()
	f.expectPublished(events.SagaCompensatedEvent)
}

func (f *handlerFixture) expectPublished(eventType string) {
	f.publisher.EXPECT().Publish(mock.Anything, mock.MatchedBy(func(evt *events.Event) bool {
		return evt.EventType == eventType
	})).Return(nil).Once()
}

func newTestOrder(t *testing.T) *domain.Order {
	t.Helper()
	order, err := domain.CreateOrder(models.ID(faker.UUIDHyphenated()), []domain.OrderItem{
		{ProductID: "P1", Quantity: 2, Price: models.NewMoney(50, "USD")},
	}, "USD", "credit_card")
	require.NoError(t, err)
	return order
}
