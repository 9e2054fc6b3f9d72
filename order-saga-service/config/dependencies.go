package config

import (
	"context"
	"fmt"
	"time"

	"github.com/draftea/order-fulfillment/order-saga-service/application"
	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/draftea/order-fulfillment/order-saga-service/handlers"
	"github.com/draftea/order-fulfillment/order-saga-service/infrastructure"
	"github.com/draftea/order-fulfillment/shared/circuitbreaker"
	"github.com/draftea/order-fulfillment/shared/events"
	sharedinfra "github.com/draftea/order-fulfillment/shared/infrastructure"
	"github.com/draftea/order-fulfillment/shared/telemetry"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Dependencies struct {
	// Storage
	DB    *sqlx.DB
	Redis *redis.Client

	// Repositories
	SagaRepository  domain.SagaRepository
	OrderRepository domain.OrderRepository
	EventStore      events.Store

	// Remote services
	Inventory    domain.InventoryService
	Payment      domain.PaymentService
	Notification domain.NotificationService
	Breakers     *application.CircuitBreakers

	// Use Cases
	StartOrderProcessing    *application.StartOrderProcessing
	RequestOrderFulfillment *application.RequestOrderFulfillment
	ExecuteSaga             *application.ExecuteSaga
	GetSaga                 *application.GetSaga
	GetSagaHistory          *application.GetSagaHistory
	GetCircuitBreakerStats  *application.GetCircuitBreakerStats

	// HTTP Handlers
	SagaHandlers *handlers.SagaHandlers

	// Event Handlers
	SagaEventHandlers *handlers.SagaEventHandlers
	EventRouter       *sharedinfra.EventRouter

	// Infrastructure
	EventPublisher  events.Publisher
	EventSubscriber *sharedinfra.SQSEventSubscriber

	// Telemetry
	Telemetry         *telemetry.Telemetry
	TelemetryShutdown telemetry.ShutdownFunc
}

func BuildDependencies(ctx context.Context, config *Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{}

	// Initialize telemetry first
	if config.Telemetry.Enabled {
		telConfig := telemetry.OrderSagaServiceConfig.
			WithOTLPEndpoint(config.Telemetry.OTLPEndpoint).
			WithEnvironment(config.Service.Env).
			WithSampleRatio(config.Telemetry.SampleRatio)
		tel, telemetryShutdown, err := telemetry.InitTelemetry(ctx, telConfig)
		if err != nil {
			// continue without telemetry rather than failing
			logger.Warn("failed to initialize telemetry", zap.Error(err))
		} else {
			deps.Telemetry = tel
			deps.TelemetryShutdown = telemetryShutdown
		}
	}
	if deps.Telemetry == nil {
		deps.Telemetry = telemetry.NewTelemetry(telemetry.OrderSagaServiceConfig)
	}

	if err := deps.buildStores(ctx, config, logger); err != nil {
		deps.Close()
		return nil, err
	}

	// Initialize AWS infrastructure
	awsClients, err := sharedinfra.NewAWSClients(ctx, config.AWS.AWSConfig)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to create AWS clients: %w", err)
	}
	snsPublisher := sharedinfra.NewSNSEventPublisher(awsClients.SNS, config.AWS.TopicArn, logger)
	deps.EventPublisher = sharedinfra.NewRecordingPublisher(deps.EventStore, snsPublisher)

	// Initialize remote services
	deps.Inventory = infrastructure.NewInventoryClient(config.Services.InventoryURL, config.Services.HTTPTimeout)
	deps.Payment = infrastructure.NewPaymentClient(config.Services.PaymentURL, config.Services.HTTPTimeout)
	deps.Notification = infrastructure.NewEventNotificationService(deps.EventPublisher)
	deps.Breakers = application.NewCircuitBreakers(
		config.CircuitBreakers.Inventory,
		config.CircuitBreakers.Payment,
		config.CircuitBreakers.Notification,
		circuitbreaker.WithStateChangeHook(breakerStateLogger(deps.Telemetry, logger)),
	)

	// Initialize use cases
	deps.StartOrderProcessing = application.NewStartOrderProcessing(deps.SagaRepository, logger)
	deps.RequestOrderFulfillment = application.NewRequestOrderFulfillment(deps.OrderRepository, deps.StartOrderProcessing, deps.EventPublisher)
	deps.ExecuteSaga = application.NewExecuteSaga(
		deps.SagaRepository,
		deps.OrderRepository,
		deps.Inventory,
		deps.Payment,
		deps.Notification,
		deps.Breakers,
		deps.EventPublisher,
		config.SagaOptions(),
		logger,
	)
	deps.GetSaga = application.NewGetSaga(deps.SagaRepository)
	deps.GetSagaHistory = application.NewGetSagaHistory(deps.SagaRepository, deps.EventStore)
	deps.GetCircuitBreakerStats = application.NewGetCircuitBreakerStats(deps.Breakers)

	// Initialize handlers
	deps.SagaHandlers = handlers.NewSagaHandlers(
		deps.RequestOrderFulfillment,
		deps.ExecuteSaga,
		deps.GetSaga,
		deps.GetSagaHistory,
		deps.GetCircuitBreakerStats,
		logger,
	)
	deps.SagaEventHandlers = handlers.NewSagaEventHandlers(deps.RequestOrderFulfillment, deps.ExecuteSaga, logger)

	deps.EventRouter = sharedinfra.NewEventRouter(logger)
	deps.EventRouter.RegisterHandler(events.OrderCreatedEvent, deps.SagaEventHandlers)
	deps.EventRouter.RegisterHandler(events.SagaExecutionRequestedEvent, deps.SagaEventHandlers)

	deps.EventSubscriber = sharedinfra.NewSQSEventSubscriber(
		awsClients.SQS,
		config.AWS.QueueURL,
		deps.EventRouter,
		logger,
		config.SubscriberOptions()...,
	)

	return deps, nil
}

// buildStores opens the storage selected by saga.store_driver. Orders live in
// Postgres unless everything runs in memory.
func (d *Dependencies) buildStores(ctx context.Context, config *Config, logger *zap.Logger) error {
	if config.Saga.StoreDriver == StoreDriverMemory {
		logger.Warn("using in-memory stores, state is lost on restart")
		d.SagaRepository = infrastructure.NewMemorySagaRepository()
		d.OrderRepository = infrastructure.NewMemoryOrderRepository()
		d.EventStore = sharedinfra.NewMemoryEventStore()
		return nil
	}

	// Initialize database
	db, err := sqlx.ConnectContext(ctx, "postgres", config.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	d.DB = db

	if config.Database.Migrate {
		if err := infrastructure.Migrate(ctx, db, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	d.OrderRepository = infrastructure.NewPostgresOrderRepository(db)

	if config.Saga.StoreDriver == StoreDriverPostgres {
		d.SagaRepository = infrastructure.NewPostgresSagaRepository(db)
		d.EventStore = sharedinfra.NewPostgresEventStore(db)
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})
	d.Redis = client

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	d.SagaRepository = infrastructure.NewRedisSagaRepository(client, config.Redis.TTL)
	d.EventStore = sharedinfra.NewRedisEventStore(client, config.Redis.KeyPrefix, config.Redis.TTL)
	return nil
}

// breakerStateLogger logs every breaker transition and exports the new state as a gauge
func breakerStateLogger(tel *telemetry.Telemetry, logger *zap.Logger) circuitbreaker.StateChangeFunc {
	ctx := telemetry.WithTelemetry(context.Background(), tel)
	return func(name string, from, to circuitbreaker.State) {
		logger.Warn("circuit breaker state changed",
			zap.String("breaker", name),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		telemetry.RecordBreakerState(ctx, name, string(to))
	}
}

// Close closes all dependencies
func (d *Dependencies) Close() error {
	var err error

	if d.DB != nil {
		if closeErr := d.DB.Close(); closeErr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to close database: %w", closeErr))
		}
	}

	if d.Redis != nil {
		if closeErr := d.Redis.Close(); closeErr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to close redis: %w", closeErr))
		}
	}

	if d.TelemetryShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := d.TelemetryShutdown(ctx); shutdownErr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to shut down telemetry: %w", shutdownErr))
		}
	}

	return err
}
