package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/draftea/order-fulfillment/order-saga-service/application"
	"github.com/draftea/order-fulfillment/shared/circuitbreaker"
	sharedinfra "github.com/draftea/order-fulfillment/shared/infrastructure"
	"github.com/draftea/order-fulfillment/shared/retrypolicy"
	"github.com/spf13/viper"
)

// Saga store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
	StoreDriverMemory   = "memory"
)

// maxVisibilityTimeout is the SQS limit
const maxVisibilityTimeout = 12 * time.Hour

type Config struct {
	Service         Service         `mapstructure:"service"`
	Database        Database        `mapstructure:"database"`
	Redis           Redis           `mapstructure:"redis"`
	AWS             AWS             `mapstructure:"aws"`
	Telemetry       Telemetry       `mapstructure:"telemetry"`
	Services        Services        `mapstructure:"services"`
	Saga            Saga            `mapstructure:"saga"`
	CircuitBreakers CircuitBreakers `mapstructure:"circuit_breakers"`
}

type Service struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

type Database struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	Migrate  bool   `mapstructure:"migrate"`
}

type Redis struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

type AWS struct {
	sharedinfra.AWSConfig `mapstructure:",squash"`
	TopicArn              string `mapstructure:"topic_arn"`
	QueueURL              string `mapstructure:"queue_url"`
	Workers               int32  `mapstructure:"workers"`
	Readers               int32  `mapstructure:"readers"`
	WaitTimeSeconds       int32  `mapstructure:"wait_time_seconds"`
	// VisibilityTimeout hides a received message from other consumers while
	// its saga runs. It must cover saga.timeout plus saga.compensation_timeout.
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout"`
}

type Telemetry struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// Services locates the remote inventory and payment APIs
type Services struct {
	InventoryURL string        `mapstructure:"inventory_url"`
	PaymentURL   string        `mapstructure:"payment_url"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
}

type Saga struct {
	retrypolicy.Policy          `mapstructure:",squash"`
	Timeout                     time.Duration `mapstructure:"timeout"`
	ReservationTTL              time.Duration `mapstructure:"reservation_ttl"`
	CompensationTimeout         time.Duration `mapstructure:"compensation_timeout"`
	CompensateOnUnexpectedError bool          `mapstructure:"compensate_on_unexpected_error"`
	StoreDriver                 string        `mapstructure:"store_driver"`
}

type CircuitBreakers struct {
	Inventory    circuitbreaker.Config `mapstructure:"inventory"`
	Payment      circuitbreaker.Config `mapstructure:"payment"`
	Notification circuitbreaker.Config `mapstructure:"notification"`
}

func ReadConfig() (*Config, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return nil, fmt.Errorf("unable to get current file")
	}

	return readConfig(viper.New(), filepath.Dir(filename), getConfigName())
}

func readConfig(v *viper.Viper, configDir, name string) (*Config, error) {
	v.SetConfigName(name)
	v.SetConfigType("json")
	v.AddConfigPath(configDir)

	// ORDER_SAGA_SAGA_MAX_RETRIES overrides saga.max_retries
	v.SetEnvPrefix("ORDER_SAGA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func getConfigName() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		return "local"
	}
	return env
}

func setDefaults(v *viper.Viper) {
	// Service defaults
	v.SetDefault("service.name", "order-saga-service")
	v.SetDefault("service.env", getEnv("ENV", "local"))
	v.SetDefault("service.port", getEnv("PORT", "8080"))

	// Database defaults
	v.SetDefault("database.url", os.Getenv("DATABASE_URL"))
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "order_fulfillment")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.migrate", true)

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 7*24*time.Hour)
	v.SetDefault("redis.key_prefix", "order-saga")

	// AWS defaults
	v.SetDefault("aws.region", getEnv("AWS_DEFAULT_REGION", "us-east-1"))
	v.SetDefault("aws.endpoint", getEnv("AWS_ENDPOINT_URL", ""))
	v.SetDefault("aws.topic_arn", getEnv("SNS_TOPIC_ARN", "arn:aws:sns:us-east-1:000000000000:order-events"))
	v.SetDefault("aws.queue_url", getEnv("SQS_QUEUE_URL", "http://localhost:4566/000000000000/order-saga"))
	v.SetDefault("aws.workers", 10)
	v.SetDefault("aws.readers", 1)
	v.SetDefault("aws.wait_time_seconds", 15)
	v.SetDefault("aws.visibility_timeout", 11*time.Minute)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	v.SetDefault("telemetry.sample_ratio", 1.0)

	// Remote services
	v.SetDefault("services.inventory_url", "http://localhost:8081")
	v.SetDefault("services.payment_url", "http://localhost:8082")
	v.SetDefault("services.http_timeout", 10*time.Second)

	// Saga defaults
	defaults := application.DefaultSagaOptions()
	v.SetDefault("saga.max_retries", defaults.Retry.MaxRetries)
	v.SetDefault("saga.retry_delay", defaults.Retry.RetryDelay)
	v.SetDefault("saga.max_retry_delay", defaults.Retry.MaxRetryDelay)
	v.SetDefault("saga.jitter", defaults.Retry.Jitter)
	v.SetDefault("saga.timeout", defaults.Timeout)
	v.SetDefault("saga.reservation_ttl", defaults.ReservationTTL)
	v.SetDefault("saga.compensation_timeout", defaults.CompensationTimeout)
	v.SetDefault("saga.compensate_on_unexpected_error", false)
	v.SetDefault("saga.store_driver", StoreDriverPostgres)

	// Breaker defaults
	for _, name := range []string{"inventory", "payment", "notification"} {
		breaker := circuitbreaker.DefaultConfig(name)
		prefix := "circuit_breakers." + name + "."
		v.SetDefault(prefix+"name", breaker.Name)
		v.SetDefault(prefix+"failure_threshold", breaker.FailureThreshold)
		v.SetDefault(prefix+"recovery_timeout", breaker.RecoveryTimeout)
		v.SetDefault(prefix+"success_threshold", breaker.SuccessThreshold)
		v.SetDefault(prefix+"timeout", breaker.Timeout)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) validate() error {
	switch c.Saga.StoreDriver {
	case StoreDriverPostgres, StoreDriverRedis, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown saga store driver %q", c.Saga.StoreDriver)
	}

	if c.Saga.MaxRetries < 0 {
		return fmt.Errorf("saga.max_retries must not be negative, got %d", c.Saga.MaxRetries)
	}

	if longest := c.Saga.Timeout + c.Saga.CompensationTimeout; c.AWS.VisibilityTimeout < longest {
		return fmt.Errorf("aws.visibility_timeout %s is shorter than saga.timeout plus saga.compensation_timeout (%s)",
			c.AWS.VisibilityTimeout, longest)
	}
	if c.AWS.VisibilityTimeout > maxVisibilityTimeout {
		return fmt.Errorf("aws.visibility_timeout must not exceed %s, got %s", maxVisibilityTimeout, c.AWS.VisibilityTimeout)
	}

	if c.AWS.WaitTimeSeconds < 0 || c.AWS.WaitTimeSeconds > 20 {
		return fmt.Errorf("aws.wait_time_seconds must be between 0 and 20, got %d", c.AWS.WaitTimeSeconds)
	}

	return nil
}

// GetDatabaseURL returns database.url when set, otherwise builds it from the components
func (c *Config) GetDatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// SubscriberOptions configures the SQS consumer that runs sagas
func (c *Config) SubscriberOptions() []sharedinfra.SQSSubscriberOption {
	return []sharedinfra.SQSSubscriberOption{
		sharedinfra.WithWorkers(c.AWS.Workers),
		sharedinfra.WithReaders(c.AWS.Readers),
		sharedinfra.WithWaitTimeSeconds(c.AWS.WaitTimeSeconds),
		sharedinfra.WithVisibilityTimeout(int32(c.AWS.VisibilityTimeout / time.Second)),
	}
}

// SagaOptions converts the saga section into execution options
func (c *Config) SagaOptions() application.SagaOptions {
	return application.SagaOptions{
		Retry:                       c.Saga.Policy,
		Timeout:                     c.Saga.Timeout,
		ReservationTTL:              c.Saga.ReservationTTL,
		CompensationTimeout:         c.Saga.CompensationTimeout,
		CompensateOnUnexpectedError: c.Saga.CompensateOnUnexpectedError,
	}
}
