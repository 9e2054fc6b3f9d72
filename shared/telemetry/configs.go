package telemetry

var (
	// OrderSagaServiceConfig is the telemetry configuration for the order saga service
	OrderSagaServiceConfig = Config{
		ServiceName:    "order-saga-service",
		ServiceVersion: "1.0.0",
	}

	// DefaultConfig backs telemetry calls made without telemetry in the context
	DefaultConfig = Config{
		ServiceName:    "unknown-service",
		ServiceVersion: "1.0.0",
	}
)

// WithOTLPEndpoint sets the OTLP collector endpoint
func (c Config) WithOTLPEndpoint(endpoint string) Config {
	c.OTLPEndpoint = endpoint
	return c
}

// WithEnvironment sets the deployment environment resource attribute
func (c Config) WithEnvironment(env string) Config {
	c.Environment = env
	return c
}

// WithSampleRatio keeps the given fraction of root traces
func (c Config) WithSampleRatio(ratio float64) Config {
	c.SampleRatio = ratio
	return c
}
