package logger

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the service logger. The local environment gets a human readable
// console encoder, everything else structured JSON.
func New(serviceName, env string) (*zap.Logger, error) {
	var config zap.Config
	if env == "local" || env == "test" {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	log, err := config.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}

	return log.With(zap.String("service", serviceName), zap.String("env", env)), nil
}
