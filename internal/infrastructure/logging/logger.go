package logging

import (
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bivex/paywall-purchases/internal/infrastructure/config"
)

// Logger is the process-wide logger. It discards everything until Init runs.
var Logger = zap.NewNop()

var (
	sentryEnabled bool
	flushTimeout  = 2 * time.Second
)

// Init initializes the global logger and, when a DSN is configured, Sentry
func Init(cfg *config.SentryConfig) error {
	var err error
	var zapConfig zap.Config

	// Use development config in dev/staging, production in prod
	environment := "production"
	if cfg != nil && cfg.Environment != "" {
		environment = cfg.Environment
	}

	if environment == "development" {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	// Output to stdout by default
	zapConfig.OutputPaths = []string{"stdout"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}

	Logger, err = zapConfig.Build()
	if err != nil {
		return err
	}

	if cfg != nil && cfg.DSN != "" {
		if err := initSentry(cfg, environment); err != nil {
			return err
		}
		Logger.Info("Sentry integration enabled", zap.String("environment", environment))
	}

	return nil
}

func initSentry(cfg *config.SentryConfig, environment string) error {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: environment,
		Release:     cfg.Release,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}
	if cfg.FlushTimeout > 0 {
		flushTimeout = cfg.FlushTimeout
	}
	sentryEnabled = true
	return nil
}

// ReportPanic logs a recovered panic and forwards it to Sentry when enabled
func ReportPanic(component string, recovered any) {
	Logger.Error("Recovered panic",
		zap.String("component", component),
		zap.Any("panic", recovered),
	)
	if !sentryEnabled {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		sentry.CurrentHub().Recover(recovered)
	})
}

// Sync flushes any buffered log entries and pending Sentry events
func Sync() {
	if sentryEnabled {
		sentry.Flush(flushTimeout)
	}
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// WithComponent creates a child logger with a component field
func WithComponent(component string) *zap.Logger {
	return Logger.With(zap.String("component", component))
}

// WithRequestID creates a child logger with a request_id field
func WithRequestID(requestID string) *zap.Logger {
	return Logger.With(zap.String("request_id", requestID))
}

// WithAppUserID creates a child logger with an app_user_id field
func WithAppUserID(appUserID string) *zap.Logger {
	return Logger.With(zap.String("app_user_id", appUserID))
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	Logger.Debug(msg, fields...)
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	Logger.Info(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	Logger.Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	Logger.Error(msg, fields...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	Sync()
	Logger.Fatal(msg, fields...)
	os.Exit(1)
}
