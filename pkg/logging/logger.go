// Package logging provides structured logging for Shelfline.
// It exposes a logr.Logger backed by zap so every component logs with the
// same encoder, level and field conventions.
package logging

import (
	"context"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

const (
	// RequestIDKey is the context key carrying the request id
	RequestIDKey contextKey = "request-id"

	// SessionIDKey is the context key carrying the session id
	SessionIDKey contextKey = "session-id"
)

// Config defines the logging configuration
type Config struct {
	// Level is the log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`

	// Format is the log format (json, console)
	Format string `yaml:"format" json:"format"`

	// Output is the output destination (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`

	// AddCaller adds caller information to logs
	AddCaller bool `yaml:"addCaller" json:"addCaller"`

	// Development enables development mode (pretty printing, etc.)
	Development bool `yaml:"development" json:"development"`
}

// Logger wraps a logr.Logger with Shelfline helpers
type Logger struct {
	logr.Logger
	config *Config
	zap    *zap.Logger
}

// DefaultConfig returns default logging configuration
func DefaultConfig() *Config {
	return &Config{
		Level:       "info",
		Format:      "json",
		Output:      "stdout",
		AddCaller:   true,
		Development: false,
	}
}

// NewLogger creates a new structured logger based on the provided configuration
func NewLogger(config *Config) (*Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	zapLogger, err := buildZapConfig(config).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return &Logger{
		Logger: zapr.NewLogger(zapLogger),
		config: config,
		zap:    zapLogger,
	}, nil
}

// NewFromZap wraps an existing zap logger, e.g. one built on a test observer core
func NewFromZap(zapLogger *zap.Logger) *Logger {
	return &Logger{
		Logger: zapr.NewLogger(zapLogger),
		config: DefaultConfig(),
		zap:    zapLogger,
	}
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return NewFromZap(zap.NewNop())
}

// buildZapConfig creates a zap configuration based on logging config
func buildZapConfig(config *Config) zap.Config {
	var zapConfig zap.Config

	if config.Format == "json" {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig = zap.NewProductionEncoderConfig()
		zapConfig.EncoderConfig.TimeKey = "time"
		zapConfig.EncoderConfig.LevelKey = "level"
		zapConfig.EncoderConfig.MessageKey = "msg"
		zapConfig.EncoderConfig.CallerKey = "caller"
		zapConfig.EncoderConfig.StacktraceKey = "stacktrace"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zapConfig.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	zapConfig.Encoding = "console"
	if config.Format == "json" {
		zapConfig.Encoding = "json"
	}

	zapConfig.Level = zap.NewAtomicLevelAt(parseLogLevel(config.Level))
	zapConfig.Development = config.Development
	zapConfig.DisableCaller = !config.AddCaller

	output := config.Output
	if output == "" {
		output = "stdout"
	}
	zapConfig.OutputPaths = []string{output}
	zapConfig.ErrorOutputPaths = []string{"stderr"}

	return zapConfig
}

// parseLogLevel converts string log level to zapcore.Level
func parseLogLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "panic":
		return zapcore.PanicLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// WithName returns a logger with the specified name
func (l *Logger) WithName(name string) *Logger {
	return &Logger{
		Logger: l.Logger.WithName(name),
		config: l.config,
		zap:    l.zap,
	}
}

// WithValues returns a logger with the specified key-value pairs
func (l *Logger) WithValues(keysAndValues ...interface{}) *Logger {
	return &Logger{
		Logger: l.Logger.WithValues(keysAndValues...),
		config: l.config,
		zap:    l.zap,
	}
}

// WithContext returns a logger with context-specific fields
func (l *Logger) WithContext(ctx context.Context) *Logger {
	logger := l.Logger

	if reqID := ctx.Value(RequestIDKey); reqID != nil {
		logger = logger.WithValues("request_id", reqID)
	}

	if sessionID := ctx.Value(SessionIDKey); sessionID != nil {
		logger = logger.WithValues("session_id", sessionID)
	}

	return &Logger{
		Logger: logger,
		config: l.config,
		zap:    l.zap,
	}
}

// WithService returns a logger configured for a named service
func (l *Logger) WithService(service string) *Logger {
	return &Logger{
		Logger: l.Logger.WithName(service).WithValues("service", service),
		config: l.config,
		zap:    l.zap,
	}
}

// Debug logs at debug verbosity
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.Logger.V(1).Info(msg, keysAndValues...)
}

// GetConfig returns the logging configuration
func (l *Logger) GetConfig() *Config {
	return l.config
}

// Sync flushes buffered log entries
func (l *Logger) Sync() error {
	if l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

// SetGlobalLogger installs the logger as zap's global logger
func SetGlobalLogger(logger *Logger) error {
	if logger.zap != nil {
		zap.ReplaceGlobals(logger.zap)
		return nil
	}

	zapLogger, err := buildZapConfig(logger.config).Build()
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(zapLogger)

	return nil
}

// GetLoggerFromEnv creates a logger from environment variables
func GetLoggerFromEnv() (*Logger, error) {
	config := DefaultConfig()
	config.Level = getEnvOrDefault("SHELFLINE_LOG_LEVEL", "info")
	config.Format = getEnvOrDefault("SHELFLINE_LOG_FORMAT", "json")

	return NewLogger(config)
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
