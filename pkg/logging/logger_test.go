package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "info", config.Level)
	assert.Equal(t, "json", config.Format)
	assert.Equal(t, "stdout", config.Output)
	assert.True(t, config.AddCaller)
	assert.False(t, config.Development)
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
		want   *Config
	}{
		{
			name:   "nil config uses defaults",
			config: nil,
			want:   DefaultConfig(),
		},
		{
			name: "json format configuration",
			config: &Config{
				Level:       "debug",
				Format:      "json",
				Output:      "stdout",
				AddCaller:   true,
				Development: false,
			},
			want: &Config{
				Level:       "debug",
				Format:      "json",
				Output:      "stdout",
				AddCaller:   true,
				Development: false,
			},
		},
		{
			name: "console format configuration",
			config: &Config{
				Level:       "warn",
				Format:      "console",
				Output:      "stderr",
				AddCaller:   false,
				Development: true,
			},
			want: &Config{
				Level:       "warn",
				Format:      "console",
				Output:      "stderr",
				AddCaller:   false,
				Development: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.config)
			require.NoError(t, err)
			require.NotNil(t, logger)

			assert.Equal(t, tt.want, logger.GetConfig())
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected string
	}{
		{"debug", "debug"},
		{"info", "info"},
		{"warn", "warn"},
		{"warning", "warn"},
		{"error", "error"},
		{"panic", "panic"},
		{"fatal", "fatal"},
		{"invalid", "info"}, // defaults to info
		{"", "info"},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level := parseLogLevel(tt.level)
			assert.Equal(t, tt.expected, level.String())
		})
	}
}

func TestLoggerWithMethods(t *testing.T) {
	config := &Config{
		Level:       "info",
		Format:      "json",
		Output:      "stdout",
		AddCaller:   true,
		Development: false,
	}

	logger, err := NewLogger(config)
	require.NoError(t, err)

	// Test WithName
	namedLogger := logger.WithName("test")
	assert.NotNil(t, namedLogger)
	assert.Equal(t, config, namedLogger.GetConfig())

	// Test WithValues
	valuedLogger := logger.WithValues("key", "value")
	assert.NotNil(t, valuedLogger)
	assert.Equal(t, config, valuedLogger.GetConfig())

	// Test WithService
	serviceLogger := logger.WithService("translator")
	assert.NotNil(t, serviceLogger)
	assert.Equal(t, config, serviceLogger.GetConfig())

	// Test WithContext
	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctxLogger := logger.WithContext(ctx)
	assert.NotNil(t, ctxLogger)
	assert.Equal(t, config, ctxLogger.GetConfig())
}

func TestDebugGoesThroughZapDebugLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewFromZap(zap.New(core))

	logger.WithContext(context.WithValue(context.Background(), SessionIDKey, "s-1")).
		Debug("Problem loading cache", "cache", "language")
	logger.Info("ready")

	require.Equal(t, 2, logs.Len())
	entries := logs.All()
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "Problem loading cache", entries[0].Message)
	assert.Equal(t, "s-1", entries[0].ContextMap()["session_id"])
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	require.NotNil(t, logger)
	logger.Info("discarded")
	assert.NoError(t, SetGlobalLogger(logger))
}

func TestGetLoggerFromEnv(t *testing.T) {
	// Test without environment variables (should use defaults)
	logger, err := GetLoggerFromEnv()
	require.NoError(t, err)
	require.NotNil(t, logger)

	config := logger.GetConfig()
	assert.Equal(t, "info", config.Level)
	assert.Equal(t, "json", config.Format)
	assert.Equal(t, "stdout", config.Output)
}

func TestBuildZapConfig(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{
			name: "json format",
			config: &Config{
				Level:       "debug",
				Format:      "json",
				Output:      "stdout",
				AddCaller:   true,
				Development: false,
			},
		},
		{
			name: "console format",
			config: &Config{
				Level:       "info",
				Format:      "console",
				Output:      "stderr",
				AddCaller:   false,
				Development: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zapConfig := buildZapConfig(tt.config)

			// Verify configuration is properly set
			assert.NotNil(t, zapConfig)
			assert.Equal(t, parseLogLevel(tt.config.Level), zapConfig.Level.Level())
			assert.Equal(t, !tt.config.AddCaller, zapConfig.DisableCaller)

			if tt.config.Output == "stderr" {
				assert.Contains(t, zapConfig.OutputPaths, "stderr")
			} else if tt.config.Output != "stdout" && tt.config.Output != "" {
				assert.Contains(t, zapConfig.OutputPaths, tt.config.Output)
			}
		})
	}
}
