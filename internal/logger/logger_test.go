package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tuneable/tipledger/internal/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		enabled  slog.Level
		disabled slog.Level
	}{
		{"debug enables everything", "debug", slog.LevelDebug, slog.LevelDebug - 4},
		{"info is the default floor", "info", slog.LevelInfo, slog.LevelDebug},
		{"warn filters info", "warn", slog.LevelWarn, slog.LevelInfo},
		{"error filters warn", "error", slog.LevelError, slog.LevelWarn},
		{"unknown falls back to info", "verbose", slog.LevelInfo, slog.LevelDebug},
		{"empty falls back to info", "", slog.LevelInfo, slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				Application: config.ApplicationConfig{Name: "tipledger"},
				Logging:     config.LoggingConfig{Level: tt.logLevel},
			}

			logger := NewLogger(cfg)
			require.NotNil(t, logger)

			ctx := context.Background()
			assert.True(t, logger.Enabled(ctx, tt.enabled))
			assert.False(t, logger.Enabled(ctx, tt.disabled))
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("Warn"))
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}
