package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"WARN", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_Formats(t *testing.T) {
	for _, format := range []string{"", FormatJSON, FormatConsole} {
		logger, err := New(Config{Level: "debug", Format: format})
		require.NoError(t, err, format)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	}

	_, err := New(Config{Format: "xml"})
	assert.Error(t, err)
}

func TestFromContext(t *testing.T) {
	obs := NewObserved()
	ctx := WithLogger(context.Background(), obs.Logger)

	FromContext(ctx, nil).Info("from context")
	obs.AssertLogged(t, zapcore.InfoLevel, "from context")

	fallback := NewObserved()
	FromContext(context.Background(), fallback.Logger).Warn("from fallback")
	fallback.AssertLogged(t, zapcore.WarnLevel, "from fallback")

	assert.NotNil(t, FromContext(context.Background(), nil))
}

func TestSync_Nop(t *testing.T) {
	assert.NoError(t, Sync(zap.NewNop()))
}
