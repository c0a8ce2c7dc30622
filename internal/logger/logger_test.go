package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"viewfilter/pkg/logging"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestContextFieldsAreAppended(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core))
	l.SetServiceName("viewfilter-service")

	ctx := logging.WithViewID(logging.WithRequestID(context.Background(), "req-9"), "42")
	l.WarnwCtx(ctx, "date expression not recognized", "value", "not-a-date")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "42", fields["view_id"])
	assert.Equal(t, "viewfilter-service", fields["service_name"])
	assert.Equal(t, "not-a-date", fields["value"])
}

func TestNopLogger(t *testing.T) {
	l := NopLogger()
	assert.NotPanics(t, func() {
		l.InfowCtx(context.Background(), "nothing")
		_ = l.Sync()
	})
}
