package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "boardchat", cfg.ServiceName)
	assert.Equal(t, "http://localhost:14268/api/traces", cfg.JaegerURL)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInit_Disabled(t *testing.T) {
	tp, err := Init(DefaultConfig())
	require.NoError(t, err)
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestSpanHelpers_NoProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test.operation")
	require.NotNil(t, span)
	defer span.End()

	AddSpanAttributes(ctx,
		attribute.String("test.key", "test.value"),
		attribute.Int("test.number", 42),
	)
	RecordError(ctx, errors.New("boom"))
	MeasureDuration(ctx, time.Now().Add(-time.Millisecond), "test.operation")
}

func TestTraceHelpers(t *testing.T) {
	ctx := context.Background()

	_, span := TraceHTTPRequest(ctx, "POST", "/api/v1/boards/:boardId/channels/:channelId/messages")
	require.NotNil(t, span)
	span.End()

	_, span = TraceWebSocketEvent(ctx, "newMessage", "sess-1")
	require.NotNil(t, span)
	span.End()

	_, span = TraceExchangeStage(ctx, "persist", "c1")
	require.NotNil(t, span)
	span.End()

	_, span = TraceDatabaseOperation(ctx, "get", "channels")
	require.NotNil(t, span)
	span.End()
}
