package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	l := New("nonsense", "json")
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
}

func TestContextLogger_AddsContextFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cl := NewContextLogger(zap.New(core).Sugar())

	ctx := WithSessionID(WithUserID(context.Background(), "alice"), "s-1")
	cl.Infow(ctx, "joined", "room", "channel:c1")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "alice", fields["user_id"])
		assert.Equal(t, "s-1", fields["session_id"])
		assert.Equal(t, "channel:c1", fields["room"])
	}
}

func TestContextLogger_EmptyContextKeepsLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cl := NewContextLogger(zap.New(core).Sugar())

	cl.Debugw(context.Background(), "plain")
	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Empty(t, entries[0].Context)
	}
}
