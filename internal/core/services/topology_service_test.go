package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"boardchat/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTopology_ChannelCreatedReachesBoardRoomOnly(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	registry := NewRoomRegistry(nil, logger)
	member, outsider := &recordingSink{}, &recordingSink{}
	require.NoError(t, registry.Register(newSession("s1", "alice"), member))
	require.NoError(t, registry.Register(newSession("s2", "carol"), outsider))
	require.NoError(t, registry.Join(domain.BoardRoom("b1"), "s1"))
	require.NoError(t, registry.Join(domain.BoardRoom("b2"), "s2"))

	store := &mockStore{}
	store.On("FindChannel", mock.Anything, domain.ChannelID("c9")).
		Return(&domain.Channel{ID: "c9", BoardID: "b1", Name: "new"}, nil)

	NewTopologyNotifier(store, registry, logger).ChannelCreated(context.Background(), "c9")

	events := member.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventNewChannel, events[0].Name)
	var ch domain.Channel
	require.NoError(t, json.Unmarshal(events[0].Data, &ch))
	assert.Equal(t, domain.ChannelID("c9"), ch.ID)
	assert.Empty(t, outsider.Events())
}

func TestTopology_ChannelCreatedLookupFailureSuppressed(t *testing.T) {
	b := &recordingBroadcaster{}
	store := &mockStore{}
	store.On("FindChannel", mock.Anything, domain.ChannelID("c9")).Return(nil, errors.New("db down"))
	store.On("FindChannel", mock.Anything, domain.ChannelID("gone")).Return(nil, nil)

	n := NewTopologyNotifier(store, b, zaptest.NewLogger(t).Sugar())
	n.ChannelCreated(context.Background(), "c9")
	n.ChannelCreated(context.Background(), "gone")

	assert.Empty(t, b.Calls())
}

func TestTopology_ChannelDeleted(t *testing.T) {
	b := &recordingBroadcaster{}
	store := &mockStore{}
	store.On("FindChannel", mock.Anything, domain.ChannelID("c9")).Return(nil, nil)
	n := NewTopologyNotifier(store, b, zaptest.NewLogger(t).Sugar())

	n.ChannelDeleted(context.Background(), "c9", "b1")

	calls := b.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, domain.BoardRoom("b1"), calls[0].room)
	assert.Equal(t, domain.EventDeleteChannel, calls[0].event.Name)
	assert.JSONEq(t, `{"channel_id":"c9","board_id":"b1"}`, string(calls[0].event.Data))
}

func TestTopology_ChannelDeletedRequiresCommittedDeletion(t *testing.T) {
	b := &recordingBroadcaster{}
	store := &mockStore{}
	store.On("FindChannel", mock.Anything, domain.ChannelID("live")).
		Return(&domain.Channel{ID: "live", BoardID: "b1"}, nil)
	store.On("FindChannel", mock.Anything, domain.ChannelID("elsewhere")).
		Return(&domain.Channel{ID: "elsewhere", BoardID: "b2"}, nil)
	store.On("FindChannel", mock.Anything, domain.ChannelID("unknown")).
		Return(nil, errors.New("db down"))

	n := NewTopologyNotifier(store, b, zaptest.NewLogger(t).Sugar())
	n.ChannelDeleted(context.Background(), "live", "b1")
	n.ChannelDeleted(context.Background(), "elsewhere", "b1")
	n.ChannelDeleted(context.Background(), "unknown", "b1")

	assert.Empty(t, b.Calls())
	store.AssertExpectations(t)
}
