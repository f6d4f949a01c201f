package services

import (
	"context"
	"testing"
	"time"

	"boardchat/internal/core/domain"
	"boardchat/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingNotifier struct {
	created []domain.ChannelID
	deleted []domain.ChannelID
}

func (n *recordingNotifier) ChannelCreated(_ context.Context, id domain.ChannelID) {
	n.created = append(n.created, id)
}

func (n *recordingNotifier) ChannelDeleted(_ context.Context, id domain.ChannelID, _ domain.BoardID) {
	n.deleted = append(n.deleted, id)
}

func newTestChannelService(t *testing.T) (*ChannelService, *recordingNotifier) {
	ctx := context.Background()
	users := memory.NewMemoryUserRepository()
	boards := memory.NewMemoryBoardRepository()
	channels := memory.NewMemoryChannelRepository()
	messages := memory.NewMemoryMessageRepository()

	require.NoError(t, boards.Create(ctx, &domain.Board{ID: "b1", AdminID: "alice"}))
	require.NoError(t, boards.AddMember(ctx, "b1", "bob"))
	require.NoError(t, boards.Create(ctx, &domain.Board{ID: "b2", AdminID: "carol"}))
	require.NoError(t, channels.Create(ctx, &domain.Channel{ID: "c1", BoardID: "b1"}))
	require.NoError(t, channels.Create(ctx, &domain.Channel{ID: "c2", BoardID: "b2"}))

	store := NewStoreGateway(users, boards, channels, messages, time.Minute, time.Second, zaptest.NewLogger(t).Sugar())
	t.Cleanup(store.Close)

	n := &recordingNotifier{}
	return NewChannelService(store, boards, channels, messages, n, time.Second), n
}

func TestChannelService_Authorize(t *testing.T) {
	s, _ := newTestChannelService(t)
	ctx := context.Background()

	ch, err := s.AuthorizeChannel(ctx, "bob", "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.BoardID("b1"), ch.BoardID)

	_, err = s.AuthorizeChannel(ctx, "bob", "c2")
	assert.ErrorIs(t, err, domain.ErrNotAMember)
	_, err = s.AuthorizeChannel(ctx, "bob", "missing")
	assert.ErrorIs(t, err, domain.ErrNotAMember)

	assert.NoError(t, s.AuthorizeBoard(ctx, "alice", "b1"))
	assert.ErrorIs(t, s.AuthorizeBoard(ctx, "alice", "b2"), domain.ErrNotAMember)
}

func TestChannelService_CreateChannel(t *testing.T) {
	s, n := newTestChannelService(t)
	ctx := context.Background()

	ch, err := s.CreateChannel(ctx, "bob", "b1", "  dev  ")
	require.NoError(t, err)
	assert.Equal(t, "dev", ch.Name)
	assert.Equal(t, []domain.ChannelID{ch.ID}, n.created)

	_, err = s.CreateChannel(ctx, "bob", "b2", "dev")
	assert.ErrorIs(t, err, domain.ErrNotAMember)

	_, err = s.CreateChannel(ctx, "bob", "b1", " ")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Len(t, n.created, 1)
}

func TestChannelService_DeleteChannel(t *testing.T) {
	s, n := newTestChannelService(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.DeleteChannel(ctx, "bob", "b1", "c1"), domain.ErrNotAMember, "only the admin deletes")
	assert.ErrorIs(t, s.DeleteChannel(ctx, "alice", "b1", "c2"), domain.ErrChannelNotFound)
	assert.ErrorIs(t, s.DeleteChannel(ctx, "alice", "b9", "c1"), domain.ErrBoardNotFound)
	assert.Empty(t, n.deleted)

	require.NoError(t, s.DeleteChannel(ctx, "alice", "b1", "c1"))
	assert.Equal(t, []domain.ChannelID{"c1"}, n.deleted)
	_, err := s.AuthorizeChannel(ctx, "alice", "c1")
	assert.ErrorIs(t, err, domain.ErrNotAMember)
}

func TestChannelService_History(t *testing.T) {
	s, _ := newTestChannelService(t)
	ctx := context.Background()

	_, err := s.store.CreateMessage(ctx, domain.NewMessage{ChannelID: "c1", CreatorID: "bob", Content: "hi"})
	require.NoError(t, err)

	msgs, err := s.History(ctx, "bob", "b1", "c1", domain.HistoryCursor{Before: time.Now().Add(time.Minute)}, 50)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	_, err = s.History(ctx, "bob", "b2", "c1", domain.HistoryCursor{Before: time.Now()}, 50)
	assert.ErrorIs(t, err, domain.ErrChannelNotFound)
	_, err = s.History(ctx, "bob", "b2", "c2", domain.HistoryCursor{Before: time.Now()}, 50)
	assert.ErrorIs(t, err, domain.ErrNotAMember)
}

func TestChannelService_DeleteMessage(t *testing.T) {
	s, n := newTestChannelService(t)
	ctx := context.Background()
	cursor := domain.HistoryCursor{Before: time.Now().Add(time.Minute)}

	own, err := s.store.CreateMessage(ctx, domain.NewMessage{ChannelID: "c1", CreatorID: "bob", Content: "mine"})
	require.NoError(t, err)
	admins, err := s.store.CreateMessage(ctx, domain.NewMessage{ChannelID: "c1", CreatorID: "alice", Content: "admin"})
	require.NoError(t, err)

	// bob is neither the creator nor the admin
	err = s.DeleteMessage(ctx, "bob", "b1", "c1", admins.ID)
	assert.ErrorIs(t, err, domain.ErrNotAMember)
	assert.ErrorIs(t, s.DeleteMessage(ctx, "bob", "b2", "c1", own.ID), domain.ErrChannelNotFound)
	assert.ErrorIs(t, s.DeleteMessage(ctx, "bob", "b1", "c1", "nope"), domain.ErrMessageNotFound)

	require.NoError(t, s.DeleteMessage(ctx, "bob", "b1", "c1", own.ID))
	require.NoError(t, s.DeleteMessage(ctx, "alice", "b1", "c1", admins.ID))
	assert.ErrorIs(t, s.DeleteMessage(ctx, "alice", "b1", "c1", admins.ID), domain.ErrMessageNotFound)

	msgs, err := s.History(ctx, "bob", "b1", "c1", cursor, 50)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Empty(t, n.deleted)
}
