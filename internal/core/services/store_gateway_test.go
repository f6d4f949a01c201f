package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"boardchat/internal/core/domain"
	"boardchat/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type failingMessageRepo struct {
	err error
}

func (r failingMessageRepo) Create(ctx context.Context, _ *domain.Message) error {
	if r.err == context.DeadlineExceeded {
		<-ctx.Done()
		return ctx.Err()
	}
	return r.err
}

func (r failingMessageRepo) GetByID(context.Context, domain.MessageID) (*domain.Message, error) {
	return nil, r.err
}

func (r failingMessageRepo) Delete(context.Context, domain.ChannelID, domain.MessageID) error {
	return r.err
}

func (r failingMessageRepo) ListByChannel(context.Context, domain.ChannelID, domain.HistoryCursor, int) ([]*domain.Message, error) {
	return nil, r.err
}

func newTestGateway(t *testing.T) *StoreGateway {
	ctx := context.Background()
	users := memory.NewMemoryUserRepository()
	boards := memory.NewMemoryBoardRepository()
	channels := memory.NewMemoryChannelRepository()

	require.NoError(t, users.Create(ctx, &domain.User{ID: "alice", Username: "alice", FirstName: "Alice", LastName: "Liddell"}))
	require.NoError(t, users.Create(ctx, &domain.User{ID: "bob", Username: "bob"}))
	require.NoError(t, boards.Create(ctx, &domain.Board{ID: "b1", Name: "General", AdminID: "alice"}))
	require.NoError(t, boards.AddMember(ctx, "b1", "bob"))
	require.NoError(t, channels.Create(ctx, &domain.Channel{ID: "c1", BoardID: "b1", Name: "random"}))

	g := NewStoreGateway(users, boards, channels, memory.NewMemoryMessageRepository(), time.Minute, time.Second, zaptest.NewLogger(t).Sugar())
	t.Cleanup(g.Close)
	return g
}

func TestStoreGateway_CreateAndList(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	first, err := g.CreateMessage(ctx, domain.NewMessage{ChannelID: "c1", CreatorID: "alice", Content: "hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	replay := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	old, err := g.CreateMessage(ctx, domain.NewMessage{ChannelID: "c1", CreatorID: "bob", Content: "old", CreatedAt: replay})
	require.NoError(t, err)
	assert.Equal(t, replay, old.CreatedAt)

	history, err := g.ListMessages(ctx, "c1", domain.HistoryCursor{Before: time.Now().Add(time.Minute)}, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "old", history[0].Content)
	assert.Equal(t, "bob", history[0].CreatorName)
	assert.Equal(t, "Alice Liddell", history[1].CreatorName)
}

func TestStoreGateway_FindChannelAndMembership(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	ch, err := g.FindChannel(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.BoardID("b1"), ch.BoardID)

	ch, err = g.FindChannel(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, ch)

	ok, err := g.IsBoardMember(ctx, "b1", "bob")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = g.IsBoardMember(ctx, "b1", "carol")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreGateway_EnrichCreator(t *testing.T) {
	g := newTestGateway(t)
	msg := &domain.Message{ID: "m1", CreatorID: "alice", ChannelID: "c1"}

	enriched, err := g.EnrichCreator(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", enriched.CreatorName)
	assert.Empty(t, msg.CreatorName, "input is not mutated")

	_, err = g.EnrichCreator(context.Background(), &domain.Message{CreatorID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestStoreGateway_WriteErrorsAreStorageErrors(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	nm := domain.NewMessage{ChannelID: "c1", CreatorID: "alice", Content: "hi"}

	g := NewStoreGateway(nil, nil, nil, failingMessageRepo{err: errors.New("disk full")}, time.Minute, time.Second, logger)
	defer g.Close()
	_, err := g.CreateMessage(context.Background(), nm)
	assert.ErrorIs(t, err, domain.ErrStorageWriteFailed)

	slow := NewStoreGateway(nil, nil, nil, failingMessageRepo{err: context.DeadlineExceeded}, time.Minute, 20*time.Millisecond, logger)
	defer slow.Close()
	_, err = slow.CreateMessage(context.Background(), nm)
	assert.ErrorIs(t, err, domain.ErrStorageTimeout)
}
