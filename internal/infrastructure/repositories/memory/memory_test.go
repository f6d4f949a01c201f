package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"boardchat/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	require.NoError(t, repo.Create(ctx, &domain.User{ID: "alice", Username: "alice", FirstName: "Alice"}))
	assert.Error(t, repo.Create(ctx, &domain.User{ID: "alice"}))

	u, err := repo.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.FirstName)

	_, err = repo.GetByID(ctx, "bob")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestMemoryBoardRepository_Membership(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBoardRepository()
	require.NoError(t, repo.Create(ctx, &domain.Board{ID: "b1", Name: "General", AdminID: "alice"}))

	ok, err := repo.IsMember(ctx, "b1", "alice")
	require.NoError(t, err)
	assert.True(t, ok, "admin is a member")

	ok, _ = repo.IsMember(ctx, "b1", "bob")
	assert.False(t, ok)

	require.NoError(t, repo.AddMember(ctx, "b1", "bob"))
	ok, _ = repo.IsMember(ctx, "b1", "bob")
	assert.True(t, ok)

	assert.ErrorIs(t, repo.AddMember(ctx, "nope", "bob"), domain.ErrBoardNotFound)
	ok, err = repo.IsMember(ctx, "nope", "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryChannelRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryChannelRepository()

	require.NoError(t, repo.Create(ctx, &domain.Channel{ID: "c2", BoardID: "b1", CreatedAt: t0.Add(time.Minute)}))
	require.NoError(t, repo.Create(ctx, &domain.Channel{ID: "c1", BoardID: "b1", CreatedAt: t0}))
	assert.ErrorIs(t, repo.Create(ctx, &domain.Channel{ID: "c1", BoardID: "b1"}), domain.ErrChannelExists)

	list, err := repo.ListByBoard(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.ChannelID("c1"), list[0].ID)

	require.NoError(t, repo.Delete(ctx, "c1"))
	_, err = repo.GetByID(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrChannelNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "c1"), domain.ErrChannelNotFound)
}

func TestMemoryMessageRepository_History(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryMessageRepository()

	// Inserted out of order on purpose.
	for _, i := range []int{2, 0, 4, 1, 3} {
		require.NoError(t, repo.Create(ctx, &domain.Message{
			ID:          domain.MessageID(fmt.Sprintf("m%d", i)),
			ChannelID:   "c1",
			CreatorID:   "alice",
			CreatorName: "Alice",
			CreatedAt:   t0.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, repo.Create(ctx, &domain.Message{ID: "other", ChannelID: "c2", CreatedAt: t0}))

	all, err := repo.ListByChannel(ctx, "c1", domain.HistoryCursor{Before: t0.Add(time.Hour)}, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, m := range all {
		assert.Equal(t, domain.MessageID(fmt.Sprintf("m%d", i)), m.ID)
		assert.Empty(t, m.CreatorName, "enrichment is not stored")
	}

	page, err := repo.ListByChannel(ctx, "c1", domain.HistoryCursor{Before: t0.Add(3*time.Second)}, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, domain.MessageID("m1"), page[0].ID)
	assert.Equal(t, domain.MessageID("m2"), page[1].ID)

	empty, err := repo.ListByChannel(ctx, "c3", domain.HistoryCursor{Before: t0.Add(time.Hour)}, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryMessageRepository_TiedTimestampsPageWithoutGaps(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryMessageRepository()

	require.NoError(t, repo.Create(ctx, &domain.Message{ID: "w", ChannelID: "c1", CreatedAt: t0.Add(-time.Millisecond)}))
	for _, id := range []string{"x2", "x0", "x3", "x1"} {
		require.NoError(t, repo.Create(ctx, &domain.Message{ID: domain.MessageID(id), ChannelID: "c1", CreatedAt: t0}))
	}

	var seen []domain.MessageID
	cursor := domain.HistoryCursor{Before: t0.Add(time.Hour)}
	for i := 0; i < 5; i++ {
		page, err := repo.ListByChannel(ctx, "c1", cursor, 2)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for j := len(page) - 1; j >= 0; j-- {
			seen = append(seen, page[j].ID)
		}
		cursor = domain.CursorAt(page[0])
	}
	assert.Equal(t, []domain.MessageID{"x3", "x2", "x1", "x0", "w"}, seen)
}

func TestMemoryMessageRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryMessageRepository()
	require.NoError(t, repo.Create(ctx, &domain.Message{ID: "m1", ChannelID: "c1", CreatedAt: t0}))
	require.NoError(t, repo.Create(ctx, &domain.Message{ID: "m2", ChannelID: "c1", CreatedAt: t0.Add(time.Second)}))

	m, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelID("c1"), m.ChannelID)

	assert.ErrorIs(t, repo.Delete(ctx, "c2", "m1"), domain.ErrMessageNotFound)
	require.NoError(t, repo.Delete(ctx, "c1", "m1"))
	assert.ErrorIs(t, repo.Delete(ctx, "c1", "m1"), domain.ErrMessageNotFound)
	_, err = repo.GetByID(ctx, "m1")
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)

	rest, err := repo.ListByChannel(ctx, "c1", domain.HistoryCursor{Before: t0.Add(time.Hour)}, 0)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, domain.MessageID("m2"), rest[0].ID)
}

func TestMemoryRepositories_HonorContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewMemoryMessageRepository().Create(ctx, &domain.Message{ID: "m1"})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = NewMemoryUserRepository().GetByID(ctx, "alice")
	assert.ErrorIs(t, err, context.Canceled)
}
