package memory

import (
	"context"
	"sort"
	"sync"

	"boardchat/internal/core/domain"
	"boardchat/internal/core/ports"
)

type MemoryChannelRepository struct {
	channels map[domain.ChannelID]*domain.Channel
	byBoard  map[domain.BoardID]map[domain.ChannelID]struct{}
	mu       sync.RWMutex
}

func NewMemoryChannelRepository() ports.ChannelRepository {
	return &MemoryChannelRepository{
		channels: make(map[domain.ChannelID]*domain.Channel),
		byBoard:  make(map[domain.BoardID]map[domain.ChannelID]struct{}),
	}
}

func (r *MemoryChannelRepository) Create(ctx context.Context, channel *domain.Channel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.channels[channel.ID]; exists {
		return domain.ErrChannelExists
	}

	c := *channel
	r.channels[channel.ID] = &c
	if r.byBoard[channel.BoardID] == nil {
		r.byBoard[channel.BoardID] = make(map[domain.ChannelID]struct{})
	}
	r.byBoard[channel.BoardID][channel.ID] = struct{}{}
	return nil
}

func (r *MemoryChannelRepository) GetByID(ctx context.Context, id domain.ChannelID) (*domain.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	channel, exists := r.channels[id]
	if !exists {
		return nil, domain.ErrChannelNotFound
	}

	c := *channel
	return &c, nil
}

func (r *MemoryChannelRepository) Delete(ctx context.Context, id domain.ChannelID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	channel, exists := r.channels[id]
	if !exists {
		return domain.ErrChannelNotFound
	}

	delete(r.byBoard[channel.BoardID], id)
	if len(r.byBoard[channel.BoardID]) == 0 {
		delete(r.byBoard, channel.BoardID)
	}
	delete(r.channels, id)
	return nil
}

// ListByBoard returns the board's channels ordered by creation time.
func (r *MemoryChannelRepository) ListByBoard(ctx context.Context, boardID domain.BoardID) ([]*domain.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	channels := make([]*domain.Channel, 0, len(r.byBoard[boardID]))
	for id := range r.byBoard[boardID] {
		c := *r.channels[id]
		channels = append(channels, &c)
	}
	sort.Slice(channels, func(i, j int) bool {
		if channels[i].CreatedAt.Equal(channels[j].CreatedAt) {
			return channels[i].ID < channels[j].ID
		}
		return channels[i].CreatedAt.Before(channels[j].CreatedAt)
	})
	return channels, nil
}
