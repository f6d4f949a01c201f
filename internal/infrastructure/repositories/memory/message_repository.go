package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"boardchat/internal/core/domain"
	"boardchat/internal/core/ports"
)

type MemoryMessageRepository struct {
	messages map[domain.MessageID]*domain.Message
	// history holds each channel's messages sorted by (CreatedAt, ID).
	history map[domain.ChannelID][]*domain.Message
	mu      sync.RWMutex
}

func NewMemoryMessageRepository() ports.MessageRepository {
	return &MemoryMessageRepository{
		messages: make(map[domain.MessageID]*domain.Message),
		history:  make(map[domain.ChannelID][]*domain.Message),
	}
}

func (r *MemoryMessageRepository) Create(ctx context.Context, message *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.messages[message.ID]; exists {
		return fmt.Errorf("message already exists: %s", message.ID)
	}

	m := *message
	m.CreatorName = ""
	r.messages[m.ID] = &m

	h := r.history[m.ChannelID]
	i := sort.Search(len(h), func(i int) bool { return domain.CursorAt(h[i]).Precedes(m.CreatedAt, m.ID) })
	h = append(h, nil)
	copy(h[i+1:], h[i:])
	h[i] = &m
	r.history[m.ChannelID] = h
	return nil
}

func (r *MemoryMessageRepository) GetByID(ctx context.Context, id domain.MessageID) (*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.messages[id]
	if !ok {
		return nil, domain.ErrMessageNotFound
	}
	c := *m
	return &c, nil
}

func (r *MemoryMessageRepository) Delete(ctx context.Context, channelID domain.ChannelID, id domain.MessageID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.messages[id]
	if !ok || m.ChannelID != channelID {
		return domain.ErrMessageNotFound
	}
	delete(r.messages, id)

	h := r.history[channelID]
	for i := range h {
		if h[i].ID == id {
			h = append(h[:i], h[i+1:]...)
			break
		}
	}
	if len(h) == 0 {
		delete(r.history, channelID)
	} else {
		r.history[channelID] = h
	}
	return nil
}

func (r *MemoryMessageRepository) ListByChannel(ctx context.Context, channelID domain.ChannelID, cursor domain.HistoryCursor, limit int) ([]*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	h := r.history[channelID]
	end := sort.Search(len(h), func(i int) bool { return !cursor.Precedes(h[i].CreatedAt, h[i].ID) })
	start := 0
	if limit > 0 && end-limit > 0 {
		start = end - limit
	}

	out := make([]*domain.Message, 0, end-start)
	for _, m := range h[start:end] {
		c := *m
		out = append(out, &c)
	}
	return out, nil
}
