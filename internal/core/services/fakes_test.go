package services

import (
	"context"
	"sync"
	"time"

	"boardchat/internal/core/domain"

	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateMessage(ctx context.Context, nm domain.NewMessage) (*domain.Message, error) {
	args := m.Called(ctx, nm)
	msg, _ := args.Get(0).(*domain.Message)
	return msg, args.Error(1)
}

func (m *mockStore) FindChannel(ctx context.Context, channelID domain.ChannelID) (*domain.Channel, error) {
	args := m.Called(ctx, channelID)
	ch, _ := args.Get(0).(*domain.Channel)
	return ch, args.Error(1)
}

func (m *mockStore) IsBoardMember(ctx context.Context, boardID domain.BoardID, userID domain.UserID) (bool, error) {
	args := m.Called(ctx, boardID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) EnrichCreator(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	args := m.Called(ctx, msg)
	out, _ := args.Get(0).(*domain.Message)
	return out, args.Error(1)
}

func (m *mockStore) ListMessages(ctx context.Context, channelID domain.ChannelID, cursor domain.HistoryCursor, limit int) ([]*domain.Message, error) {
	args := m.Called(ctx, channelID, cursor, limit)
	msgs, _ := args.Get(0).([]*domain.Message)
	return msgs, args.Error(1)
}

// recordingSink captures delivered events. With capacity > 0 it refuses
// events once full.
type recordingSink struct {
	mu       sync.Mutex
	events   []*domain.OutboundEvent
	capacity int
	closed   bool
}

func (s *recordingSink) Deliver(event *domain.OutboundEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if s.capacity > 0 && len(s.events) >= s.capacity {
		return false
	}
	s.events = append(s.events, event)
	return true
}

func (s *recordingSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *recordingSink) Events() []*domain.OutboundEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.OutboundEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *recordingSink) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// recordingBroadcaster counts broadcasts per room.
type recordingBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

type broadcastCall struct {
	room  domain.RoomID
	event *domain.OutboundEvent
}

func (b *recordingBroadcaster) Broadcast(room domain.RoomID, event *domain.OutboundEvent) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, broadcastCall{room: room, event: event})
	return 1
}

func (b *recordingBroadcaster) Calls() []broadcastCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]broadcastCall, len(b.calls))
	copy(out, b.calls)
	return out
}

func newSession(id string, user string) *domain.Session {
	return &domain.Session{
		ID:          domain.SessionID(id),
		Identity:    domain.Identity{UserID: domain.UserID(user), Username: user},
		ConnectedAt: time.Now(),
	}
}
