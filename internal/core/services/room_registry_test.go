package services

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"boardchat/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRegistry(t *testing.T) *RoomRegistry {
	return NewRoomRegistry(nil, zaptest.NewLogger(t).Sugar())
}

func assertInvariant(t *testing.T, r *RoomRegistry, sessionID domain.SessionID) {
	t.Helper()
	joined := r.JoinedRooms(sessionID)
	for _, room := range joined {
		assert.Contains(t, r.Subscribers(room), sessionID, "room %s", room)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for room, subs := range r.rooms {
		if _, ok := subs[sessionID]; ok {
			assert.Contains(t, joined, room)
		}
	}
}

func TestRoomRegistry_JoinLeaveInvariant(t *testing.T) {
	r := newTestRegistry(t)
	s := newSession("s1", "alice")
	require.NoError(t, r.Register(s, &recordingSink{}))

	rooms := []domain.RoomID{
		domain.ChannelRoom("c1"),
		domain.ChannelRoom("c2"),
		domain.BoardRoom("b1"),
		domain.BoardRoom("b2"),
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		room := rooms[rng.Intn(len(rooms))]
		if rng.Intn(2) == 0 {
			require.NoError(t, r.Join(room, s.ID))
		} else {
			r.Leave(room, s.ID)
		}
		assertInvariant(t, r, s.ID)
		require.NoError(t, r.CheckInvariant(s.ID))
	}
}

func TestRoomRegistry_IdempotentJoinLeave(t *testing.T) {
	r := newTestRegistry(t)
	s := newSession("s1", "alice")
	require.NoError(t, r.Register(s, &recordingSink{}))
	room := domain.ChannelRoom("c1")

	require.NoError(t, r.Join(room, s.ID))
	require.NoError(t, r.Join(room, s.ID))
	assert.Equal(t, []domain.SessionID{"s1"}, r.Subscribers(room))

	r.Leave(room, s.ID)
	assert.Empty(t, r.Subscribers(room))
	assert.Equal(t, 0, r.Stats().Rooms, "empty room is pruned")

	r.Leave(room, s.ID)
	r.Leave(domain.BoardRoom("never"), s.ID)
	r.Leave(room, "ghost")
	assert.Empty(t, r.JoinedRooms(s.ID))
}

func TestRoomRegistry_RegisterDuplicate(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(newSession("s1", "alice"), &recordingSink{}))
	err := r.Register(newSession("s1", "alice"), &recordingSink{})
	assert.ErrorIs(t, err, domain.ErrRegistryInvariant)
}

func TestRoomRegistry_JoinUnknownSession(t *testing.T) {
	r := newTestRegistry(t)
	assert.ErrorIs(t, r.Join(domain.ChannelRoom("c1"), "ghost"), domain.ErrSessionNotFound)
}

func TestRoomRegistry_TerminateRemovesEverything(t *testing.T) {
	r := newTestRegistry(t)
	s := newSession("s1", "alice")
	sink := &recordingSink{}
	require.NoError(t, r.Register(s, sink))
	require.NoError(t, r.Join(domain.ChannelRoom("c1"), s.ID))
	require.NoError(t, r.Join(domain.BoardRoom("b1"), s.ID))

	rooms := r.Terminate(s.ID)
	assert.ElementsMatch(t, []domain.RoomID{domain.ChannelRoom("c1"), domain.BoardRoom("b1")}, rooms)
	assert.Empty(t, r.Subscribers(domain.ChannelRoom("c1")))
	assert.Empty(t, r.Subscribers(domain.BoardRoom("b1")))
	assert.Equal(t, RegistryStats{}, r.Stats())
	assert.True(t, sink.IsClosed())

	event, _ := domain.NewOutboundEvent(domain.EventNewMessage, map[string]string{"content": "late"})
	assert.Equal(t, 0, r.Broadcast(domain.ChannelRoom("c1"), event))
	assert.Nil(t, r.Terminate(s.ID))
}

func TestRoomRegistry_BroadcastOnlyToSubscribers(t *testing.T) {
	r := newTestRegistry(t)
	in, out := &recordingSink{}, &recordingSink{}
	require.NoError(t, r.Register(newSession("s1", "alice"), in))
	require.NoError(t, r.Register(newSession("s2", "bob"), out))
	require.NoError(t, r.Join(domain.ChannelRoom("c1"), "s1"))
	require.NoError(t, r.Join(domain.BoardRoom("c1"), "s2"))

	event, _ := domain.NewOutboundEvent(domain.EventNewMessage, map[string]string{"content": "hi"})
	assert.Equal(t, 1, r.Broadcast(domain.ChannelRoom("c1"), event))
	assert.Len(t, in.Events(), 1)
	assert.Empty(t, out.Events(), "board room with the same id is a different room")

	assert.Equal(t, 0, r.Broadcast(domain.ChannelRoom("empty"), event))
}

func TestRoomRegistry_SlowConsumerEvicted(t *testing.T) {
	r := newTestRegistry(t)
	slow := &recordingSink{capacity: 1}
	fast := &recordingSink{}
	require.NoError(t, r.Register(newSession("slow", "alice"), slow))
	require.NoError(t, r.Register(newSession("fast", "bob"), fast))
	room := domain.ChannelRoom("c1")
	require.NoError(t, r.Join(room, "slow"))
	require.NoError(t, r.Join(room, "fast"))

	event, _ := domain.NewOutboundEvent(domain.EventNewMessage, nil)
	assert.Equal(t, 2, r.Broadcast(room, event))
	assert.Equal(t, 1, r.Broadcast(room, event))

	assert.True(t, slow.IsClosed())
	assert.Equal(t, []domain.SessionID{"fast"}, r.Subscribers(room))
	assert.Len(t, fast.Events(), 2)
}

func TestRoomRegistry_PerSessionOrder(t *testing.T) {
	r := newTestRegistry(t)
	sink := &recordingSink{}
	require.NoError(t, r.Register(newSession("s1", "alice"), sink))
	require.NoError(t, r.Join(domain.ChannelRoom("c1"), "s1"))
	require.NoError(t, r.Join(domain.BoardRoom("b1"), "s1"))

	for i := 0; i < 20; i++ {
		room := domain.ChannelRoom("c1")
		if i%2 == 1 {
			room = domain.BoardRoom("b1")
		}
		event, _ := domain.NewOutboundEvent(domain.EventNewMessage, i)
		r.Broadcast(room, event)
	}

	events := sink.Events()
	require.Len(t, events, 20)
	for i, e := range events {
		assert.Equal(t, fmt.Sprint(i), string(e.Data))
	}
}

func TestRoomRegistry_CheckInvariantTerminatesOnCorruption(t *testing.T) {
	r := newTestRegistry(t)
	sink := &recordingSink{}
	require.NoError(t, r.Register(newSession("s1", "alice"), sink))
	require.NoError(t, r.Join(domain.ChannelRoom("c1"), "s1"))

	r.mu.Lock()
	delete(r.rooms[domain.ChannelRoom("c1")], "s1")
	r.mu.Unlock()

	err := r.CheckInvariant("s1")
	assert.ErrorIs(t, err, domain.ErrRegistryInvariant)
	assert.True(t, sink.IsClosed())
	assert.ErrorIs(t, r.CheckInvariant("s1"), domain.ErrSessionNotFound)
}

func TestRoomRegistry_ConcurrentAccess(t *testing.T) {
	r := newTestRegistry(t)
	const sessions = 20
	for i := 0; i < sessions; i++ {
		require.NoError(t, r.Register(newSession(fmt.Sprintf("s%d", i), "u"), &recordingSink{}))
	}

	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := domain.SessionID(fmt.Sprintf("s%d", i))
			event, _ := domain.NewOutboundEvent(domain.EventNewMessage, i)
			for j := 0; j < 50; j++ {
				room := domain.ChannelRoom(domain.ChannelID(fmt.Sprintf("c%d", j%3)))
				_ = r.Join(room, id)
				r.Broadcast(room, event)
				if j%4 == 0 {
					r.Leave(room, id)
				}
			}
			if i%2 == 0 {
				r.Terminate(id)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < sessions; i++ {
		id := domain.SessionID(fmt.Sprintf("s%d", i))
		if i%2 == 0 {
			assert.Empty(t, r.JoinedRooms(id))
			continue
		}
		assert.NoError(t, r.CheckInvariant(id))
	}
	assert.Equal(t, sessions/2, r.Stats().Sessions)
}
