package services

import (
	"fmt"
	"sort"
	"sync"

	"boardchat/internal/core/domain"
	"boardchat/internal/core/ports"

	"go.uber.org/zap"
)

type sessionEntry struct {
	session *domain.Session
	sink    ports.EventSink
	joined  map[domain.RoomID]struct{}
}

type RegistryStats struct {
	Sessions int `json:"sessions"`
	Rooms    int `json:"rooms"`
}

// RoomRegistry tracks live sessions and the rooms they are subscribed to.
// A single mutex guards both directions of the session/room relation, so a
// session's joined set and the room subscriber sets never disagree outside
// a critical section. Broadcast delivers under the same lock, which keeps
// per-session delivery order equal to broadcast order.
type RoomRegistry struct {
	mu       sync.Mutex
	sessions map[domain.SessionID]*sessionEntry
	rooms    map[domain.RoomID]map[domain.SessionID]struct{}

	metrics ports.Metrics
	logger  *zap.SugaredLogger
}

func NewRoomRegistry(metrics ports.Metrics, logger *zap.SugaredLogger) *RoomRegistry {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &RoomRegistry{
		sessions: make(map[domain.SessionID]*sessionEntry),
		rooms:    make(map[domain.RoomID]map[domain.SessionID]struct{}),
		metrics:  metrics,
		logger:   logger,
	}
}

var _ ports.Broadcaster = (*RoomRegistry)(nil)

// Register makes a session addressable. The session starts with no rooms.
func (r *RoomRegistry) Register(session *domain.Session, sink ports.EventSink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.ID]; exists {
		return fmt.Errorf("%w: session %s already registered", domain.ErrRegistryInvariant, session.ID)
	}
	r.sessions[session.ID] = &sessionEntry{
		session: session,
		sink:    sink,
		joined:  make(map[domain.RoomID]struct{}),
	}
	r.metrics.SetSessions(len(r.sessions))
	return nil
}

// Join subscribes a session to a room. Joining twice is a no-op.
func (r *RoomRegistry) Join(room domain.RoomID, sessionID domain.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if _, already := e.joined[room]; already {
		return nil
	}

	subs, ok := r.rooms[room]
	if !ok {
		subs = make(map[domain.SessionID]struct{})
		r.rooms[room] = subs
	}
	subs[sessionID] = struct{}{}
	e.joined[room] = struct{}{}

	r.metrics.SetRooms(len(r.rooms))
	r.logger.Debugw("Session joined room", "session_id", sessionID, "room", room.String())
	return nil
}

// Leave unsubscribes a session. Unknown sessions and rooms are ignored.
func (r *RoomRegistry) Leave(room domain.RoomID, sessionID domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	if _, joined := e.joined[room]; !joined {
		return
	}
	delete(e.joined, room)
	r.removeSubscriber(room, sessionID)

	r.metrics.SetRooms(len(r.rooms))
	r.logger.Debugw("Session left room", "session_id", sessionID, "room", room.String())
}

// Terminate removes the session from every room and from the registry, then
// closes its sink. It returns the rooms the session was in. After Terminate
// returns no broadcast reaches the session.
func (r *RoomRegistry) Terminate(sessionID domain.SessionID) []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.terminateLocked(sessionID)
}

func (r *RoomRegistry) terminateLocked(sessionID domain.SessionID) []domain.RoomID {
	e, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}

	rooms := make([]domain.RoomID, 0, len(e.joined))
	for room := range e.joined {
		r.removeSubscriber(room, sessionID)
		rooms = append(rooms, room)
	}
	delete(r.sessions, sessionID)
	e.sink.Close()

	r.metrics.SetSessions(len(r.sessions))
	r.metrics.SetRooms(len(r.rooms))
	sortRooms(rooms)
	return rooms
}

// Broadcast delivers event to every subscriber of room and returns the
// number of sessions it was queued for. A subscriber whose queue is full
// is a slow consumer and is terminated.
func (r *RoomRegistry) Broadcast(room domain.RoomID, event *domain.OutboundEvent) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.rooms[room]
	if len(subs) == 0 {
		r.metrics.RecordBroadcast(room.Kind, 0)
		return 0
	}

	delivered := 0
	var slow []domain.SessionID
	for sessionID := range subs {
		e := r.sessions[sessionID]
		if e.sink.Deliver(event) {
			delivered++
			continue
		}
		slow = append(slow, sessionID)
	}

	for _, sessionID := range slow {
		r.logger.Warnw("Dropping slow consumer",
			"session_id", sessionID,
			"room", room.String(),
			"event", event.Name,
		)
		r.metrics.RecordSlowConsumer()
		r.terminateLocked(sessionID)
	}

	r.metrics.RecordBroadcast(room.Kind, delivered)
	return delivered
}

// JoinedRooms returns the rooms a session is subscribed to, sorted.
func (r *RoomRegistry) JoinedRooms(sessionID domain.SessionID) []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	rooms := make([]domain.RoomID, 0, len(e.joined))
	for room := range e.joined {
		rooms = append(rooms, room)
	}
	sortRooms(rooms)
	return rooms
}

// Subscribers returns the session ids subscribed to room, sorted.
func (r *RoomRegistry) Subscribers(room domain.RoomID) []domain.SessionID {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]domain.SessionID, 0, len(r.rooms[room]))
	for id := range r.rooms[room] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *RoomRegistry) Stats() RegistryStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RegistryStats{Sessions: len(r.sessions), Rooms: len(r.rooms)}
}

// CheckInvariant verifies that the session's joined rooms match the rooms
// listing it as a subscriber. On mismatch the session is terminated.
func (r *RoomRegistry) CheckInvariant(sessionID domain.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}

	var bad []string
	for room := range e.joined {
		if _, ok := r.rooms[room][sessionID]; !ok {
			bad = append(bad, room.String())
		}
	}
	for room, subs := range r.rooms {
		if _, ok := subs[sessionID]; !ok {
			continue
		}
		if _, ok := e.joined[room]; !ok {
			bad = append(bad, room.String())
		}
	}
	if len(bad) == 0 {
		return nil
	}

	sort.Strings(bad)
	r.logger.Errorw("Registry invariant violated, terminating session",
		"session_id", sessionID,
		"rooms", bad,
	)
	r.terminateLocked(sessionID)
	return fmt.Errorf("%w: session %s rooms %v", domain.ErrRegistryInvariant, sessionID, bad)
}

// removeSubscriber must be called with r.mu held.
func (r *RoomRegistry) removeSubscriber(room domain.RoomID, sessionID domain.SessionID) {
	subs, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(subs, sessionID)
	if len(subs) == 0 {
		delete(r.rooms, room)
	}
}

func sortRooms(rooms []domain.RoomID) {
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].String() < rooms[j].String() })
}
