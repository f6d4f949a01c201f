package services

import (
	"sync"

	"boardchat/internal/core/domain"
)

// channelSequencer orders broadcasts per channel by the time persistence
// started. Each attempt takes a ticket before persisting; a ticket's Wait
// returns once every earlier ticket on the channel has been released.
type channelSequencer struct {
	mu     sync.Mutex
	queues map[domain.ChannelID]*channelQueue
}

type channelQueue struct {
	tail    chan struct{}
	pending int
}

type sequenceTicket struct {
	seq       *channelSequencer
	channelID domain.ChannelID
	prev      chan struct{}
	done      chan struct{}
	waited    bool
	once      sync.Once
}

func newChannelSequencer() *channelSequencer {
	return &channelSequencer{queues: make(map[domain.ChannelID]*channelQueue)}
}

func (s *channelSequencer) Acquire(channelID domain.ChannelID) *sequenceTicket {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queues[channelID]
	if !ok {
		q = &channelQueue{}
		s.queues[channelID] = q
	}
	t := &sequenceTicket{
		seq:       s,
		channelID: channelID,
		prev:      q.tail,
		done:      make(chan struct{}),
	}
	q.tail = t.done
	q.pending++
	return t
}

// Wait blocks until all earlier tickets on the channel are released.
func (t *sequenceTicket) Wait() {
	if t.prev != nil {
		<-t.prev
	}
	t.waited = true
}

// Release lets the next ticket proceed. A ticket released without waiting
// (an abandoned attempt) hands over only once its own predecessors are done.
func (t *sequenceTicket) Release() {
	t.once.Do(func() {
		if t.waited || t.prev == nil {
			t.finish()
			return
		}
		go func() {
			<-t.prev
			t.finish()
		}()
	})
}

func (t *sequenceTicket) finish() {
	close(t.done)

	s := t.seq
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queues[t.channelID]
	q.pending--
	if q.pending == 0 {
		delete(s.queues, t.channelID)
	}
}

func (s *channelSequencer) pending(channelID domain.ChannelID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.queues[channelID]; ok {
		return q.pending
	}
	return 0
}
