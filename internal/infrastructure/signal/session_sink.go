package signal

import (
	"sync"

	"boardchat/internal/core/domain"
)

// connSink queues outbound events for one connection. The write pump is its
// only consumer, so events leave in the order they were accepted. Deliver
// never blocks: a full queue reports false and the registry evicts the
// session.
type connSink struct {
	send      chan *domain.OutboundEvent
	done      chan struct{}
	closeOnce sync.Once
}

func newConnSink(size int) *connSink {
	return &connSink{
		send: make(chan *domain.OutboundEvent, size),
		done: make(chan struct{}),
	}
}

func (s *connSink) Deliver(event *domain.OutboundEvent) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- event:
		return true
	default:
		return false
	}
}

// Close stops the write pump. send is never closed, so a Deliver racing
// with Close cannot panic.
func (s *connSink) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *connSink) Done() <-chan struct{} {
	return s.done
}
