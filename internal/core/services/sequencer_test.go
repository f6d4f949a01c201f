package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func waitReturns(t *testing.T, ticket *sequenceTicket) <-chan struct{} {
	t.Helper()
	ch := make(chan struct{})
	go func() {
		ticket.Wait()
		close(ch)
	}()
	return ch
}

func TestSequencer_FirstTicketDoesNotWait(t *testing.T) {
	s := newChannelSequencer()
	ticket := s.Acquire("c1")
	ticket.Wait()
	ticket.Release()
	assert.Equal(t, 0, s.pending("c1"))
}

func TestSequencer_OrdersByAcquisition(t *testing.T) {
	s := newChannelSequencer()
	first := s.Acquire("c1")
	second := s.Acquire("c1")

	waited := waitReturns(t, second)
	select {
	case <-waited:
		t.Fatal("second ticket proceeded before first was released")
	case <-time.After(20 * time.Millisecond):
	}

	first.Wait()
	first.Release()
	<-waited
	second.Release()
	assert.Equal(t, 0, s.pending("c1"))
}

func TestSequencer_ChannelsAreIndependent(t *testing.T) {
	s := newChannelSequencer()
	_ = s.Acquire("c1")
	other := s.Acquire("c2")

	select {
	case <-waitReturns(t, other):
	case <-time.After(time.Second):
		t.Fatal("ticket on another channel was blocked")
	}
}

func TestSequencer_AbandonedTicketKeepsChain(t *testing.T) {
	s := newChannelSequencer()
	first := s.Acquire("c1")
	abandoned := s.Acquire("c1")
	third := s.Acquire("c1")

	abandoned.Release()
	waited := waitReturns(t, third)
	select {
	case <-waited:
		t.Fatal("third ticket overtook first through an abandoned ticket")
	case <-time.After(20 * time.Millisecond):
	}

	first.Wait()
	first.Release()
	<-waited
	third.Release()

	assert.Eventually(t, func() bool { return s.pending("c1") == 0 }, time.Second, time.Millisecond)
}

func TestSequencer_ReleaseIsIdempotent(t *testing.T) {
	s := newChannelSequencer()
	ticket := s.Acquire("c1")
	ticket.Wait()
	ticket.Release()
	ticket.Release()
	assert.Equal(t, 0, s.pending("c1"))
}
