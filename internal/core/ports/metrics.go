package ports

import (
	"time"

	"boardchat/internal/core/domain"
)

// Metrics is implemented by the prometheus collector. Services accept a nil
// Metrics and fall back to a no-op.
type Metrics interface {
	SetSessions(n int)
	SetRooms(n int)
	RecordBroadcast(kind domain.RoomKind, recipients int)
	RecordSlowConsumer()
	RecordMessage(result string)
	ObservePersist(d time.Duration)
}

type NoopMetrics struct{}

func (NoopMetrics) SetSessions(int) {}
func (NoopMetrics) SetRooms(int) {}
func (NoopMetrics) RecordBroadcast(domain.RoomKind, int) {}
func (NoopMetrics) RecordSlowConsumer() {}
func (NoopMetrics) RecordMessage(string) {}
func (NoopMetrics) ObservePersist(time.Duration) {}
