package domain

import "time"

// Message is the durable chat record. CreatorName is filled in by enrichment
// and is not part of the stored form.
type Message struct {
	ID          MessageID `json:"id"`
	Content     string    `json:"content"`
	CreatorID   UserID    `json:"creator_id"`
	CreatorName string    `json:"creator_name,omitempty"`
	ChannelID   ChannelID `json:"channel_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewMessage is the input to persistence. A zero CreatedAt means the store
// stamps the message with its own clock.
type NewMessage struct {
	ChannelID ChannelID
	CreatorID UserID
	Content   string
	CreatedAt time.Time
}

// HistoryCursor is a position in a channel's history. History is ordered by
// (CreatedAt, ID), so messages sharing a timestamp still page without gaps.
// An empty BeforeID excludes every message created at Before.
type HistoryCursor struct {
	Before   time.Time
	BeforeID MessageID
}

// Precedes reports whether a message created at createdAt with id sorts
// strictly before the cursor.
func (c HistoryCursor) Precedes(createdAt time.Time, id MessageID) bool {
	if !createdAt.Equal(c.Before) {
		return createdAt.Before(c.Before)
	}
	return id < c.BeforeID
}

// CursorAt returns the cursor that continues a page whose oldest entry is m.
func CursorAt(m *Message) HistoryCursor {
	return HistoryCursor{Before: m.CreatedAt, BeforeID: m.ID}
}
