package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random UUID, optionally prefixed ("msg_...").
func NewID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

func NewSessionID() string {
	return uuid.NewString()
}

func NewMessageID() string {
	return NewID("msg")
}

func NewChannelID() string {
	return NewID("ch")
}

func NewRequestID() string {
	return NewID("req")
}
