package ports

import (
	"context"
	"time"

	"boardchat/internal/core/domain"
)

// IdentityVerifier is shared by the HTTP middleware and the websocket
// handshake.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (domain.Identity, error)
}

// MessageStore is the gateway the exchange protocol talks to. Failures are
// reported as *domain.StorageError.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg domain.NewMessage) (*domain.Message, error)
	// FindChannel returns nil, nil when the channel does not exist.
	FindChannel(ctx context.Context, channelID domain.ChannelID) (*domain.Channel, error)
	IsBoardMember(ctx context.Context, boardID domain.BoardID, userID domain.UserID) (bool, error)
	EnrichCreator(ctx context.Context, msg *domain.Message) (*domain.Message, error)
	ListMessages(ctx context.Context, channelID domain.ChannelID, cursor domain.HistoryCursor, limit int) ([]*domain.Message, error)
}

// EventSink is the outbound side of one live connection. Deliver must not
// block; it reports false when the event could not be queued.
type EventSink interface {
	Deliver(event *domain.OutboundEvent) bool
	Close()
}

// Broadcaster is the part of the room registry that publishers depend on.
type Broadcaster interface {
	Broadcast(room domain.RoomID, event *domain.OutboundEvent) int
}

type Submission struct {
	ChannelID domain.ChannelID
	Content   string
	CreatorID domain.UserID
	// Timestamp is advisory and never used for ordering.
	Timestamp *time.Time
}

type MessageExchange interface {
	Submit(ctx context.Context, identity domain.Identity, sub Submission) (*domain.Message, error)
}

type TopologyNotifier interface {
	ChannelCreated(ctx context.Context, channelID domain.ChannelID)
	ChannelDeleted(ctx context.Context, channelID domain.ChannelID, boardID domain.BoardID)
}
