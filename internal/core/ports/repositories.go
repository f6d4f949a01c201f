package ports

import (
	"context"

	"boardchat/internal/core/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)
}

type BoardRepository interface {
	Create(ctx context.Context, board *domain.Board) error
	GetByID(ctx context.Context, id domain.BoardID) (*domain.Board, error)
	AddMember(ctx context.Context, boardID domain.BoardID, userID domain.UserID) error
	IsMember(ctx context.Context, boardID domain.BoardID, userID domain.UserID) (bool, error)
}

type ChannelRepository interface {
	Create(ctx context.Context, channel *domain.Channel) error
	// GetByID returns domain.ErrChannelNotFound when the channel is absent.
	GetByID(ctx context.Context, id domain.ChannelID) (*domain.Channel, error)
	Delete(ctx context.Context, id domain.ChannelID) error
	ListByBoard(ctx context.Context, boardID domain.BoardID) ([]*domain.Channel, error)
}

type MessageRepository interface {
	// Create stores the message and appends it to its channel's history in
	// one step.
	Create(ctx context.Context, message *domain.Message) error
	// GetByID returns domain.ErrMessageNotFound when the message is absent.
	GetByID(ctx context.Context, id domain.MessageID) (*domain.Message, error)
	// Delete removes the message and its history entry in one step.
	Delete(ctx context.Context, channelID domain.ChannelID, id domain.MessageID) error
	// ListByChannel returns up to limit messages that precede cursor,
	// oldest first.
	ListByChannel(ctx context.Context, channelID domain.ChannelID, cursor domain.HistoryCursor, limit int) ([]*domain.Message, error)
}
