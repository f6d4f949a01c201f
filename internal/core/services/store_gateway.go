package services

import (
	"context"
	"errors"
	"time"

	"boardchat/internal/core/domain"
	"boardchat/internal/core/ports"
	"boardchat/pkg/cache"
	"boardchat/pkg/utils"

	"go.uber.org/zap"
)

// StoreGateway adapts the repositories to the ports.MessageStore contract.
// Every call is bounded by the configured timeout.
type StoreGateway struct {
	users    ports.UserRepository
	boards   ports.BoardRepository
	channels ports.ChannelRepository
	messages ports.MessageRepository

	creators *cache.Cache[string]
	timeout  time.Duration
	logger   *zap.SugaredLogger
}

func NewStoreGateway(
	users ports.UserRepository,
	boards ports.BoardRepository,
	channels ports.ChannelRepository,
	messages ports.MessageRepository,
	creatorCacheTTL time.Duration,
	timeout time.Duration,
	logger *zap.SugaredLogger,
) *StoreGateway {
	return &StoreGateway{
		users:    users,
		boards:   boards,
		channels: channels,
		messages: messages,
		creators: cache.New[string](creatorCacheTTL),
		timeout:  timeout,
		logger:   logger,
	}
}

var _ ports.MessageStore = (*StoreGateway)(nil)

func (g *StoreGateway) CreateMessage(ctx context.Context, nm domain.NewMessage) (*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	createdAt := nm.CreatedAt
	if createdAt.IsZero() {
		createdAt = utils.Now().UTC()
	}

	msg := &domain.Message{
		ID:        domain.MessageID(utils.NewMessageID()),
		Content:   nm.Content,
		CreatorID: nm.CreatorID,
		ChannelID: nm.ChannelID,
		CreatedAt: createdAt,
	}
	if err := g.messages.Create(ctx, msg); err != nil {
		return nil, storageError(ctx, "create_message", err)
	}
	return msg, nil
}

func (g *StoreGateway) FindChannel(ctx context.Context, channelID domain.ChannelID) (*domain.Channel, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	channel, err := g.channels.GetByID(ctx, channelID)
	if errors.Is(err, domain.ErrChannelNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError(ctx, "find_channel", err)
	}
	return channel, nil
}

func (g *StoreGateway) IsBoardMember(ctx context.Context, boardID domain.BoardID, userID domain.UserID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	ok, err := g.boards.IsMember(ctx, boardID, userID)
	if err != nil {
		return false, storageError(ctx, "is_board_member", err)
	}
	return ok, nil
}

// EnrichCreator returns a copy of msg with CreatorName filled in. Display
// names are cached per user.
func (g *StoreGateway) EnrichCreator(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	name, err := g.creators.GetOrLoad(ctx, string(msg.CreatorID), func(ctx context.Context) (string, error) {
		user, err := g.users.GetByID(ctx, msg.CreatorID)
		if err != nil {
			return "", err
		}
		return user.DisplayName(), nil
	})
	if err != nil {
		return nil, storageError(ctx, "enrich_creator", err)
	}

	enriched := *msg
	enriched.CreatorName = name
	return &enriched, nil
}

func (g *StoreGateway) ListMessages(ctx context.Context, channelID domain.ChannelID, cursor domain.HistoryCursor, limit int) ([]*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	msgs, err := g.messages.ListByChannel(ctx, channelID, cursor, limit)
	if err != nil {
		return nil, storageError(ctx, "list_messages", err)
	}

	out := make([]*domain.Message, 0, len(msgs))
	for _, m := range msgs {
		enriched, err := g.EnrichCreator(ctx, m)
		if err != nil {
			g.logger.Warnw("History enrichment failed",
				"message_id", m.ID,
				"creator_id", m.CreatorID,
				"error", err,
			)
			out = append(out, m)
			continue
		}
		out = append(out, enriched)
	}
	return out, nil
}

// Close stops the creator cache janitor.
func (g *StoreGateway) Close() {
	g.creators.Stop()
}

func storageError(ctx context.Context, op string, err error) error {
	var se *domain.StorageError
	if errors.As(err, &se) {
		return err
	}
	kind := domain.StorageWriteFailed
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		kind = domain.StorageTimeout
	}
	return &domain.StorageError{Kind: kind, Op: op, Cause: err}
}
