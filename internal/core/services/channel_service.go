package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boardchat/internal/core/domain"
	"boardchat/internal/core/ports"
	"boardchat/pkg/utils"
	"boardchat/pkg/validation"
)

// ChannelService covers membership checks and the lifecycle that sits
// around the message exchange: join authorization, history reads, message
// removal and channel create/delete followed by topology notifications.
type ChannelService struct {
	store    ports.MessageStore
	boards   ports.BoardRepository
	channels ports.ChannelRepository
	messages ports.MessageRepository
	notifier ports.TopologyNotifier
	timeout  time.Duration
}

func NewChannelService(
	store ports.MessageStore,
	boards ports.BoardRepository,
	channels ports.ChannelRepository,
	messages ports.MessageRepository,
	notifier ports.TopologyNotifier,
	timeout time.Duration,
) *ChannelService {
	return &ChannelService{
		store:    store,
		boards:   boards,
		channels: channels,
		messages: messages,
		notifier: notifier,
		timeout:  timeout,
	}
}

// AuthorizeChannel returns the channel if userID may read or write it. An
// unknown channel is reported as not-a-member.
func (s *ChannelService) AuthorizeChannel(ctx context.Context, userID domain.UserID, channelID domain.ChannelID) (*domain.Channel, error) {
	channel, err := s.store.FindChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, &domain.AuthorizationError{UserID: userID, ChannelID: channelID}
	}
	member, err := s.store.IsBoardMember(ctx, channel.BoardID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, &domain.AuthorizationError{UserID: userID, ChannelID: channelID, BoardID: channel.BoardID}
	}
	return channel, nil
}

func (s *ChannelService) AuthorizeBoard(ctx context.Context, userID domain.UserID, boardID domain.BoardID) error {
	member, err := s.store.IsBoardMember(ctx, boardID, userID)
	if err != nil {
		return err
	}
	if !member {
		return &domain.AuthorizationError{UserID: userID, BoardID: boardID}
	}
	return nil
}

// History returns up to limit messages preceding cursor, oldest first.
// The channel must belong to boardID when boardID is set.
func (s *ChannelService) History(ctx context.Context, userID domain.UserID, boardID domain.BoardID, channelID domain.ChannelID, cursor domain.HistoryCursor, limit int) ([]*domain.Message, error) {
	channel, err := s.AuthorizeChannel(ctx, userID, channelID)
	if err != nil {
		return nil, err
	}
	if boardID != "" && channel.BoardID != boardID {
		return nil, domain.ErrChannelNotFound
	}
	return s.store.ListMessages(ctx, channelID, cursor, limit)
}

func (s *ChannelService) CreateChannel(ctx context.Context, userID domain.UserID, boardID domain.BoardID, name string) (*domain.Channel, error) {
	if err := validation.ValidateChannelName(name); err != nil {
		return nil, err
	}
	if err := s.AuthorizeBoard(ctx, userID, boardID); err != nil {
		return nil, err
	}

	channel := &domain.Channel{
		ID:        domain.ChannelID(utils.NewChannelID()),
		BoardID:   boardID,
		Name:      utils.SanitizeString(name),
		CreatedBy: userID,
		CreatedAt: utils.Now().UTC(),
	}

	repoCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.channels.Create(repoCtx, channel); err != nil {
		if errors.Is(err, domain.ErrChannelExists) {
			return nil, err
		}
		return nil, storageError(repoCtx, "create_channel", err)
	}

	s.notifier.ChannelCreated(ctx, channel.ID)
	return channel, nil
}

// DeleteChannel removes a channel. Only the board admin may delete.
func (s *ChannelService) DeleteChannel(ctx context.Context, userID domain.UserID, boardID domain.BoardID, channelID domain.ChannelID) error {
	repoCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	board, err := s.boards.GetByID(repoCtx, boardID)
	if err != nil {
		if errors.Is(err, domain.ErrBoardNotFound) {
			return err
		}
		return storageError(repoCtx, "get_board", err)
	}
	if board.AdminID != userID {
		return &domain.AuthorizationError{UserID: userID, BoardID: boardID}
	}

	channel, err := s.channels.GetByID(repoCtx, channelID)
	if err != nil {
		if errors.Is(err, domain.ErrChannelNotFound) {
			return err
		}
		return storageError(repoCtx, "get_channel", err)
	}
	if channel.BoardID != boardID {
		return fmt.Errorf("%w: %s is not on board %s", domain.ErrChannelNotFound, channelID, boardID)
	}

	if err := s.channels.Delete(repoCtx, channelID); err != nil {
		return storageError(repoCtx, "delete_channel", err)
	}

	s.notifier.ChannelDeleted(ctx, channelID, boardID)
	return nil
}

// DeleteMessage removes a message from its channel's history. The message
// creator and the board admin may delete. Live sessions are not notified.
func (s *ChannelService) DeleteMessage(ctx context.Context, userID domain.UserID, boardID domain.BoardID, channelID domain.ChannelID, messageID domain.MessageID) error {
	repoCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	board, err := s.boards.GetByID(repoCtx, boardID)
	if err != nil {
		if errors.Is(err, domain.ErrBoardNotFound) {
			return err
		}
		return storageError(repoCtx, "get_board", err)
	}

	channel, err := s.channels.GetByID(repoCtx, channelID)
	if err != nil {
		if errors.Is(err, domain.ErrChannelNotFound) {
			return err
		}
		return storageError(repoCtx, "get_channel", err)
	}
	if channel.BoardID != boardID {
		return fmt.Errorf("%w: %s is not on board %s", domain.ErrChannelNotFound, channelID, boardID)
	}

	msg, err := s.messages.GetByID(repoCtx, messageID)
	if err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			return err
		}
		return storageError(repoCtx, "get_message", err)
	}
	if msg.ChannelID != channelID {
		return fmt.Errorf("%w: %s is not in channel %s", domain.ErrMessageNotFound, messageID, channelID)
	}
	if msg.CreatorID != userID && board.AdminID != userID {
		return &domain.AuthorizationError{UserID: userID, ChannelID: channelID, BoardID: boardID}
	}

	if err := s.messages.Delete(repoCtx, channelID, messageID); err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			return err
		}
		return storageError(repoCtx, "delete_message", err)
	}
	return nil
}
