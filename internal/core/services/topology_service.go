package services

import (
	"context"

	"boardchat/internal/core/domain"
	"boardchat/internal/core/ports"

	"go.uber.org/zap"
)

// topologyNotifier tells board rooms that their channel set changed. It
// only broadcasts; the channel itself is committed by the caller.
type topologyNotifier struct {
	store       ports.MessageStore
	broadcaster ports.Broadcaster
	logger      *zap.SugaredLogger
}

func NewTopologyNotifier(store ports.MessageStore, broadcaster ports.Broadcaster, logger *zap.SugaredLogger) ports.TopologyNotifier {
	return &topologyNotifier{store: store, broadcaster: broadcaster, logger: logger}
}

func (n *topologyNotifier) ChannelCreated(ctx context.Context, channelID domain.ChannelID) {
	channel, err := n.store.FindChannel(ctx, channelID)
	if err != nil {
		n.logger.Warnw("Channel lookup failed, newChannel suppressed", "channel_id", channelID, "error", err)
		return
	}
	if channel == nil {
		n.logger.Warnw("Channel not found, newChannel suppressed", "channel_id", channelID)
		return
	}

	event, err := domain.NewOutboundEvent(domain.EventNewChannel, channel)
	if err != nil {
		n.logger.Errorw("Failed to encode newChannel", "channel_id", channelID, "error", err)
		return
	}
	delivered := n.broadcaster.Broadcast(domain.BoardRoom(channel.BoardID), event)
	n.logger.Debugw("Channel created", "channel_id", channelID, "board_id", channel.BoardID, "recipients", delivered)
}

// ChannelDeleted relays a deletion only once the channel is gone from the
// store. A channel that still exists, on this board or another, is not
// retracted from anyone's view.
func (n *topologyNotifier) ChannelDeleted(ctx context.Context, channelID domain.ChannelID, boardID domain.BoardID) {
	channel, err := n.store.FindChannel(ctx, channelID)
	if err != nil {
		n.logger.Warnw("Channel lookup failed, deleteChannel suppressed", "channel_id", channelID, "error", err)
		return
	}
	if channel != nil {
		n.logger.Warnw("Channel still stored, deleteChannel suppressed",
			"channel_id", channelID,
			"board_id", boardID,
			"stored_board_id", channel.BoardID,
		)
		return
	}

	event, err := domain.NewOutboundEvent(domain.EventDeleteChannel, domain.ChannelDeletedPayload{
		ChannelID: channelID,
		BoardID:   boardID,
	})
	if err != nil {
		n.logger.Errorw("Failed to encode deleteChannel", "channel_id", channelID, "error", err)
		return
	}
	delivered := n.broadcaster.Broadcast(domain.BoardRoom(boardID), event)
	n.logger.Debugw("Channel deleted", "channel_id", channelID, "board_id", boardID, "recipients", delivered)
}
