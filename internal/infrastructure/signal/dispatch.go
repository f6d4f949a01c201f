package signal

import (
	"context"
	"encoding/json"
	"net/http"

	"boardchat/internal/core/domain"
	"boardchat/internal/core/ports"
	"boardchat/pkg/errors"
	"boardchat/pkg/tracing"
	"boardchat/pkg/utils"

	"go.opentelemetry.io/otel/codes"
)

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ErrorPayload is the data of an outbound error event.
type ErrorPayload struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Event   string      `json:"event,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

type newMessagePayload struct {
	ChannelID string           `json:"channelId"`
	Content   string           `json:"content"`
	Timestamp utils.ClientTime `json:"timestamp,omitempty"`
	CreatorID string           `json:"creatorId,omitempty"`
}

type deleteChannelPayload struct {
	ChannelToDelete string `json:"channelToDelete"`
	BoardID         string `json:"boardId"`
}

type connectedPayload struct {
	SessionID domain.SessionID `json:"session_id"`
	UserID    domain.UserID    `json:"user_id"`
}

var errUnknownEvent = errors.NewAppError(errors.ErrCodeUnknownEvent, "unknown event", http.StatusBadRequest)

func newErrorFrame(event string, err error) (*domain.OutboundEvent, error) {
	appErr := errors.FromDomain(err)
	payload := ErrorPayload{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Event:   event,
	}
	if len(appErr.Context) > 0 {
		payload.Details = appErr.Context
	}
	return domain.NewOutboundEvent(domain.EventError, payload)
}

func (s *WebSocketServer) dispatch(ctx context.Context, session *domain.Session, sink *connSink, frame inboundFrame) {
	ctx, span := tracing.TraceWebSocketEvent(ctx, frame.Event, string(session.ID))
	defer span.End()
	s.metrics.RecordEvent(frame.Event)

	var err error
	switch frame.Event {
	case domain.EventSetup:
		err = s.reply(sink, domain.EventConnected, connectedPayload{
			SessionID: session.ID,
			UserID:    session.Identity.UserID,
		})
	case domain.EventJoinChannel:
		err = s.handleJoinChannel(ctx, session, frame.Data)
	case domain.EventJoinBoard:
		err = s.handleJoinBoard(ctx, session, frame.Data)
	case domain.EventLeaveChannel:
		err = s.handleLeave(session, frame.Data, "channelId", func(id string) domain.RoomID {
			return domain.ChannelRoom(domain.ChannelID(id))
		})
	case domain.EventLeaveBoard:
		err = s.handleLeave(session, frame.Data, "boardId", func(id string) domain.RoomID {
			return domain.BoardRoom(domain.BoardID(id))
		})
	case domain.EventNewMessage:
		err = s.handleNewMessage(ctx, session, frame.Data)
	case domain.EventNewChannel:
		err = s.handleNewChannel(ctx, frame.Data)
	case domain.EventDeleteChannel:
		err = s.handleDeleteChannel(ctx, session, frame.Data)
	default:
		err = errUnknownEvent
	}

	if err != nil {
		tracing.RecordError(ctx, err)
		tracing.SetSpanStatus(ctx, codes.Error, err.Error())
		s.replyError(ctx, sink, frame.Event, err)
	}
}

func (s *WebSocketServer) handleJoinChannel(ctx context.Context, session *domain.Session, data json.RawMessage) error {
	id, err := decodeRoomID(data, "channelId")
	if err != nil {
		return err
	}
	channel, err := s.channels.AuthorizeChannel(ctx, session.Identity.UserID, domain.ChannelID(id))
	if err != nil {
		return err
	}
	if err := s.registry.Join(domain.ChannelRoom(channel.ID), session.ID); err != nil {
		return err
	}
	s.log.Debugw(ctx, "Joined channel", "channel_id", channel.ID)
	return nil
}

func (s *WebSocketServer) handleJoinBoard(ctx context.Context, session *domain.Session, data json.RawMessage) error {
	id, err := decodeRoomID(data, "boardId")
	if err != nil {
		return err
	}
	boardID := domain.BoardID(id)
	if err := s.channels.AuthorizeBoard(ctx, session.Identity.UserID, boardID); err != nil {
		return err
	}
	if err := s.registry.Join(domain.BoardRoom(boardID), session.ID); err != nil {
		return err
	}
	s.log.Debugw(ctx, "Joined board", "board_id", boardID)
	return nil
}

func (s *WebSocketServer) handleLeave(session *domain.Session, data json.RawMessage, key string, room func(string) domain.RoomID) error {
	id, err := decodeRoomID(data, key)
	if err != nil {
		return err
	}
	s.registry.Leave(room(id), session.ID)
	return nil
}

// handleNewMessage runs the exchange synchronously, so one session's
// submissions are processed in the order it sent them. The message event
// itself reaches the sender through the channel room like everyone else.
func (s *WebSocketServer) handleNewMessage(ctx context.Context, session *domain.Session, data json.RawMessage) error {
	var payload newMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return &domain.ValidationError{Fields: []string{"data"}, Reason: "newMessage payload must be an object"}
	}
	_, err := s.exchange.Submit(ctx, session.Identity, ports.Submission{
		ChannelID: domain.ChannelID(payload.ChannelID),
		Content:   payload.Content,
		CreatorID: domain.UserID(payload.CreatorID),
		Timestamp: payload.Timestamp.Ptr(),
	})
	return err
}

// handleNewChannel rebroadcasts an already stored channel to its board
// room. Lookup failures are absorbed by the notifier.
func (s *WebSocketServer) handleNewChannel(ctx context.Context, data json.RawMessage) error {
	id, err := decodeRoomID(data, "channelId")
	if err != nil {
		return err
	}
	s.notifier.ChannelCreated(ctx, domain.ChannelID(id))
	return nil
}

func (s *WebSocketServer) handleDeleteChannel(ctx context.Context, session *domain.Session, data json.RawMessage) error {
	var payload deleteChannelPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ChannelToDelete == "" || payload.BoardID == "" {
		return &domain.ValidationError{
			Fields: []string{"channelToDelete", "boardId"},
			Reason: "deleteChannel requires channelToDelete and boardId",
		}
	}
	boardID := domain.BoardID(payload.BoardID)
	if err := s.channels.AuthorizeBoard(ctx, session.Identity.UserID, boardID); err != nil {
		return err
	}
	s.notifier.ChannelDeleted(ctx, domain.ChannelID(payload.ChannelToDelete), boardID)
	return nil
}

func (s *WebSocketServer) reply(sink *connSink, name string, data interface{}) error {
	event, err := domain.NewOutboundEvent(name, data)
	if err != nil {
		return err
	}
	deliverOrClose(sink, event)
	return nil
}

func (s *WebSocketServer) replyError(ctx context.Context, sink *connSink, event string, err error) {
	frame, encErr := newErrorFrame(event, err)
	if encErr != nil {
		s.log.Errorw(ctx, encErr, "Error frame encoding failed")
		return
	}
	s.log.Debugw(ctx, "Event rejected", "event", event, "error", err)
	deliverOrClose(sink, frame)
}

// deliverOrClose treats a full queue on a direct reply the same way the
// registry treats it on broadcast.
func deliverOrClose(sink *connSink, event *domain.OutboundEvent) {
	if !sink.Deliver(event) {
		sink.Close()
	}
}

// decodeRoomID accepts either a bare JSON string or an object carrying the
// id under key.
func decodeRoomID(data json.RawMessage, key string) (string, error) {
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		var obj map[string]string
		if err := json.Unmarshal(data, &obj); err != nil {
			return "", &domain.ValidationError{Fields: []string{key}, Reason: key + " must be a string"}
		}
		id = obj[key]
	}
	if id == "" {
		return "", &domain.ValidationError{Fields: []string{key}, Reason: key + " is required"}
	}
	return id, nil
}
