package http

import (
	"net/http"

	"boardchat/internal/core/domain"
	"boardchat/internal/core/ports"
	"boardchat/internal/core/services"
	"boardchat/internal/infrastructure/middleware"
	"boardchat/pkg/errors"
	"boardchat/pkg/utils"

	"github.com/gin-gonic/gin"
)

const maxHistoryLimit = 200

// MessageHandler exposes message creation and history over REST. Creation
// goes through the same exchange as websocket submissions, so REST posts
// are broadcast to live subscribers of the channel.
type MessageHandler struct {
	exchange     ports.MessageExchange
	channels     *services.ChannelService
	historyLimit int
}

var _ ports.MessageHTTPHandler = (*MessageHandler)(nil)

func NewMessageHandler(exchange ports.MessageExchange, channels *services.ChannelService, historyLimit int) *MessageHandler {
	if historyLimit <= 0 || historyLimit > maxHistoryLimit {
		historyLimit = maxHistoryLimit
	}
	return &MessageHandler{
		exchange:     exchange,
		channels:     channels,
		historyLimit: historyLimit,
	}
}

func (h *MessageHandler) SetupRoutes(api *gin.RouterGroup) {
	api.POST("/boards/:boardId/channels/:channelId/messages", h.CreateMessage)
	api.GET("/boards/:boardId/channels/:channelId/messages", h.ListMessages)
	api.DELETE("/boards/:boardId/channels/:channelId/messages/:messageId", h.DeleteMessage)
}

type CreateMessageRequest struct {
	Content   string           `json:"content"`
	CreatorID string           `json:"creatorId,omitempty"`
	Timestamp utils.ClientTime `json:"timestamp,omitempty"`
}

func (h *MessageHandler) CreateMessage(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.Error(errors.NewUnauthorizedError("authentication required"))
		return
	}

	var req CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	boardID := domain.BoardID(c.Param("boardId"))
	channelID := domain.ChannelID(c.Param("channelId"))

	channel, err := h.channels.AuthorizeChannel(c.Request.Context(), identity.UserID, channelID)
	if err != nil {
		c.Error(err)
		return
	}
	if channel.BoardID != boardID {
		c.Error(errors.NewNotFoundError("channel"))
		return
	}

	msg, err := h.exchange.Submit(c.Request.Context(), identity, ports.Submission{
		ChannelID: channelID,
		Content:   req.Content,
		CreatorID: domain.UserID(req.CreatorID),
		Timestamp: req.Timestamp.Ptr(),
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// ListMessages pages backwards through a channel. `before` is the
// next_cursor of the previous page, or a bare RFC 3339 timestamp or unix
// milliseconds; next_cursor is set while older messages may remain.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.Error(errors.NewUnauthorizedError("authentication required"))
		return
	}

	before, beforeID, err := utils.ParseCursor(c.Query("before"))
	if err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}
	limit := utils.ClampLimit(c.Query("limit"), h.historyLimit, maxHistoryLimit)

	messages, err := h.channels.History(
		c.Request.Context(),
		identity.UserID,
		domain.BoardID(c.Param("boardId")),
		domain.ChannelID(c.Param("channelId")),
		domain.HistoryCursor{Before: before, BeforeID: domain.MessageID(beforeID)},
		limit,
	)
	if err != nil {
		c.Error(err)
		return
	}
	if messages == nil {
		messages = []*domain.Message{}
	}

	body := gin.H{"messages": messages}
	if len(messages) == limit {
		body["next_cursor"] = utils.FormatCursor(messages[0].CreatedAt, string(messages[0].ID))
	}
	c.JSON(http.StatusOK, body)
}

// DeleteMessage removes a message from the channel history. Allowed for the
// message creator and the board admin.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.Error(errors.NewUnauthorizedError("authentication required"))
		return
	}

	err := h.channels.DeleteMessage(
		c.Request.Context(),
		identity.UserID,
		domain.BoardID(c.Param("boardId")),
		domain.ChannelID(c.Param("channelId")),
		domain.MessageID(c.Param("messageId")),
	)
	if err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
