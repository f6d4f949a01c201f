package http

import (
	"net/http"

	"boardchat/internal/core/domain"
	"boardchat/internal/core/ports"
	"boardchat/internal/core/services"
	"boardchat/internal/infrastructure/middleware"
	"boardchat/pkg/errors"

	"github.com/gin-gonic/gin"
)

type ChannelHandler struct {
	channels *services.ChannelService
}

var _ ports.ChannelHTTPHandler = (*ChannelHandler)(nil)

func NewChannelHandler(channels *services.ChannelService) *ChannelHandler {
	return &ChannelHandler{channels: channels}
}

func (h *ChannelHandler) SetupRoutes(api *gin.RouterGroup) {
	api.POST("/boards/:boardId/channels", h.CreateChannel)
	api.DELETE("/boards/:boardId/channels/:channelId", h.DeleteChannel)
}

type CreateChannelRequest struct {
	Name string `json:"name"`
}

func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.Error(errors.NewUnauthorizedError("authentication required"))
		return
	}

	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	channel, err := h.channels.CreateChannel(c.Request.Context(), identity.UserID, domain.BoardID(c.Param("boardId")), req.Name)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"channel": channel})
}

// DeleteChannel is restricted to the board admin.
func (h *ChannelHandler) DeleteChannel(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.Error(errors.NewUnauthorizedError("authentication required"))
		return
	}

	err := h.channels.DeleteChannel(
		c.Request.Context(),
		identity.UserID,
		domain.BoardID(c.Param("boardId")),
		domain.ChannelID(c.Param("channelId")),
	)
	if err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
