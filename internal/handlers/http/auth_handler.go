package http

import (
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"boardchat/internal/core/domain"
	"boardchat/internal/core/ports"
	"boardchat/internal/core/services"
	"boardchat/pkg/errors"

	"github.com/gin-gonic/gin"
)

// AuthHandler issues access tokens for users that already exist. Account
// registration lives elsewhere; this endpoint is meant for local use and is
// only mounted when token issuance is enabled.
type AuthHandler struct {
	authService services.AuthService
	users       ports.UserRepository
	tokenTTL    time.Duration
}

func NewAuthHandler(authService services.AuthService, users ports.UserRepository, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		users:       users,
		tokenTTL:    tokenTTL,
	}
}

func (h *AuthHandler) SetupRoutes(api *gin.RouterGroup) {
	auth := api.Group("/auth")
	{
		auth.POST("/token", h.IssueToken)
	}
}

type IssueTokenRequest struct {
	UserID string `json:"user_id" binding:"required,max=100"`
}

func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("user_id is required"))
		return
	}

	userID := domain.UserID(strings.TrimSpace(req.UserID))
	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		if stderrors.Is(err, domain.ErrUserNotFound) {
			c.Error(errors.NewNotFoundError("user"))
			return
		}
		c.Error(err)
		return
	}

	accessToken, err := h.authService.GenerateToken(user.ID, user.Username)
	if err != nil {
		c.Error(errors.NewInternalError("failed to generate token"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      user.ID,
		"username":     user.Username,
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   int(h.tokenTTL / time.Second),
	})
}
