package middleware

import (
	"boardchat/internal/core/domain"
	"boardchat/internal/core/ports"
	"boardchat/pkg/errors"
	"boardchat/pkg/logger"
	"boardchat/pkg/utils"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// AuthMiddleware verifies the bearer token with the same verifier the
// websocket handshake uses and stores the identity on the gin context.
func AuthMiddleware(verifier ports.IdentityVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := utils.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			AbortWithError(c, errors.NewUnauthorizedError("bearer token required"))
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, errors.FromDomain(err))
			return
		}

		c.Set(identityKey, identity)
		c.Set("user_id", identity.UserID)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), string(identity.UserID)))
		c.Next()
	}
}

// IdentityFrom returns the identity stored by AuthMiddleware.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := v.(domain.Identity)
	return identity, ok
}
