package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"boardchat/internal/core/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubVerifier map[string]domain.Identity

func (s stubVerifier) Verify(_ context.Context, credential string) (domain.Identity, error) {
	if id, ok := s[credential]; ok {
		return id, nil
	}
	return domain.Identity{}, domain.NewAuthError(domain.AuthInvalid, nil)
}

func newTestRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t).Sugar()

	router := gin.New()
	router.Use(RecoveryMiddleware(logger), RequestIDMiddleware(), ErrorHandlerMiddleware(logger))

	authed := router.Group("/", AuthMiddleware(stubVerifier{"good": {UserID: "alice", Username: "alice"}}))
	authed.GET("/me", func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user_id": identity.UserID})
	})
	router.GET("/forbidden", func(c *gin.Context) {
		_ = c.Error(&domain.AuthorizationError{UserID: "alice", BoardID: "b1"})
	})
	router.GET("/storage", func(c *gin.Context) {
		_ = c.Error(&domain.StorageError{Kind: domain.StorageTimeout, Op: "test"})
	})
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return router
}

func do(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthMiddleware(t *testing.T) {
	router := newTestRouter(t)

	w := do(router, "/me", "good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", decode(t, w)["user_id"])
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = do(router, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", decode(t, w)["error"])

	w = do(router, "/me", "bad")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestErrorHandlerMiddleware_MapsDomainErrors(t *testing.T) {
	router := newTestRouter(t)

	w := do(router, "/forbidden", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "NOT_A_MEMBER", decode(t, w)["error"])

	w = do(router, "/storage", "")
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, "STORAGE_TIMEOUT", decode(t, w)["error"])
}

func TestRecoveryMiddleware(t *testing.T) {
	w := do(newTestRouter(t), "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", decode(t, w)["error"])
}
