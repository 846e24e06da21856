package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	userID uuid.UUID
	err    error
}

func (s *stubValidator) ValidateToken(_ context.Context, _ string) (*TokenClaims, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &TokenClaims{UserID: s.userID}, nil
}

func authRouter(validator TokenValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/protected", AuthMiddleware(validator), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.MustGet("user_id").(uuid.UUID).String()})
	})
	router.GET("/open", OptionalAuthMiddleware(validator), func(c *gin.Context) {
		if id, ok := c.Get("user_id"); ok {
			c.JSON(http.StatusOK, gin.H{"user_id": id.(uuid.UUID).String()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": ""})
	})
	return router
}

func get(router *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	router := authRouter(&stubValidator{userID: userID})

	tests := []struct {
		name   string
		header string
		code   int
		errMsg string
	}{
		{"valid token", "Bearer good-token", http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, "missing authorization header"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "invalid authorization header format"},
		{"no token part", "Bearer", http.StatusUnauthorized, "invalid authorization header format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(router, "/protected", tt.header)
			require.Equal(t, tt.code, w.Code)
			if tt.errMsg != "" {
				assert.Contains(t, w.Body.String(), tt.errMsg)
			} else {
				assert.Contains(t, w.Body.String(), userID.String())
			}
		})
	}
}

func TestAuthMiddlewareRejectsInvalidToken(t *testing.T) {
	router := authRouter(&stubValidator{err: errors.New("token has been revoked")})

	w := get(router, "/protected", "Bearer stale-token")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "token has been revoked")
}

func TestOptionalAuthMiddleware(t *testing.T) {
	userID := uuid.New()

	t.Run("anonymous passes through", func(t *testing.T) {
		w := get(authRouter(&stubValidator{userID: userID}), "/open", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":""`)
	})

	t.Run("valid token resolves the user", func(t *testing.T) {
		w := get(authRouter(&stubValidator{userID: userID}), "/open", "Bearer good-token")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), userID.String())
	})

	t.Run("bad token is treated as anonymous", func(t *testing.T) {
		w := get(authRouter(&stubValidator{err: errors.New("invalid token")}), "/open", "Bearer bad-token")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":""`)
	})
}
