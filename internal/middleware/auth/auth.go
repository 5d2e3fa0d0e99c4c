// Package auth provides bearer-token authentication middleware
package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pollsite/poll-api/internal/response"
)

// ContextUserIDKey is the gin context key holding the authenticated user id
const ContextUserIDKey = "user_id"

// TokenVerifier resolves a bearer token to a user id
type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

// RequireAuth rejects requests without a valid bearer token
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.UnauthorizedError(c, "Authorization header format must be Bearer {token}")
			c.Abort()
			return
		}

		userID, err := verifier.Verify(token)
		if err != nil {
			response.UnauthorizedError(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// OptionalAuth sets the user id when a valid token is present and lets
// anonymous requests through. A present but invalid token is still rejected.
func OptionalAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		RequireAuth(verifier)(c)
	}
}

// UserID returns the authenticated user id, if any
func UserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(ContextUserIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
