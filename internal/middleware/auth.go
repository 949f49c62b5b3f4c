package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jointrip/companion-service/internal/log"
	"github.com/jointrip/companion-service/internal/response"
	"github.com/jointrip/companion-service/internal/service"
)

// SessionMiddleware authenticates requests against the cached login
// sessions.
type SessionMiddleware struct {
	users service.UserService
}

// NewSessionMiddleware creates a session-backed auth middleware.
func NewSessionMiddleware(users service.UserService) *SessionMiddleware {
	return &SessionMiddleware{users: users}
}

// RequireAuth resolves the bearer session token to a user id and stores
// it in the gin context; unauthenticated requests are rejected.
func (m *SessionMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Unauthorized(c, "missing session token")
			c.Abort()
			return
		}

		userID, err := m.users.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired session")
			c.Abort()
			return
		}

		c.Set(log.FieldUserID, userID)
		c.Next()
	}
}

// GetUserID returns the authenticated user id, empty when anonymous.
func GetUserID(c *gin.Context) string {
	if v, ok := c.Get(log.FieldUserID); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return c.GetHeader("X-Session-ID")
}
