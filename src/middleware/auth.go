package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"www.github.com/Wanderer0074348/CalSync/src/auth"
)

// SessionCookie is the cookie carrying the signed session token.
const SessionCookie = "session_token"

type AuthMiddleware struct {
	sessions *auth.SessionManager
}

func NewAuthMiddleware(sessions *auth.SessionManager) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

func sessionToken(c *gin.Context) string {
	token, err := c.Cookie(SessionCookie)
	if err == nil && token != "" {
		return token
	}

	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := m.sessions.Resolve(sessionToken(c))
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		c.Set("session", claims)
		c.Next()
	}
}

func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := m.sessions.Resolve(sessionToken(c)); ok {
			c.Set("session", claims)
		}
		c.Next()
	}
}

// Session pulls the resolved claims out of the request context.
func Session(c *gin.Context) (*auth.SessionClaims, bool) {
	value, exists := c.Get("session")
	if !exists {
		return nil, false
	}
	claims, ok := value.(*auth.SessionClaims)
	return claims, ok
}
