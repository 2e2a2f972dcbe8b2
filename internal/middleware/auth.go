package middleware

import (
	"net/http"
	"strings"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/releasedesk/backend/internal/models"
	"github.com/releasedesk/backend/internal/services"
	"github.com/releasedesk/backend/internal/session"
)

// Context keys set by Auth
const (
	ContextSession = "session"
	ContextClaims  = "claims"
	ContextUserID  = "userID"
)

// Auth requires a bearer session token and loads its session into the context
func Auth(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, sess, err := authService.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		switch {
		case err == nil:
		case errors.Is(err, services.ErrTokenRevoked):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session has ended"})
			return
		case errors.Is(err, services.ErrInvalidToken), errors.Is(err, session.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		default:
			log.WithError(err).Error("session lookup failed")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Session store unavailable"})
			return
		}

		c.Set(ContextSession, sess)
		c.Set(ContextClaims, claims)
		c.Set(ContextUserID, sess.UserID)
		c.Next()
	}
}

// CurrentSession returns the session loaded by Auth
func CurrentSession(c *gin.Context) *models.Session {
	v, ok := c.Get(ContextSession)
	if !ok {
		return nil
	}
	sess, _ := v.(*models.Session)
	return sess
}

// TokenFromQuery copies ?token= into the Authorization header so plain links
// such as PDF downloads pass Auth
func TokenFromQuery() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			if token := c.Query("token"); token != "" {
				c.Request.Header.Set("Authorization", "Bearer "+token)
			}
		}
		c.Next()
	}
}
