package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/releasedesk/backend/internal/config"
)

// UploadRateLimit caps the artwork, audio and document uploads of one artist
// per calendar day. Runs after Auth.
func UploadRateLimit(redisClient *redis.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost || !isUploadEndpoint(c.FullPath()) {
			c.Next()
			return
		}
		userID := c.GetString(ContextUserID)
		if userID == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		// Resets daily at midnight
		now := time.Now()
		key := fmt.Sprintf("upload_limit:%s:%s", userID, now.Format("2006-01-02"))

		count, err := redisClient.Get(ctx, key).Int()
		switch {
		case err == redis.Nil:
			midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
			if err := redisClient.Set(ctx, key, 1, midnight.Sub(now)).Err(); err != nil {
				log.WithError(err).Warn("upload limiter failed to set key")
			}
		case err != nil:
			log.WithError(err).Warn("upload limiter failed to get key")
		case count >= cfg.UploadMaxPerDay:
			ttl, _ := redisClient.TTL(ctx, key).Result()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":               "upload_rate_limit_exceeded",
				"message":             "Too many uploads today. Please try again tomorrow.",
				"retry_after_hours":   int(ttl.Hours()),
				"uploads_today":       count,
				"max_uploads_per_day": cfg.UploadMaxPerDay,
			})
			return
		default:
			redisClient.Incr(ctx, key)
		}

		c.Next()
	}
}

// isUploadEndpoint matches the route patterns that accept files
func isUploadEndpoint(route string) bool {
	switch {
	case route == "/api/v1/wizard/artwork":
		return true
	case strings.HasPrefix(route, "/api/v1/wizard/tracks/") && strings.HasSuffix(route, "/audio"):
		return true
	case route == "/api/v1/onboarding/documents":
		return true
	}
	return false
}
