package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// ActionCounter counts a user's logged submissions
type ActionCounter interface {
	ActionCount(ctx context.Context, userID, action string, since time.Time) (int64, error)
}

// A count of escalateAfter times the limit blocks the user for blockFor
const (
	escalateAfter = 2
	blockFor      = time.Hour
)

// SubmissionRateLimit limits how often a user may perform action within the
// window, counted from the submission log. Reaching escalateAfter times the
// limit blocks the user for an hour. Runs after Auth.
func SubmissionRateLimit(counter ActionCounter, redisClient *redis.Client, action string, maxActions, windowMinutes int) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		if userID == "" || maxActions <= 0 {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		blockKey := fmt.Sprintf("submission_blocked:%s:%s", userID, action)

		if redisClient != nil {
			blocked, err := redisClient.Get(ctx, blockKey).Result()
			if err == nil && blocked == "1" {
				ttl, _ := redisClient.TTL(ctx, blockKey).Result()
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error":                 "submissions_temporarily_blocked",
					"message":               "Submissions are temporarily blocked for your account. Please contact support.",
					"blocked_until_minutes": int(ttl.Minutes()),
				})
				return
			}
		}

		since := time.Now().Add(-time.Duration(windowMinutes) * time.Minute)
		count, err := counter.ActionCount(ctx, userID, action, since)
		if err != nil {
			log.WithError(err).WithField("action", action).Warn("could not count submissions")
			c.Next()
			return
		}

		if count >= int64(maxActions*escalateAfter) && redisClient != nil {
			if err := redisClient.Set(ctx, blockKey, "1", blockFor).Err(); err != nil {
				log.WithError(err).Warn("could not set submission block")
			}
			log.WithFields(log.Fields{"user_id": userID, "action": action, "count": count}).Warn("submission block set")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":               "submissions_temporarily_blocked",
				"message":             "Too many submissions. Your account is blocked from submitting for 1 hour.",
				"blocked_for_minutes": int(blockFor.Minutes()),
			})
			return
		}

		if count >= int64(maxActions) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":               "rate_limit_exceeded",
				"message":             "Too many submissions in a short time. Please wait a few minutes.",
				"retry_after_minutes": windowMinutes,
				"warning":             "Further attempts will result in a 1-hour block.",
			})
			return
		}

		c.Next()
	}
}
