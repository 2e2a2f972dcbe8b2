package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/releasedesk/backend/internal/config"
)

// CORS answers preflight requests and echoes allowed origins. In development
// every origin is allowed.
func CORS(cfg *config.Config) gin.HandlerFunc {
	allowedOrigins := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowedOrigins[normalizeOrigin(o)] = true
	}
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(append([]string{"Content-Length", "Accept-Encoding", "X-Requested-With"}, cfg.AllowedHeaders...), ", ")

	return func(c *gin.Context) {
		origin := normalizeOrigin(c.Request.Header.Get("Origin"))
		allowed := allowedOrigins[origin] || (origin != "" && cfg.Env == "development")

		h := c.Writer.Header()
		h.Add("Vary", "Origin")
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Headers", headers)
		h.Set("Access-Control-Allow-Methods", methods)
		h.Set("Access-Control-Expose-Headers", "Content-Disposition, X-RateLimit-Remaining")
		h.Set("Access-Control-Max-Age", "86400")
		if allowed && origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func normalizeOrigin(o string) string {
	return strings.TrimRight(strings.TrimSpace(o), "/")
}
