package middleware

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// Logger is gin's access log with the token query parameter masked
func Logger() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(p gin.LogFormatterParams) string {
		return fmt.Sprintf("[GIN] %v | %3d | %13v | %15s | %-7s %#v\n%s",
			p.TimeStamp.Format("2006/01/02 - 15:04:05"),
			p.StatusCode,
			p.Latency,
			p.ClientIP,
			p.Method,
			redactQuery(p.Path),
			p.ErrorMessage,
		)
	})
}

func redactQuery(path string) string {
	base, raw, found := strings.Cut(path, "?")
	if !found {
		return path
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return base + "?[unparsable]"
	}
	if _, ok := q["token"]; !ok {
		return path
	}
	q.Set("token", "REDACTED")
	return base + "?" + q.Encode()
}
