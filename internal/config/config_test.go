package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "")
	t.Setenv("SESSION_TTL", "")

	cfg := New()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:5000/api", cfg.UpstreamBaseURL)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "INR", cfg.DefaultCurrency)
	assert.Equal(t, int64(200*1024*1024), cfg.MaxUploadBytes())
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "https://api.example.com/v2/")
	t.Setenv("UPSTREAM_CLIENT_ID", "dashboard")
	t.Setenv("UPSTREAM_TIMEOUT", "5s")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("DEFAULT_CURRENCY", "usd")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("RATE_LIMIT_DURATION", "not-a-duration")

	cfg := New()
	assert.Equal(t, "https://api.example.com/v2", cfg.UpstreamBaseURL)
	assert.Equal(t, "dashboard", cfg.UpstreamClientID)
	assert.Equal(t, 5*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, time.Minute, cfg.RateLimitDuration)
}
