package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port        string
	Env         string
	APIUrl      string
	FrontendURL string

	// Remote distribution API
	UpstreamBaseURL  string
	UpstreamClientID string
	UpstreamTimeout  time.Duration

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBTimeZone string

	// Pool size; the audit log is the only table
	DBMaxOpenConns int
	DBSlowQuery    time.Duration

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// JWT
	JWTSecret               string
	JWTSessionTokenDuration time.Duration
	JWTRefreshTokenDuration time.Duration

	// Sessions hold the upstream token and wizard state
	SessionTTL      time.Duration
	SessionLockTTL  time.Duration
	DefaultCurrency string

	// Staging S3 for artwork, audio and KYC documents
	MediaS3Endpoint        string
	MediaS3Region          string
	MediaS3AccessKeyID     string
	MediaS3SecretAccessKey string
	MediaS3UsePathStyle    bool
	StagingBucket          string

	// Uploads
	MaxUploadMB       int
	UploadMaxPerDay   int
	AudioProbeEnabled bool

	// Security
	RateLimitRequests int
	RateLimitDuration time.Duration

	// Release submissions per user within a window before blocking
	SubmissionRateLimitActions       int
	SubmissionRateLimitWindowMinutes int

	// CORS
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

func New() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		APIUrl:      getEnv("API_URL", "http://localhost:8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		// Remote distribution API
		UpstreamBaseURL:  strings.TrimRight(getEnv("UPSTREAM_BASE_URL", "http://localhost:5000/api"), "/"),
		UpstreamClientID: getEnv("UPSTREAM_CLIENT_ID", ""),
		UpstreamTimeout:  getEnvAsDuration("UPSTREAM_TIMEOUT", "30s"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "releasedesk"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "releasedesk_db"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),
		DBTimeZone: getEnv("DB_TIMEZONE", "Asia/Kolkata"),

		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		DBSlowQuery:    getEnvAsDuration("DB_SLOW_QUERY", "500ms"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// JWT
		JWTSecret:               getEnv("JWT_SECRET", "your-secret-key"),
		JWTSessionTokenDuration: getEnvAsDuration("JWT_SESSION_TOKEN_DURATION", "1h"),
		JWTRefreshTokenDuration: getEnvAsDuration("JWT_REFRESH_TOKEN_DURATION", "24h"),

		// Sessions
		SessionTTL:      getEnvAsDuration("SESSION_TTL", "24h"),
		SessionLockTTL:  getEnvAsDuration("SESSION_LOCK_TTL", "2m"),
		DefaultCurrency: strings.ToUpper(getEnv("DEFAULT_CURRENCY", "INR")),

		// Staging S3
		MediaS3Endpoint:        getEnv("MEDIA_S3_ENDPOINT", ""),
		MediaS3Region:          getEnv("MEDIA_S3_REGION", "us-east-1"),
		MediaS3AccessKeyID:     getEnv("MEDIA_S3_ACCESS_KEY_ID", ""),
		MediaS3SecretAccessKey: getEnv("MEDIA_S3_SECRET_ACCESS_KEY", ""),
		MediaS3UsePathStyle:    getEnv("MEDIA_S3_USE_PATH_STYLE", "true") == "true",
		StagingBucket:          getEnv("STAGING_BUCKET", "releasedesk-staging"),

		// Uploads
		MaxUploadMB:       getEnvAsInt("MAX_UPLOAD_MB", 200),
		UploadMaxPerDay:   getEnvAsInt("UPLOAD_MAX_PER_DAY", 100),
		AudioProbeEnabled: getEnv("AUDIO_PROBE_ENABLED", "false") == "true",

		// Security
		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitDuration: getEnvAsDuration("RATE_LIMIT_DURATION", "1m"),

		SubmissionRateLimitActions:       getEnvAsInt("SUBMISSION_RATE_LIMIT_ACTIONS", 10),
		SubmissionRateLimitWindowMinutes: getEnvAsInt("SUBMISSION_RATE_LIMIT_WINDOW_MINUTES", 10),

		// CORS
		AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		AllowedMethods: getEnvAsSlice("ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		AllowedHeaders: getEnvAsSlice("ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
	}
}

// MaxUploadBytes returns the upload size limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	if duration, err := time.ParseDuration(defaultValue); err == nil {
		return duration
	}
	return time.Hour
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
