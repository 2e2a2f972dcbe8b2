package models

import (
	"testing"

	"github.com/releasedesk/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

func TestPostgresDSN(t *testing.T) {
	cfg := &config.Config{
		DBHost:     "db",
		DBPort:     "5433",
		DBUser:     "desk",
		DBPassword: "pw",
		DBName:     "releasedesk",
		DBSSLMode:  "require",
		DBTimeZone: "UTC",
	}
	assert.Equal(t, "host=db port=5433 user=desk password=pw dbname=releasedesk sslmode=require TimeZone=UTC", postgresDSN(cfg))
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Error, gormLogLevel("production"))
	assert.Equal(t, logger.Warn, gormLogLevel("development"))
}
