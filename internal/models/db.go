package models

import (
	"context"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/releasedesk/backend/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormWriter sends gorm's SQL log through apex/log
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	log.WithField("component", "gorm").Debugf(format, args...)
}

func postgresDSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode, cfg.DBTimeZone)
}

func gormLogLevel(env string) logger.LogLevel {
	if env == "production" {
		return logger.Error
	}
	return logger.Warn
}

// InitDB opens the postgres database holding the submission log
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(postgresDSN(cfg)), &gorm.Config{
		Logger: logger.New(gormWriter{}, logger.Config{
			SlowThreshold:             cfg.DBSlowQuery,
			LogLevel:                  gormLogLevel(cfg.Env),
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "connect to %s:%s/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get database handle")
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxOpenConns / 2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.WithField("db", cfg.DBName).Info("database connection established")
	return db, nil
}

// InitRedis connects to the redis holding sessions, wizard state and rate limits
func InitRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "ping redis at %s", client.Options().Addr)
	}

	log.WithField("addr", client.Options().Addr).Info("redis connection established")
	return client, nil
}
