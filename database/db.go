package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tweetube/config"
	"tweetube/logger"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB
var RedisClient *redis.Client

func DSN(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=UTC",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.Charset)
}

// GormLogLevel maps the application log level onto GORM's. SQL statements
// are only traced at debug.
func GormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "trace":
		return gormlogger.Info
	case "warn", "warning":
		return gormlogger.Warn
	case "error", "fatal", "panic":
		return gormlogger.Error
	case "disabled":
		return gormlogger.Silent
	}
	return gormlogger.Warn
}

func InitMySQL(cfg *config.DatabaseConfig, logLevel string) error {
	var err error
	DB, err = gorm.Open(mysql.Open(DSN(cfg)), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(GormLogLevel(logLevel)),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return fmt.Errorf("connect mysql: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	logger.With("database").Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("mysql connected")
	return nil
}

// InitRedis leaves RedisClient nil when redis is disabled; callers fall back
// to the no-op lock and cache.
func InitRedis(ctx context.Context, cfg *config.RedisConfig) error {
	if !cfg.Enabled {
		logger.With("database").Info().Msg("redis disabled")
		return nil
	}

	RedisClient = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := RedisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	logger.With("database").Info().Str("host", cfg.Host).Int("db", cfg.DB).Msg("redis connected")
	return nil
}

func Close() {
	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if RedisClient != nil {
		_ = RedisClient.Close()
	}
}
