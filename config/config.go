package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server          ServerConfig          `yaml:"server"`
	Database        DatabaseConfig        `yaml:"database"`
	Redis           RedisConfig           `yaml:"redis"`
	JWT             JWTConfig             `yaml:"jwt"`
	Log             LogConfig             `yaml:"log"`
	ChannelDeletion ChannelDeletionConfig `yaml:"channel_deletion"`
	Pagination      PaginationConfig      `yaml:"pagination"`
	Health          HealthCheckConfig     `yaml:"health_check"`
	Metrics         MetricsConfig         `yaml:"metrics"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
	Mode string `yaml:"mode"`
}

type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	Charset      string `yaml:"charset"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret      string `yaml:"secret"`
	ExpireHours int    `yaml:"expire_hours"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// ChannelDeletionConfig tunes the deletion/recovery workflow and its
// background sweeps. Intervals are in seconds.
type ChannelDeletionConfig struct {
	RecoveryWindowDays        int `yaml:"recovery_window_days"`
	SubscriptionBatchSize     int `yaml:"subscription_batch_size"`
	LockTTLSeconds            int `yaml:"lock_ttl_seconds"`
	TombstoneSweepInterval    int `yaml:"tombstone_sweep_interval"`
	SubscriptionRetentionDays int `yaml:"subscription_retention_days"`
	SubscriptionPurgeInterval int `yaml:"subscription_purge_interval"`
	OrphanHistoryInterval     int `yaml:"orphan_history_interval"`
	OrphanHistoryBatch        int `yaml:"orphan_history_batch"`
}

type PaginationConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

type HealthCheckConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

var AppConfig *Config

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	AppConfig = cfg
	return cfg, nil
}

// Parse decodes a YAML document and fills in defaults. It does not touch AppConfig.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Charset == "" {
		cfg.Database.Charset = "utf8mb4"
	}
	if cfg.JWT.ExpireHours == 0 {
		cfg.JWT.ExpireHours = 24
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Service == "" {
		cfg.Log.Service = "tweetube"
	}

	cd := &cfg.ChannelDeletion
	if cd.RecoveryWindowDays <= 0 {
		cd.RecoveryWindowDays = 30
	}
	if cd.SubscriptionBatchSize <= 0 {
		cd.SubscriptionBatchSize = 10000
	}
	if cd.LockTTLSeconds <= 0 {
		cd.LockTTLSeconds = 300
	}
	if cd.TombstoneSweepInterval <= 0 {
		cd.TombstoneSweepInterval = 3600
	}
	if cd.SubscriptionRetentionDays <= 0 {
		cd.SubscriptionRetentionDays = 90
	}
	if cd.SubscriptionPurgeInterval <= 0 {
		cd.SubscriptionPurgeInterval = 24 * 3600
	}
	if cd.OrphanHistoryInterval <= 0 {
		cd.OrphanHistoryInterval = 6 * 3600
	}
	if cd.OrphanHistoryBatch <= 0 {
		cd.OrphanHistoryBatch = 1000
	}

	if cfg.Pagination.DefaultPageSize <= 0 {
		cfg.Pagination.DefaultPageSize = 20
	}
	if cfg.Pagination.MaxPageSize <= 0 {
		cfg.Pagination.MaxPageSize = 100
	}
	if cfg.Health.Endpoint == "" {
		cfg.Health.Endpoint = "/api/health"
	}
	if cfg.Health.TimeoutMs <= 0 {
		cfg.Health.TimeoutMs = 3000
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func (c ChannelDeletionConfig) RecoveryWindow() time.Duration {
	return time.Duration(c.RecoveryWindowDays) * 24 * time.Hour
}

func (c ChannelDeletionConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

func (c ChannelDeletionConfig) SubscriptionRetention() time.Duration {
	return time.Duration(c.SubscriptionRetentionDays) * 24 * time.Hour
}
