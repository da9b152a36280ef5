package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bivex/paywall-purchases/internal/domain/valueobject"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Purchases PurchasesConfig
	Redis     RedisConfig
	Sentry    SentryConfig
	Metrics   MetricsConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// PurchasesConfig holds the native SDK setup parameters
type PurchasesConfig struct {
	APIKey                   string
	AppUserID                string
	ObserverMode             bool
	Platform                 valueobject.Platform
	DebugLogs                bool
	AllowSharingStoreAccount bool
	FinishTransactions       bool
}

// RedisConfig holds Redis configuration. Redis is optional; an empty URL
// disables the Redis event source and rate limiting.
type RedisConfig struct {
	URL           string
	Password      string
	PoolSize      int
	MinIdleConns  int
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	PoolTimeout   time.Duration
	ChannelPrefix string
	RateLimit     int
	SnapshotTTL   time.Duration
}

// Enabled reports whether a Redis URL was configured
func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

// SentryConfig holds Sentry configuration
type SentryConfig struct {
	DSN          string
	Environment  string
	Release      string
	FlushTimeout time.Duration
}

// MetricsConfig holds Prometheus configuration
type MetricsConfig struct {
	Enabled   bool
	Path      string
	Namespace string
}

// Load loads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AddConfigPath("../..")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// .env file is optional for production (env vars are used)
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server_port", 8080)
	v.SetDefault("server_read_timeout", 10*time.Second)
	v.SetDefault("server_write_timeout", 10*time.Second)
	v.SetDefault("server_shutdown_timeout", 30*time.Second)

	// Purchases defaults
	v.SetDefault("purchases_platform", string(valueobject.PlatformIOS))
	v.SetDefault("purchases_observer_mode", false)
	v.SetDefault("purchases_debug_logs", false)
	v.SetDefault("purchases_allow_sharing_store_account", false)
	v.SetDefault("purchases_finish_transactions", true)

	// Redis defaults
	v.SetDefault("redis_pool_size", 10)
	v.SetDefault("redis_min_idle_conns", 3)
	v.SetDefault("redis_dial_timeout", 5*time.Second)
	v.SetDefault("redis_read_timeout", 3*time.Second)
	v.SetDefault("redis_write_timeout", 3*time.Second)
	v.SetDefault("redis_pool_timeout", 4*time.Second)
	v.SetDefault("redis_channel_prefix", "purchases")
	v.SetDefault("redis_rate_limit", 30)
	v.SetDefault("redis_snapshot_ttl", 720*time.Hour)

	// Sentry defaults
	v.SetDefault("sentry_environment", "production")
	v.SetDefault("sentry_flush_timeout", 2*time.Second)

	// Metrics defaults
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("metrics_path", "/metrics")
	v.SetDefault("metrics_namespace", "purchases")
}

func fromViper(v *viper.Viper) (*Config, error) {
	platform, err := valueobject.NewPlatform(v.GetString("purchases_platform"))
	if err != nil {
		return nil, fmt.Errorf("PURCHASES_PLATFORM: %w", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:            v.GetInt("server_port"),
			ReadTimeout:     v.GetDuration("server_read_timeout"),
			WriteTimeout:    v.GetDuration("server_write_timeout"),
			ShutdownTimeout: v.GetDuration("server_shutdown_timeout"),
		},
		Purchases: PurchasesConfig{
			APIKey:                   strings.TrimSpace(v.GetString("purchases_api_key")),
			AppUserID:                strings.TrimSpace(v.GetString("purchases_app_user_id")),
			ObserverMode:             v.GetBool("purchases_observer_mode"),
			Platform:                 platform,
			DebugLogs:                v.GetBool("purchases_debug_logs"),
			AllowSharingStoreAccount: v.GetBool("purchases_allow_sharing_store_account"),
			FinishTransactions:       v.GetBool("purchases_finish_transactions"),
		},
		Redis: RedisConfig{
			URL:           v.GetString("redis_url"),
			Password:      v.GetString("redis_password"),
			PoolSize:      v.GetInt("redis_pool_size"),
			MinIdleConns:  v.GetInt("redis_min_idle_conns"),
			DialTimeout:   v.GetDuration("redis_dial_timeout"),
			ReadTimeout:   v.GetDuration("redis_read_timeout"),
			WriteTimeout:  v.GetDuration("redis_write_timeout"),
			PoolTimeout:   v.GetDuration("redis_pool_timeout"),
			ChannelPrefix: v.GetString("redis_channel_prefix"),
			RateLimit:     v.GetInt("redis_rate_limit"),
			SnapshotTTL:   v.GetDuration("redis_snapshot_ttl"),
		},
		Sentry: SentryConfig{
			DSN:          v.GetString("sentry_dsn"),
			Environment:  v.GetString("sentry_environment"),
			Release:      v.GetString("sentry_release"),
			FlushTimeout: v.GetDuration("sentry_flush_timeout"),
		},
		Metrics: MetricsConfig{
			Enabled:   v.GetBool("metrics_enabled"),
			Path:      v.GetString("metrics_path"),
			Namespace: v.GetString("metrics_namespace"),
		},
	}, nil
}

func validate(cfg *Config) error {
	if cfg.Purchases.APIKey == "" {
		return fmt.Errorf("PURCHASES_API_KEY is required")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Redis.Enabled() && cfg.Redis.RateLimit <= 0 {
		return fmt.Errorf("REDIS_RATE_LIMIT must be positive")
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("METRICS_PATH must start with /")
	}
	return nil
}
