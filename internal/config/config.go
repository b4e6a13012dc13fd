// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configuration errors.
var (
	ErrMissingToken       = errors.New("bot token is required (BOT_TOKEN)")
	ErrMissingDatabaseURL = errors.New("database connection string is required (DATABASE_URL)")
	ErrUnknownBackend     = errors.New("unknown pending backend")
)

// Pending roll storage backends.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// DefaultDatabaseName is used only when neither database.name nor the
// connection string names a database.
const DefaultDatabaseName = "waifu_catcher_db"

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Pending   PendingConfig   `mapstructure:"pending"`
	Gacha     GachaConfig     `mapstructure:"gacha"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token          string        `mapstructure:"token"`
	PollTimeout    time.Duration `mapstructure:"poll_timeout"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig holds Redis connection configuration for the redis pending backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PendingConfig selects where pending rolls live.
type PendingConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// GachaConfig holds roll configuration.
type GachaConfig struct {
	CooldownSeconds int `mapstructure:"cooldown_seconds"`
}

// CatalogConfig holds catalog seeding configuration.
type CatalogConfig struct {
	SeedFile string `mapstructure:"seed_file"`
}

// MetricsConfig holds the prometheus endpoint configuration.
// An empty Addr disables the endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// Cooldown returns the roll cooldown as a duration.
func (g GachaConfig) Cooldown() time.Duration {
	return time.Duration(g.CooldownSeconds) * time.Second
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. BOT_TOKEN, DATABASE_URL, GACHA_COOLDOWN_SECONDS.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	// Config file is optional, env vars can provide all config.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// bindLegacyEnv maps the short variable names used by earlier deployments
// (TOKEN, DB_NAME, COOLDOWN) onto the structured keys.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"bot.token":              {"BOT_TOKEN", "TOKEN"},
		"database.url":           {"DATABASE_URL", "DATABASE_URI"},
		"database.name":          {"DATABASE_NAME", "DB_NAME"},
		"gacha.cooldown_seconds": {"GACHA_COOLDOWN_SECONDS", "COOLDOWN"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.poll_timeout", "10s")
	v.SetDefault("bot.command_timeout", "10s")

	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("pending.backend", BackendPostgres)
	v.SetDefault("pending.ttl", "0s")

	v.SetDefault("gacha.cooldown_seconds", 15)
	v.SetDefault("catalog.seed_file", "waifus.json")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("log.level", "info")

	v.SetDefault("admin.ids", []int64{})
	v.SetDefault("whitelist.chats", []int64{})
}

// Validate checks the required settings. A validation error is fatal at startup.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return ErrMissingToken
	}
	if c.Database.URL == "" {
		return ErrMissingDatabaseURL
	}
	switch c.Pending.Backend {
	case BackendPostgres, BackendRedis:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Pending.Backend)
	}
	if c.Gacha.CooldownSeconds < 0 {
		return fmt.Errorf("gacha.cooldown_seconds must not be negative, got %d", c.Gacha.CooldownSeconds)
	}
	return nil
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
