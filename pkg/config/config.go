package config

import (
	"fmt"
	"time"

	appredis "github.com/kitwiz/miniapp-backend/pkg/redis"
)

// Config holds runtime configuration for the kitwiz backend.
type Config struct {
	AppEnv   string         `mapstructure:"app_env"`
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Bot      BotConfig      `mapstructure:"bot" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	I18n     I18nConfig     `mapstructure:"i18n"`
	Chat     ChatConfig     `mapstructure:"chat"`
}

// ServerConfig configures the public HTTP listener.
type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig describes the PostgreSQL connection.
type DatabaseConfig struct {
	Host         string `mapstructure:"host" validate:"required"`
	Port         string `mapstructure:"port" validate:"required"`
	User         string `mapstructure:"user" validate:"required"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name" validate:"required"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	Migrate      bool   `mapstructure:"migrate"`
}

// RedisConfig toggles the optional Redis-backed caches.
type RedisConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	appredis.Config `mapstructure:",squash"`
}

// BotConfig configures the Telegram bot and mini-app links.
type BotConfig struct {
	Token      string `mapstructure:"token" validate:"required"`
	WebhookURL string `mapstructure:"webhook_url" validate:"omitempty,url"`
	WebAppURL  string `mapstructure:"webapp_url" validate:"omitempty,url"`
	SetWebhook bool   `mapstructure:"set_webhook"`
	// WebhookSecret, when set, must match the X-Telegram-Bot-Api-Secret-Token header of webhook calls.
	WebhookSecret string `mapstructure:"webhook_secret"`
	// APIURL overrides the Bot API endpoint, e.g. for a self-hosted bot API server.
	APIURL string `mapstructure:"api_url" validate:"omitempty,url"`
}

// AuthConfig configures init-data validation.
type AuthConfig struct {
	// InitDataTTL bounds the age of init-data payloads. Zero disables the check.
	InitDataTTL time.Duration `mapstructure:"init_data_ttl"`
}

// LoggerConfig configures structured logging.
type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"omitempty,oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SentryConfig configures error reporting.
type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// I18nConfig selects the fallback language for user-facing messages.
type I18nConfig struct {
	DefaultLang string `mapstructure:"default_lang"`
}

// ChatConfig tunes chat rendering.
type ChatConfig struct {
	// Timezone is the IANA zone used to render HH:MM message times.
	Timezone string `mapstructure:"timezone"`
}

// GetDBConnectionString returns PostgreSQL DSN based on config values.
func (c *Config) GetDBConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		sslMode,
	)
}

// Location resolves the chat timezone, falling back to UTC.
func (c ChatConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}

	return loc
}
