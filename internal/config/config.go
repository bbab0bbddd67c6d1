package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	S3        S3Config
	Redis     RedisConfig
	Telegram  TelegramConfig
	Promotion PromotionConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" env-default:"8080"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Driver          string `env:"STORE_DRIVER" env-default:"postgres" env-description:"postgres or memory"`
	Host            string `env:"DB_HOST" env-default:"localhost"`
	Port            int    `env:"DB_PORT" env-default:"5432"`
	User            string `env:"DB_USER" env-default:"postgres"`
	Password        string `env:"DB_PASSWORD"`
	Database        string `env:"DB_NAME" env-default:"homestay"`
	MaxConnections  int    `env:"DB_MAX_CONNECTIONS" env-default:"25"`
	MinConnections  int    `env:"DB_MIN_CONNECTIONS" env-default:"5"`
	MaxConnLifetime int    `env:"DB_MAX_CONN_LIFETIME" env-default:"300" env-description:"seconds"`
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"json" env-description:"json or console"`
}

// AuthConfig holds authentication configuration for operator routes.
type AuthConfig struct {
	APIKey string `env:"API_KEY"`
}

// S3Config holds AWS S3 configuration for reserved code files.
type S3Config struct {
	Enabled bool   `env:"S3_ENABLED" env-default:"false"`
	Bucket  string `env:"S3_BUCKET"`
	Region  string `env:"S3_REGION" env-default:"us-east-1"`
	Prefix  string `env:"S3_PREFIX" env-default:"reserved-codes/"`
}

// RedisConfig holds the event publisher connection. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
	Channel  string `env:"REDIS_CHANNEL" env-default:"promotions"`
}

// TelegramConfig holds operator alert settings. An empty Token disables it.
type TelegramConfig struct {
	Token  string `env:"TELEGRAM_TOKEN"`
	ChatID int64  `env:"TELEGRAM_CHAT_ID"`
}

// PromotionConfig holds voucher engine tunables.
type PromotionConfig struct {
	MaxDurationMinutes     int           `env:"PROMO_MAX_DURATION_MINUTES" env-default:"60"`
	ClaimedVoucherValidity time.Duration `env:"PROMO_CLAIMED_VOUCHER_VALIDITY" env-default:"720h"`
	CodeLength             int           `env:"PROMO_CODE_LENGTH" env-default:"8"`
	CodePrefix             string        `env:"PROMO_CODE_PREFIX"`
	CodeAttempts           int           `env:"PROMO_CODE_ATTEMPTS" env-default:"5"`
	MaxRetries             int           `env:"PROMO_MAX_RETRIES" env-default:"3"`
	OperationTimeout       time.Duration `env:"PROMO_OPERATION_TIMEOUT" env-default:"10s"`
	ReservedCodeFiles      []string      `env:"PROMO_RESERVED_CODE_FILES" env-separator:","`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		desc, _ := cleanenv.GetDescription(cfg, nil)
		return nil, fmt.Errorf("failed to read environment: %w; %s", err, desc)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case StoreMemory:
	case StorePostgres:
		if err := c.Database.validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid store driver: %s (must be postgres or memory)", c.Database.Driver)
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram chat id is required when a telegram token is set")
	}

	return c.Promotion.validate()
}

func (c *DatabaseConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Port)
	}

	if c.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.MinConnections > c.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	return nil
}

func (c *PromotionConfig) validate() error {
	if c.MaxDurationMinutes < 1 {
		return fmt.Errorf("promotion max duration must be at least 1 minute")
	}
	if c.ClaimedVoucherValidity <= 0 {
		return fmt.Errorf("claimed voucher validity must be positive")
	}
	if c.CodeLength < 4 {
		return fmt.Errorf("promotion code length must be at least 4")
	}
	if c.CodeAttempts < 1 {
		return fmt.Errorf("promotion code attempts must be at least 1")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("promotion max retries cannot be negative")
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("operation timeout must be positive")
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
