package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Port           string        `mapstructure:"port"`
	LogLevel       string        `mapstructure:"log_level"`
	BackendURL     string        `mapstructure:"backend_url"`
	BackendTimeout time.Duration `mapstructure:"backend_timeout"`

	SessionKey    string `mapstructure:"session_key"`
	SecureCookies bool   `mapstructure:"secure_cookies"`
	TokenKey      string `mapstructure:"token_key"`

	StoreDriver   string `mapstructure:"store_driver"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	DBConn        string `mapstructure:"db_conn"`

	AIProvider   string `mapstructure:"ai_provider"`
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	GeminiModel  string `mapstructure:"gemini_model"`

	SweepSchedule string `mapstructure:"sweep_schedule"`

	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     string `mapstructure:"smtp_port"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
	SenderEmail  string `mapstructure:"sender_email"`

	DefaultMean  float64 `mapstructure:"default_mean"`
	DefaultStd   float64 `mapstructure:"default_std"`
	DefaultPaths int     `mapstructure:"default_paths"`
}

// Store drivers
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// AI providers
const (
	AIBackend = "backend"
	AIGemini  = "gemini"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("backend_url", "http://127.0.0.1:8000")
	v.SetDefault("backend_timeout", "30s")
	v.SetDefault("session_key", "finsight-dev-session-key-change-me")
	v.SetDefault("secure_cookies", false)
	v.SetDefault("token_key", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6")
	v.SetDefault("store_driver", StoreMemory)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("db_conn", "host=localhost port=5432 user=finsight password=finsight dbname=finsight sslmode=disable")
	v.SetDefault("ai_provider", AIBackend)
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", "gemini-2.0-flash")
	v.SetDefault("sweep_schedule", "@every 5m")
	v.SetDefault("smtp_host", "")
	v.SetDefault("smtp_port", "587")
	v.SetDefault("smtp_username", "")
	v.SetDefault("smtp_password", "")
	v.SetDefault("sender_email", "")
	v.SetDefault("default_mean", 0.08)
	v.SetDefault("default_std", 0.15)
	v.SetDefault("default_paths", 1000)
}

// NewConfig loads configuration from .env, an optional config.yaml and environment variables
func NewConfig() (*Config, error) {
	_ = godotenv.Load()
	return Load(viper.New())
}

// Load reads configuration through the given viper instance
func Load(v *viper.Viper) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and enumerations
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	if c.SessionKey == "" {
		return fmt.Errorf("SESSION_KEY is required")
	}
	if _, err := c.TokenKeyBytes(); err != nil {
		return err
	}
	switch c.StoreDriver {
	case StoreMemory, StoreRedis:
	case StorePostgres:
		if c.DBConn == "" {
			return fmt.Errorf("DB_CONN is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.AIProvider {
	case AIBackend, AIGemini:
	default:
		return fmt.Errorf("unknown AI_PROVIDER %q", c.AIProvider)
	}
	if c.DefaultPaths < 1 {
		return fmt.Errorf("DEFAULT_PATHS must be positive, got %d", c.DefaultPaths)
	}
	if c.DefaultStd < 0 {
		return fmt.Errorf("DEFAULT_STD must not be negative, got %f", c.DefaultStd)
	}
	return nil
}

// TokenKeyBytes decodes TOKEN_KEY into a 32-byte sealing key
func (c *Config) TokenKeyBytes() ([32]byte, error) {
	var key [32]byte
	raw, err := hex.DecodeString(c.TokenKey)
	if err != nil {
		return key, fmt.Errorf("TOKEN_KEY must be hex: %w", err)
	}
	if len(raw) != len(key) {
		return key, fmt.Errorf("TOKEN_KEY must be 32 bytes, got %d", len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

// MailEnabled reports whether SMTP settings are complete
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.SenderEmail != ""
}
