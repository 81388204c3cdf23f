package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/kapu/cashier-dialog-gen/internal/constants"
	"github.com/kapu/cashier-dialog-gen/pkg/errors"
)

// Provider names accepted in API_PROVIDER.
const (
	ProviderOllama = "ollama"
	ProviderGroq   = "groq"
	ProviderZai    = "zai"
	ProviderGemini = "gemini"
)

type Config struct {
	API      APIConfig
	Pipeline PipelineConfig
	Logging  LoggingConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	S3       S3Config
	Metrics  MetricsConfig
}

type APIConfig struct {
	Provider       string `validate:"required,oneof=ollama groq zai gemini"`
	Model          string `validate:"required"`
	OllamaURL      string
	GroqKey        string
	GroqURL        string
	ZaiKey         string
	ZaiURL         string
	GeminiKey      string
	DelayAfterCall time.Duration `validate:"gte=0"`
}

type PipelineConfig struct {
	MenuPath         string  `validate:"required"`
	DialogsDir       string  `validate:"required"`
	RegProfilesPath  string  `validate:"required"`
	MaxTurns         int     `validate:"gte=2,lte=200"`
	CalorieThreshold float64 `validate:"gte=0,lte=1"`
	Seed             uint64
}

type LoggingConfig struct {
	Level string `validate:"omitempty,oneof=debug info warn error"`
	File  string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type PostgresConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type S3Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string
}

// Enabled reports whether an export bucket is configured.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

type MetricsConfig struct {
	File string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		API: APIConfig{
			Provider:       strings.ToLower(getEnv("API_PROVIDER", ProviderOllama)),
			Model:          getEnv("API_MODEL", "qwen3:1.7b"),
			OllamaURL:      getEnv("OLLAMA_URL", "http://localhost:11434/v1"),
			GroqKey:        getEnv("GROQ_API_KEY", ""),
			GroqURL:        getEnv("GROQ_URL", "https://api.groq.com/openai/v1"),
			ZaiKey:         getEnv("ZAI_API_KEY", ""),
			ZaiURL:         getEnv("ZAI_API_URL", "https://api.z.ai/api/paas/v4"),
			GeminiKey:      getEnv("GEMINI_API_KEY", ""),
			DelayAfterCall: time.Duration(getEnvInt("DELAY_AFTER_CALL_MS", int(constants.DialogueDefaults.DelayAfterCall/time.Millisecond))) * time.Millisecond,
		},
		Pipeline: PipelineConfig{
			MenuPath:         getEnv("MENU_PATH", "mcd.csv"),
			DialogsDir:       getEnv("DIALOGS_DIR", "data/dialogs"),
			RegProfilesPath:  getEnv("REG_PROFILES_PATH", "data/reg_profiles.txt"),
			MaxTurns:         getEnvInt("MAX_TURNS", constants.DialogueDefaults.MaxTurns),
			CalorieThreshold: getEnvFloat("CALORIE_THRESHOLD", constants.DialogueDefaults.CalorieThreshold),
			Seed:             uint64(getEnvInt("RANDOM_SEED", 0)),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Postgres: PostgresConfig{
			Enabled:  getEnvBool("POSTGRES_ENABLED", false),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "dialoggen"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DB", "dialoggen"),
		},
		S3: S3Config{
			Bucket:   getEnv("S3_BUCKET", ""),
			Prefix:   getEnv("S3_PREFIX", "dialogs/"),
			Region:   getEnv("S3_REGION", "us-east-1"),
			Endpoint: getEnv("S3_ENDPOINT", ""),
		},
		Metrics: MetricsConfig{
			File: getEnv("METRICS_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.NewConfigurationError(err.Error(), "")
	}

	switch c.API.Provider {
	case ProviderOllama:
		if c.API.OllamaURL == "" {
			return errors.NewConfigurationError("OLLAMA_URL is required for provider ollama", "OLLAMA_URL")
		}
	case ProviderGroq:
		if c.API.GroqKey == "" {
			return errors.NewConfigurationError("GROQ_API_KEY is required for provider groq", "GROQ_API_KEY")
		}
		if c.API.GroqURL == "" {
			return errors.NewConfigurationError("GROQ_URL is required for provider groq", "GROQ_URL")
		}
	case ProviderZai:
		if c.API.ZaiKey == "" {
			return errors.NewConfigurationError("ZAI_API_KEY is required for provider zai", "ZAI_API_KEY")
		}
		if c.API.ZaiURL == "" {
			return errors.NewConfigurationError("ZAI_API_URL is required for provider zai", "ZAI_API_URL")
		}
	case ProviderGemini:
		if c.API.GeminiKey == "" {
			return errors.NewConfigurationError("GEMINI_API_KEY is required for provider gemini", "GEMINI_API_KEY")
		}
	}
	return nil
}

// RateLimited reports whether the configured provider is a metered cloud API.
func (c APIConfig) RateLimited() bool {
	return c.Provider != ProviderOllama
}

// DSN builds the lib/pq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

// Addr returns host:port for go-redis.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
