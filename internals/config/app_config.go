package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	ServerPort         string
	NBGAPIURL          string
	HTTPTimeout        time.Duration
	WarmupInterval     time.Duration
	LogLevel           string
	PreferencesEnabled bool
	PreferencesBackend string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	DefaultFrom        string
	DefaultTo          string
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("NBG_API_URL", "https://nbg.gov.ge/gw/api/ct/monetarypolicy/currencies/en/json/")
	v.SetDefault("HTTP_TIMEOUT", "30s")
	v.SetDefault("WARMUP_INTERVAL", "1h")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("PREFERENCES_ENABLED", true)
	v.SetDefault("PREFERENCES_BACKEND", "memory")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DEFAULT_FROM", "USD")
	v.SetDefault("DEFAULT_TO", "GEL")

	v.AutomaticEnv()

	httpTimeout, err := time.ParseDuration(v.GetString("HTTP_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	warmup, err := time.ParseDuration(v.GetString("WARMUP_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("invalid WARMUP_INTERVAL: %w", err)
	}
	if warmup <= 0 {
		return nil, fmt.Errorf("WARMUP_INTERVAL must be positive")
	}

	cfg := &Config{
		ServerPort:         v.GetString("SERVER_PORT"),
		NBGAPIURL:          v.GetString("NBG_API_URL"),
		HTTPTimeout:        httpTimeout,
		WarmupInterval:     warmup,
		LogLevel:           v.GetString("LOG_LEVEL"),
		PreferencesEnabled: v.GetBool("PREFERENCES_ENABLED"),
		PreferencesBackend: strings.ToLower(strings.TrimSpace(v.GetString("PREFERENCES_BACKEND"))),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),
		DefaultFrom:        strings.ToUpper(strings.TrimSpace(v.GetString("DEFAULT_FROM"))),
		DefaultTo:          strings.ToUpper(strings.TrimSpace(v.GetString("DEFAULT_TO"))),
	}

	switch cfg.PreferencesBackend {
	case "redis", "memory":
	default:
		return nil, fmt.Errorf("PREFERENCES_BACKEND must be redis or memory, got %q", cfg.PreferencesBackend)
	}

	return cfg, nil
}

// NewLogger builds a production zap logger at the given level; unknown levels mean info.
func NewLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}
