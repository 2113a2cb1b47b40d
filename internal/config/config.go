package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrInvalidPort        = errors.New("port must be between 1 and 65535")
	ErrInvalidRateLimit   = errors.New("batch rate limit and burst must be positive")
	ErrInvalidDBLogLevel  = errors.New("db log level must be one of silent, error, warn, info")
	ErrInvalidPoolSize    = errors.New("db max open connections must be positive")
)

const (
	DefaultPort           = "5050"
	DefaultBatchRateLimit = 5.0
	DefaultBatchRateBurst = 10
	DefaultSlowQuery      = 100 * time.Millisecond
	DefaultDBLogLevel     = "warn"
	DefaultMaxOpenConns   = 20
)

// Config holds process-wide settings for the server and the CLI.
type Config struct {
	DatabaseURL string   `yaml:"database_url"`
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_allowed_origins"`

	BatchRateLimit float64 `yaml:"batch_rate_limit"` // requests per second
	BatchRateBurst int     `yaml:"batch_rate_burst"`

	DB DBConfig `yaml:"db"`
}

type DBConfig struct {
	SlowQuery    time.Duration `yaml:"slow_query"`
	LogLevel     string        `yaml:"log_level"`
	MaxOpenConns int           `yaml:"max_open_conns"`
}

// LoadFromEnv reads configuration from environment variables, then overlays
// the YAML file named by VALIDATION_CONFIG when set.
//
// Environment variables:
//   - DATABASE_URL: Postgres/PostGIS DSN (required)
//   - PORT: HTTP listen port (default: 5050)
//   - CORS_ALLOWED_ORIGINS: comma-separated origin allow-list
//   - BATCH_RATE_LIMIT: batch requests per second (default: 5)
//   - BATCH_RATE_BURST: batch burst size (default: 10)
//   - DB_SLOW_QUERY_MS: slow query log threshold (default: 100)
//   - DB_LOG_LEVEL: silent, error, warn or info (default: warn)
//   - DB_MAX_OPEN_CONNS: connection pool size (default: 20)
func LoadFromEnv() (Config, error) {
	cfg := Config{
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		Port:           getenvDefault("PORT", DefaultPort),
		CORSOrigins:    splitCSV(os.Getenv("CORS_ALLOWED_ORIGINS")),
		BatchRateLimit: getenvFloatDefault("BATCH_RATE_LIMIT", DefaultBatchRateLimit),
		BatchRateBurst: getenvIntDefault("BATCH_RATE_BURST", DefaultBatchRateBurst),
		DB: DBConfig{
			SlowQuery:    time.Duration(getenvIntDefault("DB_SLOW_QUERY_MS", int(DefaultSlowQuery/time.Millisecond))) * time.Millisecond,
			LogLevel:     strings.ToLower(getenvDefault("DB_LOG_LEVEL", DefaultDBLogLevel)),
			MaxOpenConns: getenvIntDefault("DB_MAX_OPEN_CONNS", DefaultMaxOpenConns),
		},
	}

	if path := strings.TrimSpace(os.Getenv("VALIDATION_CONFIG")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate checks the settings needed to serve requests.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return ErrInvalidPort
	}
	if c.BatchRateLimit <= 0 || c.BatchRateBurst <= 0 {
		return ErrInvalidRateLimit
	}
	switch c.DB.LogLevel {
	case "silent", "error", "warn", "info":
	default:
		return ErrInvalidDBLogLevel
	}
	if c.DB.MaxOpenConns <= 0 {
		return ErrInvalidPoolSize
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
