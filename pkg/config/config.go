package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Market data source
	Market MarketConfig

	// Scan defaults
	Scan ScanConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// MarketConfig holds market data vendor configuration.
type MarketConfig struct {
	// Provider selects the bar store backend: "postgres" or "http".
	Provider string
	BaseURL  string
	APIKey   string
	// QuotePageURL is the HTML quote page scraped when the JSON endpoint
	// has no data for a session.
	QuotePageURL string
	// RateLimit is the maximum grouped-daily requests per second.
	RateLimit float64
}

// ScanConfig holds default scan parameters.
type ScanConfig struct {
	FetchWorkers  int
	DetectWorkers int
	// SessionTimeout bounds a single session's retrieval.
	SessionTimeout time.Duration
	// Timeout bounds a whole pipeline run.
	Timeout time.Duration
	// BufferSessions is the extra trading sessions fetched beyond the
	// longest lookback window. Over-fetching is harmless; under-fetching
	// starves predicates of history.
	BufferSessions int
	// Holidays are non-trading weekdays, ISO dates.
	Holidays []string
}

// Load reads configuration from environment variables.
// This is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "chartscan"),
			User:            getEnv("DB_USER", "chartscan"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Market: MarketConfig{
			Provider:     getEnv("MARKET_PROVIDER", "postgres"),
			BaseURL:      getEnv("MARKET_BASE_URL", ""),
			APIKey:       getEnv("MARKET_API_KEY", ""),
			QuotePageURL: getEnv("MARKET_QUOTE_PAGE_URL", ""),
			RateLimit:    getEnvAsFloat("MARKET_RATE_LIMIT", 5.0),
		},

		Scan: ScanConfig{
			FetchWorkers:   getEnvAsInt("SCAN_FETCH_WORKERS", 8),
			DetectWorkers:  getEnvAsInt("SCAN_DETECT_WORKERS", 4),
			SessionTimeout: getEnvAsDuration("SCAN_SESSION_TIMEOUT", "30s"),
			Timeout:        getEnvAsDuration("SCAN_TIMEOUT", "10m"),
			BufferSessions: getEnvAsInt("SCAN_BUFFER_SESSIONS", 10),
			Holidays:       getEnvAsList("SCAN_HOLIDAYS", ""),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Market.Provider {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when MARKET_PROVIDER=postgres")
		}
	case "http":
		if c.Market.BaseURL == "" {
			return fmt.Errorf("MARKET_BASE_URL is required when MARKET_PROVIDER=http")
		}
	default:
		return fmt.Errorf("MARKET_PROVIDER must be one of: postgres, http")
	}

	if c.Scan.FetchWorkers < 1 || c.Scan.DetectWorkers < 1 {
		return fmt.Errorf("SCAN_FETCH_WORKERS and SCAN_DETECT_WORKERS must be >= 1")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

func getEnvAsList(key string, defaultValue string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}
	if valueStr == "" {
		return nil
	}

	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
