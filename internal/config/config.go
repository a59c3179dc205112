package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the configuration for the recommender service
type Config struct {
	Catalog CatalogConfig
	Ranking RankingConfig
	Server  ServerConfig
	Log     LogConfig
}

// CatalogConfig describes where the product catalog comes from
type CatalogConfig struct {
	Path          string
	URL           string
	Watch         bool
	WatchDebounce time.Duration
	FetchTimeout  time.Duration
	FetchRetries  int
	FetchBackoff  time.Duration
	UserAgent     string
}

// RankingConfig holds vectorizer and ranker tuning
type RankingConfig struct {
	DefaultK       int
	MaxK           int
	SampleSize     int
	MinTokenLength int
	Workers        int
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Path:          GetStringEnv("CATALOG_PATH", "clothes.csv"),
			URL:           GetStringEnv("CATALOG_URL", ""),
			Watch:         GetBoolEnv("CATALOG_WATCH", false),
			WatchDebounce: GetDurationEnv("CATALOG_WATCH_DEBOUNCE", 500*time.Millisecond),
			FetchTimeout:  GetDurationEnv("CATALOG_FETCH_TIMEOUT", 30*time.Second),
			FetchRetries:  GetIntEnv("CATALOG_FETCH_RETRIES", 3),
			FetchBackoff:  GetDurationEnv("CATALOG_FETCH_BACKOFF", 500*time.Millisecond),
			UserAgent:     GetStringEnv("CATALOG_USER_AGENT", "Product-Recommender/1.0"),
		},
		Ranking: RankingConfig{
			DefaultK:       GetIntEnv("RANKING_DEFAULT_K", 10),
			MaxK:           GetIntEnv("RANKING_MAX_K", 100),
			SampleSize:     GetIntEnv("RANKING_SAMPLE_SIZE", 5),
			MinTokenLength: GetIntEnv("RANKING_MIN_TOKEN_LENGTH", 2),
			Workers:        GetIntEnv("RANKING_WORKERS", 0),
		},
		Server: ServerConfig{
			Addr:            GetStringEnv("SERVER_ADDR", ":9090"),
			ReadTimeout:     GetDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    GetDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: GetDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Log: LogConfig{
			Level:  GetStringEnv("LOG_LEVEL", "info"),
			Format: GetStringEnv("LOG_FORMAT", "text"),
		},
	}
}

// CatalogLocation returns the URL when one is configured, otherwise the file path
func (c CatalogConfig) CatalogLocation() string {
	if c.URL != "" {
		return c.URL
	}
	return c.Path
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
