package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds everything the feed engine processes read from the environment
type Config struct {
	Environment string
	Port        string `validate:"required,numeric"`

	Database DatabaseConfig
	Redis    RedisConfig

	// ImpressionBackend selects where the exposure ledger lives
	ImpressionBackend string `validate:"oneof=postgres redis"`

	Catalog   CatalogConfig
	Throttle  ThrottleConfig
	Similar   SimilarConfig
	Activity  ActivityConfig
	Log       LogConfig
	Telemetry TelemetryConfig

	RequiredServices []string
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	URL string `validate:"required"`
}

// RedisConfig holds the Redis connection settings. Host may be empty when
// Redis is not used.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// Enabled reports whether a Redis host was configured
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// CatalogConfig configures the external media catalog client
type CatalogConfig struct {
	BaseURL           string        `validate:"required,url"`
	APIKey            string
	RequestsPerSecond float64       `validate:"gt=0"`
	Timeout           time.Duration `validate:"gt=0"`
}

// ThrottleConfig holds the default exposure policy
type ThrottleConfig struct {
	MaxImpressions int `validate:"min=1"`
	CooldownDays   int `validate:"min=0"`
}

// SimilarConfig holds the default similar-content ranking options
type SimilarConfig struct {
	MinVoteCount int `validate:"min=1"`
	Limit        int `validate:"min=1"`
	MaxPages     int `validate:"min=1"`
}

// ActivityConfig configures activity grouping
type ActivityConfig struct {
	GroupWindow time.Duration `validate:"gt=0"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level string `validate:"omitempty,oneof=debug info warn warning error"`
	File  string
}

// TelemetryConfig configures OpenTelemetry export
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SamplingRate float64 `validate:"gte=0,lte=1"`
}

// Load reads .env (if present) and the process environment
func Load() (*Config, error) {
	// Missing .env is fine; the process environment still applies
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env
func FromEnv() (*Config, error) {
	cfg := &Config{
		Environment:       getEnvOrDefault("ENVIRONMENT", "development"),
		Port:              getEnvOrDefault("PORT", "8787"),
		Database:          DatabaseConfig{URL: databaseURL()},
		ImpressionBackend: strings.ToLower(getEnvOrDefault("IMPRESSION_BACKEND", "postgres")),
		Redis: RedisConfig{
			Host:     os.Getenv("REDIS_HOST"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Catalog: CatalogConfig{
			BaseURL:           getEnvOrDefault("CATALOG_BASE_URL", "https://api.themoviedb.org/3"),
			APIKey:            os.Getenv("CATALOG_API_KEY"),
			RequestsPerSecond: getEnvFloat("CATALOG_REQUESTS_PER_SECOND", 4),
			Timeout:           getEnvDuration("CATALOG_TIMEOUT", 10*time.Second),
		},
		Throttle: ThrottleConfig{
			MaxImpressions: getEnvInt("THROTTLE_MAX_IMPRESSIONS", 2),
			CooldownDays:   getEnvInt("THROTTLE_COOLDOWN_DAYS", 2),
		},
		Similar: SimilarConfig{
			MinVoteCount: getEnvInt("SIMILAR_MIN_VOTE_COUNT", 50),
			Limit:        getEnvInt("SIMILAR_LIMIT", 10),
			MaxPages:     getEnvInt("SIMILAR_MAX_PAGES", 2),
		},
		Activity: ActivityConfig{
			GroupWindow: getEnvDuration("ACTIVITY_GROUP_WINDOW", 5*time.Minute),
		},
		Log: LogConfig{
			Level: os.Getenv("LOG_LEVEL"),
			File:  os.Getenv("LOG_FILE"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getEnvBool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			SamplingRate: getEnvFloat("OTEL_SAMPLING_RATE", 1.0),
		},
		RequiredServices: splitList(os.Getenv("REQUIRED_SERVICES")),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.ImpressionBackend == "redis" && !cfg.Redis.Enabled() {
		return nil, fmt.Errorf("invalid configuration: IMPRESSION_BACKEND=redis requires REDIS_HOST")
	}
	return cfg, nil
}

// databaseURL prefers DATABASE_URL and falls back to individual components
func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnvOrDefault("DB_HOST", "localhost"),
		getEnvOrDefault("DB_PORT", "5432"),
		getEnvOrDefault("DB_USER", "postgres"),
		os.Getenv("DB_PASSWORD"),
		getEnvOrDefault("DB_NAME", "watchfeed"),
		getEnvOrDefault("DB_SSLMODE", "disable"),
	)
}

// getEnvOrDefault returns environment variable or default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
