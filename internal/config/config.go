package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Store backends accepted by STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// DefaultFeedURL is the public observations endpoint of the Estonian Environment Agency.
const DefaultFeedURL = "https://www.ilmateenistus.ee/ilma_andmed/xml/observations.php"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Weather feed and ingestion.
	WeatherFeedURL      string
	WeatherFeedTimeout  time.Duration
	WeatherFeedLocation *time.Location
	IngestSchedule      string

	// Fee rules file; empty selects the built-in rules.
	FeeRulesFile string

	// Observation store.
	StoreBackend   string
	StoreCacheSize int
	SQLitePath     string
	PostgresDSN    string
	RedisAddr      string

	// Optional observation publishing.
	KafkaEnabled           bool
	KafkaBrokers           []string
	KafkaObservationsTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	feedTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("WEATHER_FEED_TIMEOUT", "10s"))
	if err != nil || feedTimeout <= 0 {
		return nil, errors.New("invalid WEATHER_FEED_TIMEOUT")
	}

	loc := time.Local
	if name := os.Getenv("WEATHER_FEED_TIMEZONE"); name != "" {
		loc, err = time.LoadLocation(name)
		if err != nil {
			return nil, fmt.Errorf("invalid WEATHER_FEED_TIMEZONE: %w", err)
		}
	}

	cacheSize, err := parsePositiveInt("STORE_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		WeatherFeedURL:      sharedcfg.EnvOrDefault("WEATHER_FEED_URL", DefaultFeedURL),
		WeatherFeedTimeout:  feedTimeout,
		WeatherFeedLocation: loc,
		IngestSchedule:      sharedcfg.EnvOrDefault("INGEST_SCHEDULE", "15 * * * *"),

		FeeRulesFile: os.Getenv("FEE_RULES_FILE"),

		StoreBackend:   strings.ToLower(sharedcfg.EnvOrDefault("STORE_BACKEND", BackendMemory)),
		StoreCacheSize: cacheSize,
		SQLitePath:     sharedcfg.EnvOrDefault("SQLITE_PATH", "data/observations.db"),
		PostgresDSN:    os.Getenv("POSTGRES_DSN"),
		RedisAddr:      sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),

		KafkaEnabled:           os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:           sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaObservationsTopic: sharedcfg.EnvOrDefault("KAFKA_OBSERVATIONS_TOPIC", "weather-observations"),
	}

	if cfg.WeatherFeedURL == "" {
		return nil, errors.New("WEATHER_FEED_URL is required")
	}
	if cfg.IngestSchedule == "" {
		return nil, errors.New("INGEST_SCHEDULE is required")
	}
	switch cfg.StoreBackend {
	case BackendMemory, BackendSQLite, BackendRedis:
	case BackendPostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("STORE_BACKEND is postgres but POSTGRES_DSN is not set")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q (allowed: memory, sqlite, postgres, redis)", cfg.StoreBackend)
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaObservationsTopic == "" {
			return nil, errors.New("KAFKA_OBSERVATIONS_TOPIC is required")
		}
	}

	return cfg, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}
