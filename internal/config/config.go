package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default upstream endpoints. Overridable for tests and for the day the
// state moves its datasets again.
const (
	defaultCaseDataURL     = "https://opendata.arcgis.com/datasets/566216cf203e400f8cbf2e6b4354bc57_0.geojson"
	defaultVaccineDataURL  = "https://opendata.arcgis.com/datasets/a681d9e9f61144b2977badb89149198c_0.geojson"
	defaultDashboardURL    = "https://covid19.colorado.gov/vaccine-data-dashboard"
	defaultBackfillCaseURL = "https://api.covidtracking.com/v1/states/co"
)

// Config holds all service settings, populated from environment variables.
// One struct serves all three binaries; each validates only what it uses.
type Config struct {
	// Upstream sources.
	CaseDataURL     string
	VaccineDataURL  string
	DashboardURL    string
	BackfillCaseURL string
	FetchTimeout    time.Duration

	// Storage.
	S3Bucket    string
	S3Endpoint  string // optional, for MinIO/localstack style endpoints
	AWSRegion   string
	DatabaseURL string
	BatchSize   int

	// Notifications.
	KafkaBrokers []string
	AlertTopic   string

	// Scheduling.
	ScheduleInterval time.Duration

	// HTTP.
	HTTPAddr        string
	ShutdownTimeout time.Duration

	// API cache.
	CacheTTL           time.Duration
	CacheInvalidateKey string
	CacheInvalidateURL string // ETL-side: API endpoint to poke after a load

	// Logging.
	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment, applying defaults where
// unset. A .env file in the working directory is honored if present.
func Load() (*Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	fetchTimeout, err := envDuration("FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	scheduleInterval, err := envDuration("SCHEDULE_INTERVAL", "1h")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := envDuration("CACHE_TTL", "15m")
	if err != nil {
		return nil, err
	}
	batchSize, err := envInt("DB_BATCH_SIZE", 25)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		CaseDataURL:     envOrDefault("CASE_DATA_URL", defaultCaseDataURL),
		VaccineDataURL:  envOrDefault("VACCINE_DATA_URL", defaultVaccineDataURL),
		DashboardURL:    envOrDefault("DASHBOARD_URL", defaultDashboardURL),
		BackfillCaseURL: envOrDefault("BACKFILL_CASE_URL", defaultBackfillCaseURL),
		FetchTimeout:    fetchTimeout,

		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT_URL"),
		AWSRegion:   envOrDefault("AWS_REGION", "us-east-1"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		BatchSize:   batchSize,

		KafkaBrokers: splitNonEmpty(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		AlertTopic:   envOrDefault("ALERT_TOPIC", "covid-data-alerts"),

		ScheduleInterval: scheduleInterval,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		ShutdownTimeout: shutdownTimeout,

		CacheTTL:           cacheTTL,
		CacheInvalidateKey: os.Getenv("CACHE_INVALIDATE_KEY"),
		CacheInvalidateURL: os.Getenv("CACHE_INVALIDATE_URL"),

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "json"),
	}

	if batchSize <= 0 {
		return nil, errors.New("DB_BATCH_SIZE must be positive")
	}

	return cfg, nil
}

// ValidatePipeline checks the settings the ingestion service cannot run without.
func (c *Config) ValidatePipeline() error {
	if c.S3Bucket == "" {
		return errors.New("S3_BUCKET is required")
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	return nil
}

// ValidateAPI checks the settings the API server cannot run without.
func (c *Config) ValidateAPI() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.CacheInvalidateKey == "" {
		return errors.New("CACHE_INVALIDATE_KEY is required")
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
