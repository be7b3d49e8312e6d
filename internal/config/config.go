package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all ambient settings, populated from environment variables.
// File paths and GEOS-CF templates are command-line flags, not config.
type Config struct {
	LogLevel        string
	LogFormat       string
	MetricsAddr     string // empty disables the /metrics server
	ShutdownTimeout time.Duration

	BatchSize      int
	MinDate        time.Time
	LatencyDays    int
	ModelCacheSize int

	// Optional Kafka sink configuration.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	batchSize, err := parsePositiveInt("BATCH_SIZE", 50)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("MODEL_CACHE_SIZE", 8)
	if err != nil {
		return nil, err
	}

	latencyDays, err := parseNonNegativeInt("LATENCY_DAYS", 3)
	if err != nil {
		return nil, err
	}

	minDateStr := envOrDefault("MIN_DATE", "2020-01-01")
	minDate, err := time.ParseInLocation("2006-01-02", minDateStr, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid MIN_DATE %q: %w", minDateStr, err)
	}

	kafkaEnabled := envOrDefault("KAFKA_ENABLED", "false") == "true"

	cfg := &Config{
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		MetricsAddr:     os.Getenv("METRICS_ADDR"),
		ShutdownTimeout: shutdownTimeout,

		BatchSize:      batchSize,
		MinDate:        minDate,
		LatencyDays:    latencyDays,
		ModelCacheSize: cacheSize,

		KafkaEnabled:   kafkaEnabled,
		KafkaBrokers:   parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "merged-surface-no2"),
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_SINK_TOPIC is empty")
		}
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return n, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return n, nil
}
