package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// StorageDriver выбирает реализацию хранилища.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	MetricsAddr string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool

	KafkaBrokers string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	OutboxRetentionInterval time.Duration
	OutboxRetentionAge      time.Duration
}

// DefaultConfig возвращает конфигурацию для локального запуска:
// in-memory хранилище, без Kafka.
func DefaultConfig() Config {
	return Config{
		MetricsAddr:             ":9090",
		StorageDriver:           StorageDriverMemory,
		PostgresAutoMigrate:     true,
		OutboxPollInterval:      time.Second,
		OutboxBatchSize:         100,
		OutboxMaxAttempts:       3,
		OutboxRetryDelay:        100 * time.Millisecond,
		OutboxRetentionInterval: 10 * time.Minute,
		OutboxRetentionAge:      24 * time.Hour,
	}
}

// ConfigFromEnv собирает конфигурацию из переменных окружения COMMERCE_*,
// отсутствующие значения берутся из DefaultConfig.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	cfg.MetricsAddr = envString("COMMERCE_METRICS_ADDR", cfg.MetricsAddr)
	cfg.PostgresDSN = envString("COMMERCE_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.PostgresAutoMigrate = envBool("COMMERCE_POSTGRES_AUTO_MIGRATE", cfg.PostgresAutoMigrate)
	cfg.KafkaBrokers = envString("COMMERCE_KAFKA_BROKERS", cfg.KafkaBrokers)

	if driver := envString("COMMERCE_STORAGE_DRIVER", ""); driver != "" {
		cfg.StorageDriver = StorageDriver(strings.ToLower(driver))
	} else if cfg.PostgresDSN != "" {
		// DSN без явного драйвера означает postgres.
		cfg.StorageDriver = StorageDriverPostgres
	}

	cfg.OutboxPollInterval = envDuration("COMMERCE_OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval)
	cfg.OutboxBatchSize = envInt("COMMERCE_OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxMaxAttempts = envInt("COMMERCE_OUTBOX_MAX_ATTEMPTS", cfg.OutboxMaxAttempts)
	cfg.OutboxRetryDelay = envDuration("COMMERCE_OUTBOX_RETRY_DELAY", cfg.OutboxRetryDelay)
	cfg.OutboxRetentionInterval = envDuration("COMMERCE_OUTBOX_RETENTION_INTERVAL", cfg.OutboxRetentionInterval)
	cfg.OutboxRetentionAge = envDuration("COMMERCE_OUTBOX_RETENTION_AGE", cfg.OutboxRetentionAge)

	return cfg
}

func envString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
