package app

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Поддерживаемые драйверы durable-хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска сервиса.
type Config struct {
	HTTPAddr string

	StorageDriver string
	PostgresDSN   string

	StateStoreURL     string
	StateStoreName    string
	StateStoreTimeout time.Duration

	BreakerThreshold    int
	BreakerResetTimeout time.Duration

	StatusMaxRetries int
	StatusRetryDelay time.Duration

	KafkaBrokers    string
	KafkaGroupID    string
	KafkaMaxRetries int

	NotifierBaseURL string

	EventRetention     time.Duration
	EventPruneInterval time.Duration
	EventPruneBatch    int
}

// DefaultConfig возвращает конфигурацию по умолчанию: in-memory хранилище,
// без Kafka и уведомлений.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8080",
		StorageDriver:       StorageDriverMemory,
		StateStoreName:      "cartstore",
		StateStoreTimeout:   3 * time.Second,
		BreakerThreshold:    5,
		BreakerResetTimeout: 30 * time.Second,
		StatusMaxRetries:    3,
		StatusRetryDelay:    100 * time.Millisecond,
		KafkaGroupID:        "pos-core",
		KafkaMaxRetries:     3,
		EventRetention:      14 * 24 * time.Hour,
		EventPruneInterval:  time.Hour,
		EventPruneBatch:     500,
	}
}

// ReadConfigFromEnv читает конфигурацию из переменных окружения POS_*.
// Отсутствующие переменные оставляют значения по умолчанию.
func ReadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.HTTPAddr = envString("POS_HTTP_ADDR", cfg.HTTPAddr)
	cfg.StorageDriver = envString("POS_STORAGE_DRIVER", cfg.StorageDriver)
	cfg.PostgresDSN = envString("POS_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.StateStoreURL = envString("POS_STATESTORE_URL", cfg.StateStoreURL)
	cfg.StateStoreName = envString("POS_STATESTORE_NAME", cfg.StateStoreName)
	cfg.KafkaBrokers = envString("POS_KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaGroupID = envString("POS_KAFKA_GROUP_ID", cfg.KafkaGroupID)
	cfg.NotifierBaseURL = envString("POS_NOTIFIER_URL", cfg.NotifierBaseURL)

	var err error
	if cfg.StateStoreTimeout, err = envDuration("POS_STATESTORE_TIMEOUT", cfg.StateStoreTimeout); err != nil {
		return Config{}, err
	}
	if cfg.BreakerThreshold, err = envInt("POS_BREAKER_THRESHOLD", cfg.BreakerThreshold); err != nil {
		return Config{}, err
	}
	if cfg.BreakerResetTimeout, err = envDuration("POS_BREAKER_RESET_TIMEOUT", cfg.BreakerResetTimeout); err != nil {
		return Config{}, err
	}
	if cfg.StatusMaxRetries, err = envInt("POS_STATUS_MAX_RETRIES", cfg.StatusMaxRetries); err != nil {
		return Config{}, err
	}
	if cfg.StatusRetryDelay, err = envDuration("POS_STATUS_RETRY_DELAY", cfg.StatusRetryDelay); err != nil {
		return Config{}, err
	}
	if cfg.KafkaMaxRetries, err = envInt("POS_KAFKA_MAX_RETRIES", cfg.KafkaMaxRetries); err != nil {
		return Config{}, err
	}
	if cfg.EventRetention, err = envDuration("POS_EVENT_RETENTION", cfg.EventRetention); err != nil {
		return Config{}, err
	}
	if cfg.EventPruneInterval, err = envDuration("POS_EVENT_PRUNE_INTERVAL", cfg.EventPruneInterval); err != nil {
		return Config{}, err
	}
	if cfg.EventPruneBatch, err = envInt("POS_EVENT_PRUNE_BATCH", cfg.EventPruneBatch); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

// Validate проверяет согласованность конфигурации.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POS_POSTGRES_DSN is required for storage driver %q", c.StorageDriver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}

	if c.BreakerThreshold <= 0 {
		return fmt.Errorf("breaker threshold must be positive, got %d", c.BreakerThreshold)
	}
	if c.StatusMaxRetries <= 0 {
		return fmt.Errorf("status max retries must be positive, got %d", c.StatusMaxRetries)
	}
	return nil
}

func envString(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) (int, error) {
	value := os.Getenv(name)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return parsed, nil
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(name)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return parsed, nil
}
