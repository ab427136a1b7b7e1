package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

const envPrefix = "STOREFRONT_"

// Config описывает настройки запуска сервиса.
type Config struct {
	GRPCAddr string
	HTTPAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	KafkaBrokers  []string
	KafkaClientID string
	KafkaTopic    string
	KafkaDLQTopic string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	// Пауза публикации после серии отказов брокера.
	OutboxBreakerThreshold int
	OutboxBreakerCooldown  time.Duration

	// Если RedisAddr пуст, блокировки заказов в памяти процесса.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration

	OTLPEndpoint string
	OTLPInsecure bool
	ServiceName  string

	LogLevel        string
	ShutdownTimeout time.Duration
}

// DefaultConfig возвращает настройки для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:            ":50051",
		HTTPAddr:            ":8080",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		KafkaClientID:       "storefront",
		KafkaTopic:          "storefront.order.events",
		KafkaDLQTopic:       "storefront.dlq",
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    200 * time.Millisecond,

		OutboxBreakerThreshold: 5,
		OutboxBreakerCooldown:  30 * time.Second,

		LockTTL:         30 * time.Second,
		OTLPInsecure:    true,
		ServiceName:     "storefront",
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
	}
}

// LoadConfig накладывает переменные окружения STOREFRONT_* на значения по умолчанию.
func LoadConfig() (Config, error) {
	return loadConfig(os.LookupEnv)
}

func loadConfig(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	r := envReader{lookup: lookup}

	r.str("GRPC_ADDR", &cfg.GRPCAddr)
	r.str("HTTP_ADDR", &cfg.HTTPAddr)
	r.str("STORAGE_DRIVER", &cfg.StorageDriver)
	r.str("POSTGRES_DSN", &cfg.PostgresDSN)
	r.boolean("POSTGRES_AUTO_MIGRATE", &cfg.PostgresAutoMigrate)
	r.list("KAFKA_BROKERS", &cfg.KafkaBrokers)
	r.str("KAFKA_CLIENT_ID", &cfg.KafkaClientID)
	r.str("KAFKA_TOPIC", &cfg.KafkaTopic)
	r.str("KAFKA_DLQ_TOPIC", &cfg.KafkaDLQTopic)
	r.duration("OUTBOX_POLL_INTERVAL", &cfg.OutboxPollInterval)
	r.integer("OUTBOX_BATCH_SIZE", &cfg.OutboxBatchSize)
	r.integer("OUTBOX_MAX_ATTEMPTS", &cfg.OutboxMaxAttempts)
	r.duration("OUTBOX_RETRY_DELAY", &cfg.OutboxRetryDelay)
	r.integer("OUTBOX_BREAKER_THRESHOLD", &cfg.OutboxBreakerThreshold)
	r.duration("OUTBOX_BREAKER_COOLDOWN", &cfg.OutboxBreakerCooldown)
	r.str("REDIS_ADDR", &cfg.RedisAddr)
	r.str("REDIS_PASSWORD", &cfg.RedisPassword)
	r.integer("REDIS_DB", &cfg.RedisDB)
	r.duration("LOCK_TTL", &cfg.LockTTL)
	r.str("OTLP_ENDPOINT", &cfg.OTLPEndpoint)
	r.boolean("OTLP_INSECURE", &cfg.OTLPInsecure)
	r.str("SERVICE_NAME", &cfg.ServiceName)
	r.str("LOG_LEVEL", &cfg.LogLevel)
	r.duration("SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)

	if err := errors.Join(r.errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет сочетания настроек, которые нельзя поймать при разборе.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("%sPOSTGRES_DSN is required for storage driver %q", envPrefix, c.StorageDriver)
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}
	if c.LogLevel != "" {
		if _, err := log.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
	}
	return nil
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *envReader) get(key string) (string, bool) {
	v, ok := r.lookup(envPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := r.get(key); ok {
		*dst = v
	}
}

func (r *envReader) list(key string, dst *[]string) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (r *envReader) integer(key string, dst *int) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
		return
	}
	*dst = n
}

func (r *envReader) boolean(key string, dst *bool) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
		return
	}
	*dst = b
}

func (r *envReader) duration(key string, dst *time.Duration) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
		return
	}
	*dst = d
}
