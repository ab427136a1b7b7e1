package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	defaultLockTTL      = 30 * time.Second
	defaultPollInterval = 50 * time.Millisecond
	defaultKeyPrefix    = "storefront:lock:order:"
)

// Снимаем блокировку, только если она всё ещё наша.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker — распределённая блокировка заказа для нескольких инстансов сервиса.
type RedisLocker struct {
	client       redis.UniversalClient
	ttl          time.Duration
	pollInterval time.Duration
	prefix       string
	logger       *log.Entry
}

// RedisOption настраивает RedisLocker.
type RedisOption func(*RedisLocker)

// WithTTL задаёт время жизни блокировки на случай падения держателя.
func WithTTL(ttl time.Duration) RedisOption {
	return func(l *RedisLocker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithPollInterval задаёт паузу между попытками захвата.
func WithPollInterval(d time.Duration) RedisOption {
	return func(l *RedisLocker) {
		if d > 0 {
			l.pollInterval = d
		}
	}
}

// WithKeyPrefix задаёт префикс ключей.
func WithKeyPrefix(prefix string) RedisOption {
	return func(l *RedisLocker) {
		l.prefix = prefix
	}
}

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) RedisOption {
	return func(l *RedisLocker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewRedisLocker создаёт блокировку поверх go-redis клиента.
func NewRedisLocker(client redis.UniversalClient, opts ...RedisOption) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis client is nil")
	}
	l := &RedisLocker{
		client:       client,
		ttl:          defaultLockTTL,
		pollInterval: defaultPollInterval,
		prefix:       defaultKeyPrefix,
		logger:       log.WithField("component", "redis-lock"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Lock захватывает ключ через SET NX PX и опрашивает Redis, пока ctx не отменён.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		// Контекст запроса мог уже закончиться, поэтому снимаем блокировку со своим таймаутом.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := unlockScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil {
			l.logger.WithError(err).WithField("key", key).Warn("failed to release order lock")
		}
	}, nil
}

// Ping проверяет доступность Redis (для readiness).
func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

var _ domain.OrderLocker = (*RedisLocker)(nil)
