package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/lock"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

// runtimeDependencies — хранилища и блокировка, выбранные конфигурацией.
type runtimeDependencies struct {
	orders   domain.OrderRepository
	catalog  domain.CatalogRepository
	outbox   domain.OutboxRepository
	timeline domain.TimelineRepository
	locker   domain.OrderLocker

	// checkers попадают в /healthz и /readyz.
	checkers map[string]health.Checker
	closers  []func() error
}

// close освобождает ресурсы в обратном порядке.
func (d *runtimeDependencies) close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	deps := &runtimeDependencies{checkers: make(map[string]health.Checker)}

	if err := initStorage(ctx, cfg, deps, logger); err != nil {
		_ = deps.close()
		return nil, err
	}
	if err := initLocker(ctx, cfg, deps, logger); err != nil {
		_ = deps.close()
		return nil, err
	}
	return deps, nil
}

func initStorage(ctx context.Context, cfg Config, deps *runtimeDependencies, logger *log.Entry) error {
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		deps.orders = memory.NewOrderRepository()
		deps.catalog = memory.NewCatalogRepository()
		deps.outbox = memory.NewOutboxRepository()
		deps.timeline = memory.NewTimelineRepository()
		logger.Info("using in-memory storage")
		return nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return errors.New("postgres dsn is required for postgres storage driver")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		deps.closers = append(deps.closers, store.Close)

		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				return fmt.Errorf("migrate postgres: %w", err)
			}
			state, err := store.MigrationStatus(ctx)
			if err != nil {
				return fmt.Errorf("migration status: %w", err)
			}
			logger.WithFields(log.Fields{
				"version": state.Version,
				"applied": state.Applied,
			}).Info("postgres migrations applied")
		}

		deps.orders = postgres.NewOrderRepository(store)
		deps.catalog = postgres.NewCatalogRepository(store)
		deps.outbox = postgres.NewOutboxRepository(store)
		deps.timeline = postgres.NewTimelineRepository(store)
		deps.checkers["postgres"] = health.NewPingChecker("postgres", store, true)
		logger.Info("using postgres storage")
		return nil

	default:
		return fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// initLocker выбирает Redis-блокировку, если задан адрес, иначе блокировку в памяти.
func initLocker(ctx context.Context, cfg Config, deps *runtimeDependencies, logger *log.Entry) error {
	if cfg.RedisAddr == "" {
		deps.locker = lock.NewKeyedMutex()
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	deps.closers = append(deps.closers, client.Close)

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}

	locker, err := lock.NewRedisLocker(client,
		lock.WithTTL(cfg.LockTTL),
		lock.WithLogger(logger.WithField("component", "redis-lock")),
	)
	if err != nil {
		return err
	}
	deps.locker = locker
	deps.checkers["redis"] = health.NewPingChecker("redis", locker, true)
	logger.WithField("addr", cfg.RedisAddr).Info("using redis order locks")
	return nil
}
