// Package app собирает сервис из конфигурации и управляет его жизненным циклом.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	grpcsvc "github.com/vladislavdragonenkov/storefront/internal/service/grpc"
	"github.com/vladislavdragonenkov/storefront/internal/service/httpapi"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/telemetry"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

const readHeaderTimeout = 5 * time.Second

// Run запускает gRPC и HTTP серверы и блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	return run(ctx, cfg, prometheus.DefaultRegisterer, promhttp.Handler(), nil)
}

// run принимает реестр метрик и, для тестов, канал с адресами поднятых серверов.
func run(ctx context.Context, cfg Config, reg prometheus.Registerer, metricsHandler http.Handler, ready chan<- listenAddrs) (err error) {
	logger := log.WithField("component", "app")
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:       cfg.OTLPEndpoint,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version.GetVersion(),
		Insecure:       cfg.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.WithError(err).Warn("failed to flush traces")
		}
	}()

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := deps.close(); cerr != nil {
			logger.WithError(cerr).Warn("failed to close storage")
		}
	}()

	// Ошибка Kafka не останавливает сервис: заказы обслуживаются и без событий.
	producer, _ := initKafkaProducer(cfg, logger)
	defer closeKafka(producer, logger)

	svc := buildServices(deps, metrics.NewFulfillmentMetricsWithRegisterer(reg), producer != nil, logger)

	stopWorker := startOutboxWorker(ctx, cfg, deps, producer, logger)
	defer stopWorker()

	healthHandler := health.NewHandler(version.GetVersion())
	for name, checker := range deps.checkers {
		healthHandler.RegisterChecker(name, checker)
	}

	grpcServer := grpcsvc.NewServer(
		grpcsvc.NewFulfillmentService(svc.engine, svc.deletion, svc.queries, logger.WithField("layer", "grpc")),
		reg,
		logger.WithField("layer", "grpc"),
	)
	httpServer := &http.Server{
		Handler: httpapi.NewRouter(httpapi.Deps{
			Engine:   svc.engine,
			Deletion: svc.deletion,
			Queries:  svc.queries,
			Catalog:  svc.catalog,
			Health:   healthHandler,
			Metrics:  metricsHandler,
			Logger:   logger.WithField("layer", "http"),
		}),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc %s: %w", cfg.GRPCAddr, err)
	}
	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = grpcLis.Close()
		return fmt.Errorf("listen http %s: %w", cfg.HTTPAddr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- grpcServer.Serve(grpcLis)
	}()
	go func() {
		logger.WithField("addr", httpLis.Addr().String()).Info("http server listening")
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	if ready != nil {
		ready <- listenAddrs{grpc: grpcLis.Addr().String(), http: httpLis.Addr().String()}
	}

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		err = ctx.Err()
	case serveErr := <-errCh:
		err = serveErr
	}

	grpcServer.Shutdown(cfg.ShutdownTimeout)
	shutdownHTTP(httpServer, cfg.ShutdownTimeout, logger)
	return err
}

type listenAddrs struct {
	grpc string
	http string
}

// startOutboxWorker запускает публикацию outbox в Kafka. Возвращает функцию,
// которая останавливает воркер и ждёт его выхода.
func startOutboxWorker(ctx context.Context, cfg Config, deps *runtimeDependencies, producer *kafka.Producer, logger *log.Entry) func() {
	if producer == nil {
		return func() {}
	}

	worker := outbox.NewWorker(
		deps.outbox,
		kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
		outbox.WithDLQPublisher(kafka.NewOutboxPublisher(producer, cfg.KafkaDLQTopic)),
		outbox.WithConfig(outbox.Config{
			PollInterval:     cfg.OutboxPollInterval,
			BatchSize:        cfg.OutboxBatchSize,
			MaxAttempts:      cfg.OutboxMaxAttempts,
			RetryBaseDelay:   cfg.OutboxRetryDelay,
			BreakerThreshold: cfg.OutboxBreakerThreshold,
			BreakerCooldown:  cfg.OutboxBreakerCooldown,
		}),
		outbox.WithLogger(logger.WithField("component", "outbox-worker")),
	)

	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(workerCtx)
	}()

	return func() {
		cancel()
		<-done
	}
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, timeout time.Duration, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
