// Package fulfillment переводит заказы по статусам и держит склад в согласии с ними.
package fulfillment

import (
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/lock"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const tracerName = "github.com/vladislavdragonenkov/storefront/internal/service/fulfillment"

// core — зависимости, общие для движка и политики удаления.
type core struct {
	orders   domain.OrderRepository
	catalog  domain.CatalogRepository
	locker   domain.OrderLocker
	outbox   domain.OutboxRepository
	timeline domain.TimelineRepository
	logger   *log.Entry
	metrics  *metrics.FulfillmentMetrics
	tracer   trace.Tracer
	retry    RetryConfig
	now      func() time.Time
}

// Option настраивает Engine и DeletionPolicy.
type Option func(*core)

// WithLocker задаёт блокировку заказов. Движок и политика удаления должны делить одну.
func WithLocker(locker domain.OrderLocker) Option {
	return func(c *core) {
		if locker != nil {
			c.locker = locker
		}
	}
}

// WithOutbox включает публикацию событий через outbox.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(c *core) {
		c.outbox = outbox
	}
}

// WithTimeline включает запись ленты событий заказа.
func WithTimeline(timeline domain.TimelineRepository) Option {
	return func(c *core) {
		c.timeline = timeline
	}
}

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(c *core) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics включает Prometheus-метрики.
func WithMetrics(m *metrics.FulfillmentMetrics) Option {
	return func(c *core) {
		c.metrics = m
	}
}

// WithTracer задаёт OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *core) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(c *core) {
		if now != nil {
			c.now = now
		}
	}
}

func newCore(orders domain.OrderRepository, catalog domain.CatalogRepository, component string, opts []Option) core {
	c := core{
		orders:  orders,
		catalog: catalog,
		locker:  lock.NewKeyedMutex(),
		logger:  log.WithField("component", component),
		tracer:  otel.Tracer(tracerName),
		retry:   DefaultRetryConfig(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
