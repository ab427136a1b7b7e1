package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты операций для меток.
const (
	ResultOK                = "ok"
	ResultInvalidState      = "invalid_state"
	ResultInsufficientStock = "insufficient_stock"
	ResultNotFound          = "not_found"
	ResultError             = "error"
)

// FulfillmentMetrics содержит метрики исполнения заказов и движения остатков.
type FulfillmentMetrics struct {
	// Переходы по статусам, метки: to, result.
	transitions *prometheus.CounterVec
	// Удаления заказов, метки: mode (soft|hard), result.
	deletions *prometheus.CounterVec
	// Единицы товара, ушедшие со склада и вернувшиеся.
	unitsDeducted prometheus.Counter
	unitsRestored prometheus.Counter
	// Откаты списаний после частичной неудачи.
	compensations prometheus.Counter

	transitionDuration prometheus.Histogram
	stepDuration       *prometheus.HistogramVec

	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	inFlight prometheus.Gauge
}

// NewFulfillmentMetrics регистрирует метрики в реестре по умолчанию.
func NewFulfillmentMetrics() *FulfillmentMetrics {
	return NewFulfillmentMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewFulfillmentMetricsWithRegisterer регистрирует метрики в переданном реестре.
func NewFulfillmentMetricsWithRegisterer(registerer prometheus.Registerer) *FulfillmentMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &FulfillmentMetrics{
		transitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_order_transitions_total",
			Help: "Total number of order status transitions by target status and result",
		}, []string{"to", "result"}),
		deletions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_order_deletions_total",
			Help: "Total number of order deletions by mode and result",
		}, []string{"mode", "result"}),
		unitsDeducted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_stock_units_deducted_total",
			Help: "Total number of stock units deducted for orders",
		}),
		unitsRestored: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_stock_units_restored_total",
			Help: "Total number of stock units returned to the catalog",
		}),
		compensations: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_stock_compensations_total",
			Help: "Total number of stock rollbacks after a failed transition",
		}),
		transitionDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_transition_duration_seconds",
			Help:    "Duration of order transitions in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		stepDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_fulfillment_step_duration_seconds",
			Help:    "Duration of individual fulfillment steps in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"step"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		inFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_transitions_in_flight",
			Help: "Number of order transitions currently holding the order lock",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordTransition учитывает попытку перехода.
func (m *FulfillmentMetrics) RecordTransition(to, result string) {
	m.transitions.WithLabelValues(to, result).Inc()
}

// RecordDeletion учитывает попытку удаления заказа.
func (m *FulfillmentMetrics) RecordDeletion(mode, result string) {
	m.deletions.WithLabelValues(mode, result).Inc()
}

// RecordUnitsDeducted добавляет списанные единицы.
func (m *FulfillmentMetrics) RecordUnitsDeducted(units int64) {
	m.unitsDeducted.Add(float64(units))
}

// RecordUnitsRestored добавляет возвращённые единицы.
func (m *FulfillmentMetrics) RecordUnitsRestored(units int64) {
	m.unitsRestored.Add(float64(units))
}

// RecordCompensation учитывает откат списаний.
func (m *FulfillmentMetrics) RecordCompensation() {
	m.compensations.Inc()
}

// RecordTransitionDuration записывает время выполнения перехода.
func (m *FulfillmentMetrics) RecordTransitionDuration(duration time.Duration) {
	m.transitionDuration.Observe(duration.Seconds())
}

// RecordStepDuration записывает время выполнения шага.
func (m *FulfillmentMetrics) RecordStepDuration(step string, duration time.Duration) {
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *FulfillmentMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *FulfillmentMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

// InFlightStarted увеличивает число активных переходов.
func (m *FulfillmentMetrics) InFlightStarted() {
	m.inFlight.Inc()
}

// InFlightFinished уменьшает число активных переходов.
func (m *FulfillmentMetrics) InFlightFinished() {
	m.inFlight.Dec()
}
