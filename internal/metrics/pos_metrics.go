package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PosMetrics содержит метрики ядра POS-сервиса.
type PosMetrics struct {
	// Кэш корзин
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheFallbacks *prometheus.CounterVec
	breakerState   prometheus.Gauge

	// Статусные операции
	statusOps       *prometheus.CounterVec
	statusConflicts prometheus.Counter

	// Обработка событий
	eventsApplied    prometheus.Counter
	eventsDuplicated prometheus.Counter
	eventsDropped    prometheus.Counter
	eventsFailed     prometheus.Counter
}

// NewPosMetrics создаёт новый экземпляр метрик с дефолтным registerer.
func NewPosMetrics() *PosMetrics {
	return newPosMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newPosMetricsWithRegisterer(registerer prometheus.Registerer) *PosMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &PosMetrics{
		cacheHits: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_cart_cache_hits_total",
			Help: "Total number of cart operations served by the state store tier",
		}),
		cacheMisses: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_cart_cache_misses_total",
			Help: "Total number of cart reads that missed the state store tier",
		}),
		cacheFallbacks: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "pos_cart_cache_fallbacks_total",
			Help: "Total number of cart operations that fell back to the durable tier",
		}, []string{"operation"}),
		breakerState: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "pos_cart_cache_breaker_state",
			Help: "Circuit breaker state of the cart cache tier (0=closed, 1=open, 2=half-open)",
		}),
		statusOps: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "pos_transaction_status_operations_total",
			Help: "Total number of transaction status operations grouped by kind and result",
		}, []string{"operation", "result"}),
		statusConflicts: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_transaction_status_write_conflicts_total",
			Help: "Total number of optimistic write conflicts observed by the status tracker",
		}),
		eventsApplied: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_tranlog_events_applied_total",
			Help: "Total number of transaction log events applied",
		}),
		eventsDuplicated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_tranlog_events_duplicated_total",
			Help: "Total number of duplicate transaction log deliveries skipped",
		}),
		eventsDropped: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_tranlog_events_dropped_total",
			Help: "Total number of malformed transaction log events dropped",
		}),
		eventsFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_tranlog_events_failed_total",
			Help: "Total number of transaction log events that failed and will be redelivered",
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

// RecordCacheHit увеличивает счётчик попаданий в кэш корзин.
func (m *PosMetrics) RecordCacheHit() {
	m.cacheHits.Inc()
}

// RecordCacheMiss увеличивает счётчик промахов кэша корзин.
func (m *PosMetrics) RecordCacheMiss() {
	m.cacheMisses.Inc()
}

// RecordCacheFallback увеличивает счётчик падений в durable-ярус.
func (m *PosMetrics) RecordCacheFallback(operation string) {
	m.cacheFallbacks.WithLabelValues(operation).Inc()
}

// SetBreakerState публикует текущее состояние circuit breaker.
func (m *PosMetrics) SetBreakerState(state int) {
	m.breakerState.Set(float64(state))
}

// RecordStatusOperation фиксирует статусную операцию и её исход.
func (m *PosMetrics) RecordStatusOperation(operation, result string) {
	m.statusOps.WithLabelValues(operation, result).Inc()
}

// RecordStatusConflict увеличивает счётчик конфликтов optimistic-записи.
func (m *PosMetrics) RecordStatusConflict() {
	m.statusConflicts.Inc()
}

// RecordEventApplied увеличивает счётчик применённых событий.
func (m *PosMetrics) RecordEventApplied() {
	m.eventsApplied.Inc()
}

// RecordEventDuplicated увеличивает счётчик пропущенных дублей.
func (m *PosMetrics) RecordEventDuplicated() {
	m.eventsDuplicated.Inc()
}

// RecordEventDropped увеличивает счётчик отброшенных событий.
func (m *PosMetrics) RecordEventDropped() {
	m.eventsDropped.Inc()
}

// RecordEventFailed увеличивает счётчик событий, ожидающих повторной доставки.
func (m *PosMetrics) RecordEventFailed() {
	m.eventsFailed.Inc()
}
