package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics содержит метрики пайплайна расчёта корзины.
type SettlementMetrics struct {
	// Счётчики операций
	settlementsStarted   prometheus.Counter
	settlementsCompleted prometheus.Counter
	settlementsFailed    prometheus.Counter

	// Инвалидированные при расчёте позиции
	itemsInvalidated prometheus.Counter

	// Выданные документы по сериям
	documentsIssued *prometheus.CounterVec

	// Гистограмма времени выполнения расчёта
	settlementDuration prometheus.Histogram

	// Счётчики событий timeline и outbox
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	// Gauge backlog outbox
	outboxPending prometheus.Gauge
}

// NewSettlementMetrics создаёт новый экземпляр метрик расчёта.
func NewSettlementMetrics() *SettlementMetrics {
	return newSettlementMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newSettlementMetricsWithRegisterer(registerer prometheus.Registerer) *SettlementMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &SettlementMetrics{
		settlementsStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "commerce_settlements_started_total",
			Help: "Total number of cart settlements started",
		}),
		settlementsCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "commerce_settlements_completed_total",
			Help: "Total number of cart settlements completed successfully",
		}),
		settlementsFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "commerce_settlements_failed_total",
			Help: "Total number of cart settlements failed",
		}),
		itemsInvalidated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "commerce_settlement_items_invalidated_total",
			Help: "Total number of line items invalidated during settlement",
		}),
		documentsIssued: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "commerce_documents_issued_total",
			Help: "Total number of documents issued by series",
		}, []string{"series"}),
		settlementDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "commerce_settlement_duration_seconds",
			Help:    "Duration of cart settlement in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "commerce_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "commerce_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		outboxPending: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "commerce_outbox_pending",
			Help: "Number of outbox messages waiting to be published",
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

// RecordSettlementStarted увеличивает счётчик начатых расчётов.
func (m *SettlementMetrics) RecordSettlementStarted() {
	m.settlementsStarted.Inc()
}

// RecordSettlementCompleted увеличивает счётчик завершённых расчётов.
func (m *SettlementMetrics) RecordSettlementCompleted() {
	m.settlementsCompleted.Inc()
}

// RecordSettlementFailed увеличивает счётчик неудачных расчётов.
func (m *SettlementMetrics) RecordSettlementFailed() {
	m.settlementsFailed.Inc()
}

// RecordItemsInvalidated увеличивает счётчик инвалидированных позиций.
func (m *SettlementMetrics) RecordItemsInvalidated(count int) {
	if count > 0 {
		m.itemsInvalidated.Add(float64(count))
	}
}

// RecordDocumentIssued увеличивает счётчик выданных документов серии.
func (m *SettlementMetrics) RecordDocumentIssued(series string) {
	m.documentsIssued.WithLabelValues(series).Inc()
}

// RecordSettlementDuration записывает время выполнения расчёта.
func (m *SettlementMetrics) RecordSettlementDuration(duration time.Duration) {
	m.settlementDuration.Observe(duration.Seconds())
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *SettlementMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *SettlementMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

// SetOutboxPending выставляет размер backlog outbox.
func (m *SettlementMetrics) SetOutboxPending(count int) {
	m.outboxPending.Set(float64(count))
}
