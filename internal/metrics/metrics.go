// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pricepeak"

// Metrics метрики цикла мониторинга. Методы безопасны для nil.
type Metrics struct {
	registry *prometheus.Registry

	cyclesTotal          *prometheus.CounterVec
	snapshotsAppended    prometheus.Counter
	notificationFailures prometheus.Counter
	lastPrice            prometheus.Gauge
	maxPrice             prometheus.Gauge
	fetchDuration        prometheus.Histogram
	cycleDuration        prometheus.Histogram
}

// New регистрирует метрики в собственном реестре
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		cyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Monitor cycles by outcome.",
		}, []string{"outcome"}),
		snapshotsAppended: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_appended_total",
			Help:      "Snapshots durably written to the store.",
		}),
		notificationFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Alerts that failed on at least one channel.",
		}),
		lastPrice: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_price_cents",
			Help:      "Most recently observed price in minor units.",
		}),
		maxPrice: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "max_price_cents",
			Help:      "Running maximum price in minor units.",
		}),
		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Product page fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Full cycle latency excluding sleep.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) ObserveCycle(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.cyclesTotal.WithLabelValues(outcome).Inc()
	m.cycleDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveFetch(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) SnapshotAppended(price int64) {
	if m == nil {
		return
	}
	m.snapshotsAppended.Inc()
	m.lastPrice.Set(float64(price))
}

func (m *Metrics) SetMaximum(price int64) {
	if m == nil {
		return
	}
	m.maxPrice.Set(float64(price))
}

func (m *Metrics) NotificationFailed() {
	if m == nil {
		return
	}
	m.notificationFailures.Inc()
}

// Registry реестр для тестов и внешних экспортеров
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler HTTP обработчик /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
