package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	SyncRuns          *prometheus.CounterVec
	SyncUpdates       *prometheus.CounterVec
	SyncDuration      prometheus.Histogram
	EventsAppended    *prometheus.CounterVec
	BroadcastMessages *prometheus.CounterVec
	TelegramRequests  *prometheus.CounterVec
	TelegramLatency   *prometheus.HistogramVec
	BotActiveUsers    *prometheus.GaugeVec
	Errors            *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = newMetrics(namespace)
		prometheus.MustRegister(metricsInstance.collectors()...)
	})
	return metricsInstance
}

// NewUnregistered builds a fresh set of collectors that is not attached to the
// default registry. Tests use it to assert on counters without global state.
func NewUnregistered(namespace string) *Metrics {
	return newMetrics(namespace)
}

func newMetrics(namespace string) *Metrics {
	return &Metrics{
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Total bot sync runs by outcome.",
		}, []string{"status"}),
		SyncUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_updates_total",
			Help:      "Updates seen by the ingestion path grouped by outcome.",
		}, []string{"outcome"}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Latency distribution of a single bot sync.",
			Buckets:   prometheus.DefBuckets,
		}),
		EventsAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_appended_total",
			Help:      "Events persisted to the event store by type.",
		}, []string{"type"}),
		BroadcastMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_messages_total",
			Help:      "Broadcast deliveries by status.",
		}, []string{"status"}),
		TelegramRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_requests_total",
			Help:      "Total Telegram Bot API requests by method and status.",
		}, []string{"method", "status"}),
		TelegramLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "telegram_request_duration_seconds",
			Help:      "Latency distribution for Telegram Bot API calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		BotActiveUsers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bot_active_users",
			Help:      "Distinct active users per bot and window.",
		}, []string{"bot", "window"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total errors grouped by component.",
		}, []string{"component"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.SyncRuns,
		m.SyncUpdates,
		m.SyncDuration,
		m.EventsAppended,
		m.BroadcastMessages,
		m.TelegramRequests,
		m.TelegramLatency,
		m.BotActiveUsers,
		m.Errors,
	}
}

// IncError bumps the error counter for component. Safe on a nil receiver.
func (m *Metrics) IncError(component string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(component).Inc()
}
