package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the event history.
type Metrics struct {
	EventsCreated  prometheus.Counter
	EventsDeleted  *prometheus.CounterVec
	EventsPurged   prometheus.Counter
	CascadesFailed prometheus.Counter

	StoreOperationLatency *prometheus.HistogramVec
}

// New registers on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EventsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "consents_events_created_total",
			Help: "Total number of consent events recorded",
		}),
		EventsDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "consents_events_deleted_total",
			Help: "Event delete requests, labeled by outcome",
		}, []string{"outcome"}),
		EventsPurged: f.NewCounter(prometheus.CounterOpts{
			Name: "consents_events_purged_total",
			Help: "Events removed because their user was deleted",
		}),
		CascadesFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "consents_event_cascades_failed_total",
			Help: "User deletions whose event history could not be purged",
		}),
		StoreOperationLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "consents_event_store_operation_latency_seconds",
			Help:    "Latency of event store operations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementEventsCreated() {
	m.EventsCreated.Inc()
}

func (m *Metrics) IncrementEventsDeleted(outcome string) {
	m.EventsDeleted.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddEventsPurged(n int64) {
	m.EventsPurged.Add(float64(n))
}

func (m *Metrics) IncrementCascadesFailed() {
	m.CascadesFailed.Inc()
}

func (m *Metrics) ObserveStoreOperationLatency(operation string, d time.Duration) {
	m.StoreOperationLatency.WithLabelValues(operation).Observe(d.Seconds())
}
