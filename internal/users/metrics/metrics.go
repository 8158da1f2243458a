package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for user operations and the consent projector.
type Metrics struct {
	UsersCreated       prometheus.Counter
	UsersUpdated       prometheus.Counter
	UsersDeleted       *prometheus.CounterVec
	ProjectionsApplied prometheus.Counter
	ProjectionsFailed  *prometheus.CounterVec

	StoreOperationLatency *prometheus.HistogramVec
}

// New registers on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UsersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "consents_users_created_total",
			Help: "Total number of users created",
		}),
		UsersUpdated: f.NewCounter(prometheus.CounterOpts{
			Name: "consents_users_updated_total",
			Help: "Total number of user email updates",
		}),
		UsersDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "consents_users_deleted_total",
			Help: "User delete requests, labeled by outcome",
		}, []string{"outcome"}),
		ProjectionsApplied: f.NewCounter(prometheus.CounterOpts{
			Name: "consents_projections_applied_total",
			Help: "Consent changes projected onto users",
		}),
		ProjectionsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "consents_projections_failed_total",
			Help: "Consent changes that could not be projected, labeled by reason",
		}, []string{"reason"}),
		StoreOperationLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "consents_user_store_operation_latency_seconds",
			Help:    "Latency of user store operations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementUsersCreated() {
	m.UsersCreated.Inc()
}

func (m *Metrics) IncrementUsersUpdated() {
	m.UsersUpdated.Inc()
}

func (m *Metrics) IncrementUsersDeleted(outcome string) {
	m.UsersDeleted.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementProjectionsApplied() {
	m.ProjectionsApplied.Inc()
}

func (m *Metrics) IncrementProjectionsFailed(reason string) {
	m.ProjectionsFailed.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveStoreOperationLatency(operation string, d time.Duration) {
	m.StoreOperationLatency.WithLabelValues(operation).Observe(d.Seconds())
}
