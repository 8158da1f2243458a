package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds Prometheus collectors for bus dispatch and forwarding.
type Metrics struct {
	Published       *prometheus.CounterVec
	DispatchLatency *prometheus.HistogramVec
	Forwarded       *prometheus.CounterVec
	ForwarderOpen   prometheus.Gauge
}

// New registers on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Published: f.NewCounterVec(prometheus.CounterOpts{
			Name: "consents_bus_messages_published_total",
			Help: "Messages published on the notification bus, labeled by kind and outcome",
		}, []string{"kind", "outcome"}),
		DispatchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "consents_bus_dispatch_latency_seconds",
			Help:    "Time spent running all subscribers of a message",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"kind"}),
		Forwarded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "consents_bus_messages_forwarded_total",
			Help: "Messages mirrored to Kafka, labeled by kind and outcome",
		}, []string{"kind", "outcome"}),
		ForwarderOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "consents_bus_forwarder_circuit_open",
			Help: "1 while Kafka forwarding runs with the degraded delivery timeout",
		}),
	}
}

func (m *Metrics) IncrementPublished(kind, outcome string) {
	m.Published.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveDispatchLatency(kind string, d time.Duration) {
	m.DispatchLatency.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) IncrementForwarded(kind, outcome string) {
	m.Forwarded.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) SetForwarderCircuitOpen(open bool) {
	if open {
		m.ForwarderOpen.Set(1)
		return
	}
	m.ForwarderOpen.Set(0)
}
