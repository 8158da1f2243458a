// Package forward mirrors bus messages to Kafka for consumers outside this process.
package forward

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"consents/internal/bus"
	"consents/internal/bus/metrics"
	"consents/internal/consent/models"
	"consents/internal/platform/kafka/producer"
	"consents/pkg/platform/circuit"
	"consents/pkg/requestcontext"
)

// DefaultDegradedTimeout bounds a delivery while the breaker is open.
const DefaultDegradedTimeout = 250 * time.Millisecond

// Producer is the subset of the Kafka producer the forwarder needs.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// Envelope is the JSON record written to the topic.
type Envelope struct {
	Kind       bus.Kind       `json:"kind"`
	UserID     string         `json:"user_id"`
	Consents   []models.Delta `json:"consents,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Forwarder is a bus subscriber. Delivery failures are logged and counted but
// never returned, so a broker outage cannot fail projection or cascade.
type Forwarder struct {
	producer Producer
	topic    string
	logger   *slog.Logger
	metrics  *metrics.Metrics

	breaker         *circuit.Breaker
	degradedTimeout time.Duration
}

type Option func(*Forwarder)

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Forwarder) {
		f.metrics = m
	}
}

// WithBreaker tracks delivery failures. While the breaker is open each
// delivery gets at most degradedTimeout, so a broker outage costs requests
// milliseconds instead of the producer's full delivery timeout.
func WithBreaker(b *circuit.Breaker, degradedTimeout time.Duration) Option {
	return func(f *Forwarder) {
		f.breaker = b
		f.degradedTimeout = degradedTimeout
		if f.degradedTimeout <= 0 {
			f.degradedTimeout = DefaultDegradedTimeout
		}
	}
}

func New(p Producer, topic string, logger *slog.Logger, opts ...Option) *Forwarder {
	f := &Forwarder{producer: p, topic: topic, logger: logger}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Register subscribes the forwarder to every message kind.
func (f *Forwarder) Register(b bus.Bus) {
	b.Subscribe(bus.KindConsentChanged, f.Handle)
	b.Subscribe(bus.KindUserDeleted, f.Handle)
}

func (f *Forwarder) Handle(ctx context.Context, msg bus.Message) error {
	env := NewEnvelope(ctx, msg)
	value, err := json.Marshal(env)
	if err != nil {
		f.fail(ctx, env, err)
		return nil
	}

	produceCtx := ctx
	if f.breaker != nil && f.breaker.IsOpen() {
		var cancel context.CancelFunc
		produceCtx, cancel = context.WithTimeout(ctx, f.degradedTimeout)
		defer cancel()
	}

	err = f.producer.Produce(produceCtx, &producer.Message{
		Topic: f.topic,
		Key:   []byte(env.UserID),
		Value: value,
		Headers: map[string]string{
			"kind":       string(env.Kind),
			"request_id": requestcontext.RequestID(ctx),
		},
	})
	if err != nil {
		f.fail(ctx, env, err)
		if f.breaker != nil {
			f.transition(ctx, f.breaker.RecordFailure())
		}
		return nil
	}
	if f.breaker != nil {
		f.transition(ctx, f.breaker.RecordSuccess())
	}
	if f.metrics != nil {
		f.metrics.IncrementForwarded(string(env.Kind), metrics.OutcomeOK)
	}
	return nil
}

func (f *Forwarder) transition(ctx context.Context, t circuit.Transition) {
	switch {
	case t.Opened:
		f.logger.WarnContext(ctx, "kafka forwarding degraded",
			"breaker", f.breaker.Name(),
			"delivery_timeout", f.degradedTimeout,
		)
		if f.metrics != nil {
			f.metrics.SetForwarderCircuitOpen(true)
		}
	case t.Closed:
		f.logger.InfoContext(ctx, "kafka forwarding restored", "breaker", f.breaker.Name())
		if f.metrics != nil {
			f.metrics.SetForwarderCircuitOpen(false)
		}
	}
}

func (f *Forwarder) fail(ctx context.Context, env Envelope, err error) {
	f.logger.WarnContext(ctx, "failed to forward bus message",
		"kind", env.Kind,
		"user_id", env.UserID,
		"topic", f.topic,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	if f.metrics != nil {
		f.metrics.IncrementForwarded(string(env.Kind), metrics.OutcomeError)
	}
}

// NewEnvelope builds the wire form of msg. Zero occurrence times are stamped
// with now. Deltas for unknown topics are left out.
func NewEnvelope(ctx context.Context, msg bus.Message) Envelope {
	env := Envelope{
		Kind:   msg.Kind(),
		UserID: msg.Subject().String(),
	}
	switch m := msg.(type) {
	case bus.ConsentChanged:
		for _, d := range m.Deltas {
			if d.Topic.IsKnown() {
				env.Consents = append(env.Consents, d)
			}
		}
		env.OccurredAt = m.OccurredAt
	case bus.UserDeleted:
		env.OccurredAt = m.OccurredAt
	}
	if env.OccurredAt.IsZero() {
		env.OccurredAt = requestcontext.Now(ctx)
	}
	env.OccurredAt = env.OccurredAt.UTC()
	return env
}
