package bus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"consents/internal/bus/metrics"
	"consents/internal/platform/tracer"
	"consents/pkg/requestcontext"
)

// InMemory dispatches synchronously inside Publish. Subscribers of one kind run
// concurrently and Publish returns the first error any of them reports.
// Nothing is retried or persisted.
type InMemory struct {
	mu       sync.RWMutex
	handlers map[Kind][]Handler

	logger  *slog.Logger
	tracer  tracer.Tracer
	metrics *metrics.Metrics
}

type Option func(*InMemory)

func WithLogger(logger *slog.Logger) Option {
	return func(b *InMemory) {
		b.logger = logger
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(b *InMemory) {
		b.tracer = t
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *InMemory) {
		b.metrics = m
	}
}

func NewInMemory(opts ...Option) *InMemory {
	b := &InMemory{
		handlers: make(map[Kind][]Handler),
		logger:   slog.Default(),
		tracer:   tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *InMemory) Subscribe(kind Kind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// Subscribers reports how many handlers are registered for kind.
func (b *InMemory) Subscribers(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[kind])
}

func (b *InMemory) Publish(ctx context.Context, msg Message) (err error) {
	kind := msg.Kind()

	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[kind]...)
	b.mu.RUnlock()

	ctx, span := b.tracer.Start(ctx, "bus.publish",
		tracer.String("kind", string(kind)),
		tracer.String("user_id", msg.Subject().String()),
		tracer.Int("subscribers", len(handlers)),
	)
	start := time.Now()
	defer func() {
		span.End(err)
		b.observe(kind, err, time.Since(start))
	}()

	if len(handlers) == 0 {
		b.logger.WarnContext(ctx, "bus message has no subscribers",
			"kind", kind,
			"user_id", msg.Subject(),
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil
	}

	if len(handlers) == 1 {
		err = handlers[0](ctx, msg)
	} else {
		var g errgroup.Group
		for _, h := range handlers {
			g.Go(func() error {
				return h(ctx, msg)
			})
		}
		err = g.Wait()
	}

	if err != nil {
		b.logger.ErrorContext(ctx, "bus subscriber failed",
			"kind", kind,
			"user_id", msg.Subject(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return err
	}
	b.logger.DebugContext(ctx, "bus message dispatched",
		"kind", kind,
		"user_id", msg.Subject(),
		"subscribers", len(handlers),
	)
	return nil
}

func (b *InMemory) observe(kind Kind, err error, d time.Duration) {
	if b.metrics == nil {
		return
	}
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
	}
	b.metrics.IncrementPublished(string(kind), outcome)
	b.metrics.ObserveDispatchLatency(string(kind), d)
}

var _ Bus = (*InMemory)(nil)
