package tracer_test

import (
	"context"
	"errors"
	"testing"

	"consents/internal/platform/tracer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNoopTracer(t *testing.T) {
	ctx := context.Background()
	newCtx, span := tracer.NewNoop().Start(ctx, "bus.publish", tracer.String("kind", "user.deleted"))

	assert.Equal(t, ctx, newCtx)
	require.NotNil(t, span)
	span.SetAttributes(tracer.Int("subscribers", 2))
	span.AddEvent("handler.failed", tracer.Bool("retried", false))
	span.End(errors.New("projection failed"))
}

func TestOTelTracer(t *testing.T) {
	tr := tracer.NewOTel(tracer.WithOTelTracer(noop.NewTracerProvider().Tracer("test")))

	ctx, span := tr.Start(context.Background(), "bus.publish",
		tracer.String("kind", "consent.changed"),
		tracer.Int("subscribers", 1),
	)
	require.NotNil(t, span)
	assert.NotNil(t, trace.SpanFromContext(ctx))

	span.AddEvent("dispatched")
	span.End(nil)
}
