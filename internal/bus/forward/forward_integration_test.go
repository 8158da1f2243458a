//go:build integration

package forward_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"consents/internal/bus"
	"consents/internal/bus/forward"
	"consents/internal/consent/models"
	"consents/internal/platform/kafka"
	"consents/internal/platform/kafka/producer"
	id "consents/pkg/domain"
	"consents/pkg/testutil/containers"
)

func TestForwardedConsentChangeReachesTopic(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	k := containers.Kafka(t)

	cfg := kafka.DefaultProducerConfig()
	cfg.Brokers = k.Brokers
	p, err := producer.New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	b := bus.NewInMemory(bus.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	forward.New(p, k.Topic, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(b)

	userID := id.NewUserID()
	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, bus.ConsentChanged{
		UserID:     userID,
		Deltas:     []models.Delta{{Topic: models.TopicSMS, Enabled: true}},
		OccurredAt: time.Date(2021, 3, 4, 10, 0, 0, 0, time.UTC),
	}))

	record, err := k.WaitForRecord(ctx, k.Topic, 10*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == userID.String()
	})
	require.NoError(t, err)
	require.NotNil(t, record)

	var env forward.Envelope
	require.NoError(t, json.Unmarshal(record.Value, &env))
	require.Equal(t, bus.KindConsentChanged, env.Kind)
	require.Equal(t, []models.Delta{{Topic: models.TopicSMS, Enabled: true}}, env.Consents)
}
