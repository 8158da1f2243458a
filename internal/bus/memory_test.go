package bus_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"consents/internal/bus"
	"consents/internal/bus/metrics"
	"consents/internal/consent/models"
	id "consents/pkg/domain"
)

type InMemorySuite struct {
	suite.Suite
	metrics *metrics.Metrics
	bus     *bus.InMemory
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) SetupTest() {
	s.metrics = metrics.NewWith(prometheus.NewRegistry())
	s.bus = bus.NewInMemory(
		bus.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		bus.WithMetrics(s.metrics),
	)
}

func (s *InMemorySuite) TestPublishDeliversToTypedHandler() {
	userID := id.NewUserID()
	var got bus.ConsentChanged
	bus.On(s.bus, func(_ context.Context, msg bus.ConsentChanged) error {
		got = msg
		return nil
	})

	deltas := []models.Delta{{Topic: models.TopicSMS, Enabled: true}}
	err := s.bus.Publish(context.Background(), bus.ConsentChanged{UserID: userID, Deltas: deltas})

	s.Require().NoError(err)
	s.Equal(userID, got.UserID)
	s.Equal(deltas, got.Deltas)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Published.WithLabelValues("consent.changed", "ok")))
}

func (s *InMemorySuite) TestPublishRoutesByKind() {
	var consentCalls, deleteCalls atomic.Int32
	bus.On(s.bus, func(context.Context, bus.ConsentChanged) error {
		consentCalls.Add(1)
		return nil
	})
	bus.On(s.bus, func(context.Context, bus.UserDeleted) error {
		deleteCalls.Add(1)
		return nil
	})

	s.Require().NoError(s.bus.Publish(context.Background(), bus.UserDeleted{UserID: id.NewUserID()}))

	s.Equal(int32(0), consentCalls.Load())
	s.Equal(int32(1), deleteCalls.Load())
}

func (s *InMemorySuite) TestPublishReturnsHandlerError() {
	missing := errors.New("user not found")
	bus.On(s.bus, func(context.Context, bus.ConsentChanged) error { return missing })

	err := s.bus.Publish(context.Background(), bus.ConsentChanged{UserID: id.NewUserID()})

	s.ErrorIs(err, missing)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Published.WithLabelValues("consent.changed", "error")))
}

func (s *InMemorySuite) TestPublishRunsAllSubscribersBeforeReturning() {
	var finished atomic.Int32
	slow := func(context.Context, bus.UserDeleted) error {
		time.Sleep(20 * time.Millisecond)
		finished.Add(1)
		return nil
	}
	bus.On(s.bus, slow)
	bus.On(s.bus, func(context.Context, bus.UserDeleted) error {
		finished.Add(1)
		return errors.New("cascade failed")
	})
	bus.On(s.bus, slow)

	err := s.bus.Publish(context.Background(), bus.UserDeleted{UserID: id.NewUserID()})

	s.EqualError(err, "cascade failed")
	s.Equal(int32(3), finished.Load(), "siblings are not cancelled by a failing subscriber")
	s.Equal(3, s.bus.Subscribers(bus.KindUserDeleted))
}

func (s *InMemorySuite) TestPublishWithoutSubscribersSucceeds() {
	s.NoError(s.bus.Publish(context.Background(), bus.UserDeleted{UserID: id.NewUserID()}))
}

func (s *InMemorySuite) TestOnRejectsMismatchedMessage() {
	b := &capturingBus{}
	bus.On(b, func(context.Context, bus.ConsentChanged) error { return nil })

	s.Equal(bus.KindConsentChanged, b.kind)
	s.Error(b.handler(context.Background(), bus.UserDeleted{}))
}

type capturingBus struct {
	kind    bus.Kind
	handler bus.Handler
}

func (c *capturingBus) Publish(context.Context, bus.Message) error { return nil }
func (c *capturingBus) Subscribe(kind bus.Kind, h bus.Handler) {
	c.kind = kind
	c.handler = h
}
