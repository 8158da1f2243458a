// Package app is the composition root: it builds stores, services, the
// notification bus and its subscribers, and the HTTP router from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"consents/internal/bus"
	"consents/internal/bus/forward"
	busmetrics "consents/internal/bus/metrics"
	eventshandler "consents/internal/events/handler"
	eventsmetrics "consents/internal/events/metrics"
	eventsservice "consents/internal/events/service"
	eventsstore "consents/internal/events/store"
	"consents/internal/platform/config"
	"consents/internal/platform/database"
	"consents/internal/platform/health"
	"consents/internal/platform/kafka"
	"consents/internal/platform/kafka/producer"
	"consents/internal/platform/tracer"
	httptransport "consents/internal/transport/http"
	usershandler "consents/internal/users/handler"
	usersmetrics "consents/internal/users/metrics"
	usersservice "consents/internal/users/service"
	usersstore "consents/internal/users/store"
	"consents/pkg/platform/circuit"
	"consents/pkg/platform/middleware/metadata"
	"consents/pkg/platform/middleware/request"
)

// App owns every long-lived dependency of a running server.
type App struct {
	Users  *usersservice.Service
	Events *eventsservice.Service
	Bus    *bus.InMemory

	handler  http.Handler
	pool     *database.Pool
	producer *producer.Producer
	logger   *slog.Logger
}

type Option func(*options)

type options struct {
	registry prometheus.Registerer
	gatherer prometheus.Gatherer
	tracer   tracer.Tracer
}

// WithRegistry registers metrics on reg instead of the default registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
		o.gatherer = reg
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	o := options{
		registry: prometheus.DefaultRegisterer,
		gatherer: prometheus.DefaultGatherer,
		tracer:   tracer.NewOTel(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	proxies, err := metadata.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}

	a := &App{logger: logger}
	checks := health.New(cfg.Server.Environment)

	var (
		userStore  usersservice.Store
		eventStore eventsservice.Store
	)
	if cfg.InMemory() {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
		userStore = usersstore.NewInMemory()
		eventStore = eventsstore.NewInMemory()
	} else {
		dbCfg := database.DefaultConfig()
		dbCfg.URL = cfg.Database.URL
		pool, err := database.New(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.pool = pool
		if err := database.Migrate(dbCfg.URL); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		userStore = usersstore.NewPostgres(pool.DB())
		eventStore = eventsstore.NewPostgres(pool.DB())
		checks.RegisterCheck("database", pool.Health)
	}

	busMetrics := busmetrics.NewWith(o.registry)
	a.Bus = bus.NewInMemory(
		bus.WithLogger(logger),
		bus.WithTracer(o.tracer),
		bus.WithMetrics(busMetrics),
	)
	a.Users = usersservice.New(userStore, a.Bus, logger,
		usersservice.WithMetrics(usersmetrics.NewWith(o.registry)),
	)
	a.Events = eventsservice.New(eventStore, a.Bus, logger,
		eventsservice.WithMetrics(eventsmetrics.NewWith(o.registry)),
	)
	bus.On(a.Bus, a.Users.HandleConsentChanged)
	bus.On(a.Bus, a.Events.HandleUserDeleted)

	if cfg.ForwardingEnabled() {
		pcfg := kafka.DefaultProducerConfig()
		pcfg.Brokers = cfg.Kafka.Brokers
		pcfg.Topic = cfg.Kafka.Topic
		p, err := producer.New(pcfg, logger)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("create kafka producer: %w", err)
		}
		a.producer = p
		forward.New(p, pcfg.Topic, logger,
			forward.WithMetrics(busMetrics),
			forward.WithBreaker(circuit.New("kafka-forward"), forward.DefaultDegradedTimeout),
		).Register(a.Bus)
		checks.RegisterChecker(kafka.NewHealthChecker(pcfg.Brokers))
		logger.Info("forwarding bus messages to kafka", "topic", pcfg.Topic)
	}

	a.handler = httptransport.NewRouter(httptransport.Deps{
		Logger:         logger,
		Health:         checks,
		Metrics:        promhttp.HandlerFor(o.gatherer, promhttp.HandlerOpts{}),
		Latency:        request.NewMetricsWith(o.registry),
		RequestTimeout: cfg.Server.RequestTimeout,
		TrustedProxies: proxies,
		Resources: []httptransport.Registrar{
			usershandler.New(a.Users, logger),
			eventshandler.New(a.Events, logger),
		},
	})
	return a, nil
}

func (a *App) Handler() http.Handler {
	return a.handler
}

// Close releases the Kafka producer and the database pool.
func (a *App) Close() error {
	var errs []error
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close kafka producer: %w", err))
		}
	}
	if err := a.pool.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}
