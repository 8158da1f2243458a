package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"consents/internal/bus"
	consent "consents/internal/consent/models"
	"consents/internal/events/metrics"
	"consents/internal/events/models"
	id "consents/pkg/domain"
	dErrors "consents/pkg/domain-errors"
	"consents/pkg/platform/sentinel"
	"consents/pkg/requestcontext"
)

// Store defines the persistence interface for consent events.
// Error Contract:
// - Save returns sentinel.ErrConflict for a duplicate event ID
// - Delete returns nil for unknown events
// - DeleteByUser returns the number of removed events, zero when none match
type Store interface {
	Save(ctx context.Context, event *models.Event) error
	List(ctx context.Context) ([]*models.Event, error)
	Delete(ctx context.Context, eventID id.EventID) error
	DeleteByUser(ctx context.Context, userID id.UserID) (int64, error)
}

type Option func(*Service)

// Service records consent events and purges them when their user goes away.
type Service struct {
	store     Store
	publisher bus.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func New(store Store, publisher bus.Publisher, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// Create stores the event and then publishes ConsentChanged. The user is not
// looked up first. If a subscriber fails the event stays stored and a
// *models.ProjectionError carrying the subscriber's error is returned with it.
func (s *Service) Create(ctx context.Context, userID id.UserID, deltas []consent.Delta) (*models.Event, error) {
	now := requestcontext.Now(ctx)
	event, err := models.NewEvent(id.NewEventID(), userID, deltas, now)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	err = s.store.Save(ctx, event)
	s.observeStore("save", start)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "event already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save event")
	}
	if s.metrics != nil {
		s.metrics.IncrementEventsCreated()
	}
	s.logger.InfoContext(ctx, "consent event recorded",
		"event_id", event.ID,
		"user_id", userID,
		"change", event.ChangeDescription,
		"request_id", requestcontext.RequestID(ctx),
	)

	msg := bus.ConsentChanged{UserID: userID, Deltas: deltas, OccurredAt: now}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "consent event stored but projection failed",
			"event_id", event.ID,
			"user_id", userID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return event, &models.ProjectionError{EventID: event.ID, Err: err}
	}
	return event, nil
}

// List returns every event in the order it was recorded.
func (s *Service) List(ctx context.Context) ([]*models.Event, error) {
	start := time.Now()
	events, err := s.store.List(ctx)
	s.observeStore("list", start)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	return events, nil
}

// Delete removes a single event. Deleting an unknown event succeeds.
func (s *Service) Delete(ctx context.Context, eventID id.EventID) *id.DeleteResult {
	start := time.Now()
	err := s.store.Delete(ctx, eventID)
	s.observeStore("delete", start)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to delete event",
			"event_id", eventID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.countDelete("store_error")
		return id.NotDeleted("failed to delete event")
	}
	s.countDelete("deleted")
	return id.Deleted()
}

// HandleUserDeleted is the cascade deleter subscribed to UserDeleted.
func (s *Service) HandleUserDeleted(ctx context.Context, msg bus.UserDeleted) error {
	n, err := s.purge(ctx, msg.UserID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to purge events of deleted user",
			"user_id", msg.UserID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		if s.metrics != nil {
			s.metrics.IncrementCascadesFailed()
		}
		return dErrors.Wrapf(err, dErrors.CodeInvariantViolation,
			"event history of user %s was not removed", msg.UserID)
	}
	s.logger.InfoContext(ctx, "event history purged",
		"user_id", msg.UserID,
		"events", n,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

func (s *Service) purge(ctx context.Context, userID id.UserID) (int64, error) {
	start := time.Now()
	n, err := s.store.DeleteByUser(ctx, userID)
	s.observeStore("delete_by_user", start)
	if err != nil {
		return 0, err
	}
	if s.metrics != nil {
		s.metrics.AddEventsPurged(n)
	}
	return n, nil
}

func (s *Service) countDelete(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementEventsDeleted(outcome)
	}
}

func (s *Service) observeStore(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStoreOperationLatency(operation, time.Since(start))
	}
}
