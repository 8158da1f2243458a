package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"consents/internal/bus"
	consent "consents/internal/consent/models"
	"consents/internal/platform/privacy"
	"consents/internal/users/metrics"
	"consents/internal/users/models"
	id "consents/pkg/domain"
	dErrors "consents/pkg/domain-errors"
	"consents/pkg/platform/sentinel"
	psync "consents/pkg/platform/sync"
	"consents/pkg/requestcontext"
	"consents/pkg/validation"
)

// Store defines the persistence interface for users.
// Error Contract:
// - FindByID and FindByEmail return sentinel.ErrNotFound when no user matches
// - Save and Update return sentinel.ErrConflict when the email belongs to another user
// - Update returns sentinel.ErrNotFound when the user no longer exists
// - Delete returns nil for unknown users
type Store interface {
	Save(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Delete(ctx context.Context, userID id.UserID) error
}

type Option func(*Service)

// Service manages users and projects consent changes onto them.
type Service struct {
	store     Store
	publisher bus.Publisher
	locks     *psync.ShardedMutex
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func New(store Store, publisher bus.Publisher, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:     store,
		publisher: publisher,
		locks:     psync.NewShardedMutex(),
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

// WithLocks shares a lock set between services that guard the same keys.
func WithLocks(locks *psync.ShardedMutex) Option {
	return func(s *Service) {
		if locks != nil {
			s.locks = locks
		}
	}
}

const (
	msgInvalidEmail = "email must be a valid email address"
	msgEmailTaken   = "email is already in use"
	msgUserNotFound = "user not found"
)

// Create registers a user. The lookup and the insert run under the email's
// lock; the store's unique constraint catches writers in other processes.
func (s *Service) Create(ctx context.Context, email string) (*models.View, error) {
	email = models.NormalizeEmail(email)
	if !validation.IsEmail(email) {
		return nil, dErrors.New(dErrors.CodeValidation, msgInvalidEmail)
	}

	var user *models.User
	err := s.locks.WithLock(psync.EmailKey(email), func() error {
		if err := s.ensureEmailAvailable(ctx, email, id.UserID{}); err != nil {
			return err
		}
		u, err := models.NewUser(id.NewUserID(), email, requestcontext.Now(ctx))
		if err != nil {
			return err
		}
		start := time.Now()
		err = s.store.Save(ctx, u)
		s.observeStore("save", start)
		if err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, msgEmailTaken)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save user")
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user created",
		"user_id", user.ID,
		"email", privacy.MaskEmail(user.Email),
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.IncrementUsersCreated()
	}
	return user.View(), nil
}

func (s *Service) Find(ctx context.Context, userID id.UserID) (*models.View, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.View(), nil
}

func (s *Service) List(ctx context.Context) ([]*models.View, error) {
	start := time.Now()
	users, err := s.store.List(ctx)
	s.observeStore("list", start)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	views := make([]*models.View, 0, len(users))
	for _, u := range users {
		views = append(views, u.View())
	}
	return views, nil
}

// Update changes a user's email. Errors are reported in the order
// not found, invalid email, email taken.
func (s *Service) Update(ctx context.Context, userID id.UserID, email string) (*models.View, error) {
	email = models.NormalizeEmail(email)

	var user *models.User
	keys := []string{psync.UserKey(userID.String()), psync.EmailKey(email)}
	err := s.locks.WithLocks(keys, func() error {
		u, err := s.load(ctx, userID)
		if err != nil {
			return err
		}
		if !validation.IsEmail(email) {
			return dErrors.New(dErrors.CodeValidation, msgInvalidEmail)
		}
		if err := s.ensureEmailAvailable(ctx, email, userID); err != nil {
			return err
		}

		u.ChangeEmail(email, requestcontext.Now(ctx))
		if err := s.update(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user email updated",
		"user_id", user.ID,
		"email", privacy.MaskEmail(user.Email),
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.IncrementUsersUpdated()
	}
	return user.View(), nil
}

// Delete removes the user and then publishes UserDeleted so the user's event
// history is purged. Failures are reported in the result, never as an error.
// Deleting an unknown user succeeds.
func (s *Service) Delete(ctx context.Context, userID id.UserID) *id.DeleteResult {
	start := time.Now()
	err := s.locks.WithLock(psync.UserKey(userID.String()), func() error {
		return s.store.Delete(ctx, userID)
	})
	s.observeStore("delete", start)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to delete user",
			"user_id", userID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.countDelete("store_error")
		return id.NotDeleted("failed to delete user")
	}

	msg := bus.UserDeleted{UserID: userID, OccurredAt: requestcontext.Now(ctx)}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "user deleted but event history cascade failed",
			"user_id", userID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.countDelete("cascade_error")
		return id.NotDeleted("user deleted but their event history could not be removed")
	}

	s.logger.InfoContext(ctx, "user deleted",
		"user_id", userID,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.countDelete("deleted")
	return id.Deleted()
}

// HandleConsentChanged is the consent projector. It marks the user as having
// given consent and applies the submission's latest value per topic. A change
// for an unknown user is a consistency violation and is returned, not retried.
func (s *Service) HandleConsentChanged(ctx context.Context, msg bus.ConsentChanged) error {
	reduction := consent.Reduce(msg.Deltas)

	return s.locks.WithLock(psync.UserKey(msg.UserID.String()), func() error {
		user, err := s.store.FindByID(ctx, msg.UserID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				s.projectionFailed(ctx, msg.UserID, "user_not_found", err)
				return dErrors.New(dErrors.CodeInvariantViolation,
					fmt.Sprintf("consent change references unknown user %s", msg.UserID))
			}
			s.projectionFailed(ctx, msg.UserID, "store_error", err)
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user for consent change")
		}

		user.ApplyConsentChange(reduction, requestcontext.Now(ctx))
		if err := s.update(ctx, user); err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				s.projectionFailed(ctx, msg.UserID, "user_not_found", err)
				return dErrors.New(dErrors.CodeInvariantViolation,
					fmt.Sprintf("user %s deleted during consent change", msg.UserID))
			}
			s.projectionFailed(ctx, msg.UserID, "store_error", err)
			return err
		}

		s.logger.DebugContext(ctx, "consent change projected",
			"user_id", msg.UserID,
			"topics", len(reduction.Updates),
			"request_id", requestcontext.RequestID(ctx),
		)
		if s.metrics != nil {
			s.metrics.IncrementProjectionsApplied()
		}
		return nil
	})
}

func (s *Service) load(ctx context.Context, userID id.UserID) (*models.User, error) {
	start := time.Now()
	user, err := s.store.FindByID(ctx, userID)
	s.observeStore("find", start)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, msgUserNotFound)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

func (s *Service) update(ctx context.Context, user *models.User) error {
	start := time.Now()
	err := s.store.Update(ctx, user)
	s.observeStore("update", start)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, msgEmailTaken)
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, msgUserNotFound)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
	}
}

// ensureEmailAvailable fails with a conflict if email belongs to a user other than owner.
func (s *Service) ensureEmailAvailable(ctx context.Context, email string, owner id.UserID) error {
	existing, err := s.store.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check email")
	case existing.ID != owner:
		return dErrors.New(dErrors.CodeConflict, msgEmailTaken)
	default:
		return nil
	}
}

func (s *Service) projectionFailed(ctx context.Context, userID id.UserID, reason string, err error) {
	s.logger.ErrorContext(ctx, "consent projection failed",
		"user_id", userID,
		"reason", reason,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.IncrementProjectionsFailed(reason)
	}
}

func (s *Service) countDelete(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementUsersDeleted(outcome)
	}
}

func (s *Service) observeStore(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStoreOperationLatency(operation, time.Since(start))
	}
}
