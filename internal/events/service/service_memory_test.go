package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consents/internal/bus"
	consent "consents/internal/consent/models"
	"consents/internal/events/models"
	"consents/internal/events/service"
	"consents/internal/events/store"
	users "consents/internal/users/service"
	userstore "consents/internal/users/store"
	id "consents/pkg/domain"
	dErrors "consents/pkg/domain-errors"
)

type harness struct {
	bus    *bus.InMemory
	events *service.Service
	users  *users.Service
}

func newHarness() *harness {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := bus.NewInMemory(bus.WithLogger(logger))
	h := &harness{
		bus:    b,
		events: service.New(store.NewInMemory(), b, logger),
		users:  users.New(userstore.NewInMemory(), b, logger),
	}
	bus.On(b, h.users.HandleConsentChanged)
	bus.On(b, h.events.HandleUserDeleted)
	return h
}

func TestEventsProjectOntoUser(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	user, err := h.users.Create(ctx, "dumont@didomi.io")
	require.NoError(t, err)
	assert.Empty(t, user.Consents)

	_, err = h.events.Create(ctx, user.ID, []consent.Delta{{Topic: consent.TopicEmail, Enabled: true}})
	require.NoError(t, err)
	_, err = h.events.Create(ctx, user.ID, []consent.Delta{
		{Topic: consent.TopicEmail, Enabled: false},
		{Topic: consent.TopicSMS, Enabled: true},
	})
	require.NoError(t, err)

	view, err := h.users.Find(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []consent.Consent{
		{ID: consent.TopicEmail, Enabled: false},
		{ID: consent.TopicSMS, Enabled: true},
	}, view.Consents)

	events, err := h.events.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Enabled Email", events[0].ChangeDescription)
	assert.Equal(t, "Enabled SMS and disabled Email", events[1].ChangeDescription)
}

func TestEventForUnknownUserIsKeptAndReported(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	orphan := id.NewUserID()

	event, err := h.events.Create(ctx, orphan, []consent.Delta{{Topic: consent.TopicSMS, Enabled: true}})

	var projErr *models.ProjectionError
	require.ErrorAs(t, err, &projErr)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	require.NotNil(t, event)
	assert.Equal(t, event.ID, projErr.EventID)

	events, err := h.events.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, orphan, events[0].UserID)
}

func TestUserDeleteCascadesToEvents(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	alice, err := h.users.Create(ctx, "alice@didomi.io")
	require.NoError(t, err)
	bob, err := h.users.Create(ctx, "bob@didomi.io")
	require.NoError(t, err)

	for _, u := range []id.UserID{alice.ID, bob.ID, alice.ID} {
		_, err := h.events.Create(ctx, u, []consent.Delta{{Topic: consent.TopicEmail, Enabled: true}})
		require.NoError(t, err)
	}

	assert.Equal(t, id.Deleted(), h.users.Delete(ctx, alice.ID))

	events, err := h.events.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, bob.ID, events[0].UserID)

	_, err = h.users.Find(ctx, alice.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

type failingStore struct {
	*store.InMemoryStore
}

func (failingStore) DeleteByUser(context.Context, id.UserID) (int64, error) {
	return 0, errors.New("disk full")
}

func TestCascadeFailureIsReportedToDeleter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := bus.NewInMemory(bus.WithLogger(logger))
	events := service.New(failingStore{store.NewInMemory()}, b, logger)
	userSvc := users.New(userstore.NewInMemory(), b, logger)
	bus.On(b, events.HandleUserDeleted)
	ctx := context.Background()

	user, err := userSvc.Create(ctx, "dumont@didomi.io")
	require.NoError(t, err)

	res := userSvc.Delete(ctx, user.ID)

	assert.False(t, res.Deleted)
	assert.NotEmpty(t, res.Message)
}

var _ service.Store = failingStore{}
