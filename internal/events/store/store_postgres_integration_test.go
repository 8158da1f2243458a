//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	consent "consents/internal/consent/models"
	"consents/internal/events/store"
	id "consents/pkg/domain"
	"consents/pkg/platform/sentinel"
	"consents/pkg/testutil"
	"consents/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.Postgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *PostgresStoreSuite) TestListKeepsInsertionOrder() {
	ctx := context.Background()
	userID := id.NewUserID()

	// Timestamps run backwards so ordering by time would fail.
	var saved []id.EventID
	for i := range 5 {
		e := testutil.NewEvent(userID, consent.Delta{Topic: consent.TopicSMS, Enabled: i%2 == 0})
		e.Timestamp = testutil.FixedTime.Add(-time.Duration(i) * time.Minute)
		s.Require().NoError(s.store.Save(ctx, e))
		saved = append(saved, e.ID)
	}

	events, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(events, 5)
	for i, e := range events {
		s.Equal(saved[i], e.ID)
		s.Equal(userID, e.UserID)
	}
	s.Equal("Enabled SMS", events[0].ChangeDescription)
	s.True(testutil.FixedTime.Equal(events[0].Timestamp))
}

func (s *PostgresStoreSuite) TestDuplicateIDConflicts() {
	ctx := context.Background()
	e := testutil.NewEvent(id.NewUserID())
	s.Require().NoError(s.store.Save(ctx, e))
	s.ErrorIs(s.store.Save(ctx, e), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestDeletes() {
	ctx := context.Background()
	alice, bob := id.NewUserID(), id.NewUserID()
	a1 := testutil.NewEvent(alice)
	a2 := testutil.NewEvent(alice)
	b1 := testutil.NewEvent(bob)
	s.Require().NoError(s.store.Save(ctx, a1))
	s.Require().NoError(s.store.Save(ctx, a2))
	s.Require().NoError(s.store.Save(ctx, b1))

	s.Require().NoError(s.store.Delete(ctx, b1.ID))
	s.Require().NoError(s.store.Delete(ctx, b1.ID))

	n, err := s.store.DeleteByUser(ctx, alice)
	s.Require().NoError(err)
	s.Equal(int64(2), n)

	events, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Empty(events)
}
