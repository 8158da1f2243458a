package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"consents/internal/events/models"
	id "consents/pkg/domain"
	"consents/pkg/platform/sentinel"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore persists events in the event table. The seq column keeps
// insertion order for listing.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, event *models.Event) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}
	query := `
		INSERT INTO event (event_id, user_id, timestamp, change_description)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(event.ID),
		uuid.UUID(event.UserID),
		event.Timestamp,
		event.ChangeDescription,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("event already exists: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("save event: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Event, error) {
	query := `
		SELECT event_id, user_id, timestamp, change_description
		FROM event
		ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.Event, 0)
	for rows.Next() {
		var (
			eventID, userID uuid.UUID
			event           models.Event
		)
		if err := rows.Scan(&eventID, &userID, &event.Timestamp, &event.ChangeDescription); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.ID = id.EventID(eventID)
		event.UserID = id.UserID(userID)
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func (s *PostgresStore) Delete(ctx context.Context, eventID id.EventID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM event WHERE event_id = $1`, uuid.UUID(eventID)); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteByUser(ctx context.Context, userID id.UserID) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM event WHERE user_id = $1`, uuid.UUID(userID))
	if err != nil {
		return 0, fmt.Errorf("delete events by user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete events by user rows: %w", err)
	}
	return rows, nil
}
