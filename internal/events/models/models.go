package models

import (
	"time"

	consent "consents/internal/consent/models"
	id "consents/pkg/domain"
	dErrors "consents/pkg/domain-errors"
)

// Event records one consent-change submission. UserID is not checked against
// the user store; events for unknown users are accepted and kept.
type Event struct {
	ID                id.EventID
	UserID            id.UserID
	Timestamp         time.Time
	ChangeDescription string
}

// ProjectionError reports an event that was stored while a bus subscriber
// failed to apply it. The event is kept; Err is the subscriber's error.
type ProjectionError struct {
	EventID id.EventID
	Err     error
}

func (e *ProjectionError) Error() string {
	return "event " + e.EventID.String() + " recorded but consent state was not updated: " + e.Err.Error()
}

func (e *ProjectionError) Unwrap() error {
	return e.Err
}

// NewEvent derives the change description from deltas at creation time.
func NewEvent(eventID id.EventID, userID id.UserID, deltas []consent.Delta, now time.Time) (*Event, error) {
	if eventID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event ID required")
	}
	if now.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event time required")
	}
	return &Event{
		ID:                eventID,
		UserID:            userID,
		Timestamp:         now,
		ChangeDescription: consent.Reduce(deltas).Description(),
	}, nil
}
