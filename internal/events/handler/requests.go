package handler

import (
	"strings"
	"time"

	consent "consents/internal/consent/models"
	"consents/internal/events/models"
	id "consents/pkg/domain"
	dErrors "consents/pkg/domain-errors"
	limits "consents/pkg/platform/validation"
	"consents/pkg/validation"
)

// CreateEventRequest is the body of POST /events.
type CreateEventRequest struct {
	User     EventUser       `json:"user"`
	Consents []consent.Delta `json:"consents" validate:"required"`

	userID id.UserID
}

type EventUser struct {
	ID string `json:"id" validate:"required,uuid"`
}

func (r *CreateEventRequest) Sanitize() {
	r.User.ID = strings.TrimSpace(r.User.ID)
}

// Validate reports shape problems as bad requests.
func (r *CreateEventRequest) Validate() error {
	if err := validation.Validate(r); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, err.Error())
	}
	if err := limits.CheckSliceCount("consents", len(r.Consents), limits.MaxConsentsPerEvent); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, err.Error())
	}
	userID, err := id.ParseUserID(r.User.ID)
	if err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "user.id must be a valid uuid")
	}
	r.userID = userID
	return nil
}

// EventResponse is the JSON shape of one event.
type EventResponse struct {
	EventID           id.EventID `json:"eventID"`
	UserID            id.UserID  `json:"userID"`
	Timestamp         time.Time  `json:"timestamp"`
	ChangeDescription string     `json:"changeDescription"`
}

func toResponse(e *models.Event) EventResponse {
	return EventResponse{
		EventID:           e.ID,
		UserID:            e.UserID,
		Timestamp:         e.Timestamp,
		ChangeDescription: e.ChangeDescription,
	}
}
