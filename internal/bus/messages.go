// Package bus is the in-process notification bus that keeps users and events
// consistent: event creation publishes ConsentChanged for the user projector,
// and user deletion publishes UserDeleted for the event cascade.
package bus

import (
	"time"

	"consents/internal/consent/models"
	id "consents/pkg/domain"
)

// Kind names a message type. Handlers subscribe by kind.
type Kind string

const (
	KindConsentChanged Kind = "consent.changed"
	KindUserDeleted    Kind = "user.deleted"
)

// Message is anything that can travel on the bus.
type Message interface {
	Kind() Kind
	// Subject is the user the message is about.
	Subject() id.UserID
}

// ConsentChanged is published after a consent-change event has been stored.
type ConsentChanged struct {
	UserID     id.UserID
	Deltas     []models.Delta
	OccurredAt time.Time
}

func (ConsentChanged) Kind() Kind           { return KindConsentChanged }
func (m ConsentChanged) Subject() id.UserID { return m.UserID }

// UserDeleted is published after a user record has been removed.
type UserDeleted struct {
	UserID     id.UserID
	OccurredAt time.Time
}

func (UserDeleted) Kind() Kind           { return KindUserDeleted }
func (m UserDeleted) Subject() id.UserID { return m.UserID }
