package testutil

import (
	"time"

	"github.com/google/uuid"

	consent "consents/internal/consent/models"
	eventmodels "consents/internal/events/models"
	usermodels "consents/internal/users/models"
	id "consents/pkg/domain"
)

// TestIDs are fixed identifiers for deterministic test data.
var TestIDs = struct {
	UserID1  id.UserID
	UserID2  id.UserID
	EventID1 id.EventID
}{
	UserID1:  id.UserID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	UserID2:  id.UserID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
	EventID1: id.EventID(uuid.MustParse("eeee0000-0000-0000-0000-000000000001")),
}

// FixedTime is the default clock for fixtures.
var FixedTime = time.Date(2021, 5, 1, 9, 0, 0, 0, time.UTC)

// UserBuilder builds test users.
type UserBuilder struct {
	user usermodels.User
}

func NewUser() *UserBuilder {
	return &UserBuilder{user: usermodels.User{
		ID:             id.NewUserID(),
		Email:          "user-" + uuid.NewString()[:8] + "@didomi.io",
		CreatedAt:      FixedTime,
		LastModifiedAt: FixedTime,
	}}
}

func (b *UserBuilder) WithID(userID id.UserID) *UserBuilder {
	b.user.ID = userID
	return b
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.user.Email = email
	return b
}

// WithConsents marks the user as having given consent with the given flags.
func (b *UserBuilder) WithConsents(email, sms bool) *UserBuilder {
	b.user.PreviouslyGivenConsent = true
	b.user.EmailNotificationsEnabled = email
	b.user.SMSNotificationsEnabled = sms
	return b
}

func (b *UserBuilder) Build() *usermodels.User {
	u := b.user
	return &u
}

// NewEvent returns a stored-shape event for userID with the description derived from deltas.
func NewEvent(userID id.UserID, deltas ...consent.Delta) *eventmodels.Event {
	return &eventmodels.Event{
		ID:                id.NewEventID(),
		UserID:            userID,
		Timestamp:         FixedTime,
		ChangeDescription: consent.Reduce(deltas).Description(),
	}
}
