package models

import (
	"strings"
	"time"

	consent "consents/internal/consent/models"
	id "consents/pkg/domain"
	dErrors "consents/pkg/domain-errors"
)

// User is a registered person and the projection of their consent history.
//
// PreviouslyGivenConsent is false until the first consent change is applied;
// after that the user's consents are always reported, even if all are disabled.
type User struct {
	ID                        id.UserID
	Email                     string
	PreviouslyGivenConsent    bool
	EmailNotificationsEnabled bool
	SMSNotificationsEnabled   bool
	CreatedAt                 time.Time
	LastModifiedAt            time.Time
}

// NewUser creates a User with domain invariant checks. Email format is
// validated by the service before this is called.
func NewUser(userID id.UserID, email string, now time.Time) (*User, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user ID required")
	}
	if strings.TrimSpace(email) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email required")
	}
	if now.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "creation time required")
	}
	return &User{
		ID:             userID,
		Email:          email,
		CreatedAt:      now,
		LastModifiedAt: now,
	}, nil
}

// ChangeEmail sets a new email and bumps LastModifiedAt.
func (u *User) ChangeEmail(email string, now time.Time) {
	u.Email = email
	u.LastModifiedAt = now
}

// ApplyConsentChange projects one reduced consent submission onto the user.
// Topics the submission did not mention keep their current value.
func (u *User) ApplyConsentChange(r consent.Reduction, now time.Time) {
	u.PreviouslyGivenConsent = true
	for topic, enabled := range r.Updates {
		if flag := u.flag(topic); flag != nil {
			*flag = enabled
		}
	}
	u.LastModifiedAt = now
}

// Enabled reports the current state of a topic; unknown topics are never enabled.
func (u *User) Enabled(topic consent.Topic) bool {
	if flag := u.flag(topic); flag != nil {
		return *flag
	}
	return false
}

func (u *User) flag(topic consent.Topic) *bool {
	switch topic {
	case consent.TopicEmail:
		return &u.EmailNotificationsEnabled
	case consent.TopicSMS:
		return &u.SMSNotificationsEnabled
	default:
		return nil
	}
}

// Consents lists every known topic in display order, or an empty slice if the
// user has never given consent.
func (u *User) Consents() []consent.Consent {
	if !u.PreviouslyGivenConsent {
		return []consent.Consent{}
	}
	out := make([]consent.Consent, 0, len(consent.Topics))
	for _, t := range consent.Topics {
		out = append(out, consent.Consent{ID: t, Enabled: u.Enabled(t)})
	}
	return out
}

// View is the public shape of a user.
type View struct {
	ID       id.UserID         `json:"id"`
	Email    string            `json:"email"`
	Consents []consent.Consent `json:"consents"`
}

func (u *User) View() *View {
	return &View{
		ID:       u.ID,
		Email:    u.Email,
		Consents: u.Consents(),
	}
}

// NormalizeEmail trims surrounding whitespace. Case is preserved; uniqueness
// comparisons are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
