package models

import "encoding/json"

// Topic is a notification channel whose enabled state is tracked per user.
type Topic string

const (
	TopicEmail Topic = "email_notifications"
	TopicSMS   Topic = "sms_notifications"

	// TopicUnknown marks an identifier outside the supported set. Deltas carrying it
	// are accepted on input and ignored by reduction and projection.
	TopicUnknown Topic = ""
)

// Topics lists the known topics in the order they appear in a user's consents.
var Topics = []Topic{TopicEmail, TopicSMS}

var topicLabels = map[Topic]string{
	TopicEmail: "Email",
	TopicSMS:   "SMS",
}

// ParseTopic maps a wire identifier to a Topic, or TopicUnknown.
func ParseTopic(s string) Topic {
	t := Topic(s)
	if t.IsKnown() {
		return t
	}
	return TopicUnknown
}

// IsKnown reports whether t is one of the supported topics.
func (t Topic) IsKnown() bool {
	_, ok := topicLabels[t]
	return ok
}

// Label is the short name used in change descriptions.
func (t Topic) Label() string {
	return topicLabels[t]
}

func (t Topic) String() string {
	if t == TopicUnknown {
		return "unknown"
	}
	return string(t)
}

// Delta is one (topic, enabled) pair from a consent-change submission.
type Delta struct {
	Topic   Topic
	Enabled bool
}

type deltaJSON struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

// UnmarshalJSON accepts {"id", "enabled"}; unrecognized ids decode to TopicUnknown.
func (d *Delta) UnmarshalJSON(data []byte) error {
	var raw deltaJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Topic = ParseTopic(raw.ID)
	d.Enabled = raw.Enabled
	return nil
}

func (d Delta) MarshalJSON() ([]byte, error) {
	return json.Marshal(deltaJSON{ID: string(d.Topic), Enabled: d.Enabled})
}

// Consent is a user's current state for one topic.
type Consent struct {
	ID      Topic `json:"id"`
	Enabled bool  `json:"enabled"`
}
