package models

import "strings"

// Reduction is the outcome of folding a submission's deltas.
// A topic absent from Updates was not mentioned by the submission.
type Reduction struct {
	Updates map[Topic]bool
}

// Reduce keeps the last value given for each known topic. Unknown topics are dropped.
func Reduce(deltas []Delta) Reduction {
	updates := make(map[Topic]bool, len(Topics))
	for _, d := range deltas {
		if !d.Topic.IsKnown() {
			continue
		}
		updates[d.Topic] = d.Enabled
	}
	return Reduction{Updates: updates}
}

// descriptionOrder is the order topics are mentioned in a change description.
var descriptionOrder = []Topic{TopicSMS, TopicEmail}

const nothingChanged = "Nothing has changed."

// Description renders the reduction, e.g. "Enabled SMS", "Disabled SMS and enabled Email".
func (r Reduction) Description() string {
	parts := make([]string, 0, len(descriptionOrder))
	for _, t := range descriptionOrder {
		enabled, ok := r.Updates[t]
		if !ok {
			continue
		}
		verb := "disabled"
		if enabled {
			verb = "enabled"
		}
		if len(parts) == 0 {
			verb = strings.ToUpper(verb[:1]) + verb[1:]
		}
		parts = append(parts, verb+" "+t.Label())
	}
	if len(parts) == 0 {
		return nothingChanged
	}
	return strings.Join(parts, " and ")
}

// Value returns the reduced value for t and whether the submission set it.
func (r Reduction) Value(t Topic) (enabled, set bool) {
	enabled, set = r.Updates[t]
	return enabled, set
}
