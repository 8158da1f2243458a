package domain

// DeleteResult is the outcome of a delete request. Deletes never fail at the
// API: a store failure is reported with Deleted false and a Message.
type DeleteResult struct {
	Deleted bool   `json:"deleted"`
	Message string `json:"message,omitempty"`
}

// Deleted is the successful result.
func Deleted() *DeleteResult {
	return &DeleteResult{Deleted: true}
}

// NotDeleted reports a failed delete with a client-facing message.
func NotDeleted(message string) *DeleteResult {
	return &DeleteResult{Deleted: false, Message: message}
}
