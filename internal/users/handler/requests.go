package handler

import (
	"consents/pkg/platform/validation"
	s "consents/pkg/string"
)

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Email string `json:"email"`
}

func (r *CreateUserRequest) Sanitize() {
	s.TrimStrings(&r.Email)
}

// Validate only bounds the size; email syntax is checked by the service.
func (r *CreateUserRequest) Validate() error {
	return validation.CheckStringLength("email", r.Email, validation.MaxEmailLength)
}

// UpdateUserRequest is the body of PUT /users.
type UpdateUserRequest struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (r *UpdateUserRequest) Sanitize() {
	s.TrimStrings(&r.ID, &r.Email)
}
