package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "consents/pkg/domain-errors"
	s "consents/pkg/string"
)

func TestIsEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"dumont@didomi.io", true},
		{"beauvoir@didomi.io", true},
		{"dumont@", false},
		{"@didomi.io", false},
		{"not an email", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsEmail(tt.email))
		})
	}
}

type sample struct {
	UserID string `validate:"required,uuid"`
	Email  string `validate:"notblank"`
}

func TestValidate(t *testing.T) {
	err := Validate(sample{Email: "x"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Equal(t, "user_id is required", err.Error())

	err = Validate(sample{UserID: "00000000-0000-0000-0000-000000000000", Email: "  "})
	require.Error(t, err)
	assert.Equal(t, "email must not be blank", err.Error())

	assert.NoError(t, Validate(sample{UserID: "00000000-0000-0000-0000-000000000000", Email: "x"}))
}

func TestToSnakeCase(t *testing.T) {
	assert.Equal(t, "user_id", s.ToSnakeCase("UserID"))
	assert.Equal(t, "change_description", s.ToSnakeCase("ChangeDescription"))
}
