package validation

import (
	"fmt"

	dErrors "consents/pkg/domain-errors"
)

const (
	// MaxEmailLength follows the SMTP path limit.
	MaxEmailLength = 254

	// MaxConsentsPerEvent bounds one submission. There are only a handful of
	// topics, so larger lists are client errors.
	MaxConsentsPerEvent = 50
)

// CheckSliceCount fails with a validation error when count exceeds max.
func CheckSliceCount(fieldName string, count, max int) error {
	if count > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

// CheckStringLength fails with a validation error when value is longer than max bytes.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}
