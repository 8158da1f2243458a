package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "consents/pkg/domain-errors"
)

// LimitsSuite checks that max passes and max+1 fails.
type LimitsSuite struct {
	suite.Suite
}

func TestLimitsSuite(t *testing.T) {
	suite.Run(t, new(LimitsSuite))
}

func (s *LimitsSuite) TestCheckSliceCount() {
	s.NoError(CheckSliceCount("consents", 0, MaxConsentsPerEvent))
	s.NoError(CheckSliceCount("consents", MaxConsentsPerEvent, MaxConsentsPerEvent))

	err := CheckSliceCount("consents", MaxConsentsPerEvent+1, MaxConsentsPerEvent)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal("too many consents: max 50 allowed", err.Error())
}

func (s *LimitsSuite) TestCheckStringLength() {
	s.NoError(CheckStringLength("email", strings.Repeat("a", MaxEmailLength), MaxEmailLength))

	err := CheckStringLength("email", strings.Repeat("a", MaxEmailLength+1), MaxEmailLength)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Contains(err.Error(), "exceeds max length of 254")
}
