package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "showroom/pkg/domain-errors"
)

// LimitsSuite checks the boundary helpers: max passes, max+1 fails.
type LimitsSuite struct {
	suite.Suite
}

func TestLimitsSuite(t *testing.T) {
	suite.Run(t, new(LimitsSuite))
}

func (s *LimitsSuite) TestCheckSliceCount() {
	s.NoError(CheckSliceCount("attachments", MaxFiles, MaxFiles))
	s.NoError(CheckSliceCount("attachments", 0, MaxFiles))

	err := CheckSliceCount("attachments", MaxFiles+1, MaxFiles)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Contains(err.Error(), "too many attachments: max 5 allowed")
}

func (s *LimitsSuite) TestCheckStringLength() {
	s.NoError(CheckStringLength("filename", strings.Repeat("a", 100), 100))
	s.NoError(CheckStringLength("filename", "", 100))

	err := CheckStringLength("filename", strings.Repeat("a", 101), 100)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Contains(err.Error(), "filename exceeds max length of 100")
}

func (s *LimitsSuite) TestCheckFileSize() {
	s.NoError(CheckFileSize("car.jpg", MaxFileSize, MaxFileSize))

	err := CheckFileSize("car.jpg", MaxFileSize+1, MaxFileSize)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTooLarge))
	s.Contains(err.Error(), "car.jpg exceeds 10 MB")
}
