package models

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	dErrors "showroom/pkg/domain-errors"
	"showroom/pkg/platform/httputil"
	"showroom/pkg/platform/validation"
)

type SubmissionSuite struct {
	suite.Suite
}

func TestSubmissionSuite(t *testing.T) {
	suite.Run(t, new(SubmissionSuite))
}

func jpeg(name string) Attachment {
	return Attachment{Filename: name, ContentType: "image/jpeg", Content: []byte{0xff, 0xd8, 0xff, 0xe0}}
}

func (s *SubmissionSuite) validContact() *ContactSubmission {
	return &ContactSubmission{Name: "Ana Silva", Email: "ana@example.com", Message: "Is the X5 still available?"}
}

func (s *SubmissionSuite) TestContactRequiredFields() {
	for _, tc := range []struct {
		mutate func(*ContactSubmission)
		want   string
	}{
		{func(c *ContactSubmission) { c.Name = "" }, "name is required"},
		{func(c *ContactSubmission) { c.Email = "" }, "email is required"},
		{func(c *ContactSubmission) { c.Message = "  " }, "message"},
		{func(c *ContactSubmission) { c.Email = "ana-at-example" }, "email must be a valid email"},
	} {
		sub := s.validContact()
		tc.mutate(sub)
		err := httputil.PrepareRequest(sub)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), tc.want)
	}
}

func (s *SubmissionSuite) TestContactPreparation() {
	sub := &ContactSubmission{Name: "  Ana ", Email: " ANA@Example.com ", Message: " hi "}

	s.Require().NoError(httputil.PrepareRequest(sub))

	s.Equal("Ana", sub.Name)
	s.Equal("ana@example.com", sub.Email)
	s.Equal("hi", sub.Message)
}

func (s *SubmissionSuite) TestContactAttachments() {
	s.Run("pdf allowed", func() {
		sub := s.validContact()
		sub.Attachments = []Attachment{{Filename: "offer.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.7")}}
		s.NoError(sub.Validate())
	})

	s.Run("disallowed type", func() {
		sub := s.validContact()
		sub.Attachments = []Attachment{{Filename: "run.exe", ContentType: "application/x-msdownload", Content: []byte("MZ")}}
		err := sub.Validate()
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "not allowed")
	})

	s.Run("oversized file", func() {
		sub := s.validContact()
		sub.Attachments = []Attachment{{Filename: "big.jpg", ContentType: "image/jpeg", Content: bytes.Repeat([]byte{1}, validation.MaxFileSize+1)}}
		s.True(dErrors.HasCode(sub.Validate(), dErrors.CodeTooLarge))
	})

	s.Run("too many files", func() {
		sub := s.validContact()
		for i := 0; i <= validation.MaxFiles; i++ {
			sub.Attachments = append(sub.Attachments, jpeg("car.jpg"))
		}
		s.Contains(sub.Validate().Error(), "too many attachments")
	})

	s.Run("empty file", func() {
		sub := s.validContact()
		sub.Attachments = []Attachment{{Filename: "empty.png", ContentType: "image/png"}}
		s.Contains(sub.Validate().Error(), "is empty")
	})
}

func (s *SubmissionSuite) TestTradeInRequiresVehicle() {
	sub := &TradeInSubmission{Name: "Ana", Email: "ana@example.com", Message: "Offer please", Model: "Golf"}
	s.EqualError(sub.Validate(), "brand is required")

	sub.Brand = "VW"
	s.NoError(sub.Validate())

	sub.Year = 1800
	s.EqualError(sub.Validate(), "year must be 1900 or more")
}

func (s *SubmissionSuite) TestTradeInImagesOnly() {
	sub := &TradeInSubmission{Name: "Ana", Email: "ana@example.com", Message: "m", Brand: "VW", Model: "Golf"}
	sub.Images = []Attachment{{Filename: "papers.pdf", ContentType: "application/pdf", Content: []byte("%PDF")}}

	s.True(dErrors.HasCode(sub.Validate(), dErrors.CodeValidation))
}

func TestDetectContentType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	assert.Equal(t, "image/png", DetectContentType("application/octet-stream", png))
	assert.Equal(t, "image/png", DetectContentType("", png))
	assert.Equal(t, "image/jpeg", DetectContentType("image/JPEG; charset=binary", nil))
}

func TestAttachmentExtension(t *testing.T) {
	assert.Equal(t, ".jpg", Attachment{Filename: "Car.JPG"}.Extension())
	assert.Equal(t, ".png", Attachment{Filename: "noext", ContentType: "image/png"}.Extension())
	assert.Equal(t, ".bin", Attachment{Filename: "noext", ContentType: "application/x-unknown"}.Extension())
}
