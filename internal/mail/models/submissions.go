package models

import (
	"strings"

	"showroom/pkg/platform/validation"
)

// ContactSubmission is the general contact form. Attachments go out inline.
type ContactSubmission struct {
	Name        string       `json:"name" validate:"required,notblank,max=100"`
	Email       string       `json:"email" validate:"required,email,max=255"`
	Phone       string       `json:"phone" validate:"omitempty,max=40"`
	Subject     string       `json:"subject" validate:"omitempty,max=200"`
	Message     string       `json:"message" validate:"required,notblank,max=5000"`
	VehicleID   string       `json:"vehicleId" validate:"omitempty,max=64"`
	Attachments []Attachment `json:"-" validate:"-"`
	UserAgent   string       `json:"-" validate:"-"`
}

func (s *ContactSubmission) Sanitize() {
	trim(&s.Name, &s.Email, &s.Phone, &s.Subject, &s.Message, &s.VehicleID)
}

func (s *ContactSubmission) Normalize() {
	s.Email = strings.ToLower(s.Email)
}

// Validate checks fields before files so the cheap errors come first.
func (s *ContactSubmission) Validate() error {
	if err := validation.Struct(s); err != nil {
		return err
	}
	return CheckAttachments("attachments", s.Attachments, DocumentTypes)
}

// TradeInSubmission describes a vehicle offered in part exchange. Images are
// uploaded to object storage and linked from the email.
type TradeInSubmission struct {
	Name    string `json:"name" validate:"required,notblank,max=100"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Phone   string `json:"phone" validate:"omitempty,max=40"`
	Message string `json:"message" validate:"required,notblank,max=5000"`
	Brand   string `json:"brand" validate:"required,notblank,max=100"`
	Model   string `json:"model" validate:"required,notblank,max=100"`
	Year    int    `json:"year" validate:"omitempty,gte=1900,lte=2100"`
	Mileage int    `json:"mileage" validate:"omitempty,gte=0,lte=2000000"`
	Fuel    string `json:"fuel" validate:"omitempty,max=100"`
	Gearbox string `json:"gearbox" validate:"omitempty,max=100"`

	Images    []Attachment `json:"-" validate:"-"`
	UserAgent string       `json:"-" validate:"-"`
}

func (s *TradeInSubmission) Sanitize() {
	trim(&s.Name, &s.Email, &s.Phone, &s.Message, &s.Brand, &s.Model, &s.Fuel, &s.Gearbox)
}

func (s *TradeInSubmission) Normalize() {
	s.Email = strings.ToLower(s.Email)
}

func (s *TradeInSubmission) Validate() error {
	if err := validation.Struct(s); err != nil {
		return err
	}
	return CheckAttachments("images", s.Images, ImageTypes)
}

func trim(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}
