package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "showroom/pkg/domain-errors"
)

type enquiry struct {
	FullName string `json:"name" validate:"required,notblank,max=10"`
	Email    string `json:"email" validate:"required,email"`
	Year     int    `form:"year" validate:"omitempty,gte=1950,lte=2100"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      enquiry
		wantMsg string
	}{
		{"missing name uses wire name", enquiry{Email: "a@b.de"}, "name is required"},
		{"blank name", enquiry{FullName: "   ", Email: "a@b.de"}, "name must not be blank"},
		{"too long", enquiry{FullName: "abcdefghijk", Email: "a@b.de"}, "name must be at most 10"},
		{"bad email", enquiry{FullName: "Ana", Email: "nope"}, "email must be a valid email"},
		{"form tag name", enquiry{FullName: "Ana", Email: "a@b.de", Year: 1900}, "year must be 1950 or more"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.EqualError(t, err, tt.wantMsg)
		})
	}

	assert.NoError(t, Struct(enquiry{FullName: "Ana", Email: "ana@example.com", Year: 2019}))
}
