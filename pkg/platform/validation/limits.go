package validation

import (
	"fmt"

	dErrors "showroom/pkg/domain-errors"
)

// HTTP body limits.
const (
	// MaxBodySize bounds JSON request bodies.
	MaxBodySize = 64 * 1024

	// MaxFileSize bounds a single uploaded or attached file.
	MaxFileSize = 10 << 20

	// MaxFiles bounds the number of files in one submission.
	MaxFiles = 5

	// MaxMultipartSize bounds a whole multipart submission: every file at
	// its limit plus room for the text fields and part headers.
	MaxMultipartSize = MaxFiles*MaxFileSize + 1<<20
)

// Form field length limits.
const (
	MaxNameLength     = 100
	MaxEmailLength    = 255
	MaxPhoneLength    = 40
	MaxSubjectLength  = 200
	MaxMessageLength  = 5000
	MaxVehicleField   = 100
	MaxFilenameLength = 255
)

// CheckSliceCount validates that a slice does not exceed the maximum count.
func CheckSliceCount(fieldName string, count, max int) error {
	if count > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

// CheckFileSize rejects files over max bytes with CodeTooLarge.
func CheckFileSize(filename string, size, max int) error {
	if size > max {
		return dErrors.New(dErrors.CodeTooLarge, fmt.Sprintf("file %s exceeds %d MB", filename, max>>20))
	}
	return nil
}
