package models

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	dErrors "showroom/pkg/domain-errors"
	"showroom/pkg/platform/validation"
)

// Attachment is one submitted file held in memory for the duration of the request.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Size returns the content length in bytes.
func (a Attachment) Size() int {
	return len(a.Content)
}

// Extension returns the lower-cased filename extension including the dot,
// falling back to one derived from the content type.
func (a Attachment) Extension() string {
	if ext := strings.ToLower(filepath.Ext(a.Filename)); ext != "" && len(ext) <= 6 {
		return ext
	}
	if exts, err := mime.ExtensionsByType(a.ContentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

// DocumentTypes may be attached to a contact request.
var DocumentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/gif":       true,
	"application/pdf": true,
}

// ImageTypes may be uploaded with a trade-in request.
var ImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// DetectContentType trusts the declared type when it is specific and sniffs
// the content otherwise. Parameters are stripped.
func DetectContentType(declared string, content []byte) string {
	mediaType, _, err := mime.ParseMediaType(declared)
	if err == nil && mediaType != "" && mediaType != "application/octet-stream" {
		return strings.ToLower(mediaType)
	}
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(content))
	return sniffed
}

// CheckAttachments enforces the file count, per-file size and MIME allow-list.
func CheckAttachments(field string, files []Attachment, allowed map[string]bool) error {
	if err := validation.CheckSliceCount(field, len(files), validation.MaxFiles); err != nil {
		return err
	}
	for _, f := range files {
		if err := validation.CheckStringLength("filename", f.Filename, validation.MaxFilenameLength); err != nil {
			return err
		}
		if f.Size() == 0 {
			return dErrors.New(dErrors.CodeValidation, "file "+f.Filename+" is empty")
		}
		if err := validation.CheckFileSize(f.Filename, f.Size(), validation.MaxFileSize); err != nil {
			return err
		}
		if !allowed[f.ContentType] {
			return dErrors.New(dErrors.CodeValidation, "file type "+f.ContentType+" is not allowed")
		}
	}
	return nil
}

// Email is a composed message ready for the SMTP sender.
type Email struct {
	To          []string
	ReplyTo     string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}
