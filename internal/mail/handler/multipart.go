package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"showroom/internal/mail/models"
	dErrors "showroom/pkg/domain-errors"
	"showroom/pkg/platform/validation"
)

// multipartMemory is how much of a form is buffered before spilling to disk.
const multipartMemory = 32 << 20

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// parseForm parses a multipart body, translating the body cap into a 413.
func parseForm(r *http.Request) error {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return dErrors.New(dErrors.CodeTooLarge, "request body too large")
		}
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid multipart form")
	}
	return nil
}

func formValue(r *http.Request, name string) string {
	return strings.TrimSpace(r.FormValue(name))
}

// formInt parses an optional integer field. Thousands separators are
// tolerated; anything else non-numeric is a validation error.
func formInt(r *http.Request, name string) (int, error) {
	raw := strings.NewReplacer(".", "", ",", "", " ", "").Replace(formValue(r, name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeValidation, name+" must be a number")
	}
	return v, nil
}

// readFiles loads every file under field into memory. Files are read one
// byte past the size cap so oversize files are detected by validation
// without buffering them whole.
func readFiles(r *http.Request, field string) ([]models.Attachment, error) {
	headers := r.MultipartForm.File[field]
	if err := validation.CheckSliceCount(field, len(headers), validation.MaxFiles); err != nil {
		return nil, err
	}
	files := make([]models.Attachment, 0, len(headers))
	for _, fh := range headers {
		a, err := readFile(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, a)
	}
	return files, nil
}

func readFile(fh *multipart.FileHeader) (models.Attachment, error) {
	if fh.Size > validation.MaxFileSize {
		return models.Attachment{}, validation.CheckFileSize(fh.Filename, int(fh.Size), validation.MaxFileSize)
	}
	f, err := fh.Open()
	if err != nil {
		return models.Attachment{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable file "+fh.Filename)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, validation.MaxFileSize+1))
	if err != nil {
		return models.Attachment{}, dErrors.Wrap(err, dErrors.CodeBadRequest, fmt.Sprintf("unreadable file %s", fh.Filename))
	}
	return models.Attachment{
		Filename:    sanitizeFilename(fh.Filename),
		ContentType: models.DetectContentType(fh.Header.Get("Content-Type"), content),
		Content:     content,
	}, nil
}

// sanitizeFilename drops any client-side path and control characters.
func sanitizeFilename(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '"' {
			return -1
		}
		return r
	}, name)
	if name = strings.TrimSpace(name); name == "" {
		return "attachment"
	}
	return name
}
