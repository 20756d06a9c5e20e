package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
)

// Ad builds an opaque vendor listing record.
func Ad(id int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"id":"%d","make":"BMW","model":"320d","price":{"consumerPriceGross":"%d"}}`, id, 20000+id))
}

// Ads builds n consecutive listing records starting at id first.
func Ads(first, n int) []json.RawMessage {
	out := make([]json.RawMessage, 0, n)
	for i := range n {
		out = append(out, Ad(first+i))
	}
	return out
}

// VendorPage renders a vendor search response in the {"ads": [...], "total": N} shape.
func VendorPage(ads []json.RawMessage, total int) []byte {
	body, _ := json.Marshal(map[string]any{"ads": ads, "total": total}) //nolint:errcheck // fixture input is always encodable
	return body
}

// FormFile is one file part of a multipart test request.
type FormFile struct {
	Field       string
	Filename    string
	ContentType string
	Content     []byte
}

// MultipartBody encodes fields and files; it returns the body and its Content-Type.
func MultipartBody(fields map[string]string, files ...FormFile) (*bytes.Buffer, string) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v) //nolint:errcheck // bytes.Buffer never fails
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Filename))
		h.Set("Content-Type", f.ContentType)
		part, _ := mw.CreatePart(h) //nolint:errcheck // bytes.Buffer never fails
		_, _ = part.Write(f.Content) //nolint:errcheck // bytes.Buffer never fails
	}
	_ = mw.Close() //nolint:errcheck // bytes.Buffer never fails
	return buf, mw.FormDataContentType()
}
