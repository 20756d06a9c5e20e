package sender

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"showroom/internal/mail/models"
)

type recordingDialer struct {
	sent []*mail.Msg
	err  error
}

func (d *recordingDialer) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	d.sent = append(d.sent, messages...)
	return d.err
}

func render(t *testing.T, msg *mail.Msg) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestBuild(t *testing.T) {
	s := New(&recordingDialer{}, "website@autohaus.example", "Autohaus Website")

	msg, err := s.Build(&models.Email{
		To:      []string{"sales@autohaus.example"},
		ReplyTo: "ana@example.com",
		Subject: "Trade-in request: VW Golf",
		Text:    "plain body",
		HTML:    "<p>html body</p>",
		Attachments: []models.Attachment{
			{Filename: "offer.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.7")},
		},
	})
	require.NoError(t, err)

	raw := render(t, msg)
	assert.Contains(t, raw, "Subject: Trade-in request: VW Golf")
	assert.Contains(t, raw, "Reply-To: <ana@example.com>")
	assert.Contains(t, raw, "To: <sales@autohaus.example>")
	assert.Contains(t, raw, `"Autohaus Website" <website@autohaus.example>`)
	assert.Contains(t, raw, "plain body")
	assert.Contains(t, raw, "<p>html body</p>")
	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, `filename="offer.pdf"`)
}

func TestBuild_RejectsBadAddresses(t *testing.T) {
	s := New(&recordingDialer{}, "website@autohaus.example", "")

	_, err := s.Build(&models.Email{To: []string{"not an address"}})
	assert.ErrorContains(t, err, "invalid recipient")

	_, err = New(&recordingDialer{}, "nope", "").Build(&models.Email{To: []string{"a@b.de"}})
	assert.ErrorContains(t, err, "invalid from address")
}

func TestSend(t *testing.T) {
	dialer := &recordingDialer{}
	s := New(dialer, "website@autohaus.example", "")

	require.NoError(t, s.Send(context.Background(), &models.Email{To: []string{"sales@autohaus.example"}, Text: "x"}))
	assert.Len(t, dialer.sent, 1)

	dialer.err = errors.New("535 authentication failed")
	err := s.Send(context.Background(), &models.Email{To: []string{"sales@autohaus.example"}, Text: "x"})
	assert.ErrorContains(t, err, "535 authentication failed")
}

func TestNewSMTP_Validation(t *testing.T) {
	_, err := NewSMTP(Config{From: "a@b.de"})
	assert.Error(t, err)
	_, err = NewSMTP(Config{Host: "smtp.example.com"})
	assert.Error(t, err)

	s, err := NewSMTP(Config{Host: "smtp.example.com", Port: 2525, From: "a@b.de", Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.NotNil(t, s)
}
