// Package service relays website form submissions to the dealership inbox.
//
// Contact requests carry their files as attachments. Trade-in requests upload
// their images to object storage first and link them from the email. Both
// validate before any network call and send exactly one message.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"showroom/internal/mail/device"
	"showroom/internal/mail/metrics"
	"showroom/internal/mail/models"
	"showroom/internal/mail/templates"
	dErrors "showroom/pkg/domain-errors"
	"showroom/pkg/platform/privacy"
	"showroom/pkg/requestcontext"
)

const (
	KindContact = "contact"
	KindTradeIn = "trade_in"
)

// Sender delivers a composed email.
type Sender interface {
	Send(ctx context.Context, email *models.Email) error
}

// Uploader stores a file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// Config addresses outgoing mail.
type Config struct {
	Recipient     string
	SubjectPrefix string
	// KeyPrefix is prepended to uploaded object names.
	KeyPrefix string
	// Location formats the "sent at" footer.
	Location *time.Location
}

func DefaultConfig() Config {
	return Config{
		SubjectPrefix: "[Website]",
		KeyPrefix:     "trade-in/",
		Location:      time.UTC,
	}
}

// Service is safe for concurrent use.
type Service struct {
	sender   Sender
	uploader Uploader
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

// WithUploader enables trade-in image uploads.
func WithUploader(u Uploader) Option {
	return func(s *Service) {
		s.uploader = u
	}
}

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(sender Sender, opts ...Option) (*Service, error) {
	if sender == nil {
		return nil, errors.New("mail sender is required")
	}
	s := &Service{
		sender: sender,
		cfg:    DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.Recipient == "" {
		return nil, errors.New("mail recipient is required")
	}
	if s.cfg.Location == nil {
		s.cfg.Location = time.UTC
	}
	return s, nil
}

// SendContact validates sub and mails it with its files attached unchanged.
func (s *Service) SendContact(ctx context.Context, sub *models.ContactSubmission) (err error) {
	defer func() { s.record(KindContact, err) }()

	if err := sub.Validate(); err != nil {
		return err
	}

	body, err := templates.Contact(sub, s.footer(ctx, sub.UserAgent))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to compose email")
	}
	subject := "Contact request from " + sub.Name
	if sub.Subject != "" {
		subject += ": " + sub.Subject
	}

	return s.send(ctx, &models.Email{
		To:          []string{s.cfg.Recipient},
		ReplyTo:     sub.Email,
		Subject:     s.subject(subject),
		Text:        body,
		Attachments: sub.Attachments,
	})
}

// SendTradeIn validates sub, uploads every image concurrently and mails
// links to them. When any upload fails the first failure is returned after
// all uploads have settled and nothing is sent.
func (s *Service) SendTradeIn(ctx context.Context, sub *models.TradeInSubmission) (err error) {
	defer func() { s.record(KindTradeIn, err) }()

	if err := sub.Validate(); err != nil {
		return err
	}
	if len(sub.Images) > 0 && s.uploader == nil {
		return dErrors.New(dErrors.CodeStorageUpload, "image uploads are not configured")
	}

	urls, err := s.uploadAll(ctx, sub.Images)
	if err != nil {
		return err
	}

	text, html, err := templates.TradeIn(sub, urls, s.footer(ctx, sub.UserAgent))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to compose email")
	}

	return s.send(ctx, &models.Email{
		To:      []string{s.cfg.Recipient},
		ReplyTo: sub.Email,
		Subject: s.subject(fmt.Sprintf("Trade-in request: %s %s", sub.Brand, sub.Model)),
		Text:    text,
		HTML:    html,
	})
}

// uploadAll returns URLs in submission order. Uploads do not cancel each
// other, so every file either lands or reports its own error.
func (s *Service) uploadAll(ctx context.Context, images []models.Attachment) ([]string, error) {
	now := requestcontext.Now(ctx)
	urls := make([]string, len(images))
	var (
		mu       sync.Mutex
		firstErr error
	)

	var g errgroup.Group
	for i, img := range images {
		g.Go(func() error {
			key, err := s.objectKey(now, img)
			if err == nil {
				urls[i], err = s.uploader.Upload(ctx, key, img.ContentType, img.Content)
			}
			if s.metrics != nil {
				s.metrics.RecordUpload(err == nil, img.Size())
			}
			if err != nil {
				s.logger.ErrorContext(ctx, "image upload failed",
					"filename", img.Filename,
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", img.Filename, err)
				}
				mu.Unlock()
			}
			return err
		})
	}
	if g.Wait() != nil {
		return nil, dErrors.Wrap(firstErr, dErrors.CodeStorageUpload, "failed to upload image "+firstErr.Error())
	}
	return urls, nil
}

// objectKey is <prefix><unix millis>-<16 hex chars><ext>.
func (s *Service) objectKey(now time.Time, img models.Attachment) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	suffix := strings.ReplaceAll(id.String(), "-", "")[:16]
	return fmt.Sprintf("%s%d-%s%s", s.cfg.KeyPrefix, now.UnixMilli(), suffix, img.Extension()), nil
}

func (s *Service) send(ctx context.Context, email *models.Email) error {
	start := time.Now()
	err := s.sender.Send(ctx, email)
	if s.metrics != nil {
		s.metrics.ObserveSend(time.Since(start))
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "smtp send failed",
			"reply_to", privacy.RedactEmail(email.ReplyTo),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return dErrors.Wrap(err, dErrors.CodeMailDelivery, "failed to send email: "+err.Error())
	}
	s.logger.InfoContext(ctx, "email relayed",
		"reply_to", privacy.RedactEmail(email.ReplyTo),
		"attachments", len(email.Attachments),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

func (s *Service) footer(ctx context.Context, userAgent string) templates.Footer {
	if userAgent == "" {
		userAgent = requestcontext.UserAgent(ctx)
	}
	return templates.Footer{
		SentAt: requestcontext.Now(ctx).In(s.cfg.Location).Format("2006-01-02 15:04 MST"),
		Device: device.Describe(userAgent),
	}
}

func (s *Service) subject(text string) string {
	if s.cfg.SubjectPrefix == "" {
		return text
	}
	return s.cfg.SubjectPrefix + " " + text
}

func (s *Service) record(kind string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
	}
	s.metrics.RecordSubmission(kind, outcome)
}
