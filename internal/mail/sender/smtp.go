// Package sender delivers composed emails over SMTP.
package sender

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"showroom/internal/mail/models"
)

// TLSPolicy mirrors the relay's STARTTLS requirement.
type TLSPolicy string

const (
	TLSMandatory     TLSPolicy = "mandatory"
	TLSOpportunistic TLSPolicy = "opportunistic"
	TLSNone          TLSPolicy = "none"
	// TLSImplicit connects with TLS from the first byte (port 465).
	TLSImplicit TLSPolicy = "implicit"
)

// Config holds relay settings.
type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	FromName  string
	TLSPolicy TLSPolicy
	Timeout   time.Duration
}

// Dialer is the part of *mail.Client used to deliver a message.
type Dialer interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPSender sends one message per call. A new connection is dialled each time.
type SMTPSender struct {
	client   Dialer
	from     string
	fromName string
}

// NewSMTP validates cfg and creates the go-mail client.
func NewSMTP(cfg Config) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	var opts []mail.Option
	switch cfg.TLSPolicy {
	case TLSImplicit:
		opts = append(opts, mail.WithSSL())
	case TLSNone:
		opts = append(opts, mail.WithTLSPortPolicy(mail.NoTLS))
	case TLSOpportunistic:
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	default:
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}
	// The port option must follow the TLS policy, which sets a default port.
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	opts = append(opts, mail.WithTimeout(cfg.Timeout))
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return New(client, cfg.From, cfg.FromName), nil
}

// New wraps an existing dialer.
func New(client Dialer, from, fromName string) *SMTPSender {
	return &SMTPSender{client: client, from: from, fromName: fromName}
}

// Send builds and delivers email.
func (s *SMTPSender) Send(ctx context.Context, email *models.Email) error {
	msg, err := s.Build(email)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp delivery: %w", err)
	}
	return nil
}

// Build converts email into a MIME message: a text part, an optional HTML
// alternative and the attachments unchanged.
func (s *SMTPSender) Build(email *models.Email) (*mail.Msg, error) {
	msg := mail.NewMsg()
	var err error
	if s.fromName != "" {
		err = msg.FromFormat(s.fromName, s.from)
	} else {
		err = msg.From(s.from)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(email.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	if email.ReplyTo != "" {
		if err := msg.ReplyTo(email.ReplyTo); err != nil {
			return nil, fmt.Errorf("invalid reply-to: %w", err)
		}
	}
	msg.Subject(email.Subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, email.Text)
	if email.HTML != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, email.HTML)
	}
	for _, a := range email.Attachments {
		if err := msg.AttachReader(a.Filename, bytes.NewReader(a.Content),
			mail.WithFileContentType(mail.ContentType(a.ContentType)),
		); err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}
	return msg, nil
}
