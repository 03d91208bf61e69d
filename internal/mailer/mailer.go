// Package mailer delivers authcore notifications over SMTP, or writes them
// to a logger in development.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/Br3achBl0ckers/authcore"
)

// Sender is the part of *mail.Client used by SMTP.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Config contains SMTP connection parameters.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTP is an authcore.Notifier backed by go-mail.
type SMTP struct {
	sender Sender
	from   string
	now    func() time.Time
}

// NewSMTP dials nothing; connections are opened per message.
func NewSMTP(cfg Config) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}

	opts := []mail.Option{mail.WithTLSPortPolicy(mail.TLSMandatory)}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return NewSMTPWithSender(client, cfg.From), nil
}

// NewSMTPWithSender builds an SMTP notifier over an existing sender.
func NewSMTPWithSender(sender Sender, from string) *SMTP {
	return &SMTP{sender: sender, from: from, now: time.Now}
}

// Notify renders msg and sends it.
func (s *SMTP) Notify(ctx context.Context, msg authcore.Message) error {
	m, err := s.build(msg)
	if err != nil {
		return err
	}
	if err := s.sender.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send %s mail: %w", msg.Kind, err)
	}
	return nil
}

func (s *SMTP) build(msg authcore.Message) (*mail.Msg, error) {
	c, err := render(msg, s.now())
	if err != nil {
		return nil, err
	}

	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(c.Subject)
	m.SetBodyString(mail.TypeTextPlain, c.Text)
	m.AddAlternativeString(mail.TypeTextHTML, c.HTML)
	return m, nil
}

// Log is an authcore.Notifier that writes messages to a logger instead of
// sending them. It includes codes and links and is meant for development
// only.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a Log notifier.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Notify logs msg.
func (l *Log) Notify(ctx context.Context, msg authcore.Message) error {
	l.logger.InfoContext(ctx, "Mailer: message not sent, development notifier",
		slog.String("kind", msg.Kind.String()),
		slog.String("to", msg.To),
		slog.String("otp", msg.OTP),
		slog.String("link", msg.Link),
	)
	return nil
}
