// Package email provides invitation email delivery over SMTP.
package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

var (
	// ErrNotConfigured is returned when SMTP is not configured.
	ErrNotConfigured = errors.New("email: SMTP not configured")
	// ErrSendFailed is returned when delivery fails for transport
	// reasons.
	ErrSendFailed = errors.New("email: failed to send email")

	// ErrUnconfirmedRecipient means the recipient address has never
	// confirmed email receipt and the platform refuses to mail it.
	// Expected condition; dispatch jobs log it and succeed.
	ErrUnconfirmedRecipient = errors.New("email: recipient confirmation required")
	// ErrBlacklistedRecipient means the address is on the suppression
	// list. Expected condition; dispatch jobs log it and succeed.
	ErrBlacklistedRecipient = errors.New("email: recipient is blacklisted")
)

// Config holds SMTP configuration.
type Config struct {
	Host       string
	Port       int
	User       string
	Password   string
	From       string
	FromName   string
	TLS        bool
	SkipVerify bool
	Timeout    time.Duration
}

// Message is a single outbound email.
type Message struct {
	To      []string
	Subject string
	Body    string
	IsHTML  bool
}

// Sender delivers email messages.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
	SendTemplate(ctx context.Context, to string, tmpl Template, data any) error
	IsConfigured() bool
}

// SMTPSender implements Sender over SMTP.
type SMTPSender struct {
	config    Config
	templates *TemplateEngine
}

// NewSMTPSender creates an SMTP sender.
func NewSMTPSender(cfg Config) *SMTPSender {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPSender{
		config:    cfg,
		templates: NewTemplateEngine(),
	}
}

// IsConfigured reports whether SMTP is usable.
func (s *SMTPSender) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port > 0 && s.config.From != ""
}

// Send delivers a message.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("%w: no recipients", ErrSendFailed)
	}

	if err := s.sendSMTP(ctx, msg.To, s.buildMessage(msg)); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

// SendTemplate renders a predefined template and delivers it.
func (s *SMTPSender) SendTemplate(ctx context.Context, to string, tmpl Template, data any) error {
	subject, body, err := s.templates.Render(tmpl, data)
	if err != nil {
		return fmt.Errorf("email: failed to render template: %w", err)
	}
	return s.Send(ctx, &Message{
		To:      []string{to},
		Subject: subject,
		Body:    body,
		IsHTML:  true,
	})
}

func (s *SMTPSender) buildMessage(msg *Message) []byte {
	var b strings.Builder

	if s.config.FromName != "" {
		fmt.Fprintf(&b, "From: %s <%s>\r\n", s.config.FromName, s.config.From)
	} else {
		fmt.Fprintf(&b, "From: %s\r\n", s.config.From)
	}
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)

	b.WriteString("MIME-Version: 1.0\r\n")
	if msg.IsHTML {
		b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	} else {
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	return []byte(b.String())
}

func (s *SMTPSender) sendSMTP(ctx context.Context, to []string, content []byte) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	dialer := &net.Dialer{Timeout: s.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	if s.config.TLS {
		tlsConfig := &tls.Config{
			ServerName:         s.config.Host,
			InsecureSkipVerify: s.config.SkipVerify,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if s.config.User != "" && s.config.Password != "" {
		auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	}

	if err := client.Mail(s.config.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, recipient := range to {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", recipient, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := writer.Write(content); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}

	return client.Quit()
}

// NoOpSender discards all messages. For development and tests.
type NoOpSender struct{}

// NewNoOpSender creates a no-op sender.
func NewNoOpSender() *NoOpSender {
	return &NoOpSender{}
}

func (s *NoOpSender) IsConfigured() bool { return true }

func (s *NoOpSender) Send(_ context.Context, _ *Message) error { return nil }

func (s *NoOpSender) SendTemplate(_ context.Context, _ string, _ Template, _ any) error {
	return nil
}
