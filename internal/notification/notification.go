// Package notification delivers share links and invitations by email.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strconv"
	"strings"
	"sync"

	"github.com/frahmantamala/credential-vault/internal"
)

// Message is one rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a message or reports why it could not.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPSender(cfg internal.NotificationConfig) *SMTPSender {
	return &SMTPSender{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("recipient email address cannot be empty")
	}
	if msg.Subject == "" {
		return fmt.Errorf("email subject cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body := []byte("To: " + msg.To + "\r\n" +
		"From: " + s.from + "\r\n" +
		"Subject: " + msg.Subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" +
		msg.HTML + "\r\n")

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	addr := s.host + ":" + strconv.Itoa(s.port)
	if err := smtp.SendMail(addr, auth, s.from, []string{msg.To}, body); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// LogSender writes messages to the log instead of the network and keeps them for inspection.
type LogSender struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []Message
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "email queued to log", "to", msg.To, "subject", msg.Subject)
	return nil
}

// Sent returns a copy of everything delivered so far.
func (s *LogSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}

// NewSender picks the delivery driver from config.
func NewSender(cfg internal.NotificationConfig, logger *slog.Logger) Sender {
	if strings.EqualFold(cfg.Driver, "smtp") {
		return NewSMTPSender(cfg)
	}
	return NewLogSender(logger)
}
