package email

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/coachbot/internal/config"
)

type Sender interface {
	Send(to, subject, html string) error
}

// LogSender writes messages to the logger instead of delivering them
type LogSender struct {
	Logger zerolog.Logger
}

func (s LogSender) Send(to, subject, html string) error {
	s.Logger.Info().Str("to", to).Str("subject", subject).Msg(html)
	return nil
}

// NewSender returns the sender selected by cfg.Driver
func NewSender(cfg config.MailConfig, logger zerolog.Logger) Sender {
	if cfg.Driver == config.MailDriverLog {
		return LogSender{Logger: logger}
	}
	return NewSMTPSender(cfg.SMTPAddr, cfg.From)
}

// SMTPSender delivers mail through an unauthenticated SMTP relay such as MailHog
type SMTPSender struct {
	Addr string
	From string
}

func NewSMTPSender(addr, from string) *SMTPSender {
	if addr == "" {
		addr = "localhost:1025"
	}
	if from == "" {
		from = "no-reply@coachbot.local"
	}
	return &SMTPSender{Addr: addr, From: from}
}

func (s *SMTPSender) Send(to, subject, html string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("recipient required")
	}
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + headerValue(to),
		"Subject: " + headerValue(subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		html,
	}, "\r\n")
	if err := smtp.SendMail(s.Addr, nil, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

var headerBreaks = strings.NewReplacer("\r", " ", "\n", " ")

// headerValue keeps user supplied text on a single header line
func headerValue(v string) string {
	return headerBreaks.Replace(v)
}
