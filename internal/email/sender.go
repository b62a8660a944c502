package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Message is one rendered email
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers rendered messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers mail through a plain SMTP relay
type SMTPSender struct {
	host string
	port string
	from string
}

func NewSMTPSender(host, port, from string) *SMTPSender {
	return &SMTPSender{
		host: host,
		port: port,
		from: from,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, msg.To, headerSafe(msg.Subject), msg.HTML)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	if err := smtp.SendMail(addr, nil, s.from, []string{msg.To}, []byte(body)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

// LogSender writes messages to the log instead of sending them
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger.Named("mail")}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("html_bytes", len(msg.HTML)),
	)
	return nil
}

func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
