package notification

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strings"

	"github.com/iyhunko/price-tracker/internal/config"
)

// Sender delivers an e-mail to one recipient.
type Sender interface {
	Send(ctx context.Context, to string, email Email) error
}

// NewSender returns an SMTP sender when credentials are configured, otherwise a sender that only logs.
func NewSender(conf config.SMTP) Sender {
	if !conf.Enabled() {
		slog.Warn("SMTP credentials are not configured, price alerts will only be logged")
		return LogSender{}
	}
	return NewSMTPSender(conf)
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender sends mail through an SMTP relay.
// smtp.SendMail upgrades the connection with STARTTLS when the server offers it.
type SMTPSender struct {
	addr     string
	from     string
	auth     smtp.Auth
	sendMail sendMailFunc
}

// NewSMTPSender creates an SMTPSender authenticating with PLAIN auth as conf.User.
func NewSMTPSender(conf config.SMTP) *SMTPSender {
	return &SMTPSender{
		addr:     net.JoinHostPort(conf.Server, conf.Port),
		from:     conf.User,
		auth:     smtp.PlainAuth("", conf.User, conf.Password, conf.Server),
		sendMail: smtp.SendMail,
	}
}

// Send delivers email to the recipient.
func (s *SMTPSender) Send(ctx context.Context, to string, email Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := buildMessage(s.from, to, email)
	if err := s.sendMail(s.addr, s.auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send e-mail to %s: %w", to, err)
	}
	return nil
}

func buildMessage(from, to string, email Email) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", email.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(email.HTMLBody)
	return []byte(b.String())
}

// LogSender logs e-mails instead of sending them.
type LogSender struct{}

// Send logs the e-mail subject and recipient.
func (LogSender) Send(_ context.Context, to string, email Email) error {
	slog.Info("Price alert (SMTP disabled)",
		slog.String("to", to),
		slog.String("subject", email.Subject),
	)
	return nil
}
