package mailer

import (
	"gopkg.in/gomail.v2"

	"github.com/unisched/presentation-api/pkg/config"
)

// Mailer sends plain-text notification emails. Delivery is best-effort with
// no confirmation; callers decide how to handle errors.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer implements Mailer over an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer builds a mailer from SMTP settings.
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send delivers a single plain-text message.
func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}
