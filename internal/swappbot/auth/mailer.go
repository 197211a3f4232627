package auth

import (
	"fmt"
	"net/smtp"
)

// Mailer delivers password-reset mail. The SMTP implementation below is the
// production one; tests substitute a recording fake.
type Mailer interface {
	SendOTP(to, otp string) error
}

// SMTPConfig holds the outbound mail settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends OTP mail through a plain-auth SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer creates an SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// SendOTP mails the one-time code to the given address.
func (m *SMTPMailer) SendOTP(to, otp string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: SwappBot password reset\r\n\r\n"+
			"Your OTP is %s. It expires in 10 minutes.\r\n",
		m.cfg.From, to, otp,
	)
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("auth: send otp mail: %w", err)
	}
	return nil
}
