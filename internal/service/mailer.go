package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"

	"thinkpath/gatekeeper/internal/config"
)

// InviteMailer delivers a freshly minted invite code to a recipient.
type InviteMailer interface {
	SendInvite(ctx context.Context, to string, code string) error
}

type smtpInviteMailer struct {
	cfg  config.SMTPConfig
	from string
}

// NewSMTPInviteMailer returns nil, nil when SMTP is not configured so callers
// can treat delivery as optional.
func NewSMTPInviteMailer(cfg config.SMTPConfig) (InviteMailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, nil
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("smtp port must be greater than 0")
	}
	if _, err := mail.ParseAddress(cfg.FromEmail); err != nil {
		return nil, fmt.Errorf("invalid smtp from_email: %w", err)
	}

	from := cfg.FromEmail
	if strings.TrimSpace(cfg.FromName) != "" {
		from = (&mail.Address{Name: cfg.FromName, Address: cfg.FromEmail}).String()
	}
	return &smtpInviteMailer{cfg: cfg, from: from}, nil
}

func (m *smtpInviteMailer) SendInvite(_ context.Context, to string, code string) error {
	addr, err := mail.ParseAddress(strings.TrimSpace(to))
	if err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}
	msg := inviteMessage(m.from, addr.Address, code, m.cfg.InviteURL)
	return m.deliver(addr.Address, msg)
}

// inviteMessage renders a plain-text RFC 5322 message carrying the code.
func inviteMessage(from, to, code, inviteURL string) string {
	var body strings.Builder
	body.WriteString("You have been invited to ThinkPath.\r\n\r\n")
	body.WriteString("Your invite code: " + code + "\r\n")
	if inviteURL != "" {
		body.WriteString("\r\nSign up, then enter the code at " + inviteURL + "\r\n")
	}
	body.WriteString("\r\nThe code works once.\r\n")

	var msg strings.Builder
	msg.WriteString("From: " + from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + mime.QEncoding.Encode("UTF-8", "Your ThinkPath invite code") + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body.String())
	return msg.String()
}

func (m *smtpInviteMailer) deliver(to, msg string) error {
	client, err := smtp.Dial(net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port)))
	if err != nil {
		return fmt.Errorf("dial smtp server: %w", err)
	}
	defer client.Close()

	if m.cfg.UseSTARTTLS {
		if ok, _ := client.Extension("STARTTLS"); !ok {
			return fmt.Errorf("smtp server does not support STARTTLS")
		}
		if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return fmt.Errorf("starttls failed: %w", err)
		}
	}

	if strings.TrimSpace(m.cfg.Username) != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := client.Mail(m.cfg.FromEmail); err != nil {
		return fmt.Errorf("smtp MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp RCPT TO failed: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		_ = w.Close()
		return fmt.Errorf("write smtp body failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close smtp writer failed: %w", err)
	}
	return client.Quit()
}
