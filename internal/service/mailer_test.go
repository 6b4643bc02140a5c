package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thinkpath/gatekeeper/internal/config"
)

func TestNewSMTPInviteMailer(t *testing.T) {
	mailer, err := NewSMTPInviteMailer(config.SMTPConfig{})
	require.NoError(t, err)
	assert.Nil(t, mailer)

	_, err = NewSMTPInviteMailer(config.SMTPConfig{Host: "smtp.test", FromEmail: "noreply@thinkpath.io"})
	assert.Error(t, err)

	_, err = NewSMTPInviteMailer(config.SMTPConfig{Host: "smtp.test", Port: 587, FromEmail: "not an address"})
	assert.Error(t, err)

	mailer, err = NewSMTPInviteMailer(config.SMTPConfig{
		Host:      "smtp.test",
		Port:      587,
		FromEmail: "noreply@thinkpath.io",
		FromName:  "ThinkPath",
	})
	require.NoError(t, err)
	require.NotNil(t, mailer)
	assert.Equal(t, `"ThinkPath" <noreply@thinkpath.io>`, mailer.(*smtpInviteMailer).from)
}

func TestInviteMessage(t *testing.T) {
	msg := inviteMessage("noreply@thinkpath.io", "ada@uw.edu", "ABCDE-FGHJK", "https://app.thinkpath.io/signup")

	headers, body, ok := strings.Cut(msg, "\r\n\r\n")
	require.True(t, ok)
	assert.Contains(t, headers, "From: noreply@thinkpath.io\r\n")
	assert.Contains(t, headers, "To: ada@uw.edu\r\n")
	assert.Contains(t, headers, "Content-Type: text/plain; charset=UTF-8")
	assert.Contains(t, body, "Your invite code: ABCDE-FGHJK")
	assert.Contains(t, body, "https://app.thinkpath.io/signup")

	plain := inviteMessage("noreply@thinkpath.io", "ada@uw.edu", "ABCDE-FGHJK", "")
	assert.NotContains(t, plain, "Sign up, then enter")
}
