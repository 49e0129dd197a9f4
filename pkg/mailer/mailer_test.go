package mailer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentdesk/rentdesk/pkg/observability"
)

func TestConfigConfigured(t *testing.T) {
	assert.False(t, Config{}.Configured())
	assert.False(t, Config{Username: "user"}.Configured())
	assert.True(t, Config{Username: "user", Password: "secret"}.Configured())
}

func TestSendWelcomeUnconfiguredIsNoop(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, nil)
	m := NewSMTPMailer(Config{}, logger)

	// Without SMTP credentials the message is logged, never sent.
	err := m.SendWelcome(context.Background(), "jane@example.com", "Jane", "Acme")
	require.NoError(t, err)
}

func TestSendPriceUpdatedUnconfiguredIsNoop(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, nil)
	m := NewSMTPMailer(Config{}, logger)

	err := m.SendPriceUpdated(context.Background(), "jane@example.com", "Acme", "https://pay.example.com/cs_1", 499.99, "gbp")
	require.NoError(t, err)
}

func TestWelcomeTemplate(t *testing.T) {
	body, err := render(welcomeTemplate, welcomeData{Name: "Jane", OrgName: "Acme"})
	require.NoError(t, err)
	assert.Contains(t, body, "Jane")
	assert.Contains(t, body, "Acme")
}

func TestPriceUpdatedTemplate(t *testing.T) {
	body, err := render(priceUpdatedTemplate, priceUpdatedData{
		Name:       "Acme",
		SessionURL: "https://pay.example.com/cs_1",
		Amount:     "499.99",
		Currency:   "GBP",
	})
	require.NoError(t, err)
	assert.Contains(t, body, "499.99 GBP")
	assert.Contains(t, body, "https://pay.example.com/cs_1")
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("RentDesk", "no-reply@rentdesk.io", "jane@example.com", "Welcome", "<p>hi</p>"))
	assert.True(t, strings.HasPrefix(msg, "From: RentDesk <no-reply@rentdesk.io>\r\n"))
	assert.Contains(t, msg, "To: jane@example.com\r\n")
	assert.Contains(t, msg, "Subject: Welcome\r\n")
	assert.Contains(t, msg, "Content-Type: text/html")
	assert.True(t, strings.HasSuffix(msg, "<p>hi</p>"))
}
