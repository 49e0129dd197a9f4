// Package mailer sends transactional email over SMTP with html/template
// bodies. When SMTP credentials are not configured the message is logged
// instead of sent, so local environments work without a mail relay.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"github.com/rentdesk/rentdesk/pkg/observability"
)

// Mailer sends the transactional messages the provisioning subsystem emits
type Mailer interface {
	SendWelcome(ctx context.Context, toEmail, toName, orgName string) error
	SendPriceUpdated(ctx context.Context, toEmail, displayName, sessionURL string, amount float64, currency string) error
}

// Config holds SMTP configuration
type Config struct {
	Host      string
	Port      string
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// Configured reports whether credentials are present
func (c Config) Configured() bool {
	return c.Username != "" && c.Password != ""
}

// SMTPMailer is the net/smtp implementation of Mailer
type SMTPMailer struct {
	config Config
	logger *observability.Logger
}

// NewSMTPMailer creates an SMTPMailer
func NewSMTPMailer(config Config, logger *observability.Logger) *SMTPMailer {
	return &SMTPMailer{config: config, logger: logger}
}

type welcomeData struct {
	Name    string
	OrgName string
}

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Welcome to RentDesk, {{.Name}}!</h2>
  <p>Your organization <strong>{{.OrgName}}</strong> is ready to go.</p>
  <p>Sign in to add your first properties, invite your team, and set up tenancies.</p>
  <p>— The RentDesk team</p>
</body>
</html>`))

type priceUpdatedData struct {
	Name       string
	SessionURL string
	Amount     string
	Currency   string
}

var priceUpdatedTemplate = template.Must(template.New("price_updated").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Your subscription price has changed</h2>
  <p>Hi {{.Name}},</p>
  <p>Your new subscription amount is <strong>{{.Amount}} {{.Currency}}</strong>.</p>
  <p>Please confirm the change and update your payment details here:</p>
  <p><a href="{{.SessionURL}}">{{.SessionURL}}</a></p>
  <p>If you have questions, just reply to this email.</p>
  <p>— The RentDesk team</p>
</body>
</html>`))

// SendWelcome sends the post-provisioning welcome email
func (m *SMTPMailer) SendWelcome(ctx context.Context, toEmail, toName, orgName string) error {
	body, err := render(welcomeTemplate, welcomeData{Name: toName, OrgName: orgName})
	if err != nil {
		return err
	}
	return m.send(ctx, toEmail, "Welcome to RentDesk", body)
}

// SendPriceUpdated sends the payment-update link after a price change
func (m *SMTPMailer) SendPriceUpdated(ctx context.Context, toEmail, displayName, sessionURL string, amount float64, currency string) error {
	body, err := render(priceUpdatedTemplate, priceUpdatedData{
		Name:       displayName,
		SessionURL: sessionURL,
		Amount:     fmt.Sprintf("%.2f", amount),
		Currency:   strings.ToUpper(currency),
	})
	if err != nil {
		return err
	}
	return m.send(ctx, toEmail, "Your subscription price has been updated", body)
}

func render(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render email template: %w", err)
	}
	return buf.String(), nil
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, htmlBody string) error {
	if !m.config.Configured() {
		m.logger.WithFields(map[string]interface{}{
			"to":      to,
			"subject": subject,
		}).Info("SMTP not configured, skipping email send")
		return nil
	}

	msg := buildMessage(m.config.FromName, m.config.FromEmail, to, subject, htmlBody)
	addr := m.config.Host + ":" + m.config.Port
	auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)

	// net/smtp has no context support; run the dial in a goroutine so a
	// cancelled context doesn't leave the caller blocked.
	errCh := make(chan error, 1)
	go func() {
		errCh <- smtp.SendMail(addr, auth, m.config.FromEmail, []string{to}, msg)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to send email to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("email send to %s aborted: %w", to, ctx.Err())
	}
}

func buildMessage(fromName, fromEmail, to, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", fromName, fromEmail)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
