// Package mailer sends the account emails of the service.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"gopkg.in/gomail.v2"

	"github.com/platinummonkey/animerged/pkg/auth"
	"github.com/platinummonkey/animerged/pkg/observability"
)

//go:embed templates
var templateFS embed.FS

const welcomeSubject = "Welcome to AniMerged!"

// Mailer delivers the welcome email carrying the activation token
type Mailer interface {
	SendWelcome(ctx context.Context, user *auth.User, token *auth.Token) error
}

// Config holds SMTP settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

type welcomeData struct {
	User  *auth.User
	Token *auth.Token
}

// SMTPMailer sends mail through an SMTP relay
type SMTPMailer struct {
	sender string
	send   func(m ...*gomail.Message) error
	html   *htmltemplate.Template
	text   *texttemplate.Template
}

// NewSMTPMailer creates a mailer for the relay described by config
func NewSMTPMailer(config Config) (*SMTPMailer, error) {
	dialer := gomail.NewDialer(config.Host, config.Port, config.Username, config.Password)
	return newSMTPMailer(config.Sender, dialer.DialAndSend)
}

func newSMTPMailer(sender string, send func(m ...*gomail.Message) error) (*SMTPMailer, error) {
	html, err := htmltemplate.ParseFS(templateFS, "templates/welcome.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse html template: %w", err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/welcome.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text template: %w", err)
	}

	return &SMTPMailer{
		sender: sender,
		send:   send,
		html:   html,
		text:   text,
	}, nil
}

// SendWelcome renders the welcome templates and sends them as one multipart message
func (m *SMTPMailer) SendWelcome(ctx context.Context, user *auth.User, token *auth.Token) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data := welcomeData{User: user, Token: token}

	var textBody bytes.Buffer
	if err := m.text.Execute(&textBody, data); err != nil {
		return fmt.Errorf("failed to render welcome text: %w", err)
	}
	var htmlBody bytes.Buffer
	if err := m.html.Execute(&htmlBody, data); err != nil {
		return fmt.Errorf("failed to render welcome html: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetAddressHeader("To", user.Email, user.Name)
	msg.SetHeader("Subject", welcomeSubject)
	msg.SetBody("text/plain", textBody.String())
	msg.AddAlternative("text/html", htmlBody.String())

	if err := m.send(msg); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	return nil
}

// LogMailer records that a welcome email was due instead of sending one.
// It is used when no SMTP host is configured. The activation token is only
// written at debug level, for local development.
type LogMailer struct {
	logger *observability.Logger
}

// NewLogMailer creates a mailer that only logs
func NewLogMailer(logger *observability.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendWelcome logs the recipient and token expiry
func (m *LogMailer) SendWelcome(ctx context.Context, user *auth.User, token *auth.Token) error {
	logger := m.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"to":     user.Email,
		"expiry": token.Expiry,
	})
	logger.Info("welcome email not sent, smtp disabled")
	logger.WithField("activation_token", token.Plaintext).Debug("activation token issued")
	return nil
}
