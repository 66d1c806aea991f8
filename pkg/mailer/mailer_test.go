package mailer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/platinummonkey/animerged/pkg/auth"
	"github.com/platinummonkey/animerged/pkg/observability"
)

func testRecipient() (*auth.User, *auth.Token) {
	user := &auth.User{ID: 7, Name: "Kaori", Email: "kaori@example.com"}
	token := &auth.Token{
		UserID:    7,
		Plaintext: "ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		Expiry:    time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC),
		Scope:     auth.ScopeActivation,
	}
	return user, token
}

func TestSMTPMailer_SendWelcome(t *testing.T) {
	var sent []*gomail.Message
	m, err := newSMTPMailer("AniMerged <no-reply@animerged.example>", func(msgs ...*gomail.Message) error {
		sent = append(sent, msgs...)
		return nil
	})
	require.NoError(t, err)

	user, token := testRecipient()
	require.NoError(t, m.SendWelcome(context.Background(), user, token))
	require.Len(t, sent, 1)

	msg := sent[0]
	assert.Equal(t, []string{"AniMerged <no-reply@animerged.example>"}, msg.GetHeader("From"))
	assert.Equal(t, []string{`"Kaori" <kaori@example.com>`}, msg.GetHeader("To"))
	assert.Equal(t, []string{welcomeSubject}, msg.GetHeader("Subject"))

	var raw bytes.Buffer
	_, err = msg.WriteTo(&raw)
	require.NoError(t, err)
	body := raw.String()
	assert.Contains(t, body, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	assert.Contains(t, body, "text/plain")
	assert.Contains(t, body, "text/html")
}

func TestSMTPMailer_SendFailure(t *testing.T) {
	m, err := newSMTPMailer("no-reply@animerged.example", func(...*gomail.Message) error {
		return errors.New("421 service not available")
	})
	require.NoError(t, err)

	user, token := testRecipient()
	err = m.SendWelcome(context.Background(), user, token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send welcome email")
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	m, err := newSMTPMailer("no-reply@animerged.example", func(...*gomail.Message) error {
		t.Fatal("send should not be called")
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	user, token := testRecipient()
	assert.ErrorIs(t, m.SendWelcome(ctx, user, token), context.Canceled)
}

func TestNewSMTPMailer(t *testing.T) {
	m, err := NewSMTPMailer(Config{Host: "localhost", Port: 2525, Sender: "no-reply@animerged.example"})
	require.NoError(t, err)
	assert.NotNil(t, m.send)
}

func TestLogMailer_SendWelcome(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(observability.NewLogger(observability.InfoLevel, &buf))

	user, token := testRecipient()
	require.NoError(t, m.SendWelcome(context.Background(), user, token))

	out := buf.String()
	assert.True(t, strings.Contains(out, "kaori@example.com"))
	assert.False(t, strings.Contains(out, token.Plaintext), "token must stay out of info logs")
}

func TestLogMailer_SendWelcomeDebug(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(observability.NewLogger(observability.DebugLevel, &buf))

	user, token := testRecipient()
	require.NoError(t, m.SendWelcome(context.Background(), user, token))

	assert.True(t, strings.Contains(buf.String(), token.Plaintext))
}
