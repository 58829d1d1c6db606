package smtp

import (
	"bytes"
	"context"
	"testing"

	"github.com/presswire-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMailer_DevelopmentLogsOnly(t *testing.T) {
	m := NewMailer(&config.Config{Mode: config.ModeDevelopment, SMTP: config.SMTP{Host: "smtp.example.com"}})
	assert.IsType(t, LogMailer{}, m)
	assert.NoError(t, m.Send(context.Background(), "a@b.ie", "s", "<p>h</p>", "t"))
}

func TestNewMailer_ProductionWithoutHostLogsOnly(t *testing.T) {
	m := NewMailer(&config.Config{Mode: config.ModeProduction})
	assert.IsType(t, LogMailer{}, m)
}

func TestNewMailer_ProductionUsesSMTP(t *testing.T) {
	m := NewMailer(&config.Config{Mode: config.ModeProduction, SMTP: config.SMTP{Host: "smtp.example.com", Port: 587}})
	assert.IsType(t, &mailer{}, m)
}

func TestBuildMessage_MultipartWhenHTMLPresent(t *testing.T) {
	msg, err := buildMessage("noreply@presswire.ie", "press@company.ie", "Your code", "<b>123456</b>", "123456")
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Subject: Your code")
	assert.Contains(t, out, "text/plain")
	assert.Contains(t, out, "text/html")
}

func TestBuildMessage_InvalidRecipient(t *testing.T) {
	_, err := buildMessage("noreply@presswire.ie", "not an address", "s", "", "t")
	assert.ErrorContains(t, err, "setting to address")
}
