package mail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/rezonia/invoice-mailer/internal/model"
)

func TestConfig_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"explicit host", Config{Host: "relay.local", Port: 2525}, "relay.local", 2525, false},
		{"host default port", Config{Host: "relay.local"}, "relay.local", 587, false},
		{"default service", Config{Username: "me@gmail.com"}, "smtp.gmail.com", 587, false},
		{"outlook", Config{Service: "Outlook"}, "smtp.office365.com", 587, false},
		{"unknown service", Config{Service: "carrier-pigeon"}, "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, err := tt.cfg.Resolve()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPort, port)
		})
	}
}

func TestSubjectAndBody(t *testing.T) {
	assert.Equal(t, "Invoice abc-123", Subject("abc-123"))
	assert.Equal(t, "Hello Ada,\n\nPlease find attached your invoice.\n\nThanks.", Body("Ada"))
}

func TestNewSender_FallsBackToLog(t *testing.T) {
	s, err := NewSender(Config{}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	require.NoError(t, err)
	_, ok := s.(*LogSender)
	assert.True(t, ok)

	s, err = NewSender(Config{Host: "relay.local", Username: "u"}, nil)
	require.NoError(t, err)
	_, ok = s.(*SMTPSender)
	assert.True(t, ok)
}

func TestSMTPSender_BuildsMessage(t *testing.T) {
	s, err := NewSMTPSender(Config{Host: "relay.local", Username: "billing@acme.io"})
	require.NoError(t, err)

	var raw bytes.Buffer
	s.send = func(m *gomail.Message) error {
		_, err := m.WriteTo(&raw)
		return err
	}

	att := Attachment{Name: "invoice_42.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3 test")}
	err = s.Send(context.Background(), "ada@x.io", Subject("42"), Body("Ada"), att)
	require.NoError(t, err)

	msg := raw.String()
	assert.Contains(t, msg, "From: billing@acme.io")
	assert.Contains(t, msg, "To: ada@x.io")
	assert.Contains(t, msg, "Subject: Invoice 42")
	assert.Contains(t, msg, "Please find attached your invoice.")
	assert.Contains(t, msg, `filename="invoice_42.pdf"`)
	assert.Contains(t, msg, "application/pdf")
}

func TestSMTPSender_FailureIsDeliveryError(t *testing.T) {
	s, err := NewSMTPSender(Config{Host: "relay.local"})
	require.NoError(t, err)

	boom := errors.New("535 authentication failed")
	s.send = func(*gomail.Message) error { return boom }

	err = s.Send(context.Background(), "ada@x.io", "s", "b", Attachment{})

	var de *model.DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "ada@x.io", de.To)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, de.Message, "relay.local:587")
}

func TestSMTPSender_ContextTimeout(t *testing.T) {
	s, err := NewSMTPSender(Config{Host: "relay.local"})
	require.NoError(t, err)

	release := make(chan struct{})
	defer close(release)
	s.send = func(*gomail.Message) error {
		<-release
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = s.Send(ctx, "ada@x.io", "s", "b", Attachment{})

	var de *model.DeliveryError
	require.ErrorAs(t, err, &de)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSMTPSender_RequiresRecipient(t *testing.T) {
	s, err := NewSMTPSender(Config{Host: "relay.local"})
	require.NoError(t, err)

	err = s.Send(context.Background(), "", "s", "b", Attachment{})
	var de *model.DeliveryError
	require.ErrorAs(t, err, &de)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))

	err := s.Send(context.Background(), "ada@x.io", "Invoice 1", "hi", Attachment{Name: "invoice_1.pdf", Data: []byte("abc")})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "to=ada@x.io")
	assert.Contains(t, buf.String(), "attachment=invoice_1.pdf")
	assert.Contains(t, buf.String(), "bytes=3")
}
