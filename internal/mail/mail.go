// Package mail delivers rendered invoices to clients over SMTP.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Attachment is an in-memory file sent alongside a message
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Sender delivers one message with a single attachment
type Sender interface {
	Send(ctx context.Context, to, subject, body string, att Attachment) error
}

// Config holds the SMTP transport settings. When Host is empty the
// well-known relay for Service is used.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Service  string
}

// Configured reports whether enough is set to reach a real relay
func (c Config) Configured() bool {
	return c.Host != "" || c.Username != ""
}

type relay struct {
	host string
	port int
}

var services = map[string]relay{
	"gmail":   {host: "smtp.gmail.com", port: 587},
	"outlook": {host: "smtp.office365.com", port: 587},
	"hotmail": {host: "smtp.office365.com", port: 587},
	"yahoo":   {host: "smtp.mail.yahoo.com", port: 587},
}

// Resolve returns the relay host and port the config points at
func (c Config) Resolve() (string, int, error) {
	if c.Host != "" {
		port := c.Port
		if port == 0 {
			port = 587
		}
		return c.Host, port, nil
	}

	service := strings.ToLower(c.Service)
	if service == "" {
		service = "gmail"
	}
	r, ok := services[service]
	if !ok {
		return "", 0, fmt.Errorf("unknown mail service %q", c.Service)
	}
	return r.host, r.port, nil
}

func (c Config) sender() string {
	if c.From != "" {
		return c.From
	}
	return c.Username
}

// Subject is the subject line of an invoice message
func Subject(invoiceID string) string {
	return "Invoice " + invoiceID
}

// Body is the plain text greeting sent with an invoice
func Body(clientName string) string {
	return fmt.Sprintf("Hello %s,\n\nPlease find attached your invoice.\n\nThanks.", clientName)
}

// NewSender picks the SMTP transport when the config names a relay and
// falls back to logging messages otherwise.
func NewSender(cfg Config, logger *slog.Logger) (Sender, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Configured() {
		logger.Warn("mail transport not configured, invoices will be logged instead of sent")
		return NewLogSender(logger), nil
	}
	return NewSMTPSender(cfg)
}
