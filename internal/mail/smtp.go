package mail

import (
	"context"
	"io"
	"net"
	"strconv"
	"sync"

	"gopkg.in/gomail.v2"

	"github.com/rezonia/invoice-mailer/internal/model"
)

// SMTPSender sends messages through an SMTP relay. The dialer is built on
// first use and shared by every send.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string

	once   sync.Once
	dialer *gomail.Dialer

	// send is swapped in tests
	send func(m *gomail.Message) error
}

// NewSMTPSender validates the relay settings without connecting
func NewSMTPSender(cfg Config) (*SMTPSender, error) {
	host, port, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}

	s := &SMTPSender{
		host:     host,
		port:     port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.sender(),
	}
	s.send = s.dialAndSend
	return s, nil
}

// Addr returns the relay address in host:port form
func (s *SMTPSender) Addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

func (s *SMTPSender) dialAndSend(m *gomail.Message) error {
	s.once.Do(func() {
		s.dialer = gomail.NewDialer(s.host, s.port, s.username, s.password)
	})
	return s.dialer.DialAndSend(m)
}

func (s *SMTPSender) message(to, subject, body string, att Attachment) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if att.Name != "" {
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(att.Data)
				return err
			}),
		}
		if att.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {att.ContentType + `; name="` + att.Name + `"`},
			}))
		}
		m.Attach(att.Name, settings...)
	}
	return m
}

// Send delivers the message or returns a *model.DeliveryError. Cancelling ctx
// abandons the wait but an in-flight SMTP session runs to completion.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string, att Attachment) error {
	if to == "" {
		return model.NewDeliveryError(to, "no recipient", nil)
	}

	m := s.message(to, subject, body, att)

	done := make(chan error, 1)
	go func() {
		done <- s.send(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return model.NewDeliveryError(to, "smtp send via "+s.Addr(), err)
		}
		return nil
	case <-ctx.Done():
		return model.NewDeliveryError(to, "send interrupted", ctx.Err())
	}
}
