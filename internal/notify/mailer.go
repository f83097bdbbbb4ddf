// Package notify e-mails the site owner about stored contact submissions.
package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/tbourn/go-contact-intake/internal/config"
	"github.com/tbourn/go-contact-intake/internal/domain"
)

// ErrNoRecipients is returned by New when no recipient is configured.
var ErrNoRecipients = errors.New("notify: no recipients configured")

// Mailer sends one plain-text message per submission over SMTP.
type Mailer struct {
	cfg  config.NotifyConfig
	send func(*gomail.Message) error
}

// New builds a Mailer that dials cfg.SMTPHost for every message.
func New(cfg config.NotifyConfig) (*Mailer, error) {
	if len(cfg.To) == 0 {
		return nil, ErrNoRecipients
	}
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	d.SSL = cfg.SMTPUseTLS
	if cfg.SMTPUseTLS {
		d.TLSConfig = &tls.Config{ServerName: cfg.SMTPHost, MinVersion: tls.VersionTLS12}
	}
	return &Mailer{cfg: cfg, send: func(m *gomail.Message) error { return d.DialAndSend(m) }}, nil
}

// Notify sends the owner a summary of s. It returns when the SMTP exchange
// finishes, ctx is done, or the configured timeout elapses, whichever is first.
func (m *Mailer) Notify(ctx context.Context, s *domain.Submission, id string) error {
	msg := m.buildMessage(s, id)

	done := make(chan error, 1)
	go func() {
		done <- m.send(msg)
	}()

	wait := m.cfg.Timeout
	if wait <= 0 {
		wait = 10 * time.Second
	}
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < wait {
			wait = d
		}
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("notify: smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return context.DeadlineExceeded
	}
}

func (m *Mailer) buildMessage(s *domain.Submission, id string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", m.cfg.To...)
	msg.SetHeader("Reply-To", s.Email)
	msg.SetHeader("Subject", "New contact form message from "+s.Name)

	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", s.Name)
	fmt.Fprintf(&b, "Email: %s\n", s.Email)
	fmt.Fprintf(&b, "Submitted: %s\n", s.SubmittedAt)
	if s.IP != "" {
		fmt.Fprintf(&b, "IP: %s\n", s.IP)
	}
	fmt.Fprintf(&b, "ID: %s\n\n", id)
	b.WriteString(s.Message)
	b.WriteString("\n")
	msg.SetBody("text/plain", b.String())
	return msg
}
