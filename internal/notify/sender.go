package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime"
	"net/smtp"
	"strings"

	"github.com/PhilippVn/ZHS-Scraper/config"
)

// Sender delivers a composed notification. Delivery is best effort: the
// caller logs failures and never escalates them.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers notifications as multipart/alternative mail via
// STARTTLS, credentials taken from the environment-backed config.
type SMTPSender struct {
	cfg config.SMTPConfig
}

// NewSMTPSender creates a mail sender.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send submits the message to the configured SMTP relay. net/smtp has no
// context support; the relay connection is bounded by the server's own
// timeouts.
func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	if s.cfg.Host == "" || s.cfg.From == "" || len(s.cfg.To) == 0 {
		return errors.New("smtp is not configured (SMTP_SERVER, EMAIL_FROM, EMAIL_TO)")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.From, s.cfg.To, buildMIME(s.cfg.From, s.cfg.To, msg)); err != nil {
		return fmt.Errorf("failed to send mail via %s: %w", addr, err)
	}
	return nil
}

// buildMIME assembles a multipart/alternative message so clients pick the
// HTML part when they can and fall back to the plain one otherwise.
func buildMIME(from string, to []string, msg Message) []byte {
	const boundary = "zhs-scraper-alt"

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Plain)
	b.WriteString("\r\n")

	if msg.HTML != "" {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		b.WriteString(msg.HTML)
		b.WriteString("\r\n")
	}

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}

// MultiSender fans one message out to several channels. A failing channel
// is logged and does not stop the others.
type MultiSender struct {
	senders []Sender
}

// NewMultiSender creates a fan-out sender. Nil senders are skipped.
func NewMultiSender(senders ...Sender) *MultiSender {
	m := &MultiSender{}
	for _, s := range senders {
		if s != nil {
			m.senders = append(m.senders, s)
		}
	}
	return m
}

// Send delivers the message through every channel and joins the failures.
func (m *MultiSender) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, s := range m.senders {
		if err := s.Send(ctx, msg); err != nil {
			log.Printf("Error delivering notification: %v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
