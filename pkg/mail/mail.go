// Package mail delivers exported decks over SMTP.
package mail

import (
	"crypto/tls"
	"fmt"
	"io"
	"regexp"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/yourusername/report-slides-app/pkg/model"
)

// dialer is the part of *gomail.Dialer the mailer uses.
type dialer interface {
	Dial() (gomail.SendCloser, error)
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends decks with a fixed SMTP configuration.
type Mailer struct {
	cfg    model.SMTPConfig
	dialer dialer
}

// NewMailer creates a mailer for cfg.
func NewMailer(cfg model.SMTPConfig) *Mailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.SkipTLSVerify,
	}
	// implicit TLS on 465, STARTTLS negotiated otherwise
	d.SSL = cfg.UseTLS && cfg.Port == 465
	return &Mailer{cfg: cfg, dialer: d}
}

// Validate checks the fields required to connect and send.
func Validate(cfg model.SMTPConfig) error {
	switch {
	case strings.TrimSpace(cfg.Host) == "":
		return fmt.Errorf("SMTP host is required")
	case cfg.Port <= 0:
		return fmt.Errorf("SMTP port is required")
	case strings.TrimSpace(cfg.From) == "":
		return fmt.Errorf("from address is required")
	}
	return nil
}

// TestConnection dials and authenticates without sending anything.
func (m *Mailer) TestConnection() error {
	if err := Validate(m.cfg); err != nil {
		return err
	}
	conn, err := m.dialer.Dial()
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server %s:%d: %w", m.cfg.Host, m.cfg.Port, err)
	}
	return conn.Close()
}

// SendDeck mails the exported deck as an attachment.
func (m *Mailer) SendDeck(recipients model.Recipients, subject, body string, attachment []byte, filename string) error {
	if err := Validate(m.cfg); err != nil {
		return err
	}
	if len(recipients.To) == 0 {
		return fmt.Errorf("no recipients")
	}
	if err := m.dialer.DialAndSend(m.message(recipients, subject, body, attachment, filename)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (m *Mailer) message(recipients model.Recipients, subject, body string, attachment []byte, filename string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", recipients.To...)
	if len(recipients.CC) > 0 {
		msg.SetHeader("Cc", recipients.CC...)
	}
	if len(recipients.BCC) > 0 {
		msg.SetHeader("Bcc", recipients.BCC...)
	}
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	if strings.Contains(body, "<") && strings.Contains(body, ">") {
		msg.AddAlternative("text/html", body)
	}

	if len(attachment) > 0 {
		msg.Attach(filename,
			gomail.SetHeader(map[string][]string{"Content-Type": {contentType(filename)}}),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(attachment)
				return err
			}),
		)
	}
	return msg
}

func contentType(filename string) string {
	if strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return "application/pdf"
	}
	return "application/octet-stream"
}

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// InterpolateTemplate replaces {{key}} placeholders with vars[key]. Unknown
// keys are left as written.
func InterpolateTemplate(tmpl string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(match string) string {
		key := placeholder.FindStringSubmatch(match)[1]
		if v, ok := vars[key]; ok {
			return v
		}
		return match
	})
}
