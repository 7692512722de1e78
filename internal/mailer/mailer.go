// Package mailer is the SMTP delivery collaborator. When no SMTP host is
// configured it runs in dry mode and only logs, which keeps local development
// and tests free of a mail server.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/vecinal/backend/config"
)

// Mailer sends plain-text notification emails.
type Mailer struct {
	cfg    config.EmailConfig
	logger *zap.Logger
}

// New creates a mailer from the email configuration.
func New(cfg config.EmailConfig, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{cfg: cfg, logger: logger}
}

// Send delivers one message. Dry mode (no SMTP host) logs and succeeds.
func (m *Mailer) Send(to, subject, body string) error {
	if m.cfg.SMTPHost == "" {
		m.logger.Info("mailer dry mode, skipping delivery",
			zap.String("to", to), zap.String("subject", subject))
		return nil
	}

	from := fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.FromAddress)
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="utf-8"`,
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	var auth smtp.Auth
	if m.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPass, m.cfg.SMTPHost)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.FromAddress, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
