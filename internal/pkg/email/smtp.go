// internal/pkg/email/smtp.go
package email

import (
	"bytes"
	"fmt"
	"net/smtp"
	"strings"
)

// sendSMTP sends email using SMTP (Gmail, Outlook, or self-hosted)
func (s *Service) sendSMTP(email *Email) error {
	// Validate SMTP configuration
	if s.config.Email.SMTPHost == "" || s.config.Email.SMTPUser == "" {
		return fmt.Errorf("SMTP configuration incomplete: missing host or username")
	}

	// Set up authentication
	auth := smtp.PlainAuth("",
		s.config.Email.SMTPUser,
		s.config.Email.SMTPPass,
		s.config.Email.SMTPHost)

	// Prepare from address
	fromEmail := s.config.Email.FromEmail
	from := fromEmail
	if s.config.Email.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.Email.FromName, fromEmail)
	}

	// Prepare email headers and body
	headers := map[string]string{
		"From":         from,
		"To":           strings.Join(email.To, ", "),
		"Subject":      email.Subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=\"utf-8\"",
	}

	var msg bytes.Buffer
	for key, value := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", key, value))
	}
	msg.WriteString("\r\n")
	msg.WriteString(email.HTMLContent)

	serverAddr := fmt.Sprintf("%s:%d", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return smtp.SendMail(serverAddr, auth, fromEmail, email.To, msg.Bytes())
}
