// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/your-org/marketplace-backend/internal/config"
)

// Service sends transactional notifications. It is a fire-and-forget
// side-channel: callers use the *Async helpers and a delivery failure
// never blocks or fails the operation it is attached to.
type Service struct {
	config    *config.Config
	templates map[Type]*template.Template
	client    *http.Client
}

// NewService creates a new email service
func NewService(cfg *config.Config) *Service {
	service := &Service{
		config:    cfg,
		templates: make(map[Type]*template.Template),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	service.loadTemplates()
	return service
}

// Send sends an email using the configured provider
func (s *Service) Send(ctx context.Context, email *Email) error {
	switch s.config.Email.Provider {
	case "smtp":
		return s.sendSMTP(email)
	case "sendgrid":
		return s.sendSendGrid(ctx, email)
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.Email.Provider)
	}
}

// SendRegistrationReceivedAsync notifies a new account that its
// registration is awaiting review.
func (s *Service) SendRegistrationReceivedAsync(userEmail, userName string) {
	s.sendAsync(TypeRegistrationReceived, userEmail, "Registration received", map[string]interface{}{
		"UserName": userName,
		"SiteName": s.config.App.Name,
	})
}

// SendRegistrationApprovedAsync notifies an account that it has been
// approved and may start transacting.
func (s *Service) SendRegistrationApprovedAsync(userEmail, userName string) {
	s.sendAsync(TypeRegistrationApproved, userEmail, "Your account has been approved", map[string]interface{}{
		"UserName": userName,
		"SiteName": s.config.App.Name,
	})
}

// SendOrderPlacedAsync sends the post-checkout confirmation
func (s *Service) SendOrderPlacedAsync(userEmail string, data OrderPlacedData) {
	s.sendAsync(TypeOrderPlaced, userEmail, "Your order has been placed", map[string]interface{}{
		"UserName":     data.UserName,
		"OrderNumbers": strings.Join(data.OrderNumbers, ", "),
		"Total":        fmt.Sprintf("R$ %.2f", float64(data.TotalAmount)/100),
		"SiteName":     s.config.App.Name,
	})
}

// SendOrderStatusAsync notifies the buyer of a fulfilment status change
func (s *Service) SendOrderStatusAsync(userEmail, userName, orderNumber, status string) {
	s.sendAsync(TypeOrderStatusUpdate, userEmail, fmt.Sprintf("Order %s update", orderNumber), map[string]interface{}{
		"UserName":    userName,
		"OrderNumber": orderNumber,
		"Status":      status,
		"SiteName":    s.config.App.Name,
	})
}

func (s *Service) sendAsync(emailType Type, to, subject string, data map[string]interface{}) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		htmlContent, err := s.renderTemplate(emailType, data)
		if err != nil {
			log.Printf("Warning: failed to render %s email: %v", emailType, err)
			return
		}

		email := &Email{
			To:          []string{to},
			Subject:     subject,
			HTMLContent: htmlContent,
			Type:        emailType,
		}

		if err := s.Send(ctx, email); err != nil {
			log.Printf("Warning: failed to send %s email to %s: %v", emailType, to, err)
		}
	}()
}

func (s *Service) renderTemplate(emailType Type, data map[string]interface{}) (string, error) {
	tmpl, ok := s.templates[emailType]
	if !ok {
		return "", fmt.Errorf("template not found: %s", emailType)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

func (s *Service) loadTemplates() {
	sources := map[Type]string{
		TypeRegistrationReceived: `<html><body>
<p>Hello {{.UserName}},</p>
<p>We received your registration at {{.SiteName}}. Our team will review
your professional credentials and notify you once your account is approved.</p>
</body></html>`,
		TypeRegistrationApproved: `<html><body>
<p>Hello {{.UserName}},</p>
<p>Your account at {{.SiteName}} has been approved. You can now browse
the catalog and place orders.</p>
</body></html>`,
		TypeOrderPlaced: `<html><body>
<p>Hello {{.UserName}},</p>
<p>Your order has been placed. Order number(s): {{.OrderNumbers}}.</p>
<p>Total: {{.Total}}</p>
<p>Each supplier will contact you to arrange payment and delivery.</p>
</body></html>`,
		TypeOrderStatusUpdate: `<html><body>
<p>Hello {{.UserName}},</p>
<p>Your order {{.OrderNumber}} is now: {{.Status}}.</p>
</body></html>`,
	}

	for emailType, src := range sources {
		tmpl, err := template.New(string(emailType)).Parse(src)
		if err != nil {
			log.Printf("Warning: failed to parse %s template: %v", emailType, err)
			continue
		}
		s.templates[emailType] = tmpl
	}
}
