// internal/pkg/email/sendgrid.go
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const sendGridAPIURL = "https://api.sendgrid.com/v3/mail/send"

// sendSendGrid sends email using the SendGrid v3 API
func (s *Service) sendSendGrid(ctx context.Context, email *Email) error {
	if s.config.Email.APIKey == "" {
		return fmt.Errorf("sendgrid configuration incomplete: missing API key")
	}

	recipients := make([]map[string]string, 0, len(email.To))
	for _, to := range email.To {
		recipients = append(recipients, map[string]string{"email": to})
	}

	payload := map[string]interface{}{
		"personalizations": []map[string]interface{}{
			{"to": recipients},
		},
		"from": map[string]string{
			"email": s.config.Email.FromEmail,
			"name":  s.config.Email.FromName,
		},
		"subject": email.Subject,
		"content": []map[string]string{
			{"type": "text/html", "value": email.HTMLContent},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal sendgrid payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendGridAPIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create sendgrid request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.Email.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("sendgrid API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return nil
}
