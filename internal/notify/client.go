// Package notify delivers the portal's e-mail alerts through the EmailJS
// REST gateway. The dispatcher builds template parameters from cost
// requests; the client is a thin HTTP sender.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

// Sender dispatches one templated e-mail. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, templateID string, params map[string]string) error
}

// Client talks to the EmailJS send endpoint.
type Client struct {
	serviceID string
	publicKey string
	endpoint  string
	http      *http.Client
}

// NewClient builds a client for the given EmailJS service. A zero serviceID
// or publicKey is allowed; Send will fail at call time, which keeps local
// setups without credentials bootable.
func NewClient(serviceID, publicKey string) *Client {
	return &Client{
		serviceID: serviceID,
		publicKey: publicKey,
		endpoint:  defaultEndpoint,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

type sendPayload struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	TemplateParams map[string]string `json:"template_params"`
}

// Send posts one e-mail through the gateway.
func (c *Client) Send(ctx context.Context, templateID string, params map[string]string) error {
	if c.serviceID == "" || c.publicKey == "" {
		return fmt.Errorf("emailjs credentials not configured")
	}

	body, err := json.Marshal(sendPayload{
		ServiceID:      c.serviceID,
		TemplateID:     templateID,
		UserID:         c.publicKey,
		TemplateParams: params,
	})
	if err != nil {
		return fmt.Errorf("failed to encode email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email gateway returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}
