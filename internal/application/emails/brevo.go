package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches the Brevo API v3 transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoContact   `json:"sender"`
	To          []BrevoContact `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

type BrevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Sender sends transactional emails. A nil Sender is a no-op for callers.
type Sender interface {
	SendEmailValidation(ctx context.Context, toEmail, name, link string) error
	SendSellerApproved(ctx context.Context, toEmail, name string) error
	SendAccountBlocked(ctx context.Context, toEmail, name, reason string) error
}

// BrevoClient sends emails via the Brevo (Sendinblue) API. Without an API key every
// send is skipped.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Endpoint string
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@autostand.pt"
}

func (c *BrevoClient) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return brevoAPI
}

func (c *BrevoClient) send(ctx context.Context, toEmail, toName, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoContact{Email: c.from(), Name: brandName},
		To:          []BrevoContact{{Email: toEmail, Name: toName}},
		Subject:     subject,
		HTMLContent: html,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

func (c *BrevoClient) SendEmailValidation(ctx context.Context, toEmail, name, link string) error {
	return c.send(ctx, toEmail, name, "Valide o seu email", Layout(validationContent(name, link)))
}

func (c *BrevoClient) SendSellerApproved(ctx context.Context, toEmail, name string) error {
	return c.send(ctx, toEmail, name, "A sua conta de vendedor foi aprovada", Layout(sellerApprovedContent(name)))
}

func (c *BrevoClient) SendAccountBlocked(ctx context.Context, toEmail, name, reason string) error {
	return c.send(ctx, toEmail, name, "A sua conta foi bloqueada", Layout(accountBlockedContent(name, reason)))
}
