package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// WhatsAppClient sends OTP codes through a WhatsApp Business template.
type WhatsAppClient struct {
	APIKey     string
	BaseURL    string
	Template   string
	HTTPClient *http.Client
}

// NewWhatsAppClient returns a client for the given API key, endpoint and template name.
func NewWhatsAppClient(apiKey, baseURL, template string) *WhatsAppClient {
	return &WhatsAppClient{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		Template:   template,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type whatsAppRequest struct {
	To        string   `json:"to"`
	Template  string   `json:"template"`
	Variables []string `json:"variables"`
	Text      string   `json:"text,omitempty"`
}

// Send delivers msg as a template message. Indian numbers are addressed with the 91 prefix.
func (c *WhatsAppClient) Send(ctx context.Context, msg Message) error {
	if c.APIKey == "" || c.BaseURL == "" {
		return fmt.Errorf("whatsapp: not configured")
	}
	raw, err := json.Marshal(whatsAppRequest{
		To:        "91" + msg.Phone,
		Template:  c.Template,
		Variables: []string{msg.Code},
		Text:      msg.Text,
	})
	if err != nil {
		return err
	}
	return post(ctx, c.HTTPClient, c.BaseURL, c.APIKey, raw, "whatsapp")
}
