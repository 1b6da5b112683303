package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Embed colors per notification kind, Discord-style 24-bit RGB.
var webhookColors = map[Kind]int{
	KindDrop:        0x2ecc71,
	KindRestock:     0x3498db,
	KindNewProduct:  0x9b59b6,
	KindOutOfStock:  0xe74c3c,
	KindPriceChange: 0xf1c40f,
	KindTest:        0x95a5a6,
}

// WebhookNotifier posts Discord-compatible embed payloads to a webhook
// URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// WebhookOption applies a configuration option to the WebhookNotifier.
type WebhookOption func(*WebhookNotifier)

// WithWebhookHTTPClient overrides the HTTP client, for tests.
func WithWebhookHTTPClient(c *http.Client) WebhookOption {
	return func(w *WebhookNotifier) {
		if c != nil {
			w.client = c
		}
	}
}

// NewWebhookNotifier creates a webhook channel.
func NewWebhookNotifier(url string, opts ...WebhookOption) *WebhookNotifier {
	w := &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name identifies the channel.
func (w *WebhookNotifier) Name() string { return "webhook" }

type webhookEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Color       int    `json:"color,omitempty"`
}

type webhookPayload struct {
	Embeds []webhookEmbed `json:"embeds"`
}

// Send delivers n as a single embed.
func (w *WebhookNotifier) Send(ctx context.Context, n Notification) error {
	payload := webhookPayload{
		Embeds: []webhookEmbed{{
			Title:       n.Title,
			Description: n.Body,
			URL:         n.URL,
			Color:       webhookColors[n.Kind],
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: webhook returned status %d", ErrSendFailed, resp.StatusCode)
	}
	return nil
}
