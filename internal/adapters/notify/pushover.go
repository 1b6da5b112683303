package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const pushoverEndpoint = "https://api.pushover.net/1/messages.json"

// PushoverNotifier delivers push notifications through the Pushover
// message API.
type PushoverNotifier struct {
	token    string
	userKey  string
	endpoint string
	client   *http.Client
}

// PushoverOption applies a configuration option to the PushoverNotifier.
type PushoverOption func(*PushoverNotifier)

// WithPushoverEndpoint overrides the API endpoint, for tests.
func WithPushoverEndpoint(endpoint string) PushoverOption {
	return func(p *PushoverNotifier) {
		if endpoint != "" {
			p.endpoint = endpoint
		}
	}
}

// WithPushoverHTTPClient overrides the HTTP client, for tests.
func WithPushoverHTTPClient(c *http.Client) PushoverOption {
	return func(p *PushoverNotifier) {
		if c != nil {
			p.client = c
		}
	}
}

// NewPushoverNotifier creates a Pushover channel.
func NewPushoverNotifier(token, userKey string, opts ...PushoverOption) *PushoverNotifier {
	p := &PushoverNotifier{
		token:    token,
		userKey:  userKey,
		endpoint: pushoverEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name identifies the channel.
func (p *PushoverNotifier) Name() string { return "pushover" }

// Send delivers n as one push message.
func (p *PushoverNotifier) Send(ctx context.Context, n Notification) error {
	form := url.Values{
		"token":   {p.token},
		"user":    {p.userKey},
		"title":   {n.Title},
		"message": {messageOrTitle(n)},
	}
	if n.URL != "" {
		form.Set("url", n.URL)
	}
	if n.Watchlisted {
		form.Set("priority", "1")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: pushover returned status %d", ErrSendFailed, resp.StatusCode)
	}
	return nil
}

func messageOrTitle(n Notification) string {
	if n.Body != "" {
		return n.Body
	}
	return n.Title
}
