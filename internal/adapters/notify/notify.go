// Package notify dispatches drop and stock-change notifications to the
// configured delivery channels.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fragdrop/fragwatch/pkg/logger"
	"github.com/fragdrop/fragwatch/pkg/metrics"
)

// Kind labels what a notification announces.
type Kind string

// Notification kinds.
const (
	KindDrop        Kind = "drop"
	KindRestock     Kind = "restock"
	KindNewProduct  Kind = "new_product"
	KindOutOfStock  Kind = "out_of_stock"
	KindPriceChange Kind = "price_change"
	KindTest        Kind = "test"
)

// Notification is the typed, serializable unit handed to transports.
// Templating per transport happens inside the transport.
type Notification struct {
	ID          string  `json:"id"`
	Kind        Kind    `json:"kind"`
	Title       string  `json:"title"`
	Body        string  `json:"body"`
	URL         string  `json:"url,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
	Watchlisted bool    `json:"watchlisted,omitempty"`
}

// NewNotification assigns an ID and builds a notification.
func NewNotification(kind Kind, title, body, url string) Notification {
	return Notification{
		ID:    uuid.NewString(),
		Kind:  kind,
		Title: title,
		Body:  body,
		URL:   url,
	}
}

// Notifier delivers one notification over one channel.
type Notifier interface {
	// Name identifies the channel in logs, metrics, and results.
	Name() string

	// Send delivers n, retrying internally as the transport sees fit.
	Send(ctx context.Context, n Notification) error
}

// Manager fans a notification out to every registered channel and keeps
// per-channel success bookkeeping.
type Manager struct {
	notifiers []Notifier
	logger    logger.Logger
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{logger: logger.Get().Named("notify")}
}

// Add registers a channel.
func (m *Manager) Add(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Channels returns the registered channel names.
func (m *Manager) Channels() []string {
	names := make([]string, 0, len(m.notifiers))
	for _, n := range m.notifiers {
		names = append(names, n.Name())
	}
	return names
}

// Send delivers n on every channel. The returned map holds per-channel
// success; a delivery failure on one channel does not stop the others.
func (m *Manager) Send(ctx context.Context, n Notification) map[string]bool {
	results := make(map[string]bool, len(m.notifiers))
	for _, notifier := range m.notifiers {
		start := time.Now()
		err := notifier.Send(ctx, n)
		metrics.RecordNotificationLatency(float64(time.Since(start).Milliseconds()))

		if err != nil {
			metrics.RecordNotificationError(notifier.Name())
			m.logger.Error(ctx, "notification failed",
				logger.String("channel", notifier.Name()),
				logger.String("kind", string(n.Kind)),
				logger.Error(err),
			)
			results[notifier.Name()] = false
			continue
		}
		metrics.RecordNotificationSent(notifier.Name())
		results[notifier.Name()] = true
	}
	return results
}

// AnyDelivered reports whether at least one channel accepted n.
func AnyDelivered(results map[string]bool) bool {
	for _, ok := range results {
		if ok {
			return true
		}
	}
	return false
}
