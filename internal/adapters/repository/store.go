// Package repository persists monitoring state between polling cycles:
// the previous catalog snapshot, detected drops, and change history.
package repository

import (
	"context"
	"time"

	"github.com/fragdrop/fragwatch/internal/domain/model"
)

// DropRecord is one persisted drop detection.
type DropRecord struct {
	ID          string            `json:"id"`
	PostID      string            `json:"post_id"`
	Title       string            `json:"title"`
	Author      string            `json:"author"`
	URL         string            `json:"url"`
	Confidence  float64           `json:"confidence"`
	Explanation model.Explanation `json:"explanation"`
	DetectedAt  time.Time         `json:"detected_at"`
	Notified    bool              `json:"notified"`
}

// ChangeRecord is one persisted catalog change event.
type ChangeRecord struct {
	ID          string           `json:"id"`
	Kind        model.ChangeKind `json:"kind"`
	Slug        string           `json:"slug"`
	Name        string           `json:"name"`
	URL         string           `json:"url"`
	Price       string           `json:"price"`
	OldPrice    string           `json:"old_price,omitempty"`
	NewPrice    string           `json:"new_price,omitempty"`
	InStock     bool             `json:"in_stock"`
	Watchlisted bool             `json:"watchlisted"`
	ObservedAt  time.Time        `json:"observed_at"`
}

// Store provides read/write access to the monitoring state.
type Store interface {
	// Snapshot returns the persisted catalog baseline. ok is false on the
	// first-ever run, before any baseline exists.
	Snapshot(ctx context.Context) (snap model.CatalogSnapshot, ok bool, err error)

	// ReplaceSnapshot replaces the baseline wholesale after a successful
	// diff cycle. Partial updates are not supported.
	ReplaceSnapshot(ctx context.Context, snap model.CatalogSnapshot) error

	// SaveDrop persists a positive classification and returns the record.
	SaveDrop(ctx context.Context, match model.Match) (DropRecord, error)

	// MarkDropNotified flags a drop as delivered to at least one channel.
	MarkDropNotified(ctx context.Context, id string) error

	// RecentDrops returns up to n drops, newest first.
	RecentDrops(ctx context.Context, n int) ([]DropRecord, error)

	// SaveChanges persists the change events of one diff cycle.
	SaveChanges(ctx context.Context, events []model.ChangeEvent) ([]ChangeRecord, error)

	// RecentChanges returns up to n change records, newest first.
	RecentChanges(ctx context.Context, n int) ([]ChangeRecord, error)

	// LastCheck returns the completion time of the named monitor's last
	// cycle; ok is false when the monitor never completed one.
	LastCheck(ctx context.Context, monitor string) (t time.Time, ok bool)

	// SetLastCheck records a completed cycle for the named monitor.
	SetLastCheck(ctx context.Context, monitor string, t time.Time) error
}
