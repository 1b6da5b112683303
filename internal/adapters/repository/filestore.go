package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fragdrop/fragwatch/internal/domain/model"
)

const (
	defaultHistoryLimit = 500
	stateFileMode       = 0o644
	stateDirMode        = 0o755
)

// state is the on-disk document. One file, rewritten atomically as a
// whole; the snapshot baseline in particular is never partially updated.
type state struct {
	Snapshot   map[string]model.ProductRecord `json:"snapshot,omitempty"`
	HasBase    bool                           `json:"has_baseline"`
	Drops      []DropRecord                   `json:"drops,omitempty"`
	Changes    []ChangeRecord                 `json:"changes,omitempty"`
	LastChecks map[string]time.Time           `json:"last_checks,omitempty"`
}

// FileStore implements Store with in-memory state flushed to a JSON file
// after every mutation.
type FileStore struct {
	mu           sync.RWMutex
	path         string
	historyLimit int
	now          func() time.Time
	st           state
}

// Option applies a configuration option to the FileStore.
type Option func(*FileStore)

// WithHistoryLimit bounds how many drop and change records are retained.
func WithHistoryLimit(n int) Option {
	return func(s *FileStore) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *FileStore) {
		if now != nil {
			s.now = now
		}
	}
}

// Open loads or initializes the state file at path.
func Open(path string, opts ...Option) (*FileStore, error) {
	s := &FileStore{
		path:         path,
		historyLimit: defaultHistoryLimit,
		now:          time.Now,
		st:           state{LastChecks: make(map[string]time.Time)},
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrOpenState, err)
	}

	if err := json.Unmarshal(data, &s.st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if s.st.LastChecks == nil {
		s.st.LastChecks = make(map[string]time.Time)
	}
	return s, nil
}

// Snapshot returns a copy of the persisted baseline.
func (s *FileStore) Snapshot(_ context.Context) (model.CatalogSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.st.HasBase {
		return nil, false, nil
	}
	snap := make(model.CatalogSnapshot, len(s.st.Snapshot))
	for slug, rec := range s.st.Snapshot {
		snap[slug] = rec
	}
	return snap, true, nil
}

// ReplaceSnapshot swaps the baseline wholesale and flushes.
func (s *FileStore) ReplaceSnapshot(_ context.Context, snap model.CatalogSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]model.ProductRecord, len(snap))
	for slug, rec := range snap {
		next[slug] = rec
	}
	s.st.Snapshot = next
	s.st.HasBase = true
	return s.flush()
}

// SaveDrop persists a positive classification.
func (s *FileStore) SaveDrop(_ context.Context, match model.Match) (DropRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := DropRecord{
		ID:          uuid.NewString(),
		PostID:      match.Post.ID,
		Title:       match.Post.Title,
		Author:      match.Post.Author,
		URL:         match.Post.URL,
		Confidence:  match.Decision.Confidence,
		Explanation: match.Decision.Explanation,
		DetectedAt:  s.now().UTC(),
	}
	s.st.Drops = append(s.st.Drops, rec)
	if len(s.st.Drops) > s.historyLimit {
		s.st.Drops = s.st.Drops[len(s.st.Drops)-s.historyLimit:]
	}
	if err := s.flush(); err != nil {
		return DropRecord{}, err
	}
	return rec, nil
}

// MarkDropNotified flags a stored drop as delivered.
func (s *FileStore) MarkDropNotified(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.st.Drops {
		if s.st.Drops[i].ID == id {
			s.st.Drops[i].Notified = true
			return s.flush()
		}
	}
	return fmt.Errorf("%w: drop %s", ErrNotFound, id)
}

// RecentDrops returns up to n drops, newest first.
func (s *FileStore) RecentDrops(_ context.Context, n int) ([]DropRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newestFirst(s.st.Drops, n), nil
}

// SaveChanges persists the events of one diff cycle.
func (s *FileStore) SaveChanges(_ context.Context, events []model.ChangeEvent) ([]ChangeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]ChangeRecord, 0, len(events))
	observed := s.now().UTC()
	for _, e := range events {
		records = append(records, ChangeRecord{
			ID:          uuid.NewString(),
			Kind:        e.Kind,
			Slug:        e.Product.Slug,
			Name:        e.Product.Name,
			URL:         e.Product.URL,
			Price:       e.Product.Price,
			OldPrice:    e.OldPrice,
			NewPrice:    e.NewPrice,
			InStock:     e.Product.InStock,
			Watchlisted: e.Watchlisted,
			ObservedAt:  observed,
		})
	}
	s.st.Changes = append(s.st.Changes, records...)
	if len(s.st.Changes) > s.historyLimit {
		s.st.Changes = s.st.Changes[len(s.st.Changes)-s.historyLimit:]
	}
	if err := s.flush(); err != nil {
		return nil, err
	}
	return records, nil
}

// RecentChanges returns up to n change records, newest first.
func (s *FileStore) RecentChanges(_ context.Context, n int) ([]ChangeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newestFirst(s.st.Changes, n), nil
}

// LastCheck returns the named monitor's last completed cycle time.
func (s *FileStore) LastCheck(_ context.Context, monitor string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.st.LastChecks[monitor]
	return t, ok
}

// SetLastCheck records a completed cycle.
func (s *FileStore) SetLastCheck(_ context.Context, monitor string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.LastChecks[monitor] = t.UTC()
	return s.flush()
}

// flush writes the state file atomically via a temp file and rename.
// Callers must hold the write lock.
func (s *FileStore) flush() error {
	data, err := json.MarshalIndent(&s.st, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistState, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, stateDirMode); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistState, err)
	}
	tmp, err := os.CreateTemp(dir, ".fragwatch-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistState, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrPersistState, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistState, err)
	}
	if err := os.Chmod(tmp.Name(), stateFileMode); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistState, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistState, err)
	}
	return nil
}

func newestFirst[T any](records []T, n int) []T {
	if n <= 0 || n > len(records) {
		n = len(records)
	}
	out := make([]T, 0, n)
	for i := len(records) - 1; i >= len(records)-n; i-- {
		out = append(out, records[i])
	}
	return out
}
