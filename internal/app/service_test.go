package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/fragdrop/fragwatch/internal/adapters/notify"
	"github.com/fragdrop/fragwatch/internal/adapters/repository"
	"github.com/fragdrop/fragwatch/internal/app"
	"github.com/fragdrop/fragwatch/internal/config"
	"github.com/fragdrop/fragwatch/internal/domain/model"
	"github.com/fragdrop/fragwatch/pkg/logger"
)

func init() {
	logger.Init()
}

// memStore is an in-memory repository.Store for service tests.
type memStore struct {
	mu      sync.Mutex
	snap    model.CatalogSnapshot
	hasSnap bool
	drops   []repository.DropRecord
	changes []repository.ChangeRecord
	checks  map[string]time.Time
}

func newMemStore() *memStore {
	return &memStore{checks: make(map[string]time.Time)}
}

func (m *memStore) Snapshot(context.Context) (model.CatalogSnapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, m.hasSnap, nil
}

func (m *memStore) ReplaceSnapshot(_ context.Context, snap model.CatalogSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap
	m.hasSnap = true
	return nil
}

func (m *memStore) SaveDrop(_ context.Context, match model.Match) (repository.DropRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := repository.DropRecord{
		ID:         match.Post.ID,
		PostID:     match.Post.ID,
		Title:      match.Post.Title,
		Author:     match.Post.Author,
		Confidence: match.Decision.Confidence,
	}
	m.drops = append(m.drops, rec)
	return rec, nil
}

func (m *memStore) MarkDropNotified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.drops {
		if m.drops[i].ID == id {
			m.drops[i].Notified = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memStore) RecentDrops(context.Context, int) ([]repository.DropRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repository.DropRecord, len(m.drops))
	copy(out, m.drops)
	return out, nil
}

func (m *memStore) SaveChanges(_ context.Context, events []model.ChangeEvent) ([]repository.ChangeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := make([]repository.ChangeRecord, 0, len(events))
	for _, e := range events {
		recs = append(recs, repository.ChangeRecord{
			Kind:        e.Kind,
			Slug:        e.Product.Slug,
			Watchlisted: e.Watchlisted,
		})
	}
	m.changes = append(m.changes, recs...)
	return recs, nil
}

func (m *memStore) RecentChanges(context.Context, int) ([]repository.ChangeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repository.ChangeRecord, len(m.changes))
	copy(out, m.changes)
	return out, nil
}

func (m *memStore) LastCheck(_ context.Context, monitor string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.checks[monitor]
	return t, ok
}

func (m *memStore) SetLastCheck(_ context.Context, monitor string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[monitor] = t
	return nil
}

// stubPosts serves a fixed batch of posts and counts fetches.
type stubPosts struct {
	mu    sync.Mutex
	posts []model.SocialPost
	calls int
}

func (s *stubPosts) RecentPosts(context.Context, int) ([]model.SocialPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	out := make([]model.SocialPost, len(s.posts))
	copy(out, s.posts)
	return out, nil
}

func (s *stubPosts) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// stubCatalog replays a sequence of snapshots, holding the last one.
type stubCatalog struct {
	mu    sync.Mutex
	snaps []model.CatalogSnapshot
	idx   int
}

func (s *stubCatalog) FetchCatalog(context.Context) (model.CatalogSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snaps[s.idx]
	if s.idx < len(s.snaps)-1 {
		s.idx++
	}
	return snap, nil
}

// countingNotifier records every notification it is handed.
type countingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (n *countingNotifier) Name() string { return "counting" }

func (n *countingNotifier) Send(_ context.Context, msg notify.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func (n *countingNotifier) notifications() []notify.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.Notification, len(n.sent))
	copy(out, n.sent)
	return out
}

func waitFor(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func testConfig() *config.Config {
	cfg := config.New()
	cfg.WorkerCount = 2
	cfg.Reddit.CheckIntervalSeconds = 1
	cfg.DropWindow.Enabled = false
	cfg.Stock.Enabled = false
	cfg.StockSchedule.Enabled = false
	return cfg
}

func newManager(n notify.Notifier) *notify.Manager {
	m := notify.NewManager()
	m.Add(n)
	return m
}

func TestDropPipeline(t *testing.T) {
	Convey("Given a running service fed by a stub post source", t, func() {
		store := newMemStore()
		sink := &countingNotifier{}
		posts := &stubPosts{posts: []model.SocialPost{
			{ID: "p1", Title: "RESTOCK tonight at 8pm EST", Author: "montagneparfums"},
			{ID: "p2", Title: "What should I layer with Grand Soir?", Author: "someone"},
		}}

		svc := app.New(testConfig(),
			app.WithStore(store),
			app.WithPostSource(posts),
			app.WithNotifierManager(newManager(sink)),
		)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then the matching post is persisted and notified", func() {
			ok := waitFor(func() bool {
				recs, _ := store.RecentDrops(ctx, 10)
				return len(recs) == 1 && recs[0].Notified
			}, 3*time.Second)
			So(ok, ShouldBeTrue)

			recs, err := svc.RecentDrops(ctx, 10)
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 1)
			So(recs[0].PostID, ShouldEqual, "p1")
			So(recs[0].Confidence, ShouldBeGreaterThanOrEqualTo, 0.4)

			So(sink.notifications(), ShouldHaveLength, 1)
			So(sink.notifications()[0].Kind, ShouldEqual, notify.KindDrop)
		})

		Convey("Then repeated polls do not duplicate the drop", func() {
			ok := waitFor(func() bool {
				recs, _ := store.RecentDrops(ctx, 10)
				return posts.fetchCount() >= 2 && len(recs) >= 1
			}, 3*time.Second)
			So(ok, ShouldBeTrue)

			recs, err := svc.RecentDrops(ctx, 10)
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 1)
		})
	})
}

func TestDropWindowGate(t *testing.T) {
	Convey("Given a service whose drop window is closed", t, func() {
		store := newMemStore()
		posts := &stubPosts{}

		cfg := testConfig()
		cfg.DropWindow.Enabled = true
		cfg.DropWindow.DaysOfWeek = []int{5}
		cfg.DropWindow.StartHour = 12
		cfg.DropWindow.EndHour = 17
		cfg.DropWindow.Timezone = "UTC"

		// 2026-01-05 is a Monday.
		monday := time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)
		svc := app.New(cfg,
			app.WithStore(store),
			app.WithPostSource(posts),
			app.WithNotifierManager(notify.NewManager()),
			app.WithClock(func() time.Time { return monday }),
		)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then no posts are fetched", func() {
			time.Sleep(200 * time.Millisecond)
			So(posts.fetchCount(), ShouldEqual, 0)
		})
	})
}

func TestStockPipeline(t *testing.T) {
	Convey("Given a running service fed by a stub catalog source", t, func() {
		store := newMemStore()
		sink := &countingNotifier{}
		catalog := &stubCatalog{snaps: []model.CatalogSnapshot{
			{
				"aventus-decant": {Slug: "aventus-decant", Name: "Aventus", Price: "$34.00", InStock: false},
				"layton-decant":  {Slug: "layton-decant", Name: "Layton", Price: "$40.00", InStock: true},
			},
			{
				"aventus-decant": {Slug: "aventus-decant", Name: "Aventus", Price: "$34.00", InStock: true},
				"layton-decant":  {Slug: "layton-decant", Name: "Layton", Price: "$40.00", InStock: true},
			},
		}}

		cfg := testConfig()
		cfg.Stock.Enabled = true
		cfg.Stock.CheckIntervalSeconds = 1
		cfg.Stock.Watchlist = []string{"aventus-decant"}

		svc := app.New(cfg,
			app.WithStore(store),
			app.WithPostSource(&stubPosts{}),
			app.WithCatalogSource(catalog),
			app.WithNotifierManager(newManager(sink)),
		)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then the first cycle establishes a baseline and the second emits a restock", func() {
			ok := waitFor(func() bool {
				recs, _ := store.RecentChanges(ctx, 10)
				return len(recs) == 1
			}, 4*time.Second)
			So(ok, ShouldBeTrue)

			recs, err := svc.RecentChanges(ctx, 10)
			So(err, ShouldBeNil)
			So(recs[0].Kind, ShouldEqual, model.ChangeRestocked)
			So(recs[0].Slug, ShouldEqual, "aventus-decant")
			So(recs[0].Watchlisted, ShouldBeTrue)

			snap, hasBaseline, err := svc.Snapshot(ctx)
			So(err, ShouldBeNil)
			So(hasBaseline, ShouldBeTrue)
			So(snap["aventus-decant"].InStock, ShouldBeTrue)

			msgs := sink.notifications()
			So(len(msgs), ShouldBeGreaterThanOrEqualTo, 1)
			So(msgs[0].Kind, ShouldEqual, notify.KindRestock)
		})
	})
}

func TestApplyConfig(t *testing.T) {
	Convey("Given a running service", t, func() {
		svc := app.New(testConfig(),
			app.WithStore(newMemStore()),
			app.WithPostSource(&stubPosts{}),
			app.WithNotifierManager(notify.NewManager()),
		)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When reloading with a valid config", func() {
			cfg := testConfig()
			cfg.Detection.ConfidenceThreshold = 0.7
			So(svc.ApplyConfig(ctx, cfg), ShouldBeNil)
		})

		Convey("When reloading with a broken exclusion pattern", func() {
			cfg := testConfig()
			cfg.Detection.ExclusionPatterns = []string{"[unclosed"}

			err := svc.ApplyConfig(ctx, cfg)

			Convey("Then the reload is rejected and the old rules stay active", func() {
				So(err, ShouldNotBeNil)
				decision := svc.Classify(model.SocialPost{
					ID: "p9", Title: "RESTOCK now", Author: "montagneparfums",
				})
				So(decision.IsDrop, ShouldBeTrue)
			})
		})
	})
}

func TestStats(t *testing.T) {
	Convey("Given a service", t, func() {
		store := newMemStore()
		svc := app.New(testConfig(),
			app.WithStore(store),
			app.WithPostSource(&stubPosts{}),
			app.WithNotifierManager(notify.NewManager()),
		)
		ctx := context.Background()

		Convey("Once started, runtime fields join the static ones", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			stats := svc.Stats(ctx)
			So(stats["started"], ShouldBeTrue)
			So(stats["subreddit"], ShouldEqual, "MontagneParfums")
			So(stats["stock_enabled"], ShouldBeFalse)
			So(stats, ShouldContainKey, "queue_length")
			So(stats, ShouldContainKey, "seen_posts")

			Convey("And the drop monitor reports its last check once it has run", func() {
				ok := waitFor(func() bool {
					_, ok := store.LastCheck(ctx, app.MonitorDrops)
					return ok
				}, 3*time.Second)
				So(ok, ShouldBeTrue)
				So(svc.Stats(ctx), ShouldContainKey, "last_drop_check")
			})
		})
	})
}
