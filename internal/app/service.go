// Package app wires the monitors together: ingestion, classification,
// catalog diffing, persistence, and notification dispatch.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fragdrop/fragwatch/internal/adapters/mq/queue"
	"github.com/fragdrop/fragwatch/internal/adapters/mq/worker"
	"github.com/fragdrop/fragwatch/internal/adapters/notify"
	"github.com/fragdrop/fragwatch/internal/adapters/repository"
	"github.com/fragdrop/fragwatch/internal/adapters/sources"
	"github.com/fragdrop/fragwatch/internal/config"
	"github.com/fragdrop/fragwatch/internal/domain/dedupe"
	"github.com/fragdrop/fragwatch/internal/domain/detect"
	"github.com/fragdrop/fragwatch/internal/domain/model"
	"github.com/fragdrop/fragwatch/internal/domain/schedule"
	"github.com/fragdrop/fragwatch/internal/domain/stockdiff"
	"github.com/fragdrop/fragwatch/pkg/logger"
	"github.com/fragdrop/fragwatch/pkg/metrics"
)

// Monitor names used for last-check bookkeeping and metrics labels.
const (
	MonitorDrops = "drops"
	MonitorStock = "stock"
)

// Service runs the drop and stock monitors.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Core components
	classifier *detect.Classifier
	watchlist  model.Watchlist
	prefs      notify.Prefs
	dropWindow windowGate
	stockGate  windowGate

	deduper   dedupe.Deduper
	postQueue queue.Queue
	pool      *worker.Pool
	store     repository.Store
	posts     sources.PostSource
	catalog   sources.CatalogSource
	notifier  *notify.Manager

	now func() time.Time

	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	logger logger.Logger
}

// windowGate pairs a schedule window with its enabled toggle.
type windowGate struct {
	enabled bool
	window  schedule.Window
}

func (g windowGate) open(t time.Time) bool {
	return !g.enabled || g.window.Contains(t)
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore injects a state store, replacing the file-backed default.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithPostSource injects the community post source.
func WithPostSource(src sources.PostSource) Option {
	return func(s *Service) {
		if src != nil {
			s.posts = src
		}
	}
}

// WithCatalogSource injects the storefront catalog source.
func WithCatalogSource(src sources.CatalogSource) Option {
	return func(s *Service) {
		if src != nil {
			s.catalog = src
		}
	}
}

// WithNotifierManager injects the notification fan-out.
func WithNotifierManager(m *notify.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.notifier = m
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service for the given configuration.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:    cfg,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes components and launches the poll loops.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("app")
	}

	s.logger.Info(ctx, "starting fragwatch service")

	if err := s.applyConfigLocked(s.cfg); err != nil {
		return err
	}

	if s.store == nil {
		store, err := repository.Open(s.cfg.StatePath)
		if err != nil {
			return fmt.Errorf("open state store: %w", err)
		}
		s.store = store
	}

	if s.posts == nil {
		s.posts = sources.NewRedditClient(
			s.cfg.Reddit.BaseURL,
			s.cfg.Reddit.Subreddit,
			s.cfg.Reddit.UserAgent,
			sources.WithRedditBackoff(backoffFrom(s.cfg.Advanced)),
		)
	}
	if s.catalog == nil && s.cfg.Stock.Enabled {
		s.catalog = sources.NewCatalogClient(
			s.cfg.Stock.CatalogURL,
			s.cfg.Reddit.UserAgent,
			sources.WithCatalogBackoff(backoffFrom(s.cfg.Advanced)),
		)
	}
	if s.notifier == nil {
		s.notifier = buildNotifiers(s.cfg.Notifications)
	}

	s.deduper = dedupe.NewRingDeduper(dedupe.WithMaxSize(s.cfg.DedupeSize))
	s.postQueue = queue.NewInMemoryQueue(queue.WithCapacity(s.cfg.QueueSize))
	s.pool = worker.NewPool(s.cfg.WorkerCount, s.postQueue, s, s)
	s.pool.Start(ctx)

	s.wg.Add(1)
	go s.runDropLoop(ctx)

	if s.cfg.Stock.Enabled {
		s.wg.Add(1)
		go s.runStockLoop(ctx)
	}

	if s.cfg.Notifications.SendTestOnStart {
		results := s.notifier.Send(ctx, notify.TestNotification())
		s.logger.Info(ctx, "test notification dispatched", logger.Any("results", results))
	}

	s.started = true
	s.logger.Info(ctx, "fragwatch service started",
		logger.Int("workers", s.cfg.WorkerCount),
		logger.String("subreddit", s.cfg.Reddit.Subreddit),
		logger.Bool("stockMonitor", s.cfg.Stock.Enabled),
	)
	return nil
}

// Stop shuts the service down, draining queued posts.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping fragwatch service")

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.wg.Wait()

	if s.pool != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := s.pool.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "worker pool shutdown", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "fragwatch service stopped")
}

// ApplyConfig swaps the runtime-tunable pieces (classifier rules,
// watchlist, notification prefs, windows) for a freshly loaded config.
// Pollers pick the changes up on their next cycle.
func (s *Service) ApplyConfig(ctx context.Context, cfg *config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.applyConfigLocked(cfg); err != nil {
		return err
	}
	s.logger.Info(ctx, "configuration reloaded",
		logger.Int("watchlist", len(cfg.Stock.Watchlist)),
		logger.Float64("threshold", cfg.Detection.ConfidenceThreshold),
	)
	return nil
}

func (s *Service) applyConfigLocked(cfg *config.Config) error {
	classifier, err := detect.NewClassifier(
		detect.WithThreshold(cfg.Detection.ConfidenceThreshold),
		detect.WithPrimaryKeywords(cfg.Detection.PrimaryKeywords),
		detect.WithSecondaryKeywords(cfg.Detection.SecondaryKeywords),
		detect.WithExclusionPatterns(cfg.Detection.ExclusionPatterns),
		detect.WithVendorPatterns(cfg.Detection.VendorPatterns),
		detect.WithTimePatterns(cfg.Detection.TimePatterns),
		detect.WithTrustedAuthors(cfg.Detection.TrustedAuthors),
		detect.WithKnownVendors(cfg.Detection.KnownVendors),
	)
	if err != nil {
		return fmt.Errorf("build classifier: %w", err)
	}

	dropWindow, err := buildWindow(cfg.DropWindow)
	if err != nil {
		return fmt.Errorf("drop window: %w", err)
	}
	stockWindow, err := buildWindow(cfg.StockSchedule)
	if err != nil {
		return fmt.Errorf("stock schedule: %w", err)
	}

	s.cfg = cfg
	s.classifier = classifier
	s.watchlist = model.NewWatchlist(cfg.Stock.Watchlist)
	s.prefs = notify.Prefs{
		Restocked:    cfg.Stock.Notify.Restocked,
		NewProducts:  cfg.Stock.Notify.NewProducts,
		OutOfStock:   cfg.Stock.Notify.OutOfStock,
		PriceChanges: cfg.Stock.Notify.PriceChanges,
	}
	s.dropWindow = windowGate{enabled: cfg.DropWindow.Enabled, window: dropWindow}
	s.stockGate = windowGate{enabled: cfg.StockSchedule.Enabled, window: stockWindow}
	return nil
}

// Classify implements worker.Classifier against the current rule set.
func (s *Service) Classify(post model.SocialPost) model.DropDecision {
	s.mu.RLock()
	classifier := s.classifier
	s.mu.RUnlock()
	return classifier.Classify(post)
}

// HandleDrop implements worker.DropSink: persist the drop, fan out the
// notification, and mark delivery.
func (s *Service) HandleDrop(ctx context.Context, match model.Match) error {
	rec, err := s.store.SaveDrop(ctx, match)
	if err != nil {
		return fmt.Errorf("save drop: %w", err)
	}

	results := s.notifier.Send(ctx, notify.FromMatch(match))
	if notify.AnyDelivered(results) {
		if err := s.store.MarkDropNotified(ctx, rec.ID); err != nil {
			return fmt.Errorf("mark drop notified: %w", err)
		}
	} else if len(results) > 0 {
		s.logger.Error(ctx, "all notification channels failed",
			logger.String("dropID", rec.ID),
			logger.String("title", match.Post.Title),
		)
	}
	return nil
}

// runDropLoop polls the community for new posts on the configured cadence.
func (s *Service) runDropLoop(ctx context.Context) {
	defer s.wg.Done()

	interval := time.Duration(s.cfg.Reddit.CheckIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.checkDrops(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.checkDrops(ctx)
		}
	}
}

// checkDrops runs one ingestion cycle: fetch, dedupe, enqueue.
func (s *Service) checkDrops(ctx context.Context) {
	now := s.now()

	s.mu.RLock()
	gate := s.dropWindow
	limit := s.cfg.Reddit.PostLimit
	s.mu.RUnlock()

	if !gate.open(now) {
		s.logger.Debug(ctx, "outside drop window",
			logger.Duration("untilOpen", gate.window.UntilNextOpen(now)),
		)
		return
	}

	start := time.Now()
	defer func() {
		metrics.RecordCheckDuration(MonitorDrops, time.Since(start).Seconds())
	}()

	posts, err := s.posts.RecentPosts(ctx, limit)
	if err != nil {
		metrics.RecordErrorByComponent("drops", "fetch_error")
		s.logger.Error(ctx, "fetching posts failed", logger.Error(err))
		return
	}
	s.logger.Debug(ctx, "fetched posts", logger.Int("count", len(posts)))

	for _, post := range posts {
		if s.deduper.SeenAndRecord(ctx, post.ID) {
			metrics.RecordPostDuplicate()
			continue
		}
		if !s.postQueue.Enqueue(ctx, post) {
			// Backpressure: allow the post to be retried next cycle.
			s.deduper.Unrecord(ctx, post.ID)
			s.logger.Warn(ctx, "post queue full, deferring post",
				logger.String("postID", post.ID),
			)
		}
	}

	if err := s.store.SetLastCheck(ctx, MonitorDrops, now); err != nil {
		s.logger.Error(ctx, "recording last check failed", logger.Error(err))
	}
}

// runStockLoop polls the storefront catalog on the configured cadence.
func (s *Service) runStockLoop(ctx context.Context) {
	defer s.wg.Done()

	interval := time.Duration(s.cfg.Stock.CheckIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.checkStock(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.checkStock(ctx)
		}
	}
}

// checkStock runs one diff cycle: fetch, diff against the baseline,
// notify, then replace the baseline wholesale.
func (s *Service) checkStock(ctx context.Context) {
	now := s.now()

	s.mu.RLock()
	gate := s.stockGate
	watchlist := s.watchlist
	prefs := s.prefs
	s.mu.RUnlock()

	if !gate.open(now) {
		s.logger.Debug(ctx, "outside stock schedule",
			logger.Duration("untilOpen", gate.window.UntilNextOpen(now)),
		)
		return
	}

	start := time.Now()
	defer func() {
		metrics.RecordCheckDuration(MonitorStock, time.Since(start).Seconds())
	}()

	current, err := s.catalog.FetchCatalog(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("stock", "fetch_error")
		s.logger.Error(ctx, "fetching catalog failed", logger.Error(err))
		return
	}
	metrics.UpdateCatalogProducts(len(current))

	previous, hasBaseline, err := s.store.Snapshot(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("stock", "store_error")
		s.logger.Error(ctx, "loading snapshot failed", logger.Error(err))
		return
	}

	if hasBaseline {
		events := stockdiff.Diff(previous, current, watchlist)
		for _, e := range events {
			metrics.RecordChangeEvent(string(e.Kind), e.Watchlisted)
		}
		if len(events) > 0 {
			if _, err := s.store.SaveChanges(ctx, events); err != nil {
				s.logger.Error(ctx, "saving changes failed", logger.Error(err))
			}
			s.notifyChanges(ctx, events, prefs)
		}
		s.logger.Info(ctx, "stock check complete",
			logger.Int("products", len(current)),
			logger.Int("changes", len(events)),
		)
	} else {
		// First run: only establish the baseline.
		s.logger.Info(ctx, "established catalog baseline",
			logger.Int("products", len(current)),
		)
	}

	if err := s.store.ReplaceSnapshot(ctx, current); err != nil {
		metrics.RecordErrorByComponent("stock", "store_error")
		s.logger.Error(ctx, "persisting snapshot failed", logger.Error(err))
		return
	}
	metrics.RecordCatalogCheck()

	if err := s.store.SetLastCheck(ctx, MonitorStock, now); err != nil {
		s.logger.Error(ctx, "recording last check failed", logger.Error(err))
	}
}

func (s *Service) notifyChanges(ctx context.Context, events []model.ChangeEvent, prefs notify.Prefs) {
	for _, e := range events {
		if !notify.ShouldNotify(e, prefs) {
			continue
		}
		results := s.notifier.Send(ctx, notify.FromChange(e))
		if !notify.AnyDelivered(results) && len(results) > 0 {
			s.logger.Error(ctx, "change notification failed on all channels",
				logger.String("kind", string(e.Kind)),
				logger.String("slug", e.Product.Slug),
			)
		}
	}
}

// RecentDrops exposes drop history for the HTTP API.
func (s *Service) RecentDrops(ctx context.Context, n int) ([]repository.DropRecord, error) {
	return s.store.RecentDrops(ctx, n)
}

// RecentChanges exposes change history for the HTTP API.
func (s *Service) RecentChanges(ctx context.Context, n int) ([]repository.ChangeRecord, error) {
	return s.store.RecentChanges(ctx, n)
}

// Snapshot exposes the current catalog baseline for the HTTP API.
func (s *Service) Snapshot(ctx context.Context) (model.CatalogSnapshot, bool, error) {
	return s.store.Snapshot(ctx)
}

// Stats returns service statistics for the status endpoint.
func (s *Service) Stats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":        s.started,
		"workers":        s.cfg.WorkerCount,
		"subreddit":      s.cfg.Reddit.Subreddit,
		"stock_enabled":  s.cfg.Stock.Enabled,
		"watchlist_size": len(s.watchlist),
		"drop_window":    s.dropWindow.window.String(),
		"stock_schedule": s.stockGate.window.String(),
	}
	if s.started {
		stats["queue_length"] = s.postQueue.Len(ctx)
		stats["seen_posts"] = s.deduper.Size()
		if t, ok := s.store.LastCheck(ctx, MonitorDrops); ok {
			stats["last_drop_check"] = t
		}
		if t, ok := s.store.LastCheck(ctx, MonitorStock); ok {
			stats["last_stock_check"] = t
		}
	}
	return stats
}

func buildWindow(cfg config.WindowConfig) (schedule.Window, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
			return schedule.Window{}, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
		}
	}
	days := make([]time.Weekday, 0, len(cfg.DaysOfWeek))
	for _, d := range cfg.DaysOfWeek {
		days = append(days, time.Weekday(d))
	}
	return schedule.New(
		schedule.WithDays(days),
		schedule.WithSpan(cfg.StartHour, cfg.StartMinute, cfg.EndHour, cfg.EndMinute),
		schedule.WithLocation(loc),
	), nil
}

func buildNotifiers(cfg config.Notifications) *notify.Manager {
	m := notify.NewManager()
	if cfg.Webhook.Enabled && cfg.Webhook.URL != "" {
		m.Add(notify.NewWebhookNotifier(cfg.Webhook.URL))
	}
	if cfg.Pushover.Enabled && cfg.Pushover.Token != "" && cfg.Pushover.UserKey != "" {
		m.Add(notify.NewPushoverNotifier(cfg.Pushover.Token, cfg.Pushover.UserKey))
	}
	return m
}

func backoffFrom(cfg config.Advanced) sources.Backoff {
	b := sources.DefaultBackoff()
	if cfg.MaxRetries > 0 {
		b.Attempts = cfg.MaxRetries
	}
	if cfg.InitialRetryDelaySecs > 0 {
		b.Initial = time.Duration(cfg.InitialRetryDelaySecs * float64(time.Second))
	}
	if cfg.MaxRetryDelaySecs > 0 {
		b.Max = time.Duration(cfg.MaxRetryDelaySecs * float64(time.Second))
	}
	return b
}
