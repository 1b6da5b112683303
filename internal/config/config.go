// Package config defines service configuration structures and loading.
//
// Conventions:
// - Config is plain data; behavior (compiled patterns, windows) is built
//   by the consuming packages.
// - New returns defaults; Load layers file and env on top.
// - External errors are wrapped via this package's sentinel errors.
package config

import "runtime"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// StatePath is where the snapshot/history state file lives.
	StatePath string `koanf:"state_path"`

	// QueueSize bounds the in-memory post queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of classification workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the seen-post ID cache.
	DedupeSize int `koanf:"dedupe_size"`

	Detection     Detection     `koanf:"detection"`
	Reddit        Reddit        `koanf:"reddit"`
	Stock         Stock         `koanf:"stock"`
	DropWindow    WindowConfig  `koanf:"drop_window"`
	StockSchedule WindowConfig  `koanf:"stock_schedule"`
	Notifications Notifications `koanf:"notifications"`
	Advanced      Advanced      `koanf:"advanced"`
}

// Detection holds the classifier tunables. Everything here is operator
// configuration; the signal weights themselves are not.
type Detection struct {
	ConfidenceThreshold float64  `koanf:"confidence_threshold"`
	PrimaryKeywords     []string `koanf:"primary_keywords"`
	SecondaryKeywords   []string `koanf:"secondary_keywords"`
	ExclusionPatterns   []string `koanf:"exclusion_patterns"`
	VendorPatterns      []string `koanf:"vendor_patterns"`
	TimePatterns        []string `koanf:"time_patterns"`
	TrustedAuthors      []string `koanf:"trusted_authors"`
	KnownVendors        []string `koanf:"known_vendors"`
}

// Reddit configures the community ingestion client.
type Reddit struct {
	Subreddit            string `koanf:"subreddit"`
	CheckIntervalSeconds int    `koanf:"check_interval"`
	PostLimit            int    `koanf:"post_limit"`
	BaseURL              string `koanf:"base_url"`
	UserAgent            string `koanf:"user_agent"`
}

// Stock configures the storefront catalog monitor.
type Stock struct {
	Enabled              bool       `koanf:"enabled"`
	CatalogURL           string     `koanf:"catalog_url"`
	CheckIntervalSeconds int        `koanf:"check_interval"`
	Watchlist            []string   `koanf:"watchlist"`
	Notify               StockNotify `koanf:"notifications"`
}

// StockNotify toggles which change kinds are forwarded to notifiers.
// Watchlisted restocks bypass the Restocked toggle.
type StockNotify struct {
	Restocked    bool `koanf:"restocked_products"`
	NewProducts  bool `koanf:"new_products"`
	OutOfStock   bool `koanf:"out_of_stock"`
	PriceChanges bool `koanf:"price_changes"`
}

// WindowConfig describes a recurring calendar window. DaysOfWeek uses
// time.Weekday numbering (0=Sunday); empty means every day.
type WindowConfig struct {
	Enabled     bool   `koanf:"enabled"`
	DaysOfWeek  []int  `koanf:"days_of_week"`
	StartHour   int    `koanf:"start_hour"`
	StartMinute int    `koanf:"start_minute"`
	EndHour     int    `koanf:"end_hour"`
	EndMinute   int    `koanf:"end_minute"`
	Timezone    string `koanf:"timezone"`
}

// Notifications configures delivery channels.
type Notifications struct {
	SendTestOnStart bool     `koanf:"send_test_on_start"`
	Webhook         Webhook  `koanf:"webhook"`
	Pushover        Pushover `koanf:"pushover"`
}

// Webhook is a Discord-compatible webhook channel.
type Webhook struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
}

// Pushover is a Pushover-compatible push channel.
type Pushover struct {
	Enabled bool   `koanf:"enabled"`
	Token   string `koanf:"token"`
	UserKey string `koanf:"user_key"`
}

// Advanced holds retry tuning for the network-facing clients.
type Advanced struct {
	MaxRetries             int     `koanf:"max_retries"`
	InitialRetryDelaySecs  float64 `koanf:"initial_retry_delay"`
	MaxRetryDelaySecs      float64 `koanf:"max_retry_delay"`
	RequestTimeoutSeconds  int     `koanf:"request_timeout"`
}

// New creates a Config with defaults matching the service's stock
// deployment against r/MontagneParfums.
func New() *Config {
	return &Config{
		LogLevel:    "info",
		Addr:        ":8000",
		StatePath:   "data/fragwatch.json",
		QueueSize:   10_000,
		WorkerCount: runtime.NumCPU() * 2,
		DedupeSize:  50_000,
		Detection: Detection{
			ConfidenceThreshold: 0.4,
			PrimaryKeywords: []string{
				"restock", "restocked", "restocking",
				"drop", "dropped", "dropping", "drops",
				"release", "released", "releasing",
				"available", "availability",
				"launch", "launched", "launching",
				"in stock", "back in stock",
				"now live", "live now",
				"new fragrance", "new perfume",
				"new cologne", "new scent",
			},
			SecondaryKeywords: []string{
				"limited", "exclusive", "special",
				"pre-order", "preorder",
				"sale", "discount",
				"batch", "decant",
				"split", "sample",
				"bottle", "ml",
				"price", "pricing",
				"order", "ordering",
				"link", "website",
			},
			ExclusionPatterns: []string{
				`looking\s+for`,
				`where\s+to\s+buy`,
				`anyone\s+have`,
				`wtb`,
				`wts`,
				`iso`,
				`recommendation`,
				`review`,
				`thoughts\s+on`,
				`\[wtb\]`,
				`\[wts\]`,
			},
			VendorPatterns: []string{
				`montagne\s*parfums`,
				`montagne`,
				`MP\b`,
				`official`,
				`announcement`,
			},
			TimePatterns: []string{
				`\d{1,2}\s*(?:am|pm)\s*(?:es?t|edt|pst|pdt)?`,
				`today\s+at`,
				`tonight`,
				`tomorrow\s+at`,
			},
			TrustedAuthors: []string{
				"ayybrahamlmaocoln",
				"wide_parsley1799",
				"montagneparfums",
				"mpofficial",
			},
			KnownVendors: []string{
				"montagneparfums",
				"montagne_parfums",
			},
		},
		Reddit: Reddit{
			Subreddit:            "MontagneParfums",
			CheckIntervalSeconds: 300,
			PostLimit:            50,
			BaseURL:              "https://www.reddit.com",
			UserAgent:            "fragwatch/1.0",
		},
		Stock: Stock{
			Enabled:              true,
			CatalogURL:           "https://www.montagneparfums.com/fragrance",
			CheckIntervalSeconds: 900,
			Notify: StockNotify{
				Restocked:   true,
				NewProducts: true,
			},
		},
		DropWindow: WindowConfig{
			Enabled:     true,
			DaysOfWeek:  []int{5}, // Friday
			StartHour:   12,
			EndHour:     17,
			Timezone:    "America/New_York",
		},
		StockSchedule: WindowConfig{
			Enabled:   false, // 24/7 by default
			Timezone:  "America/New_York",
			StartHour: 9,
			EndHour:   18,
		},
		Advanced: Advanced{
			MaxRetries:            3,
			InitialRetryDelaySecs: 1.0,
			MaxRetryDelaySecs:     30.0,
			RequestTimeoutSeconds: 30,
		},
	}
}
