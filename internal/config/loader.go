package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvConfigPath names the environment variable holding an optional YAML
// config file path.
const EnvConfigPath = "FRAGWATCH_CONFIG"

const envPrefix = "FRAGWATCH_"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if FRAGWATCH_CONFIG is set
//  3. env (prefix FRAGWATCH_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: FRAGWATCH_ADDR, FRAGWATCH_DETECTION.CONFIDENCE_THRESHOLD, ...
	// Keys are lowered with the prefix stripped to match koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Watch re-loads the config whenever the file at FRAGWATCH_CONFIG changes
// and hands the result to onChange. A load or validation failure keeps the
// previous config and is reported through onError. No-op when no file is
// configured.
func Watch(ctx context.Context, onChange func(*Config), onError func(error)) error {
	path := os.Getenv(EnvConfigPath)
	if path == "" {
		return nil
	}
	f := file.Provider(path)
	return f.Watch(func(_ interface{}, err error) {
		if err != nil {
			onError(fmt.Errorf("%w: %v", ErrLoadConfig, err))
			return
		}
		cfg, err := Load(ctx)
		if err != nil {
			onError(err)
			return
		}
		onChange(cfg)
	})
}

// Validate checks invariants the rest of the service relies on.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Detection.ConfidenceThreshold < 0 || c.Detection.ConfidenceThreshold > 1:
		return fmt.Errorf("%w: detection.confidence_threshold must be within [0,1]", ErrInvalidConfig)
	case c.Reddit.CheckIntervalSeconds < 60:
		return fmt.Errorf("%w: reddit.check_interval must be at least 60 seconds", ErrInvalidConfig)
	case c.Reddit.PostLimit < 1 || c.Reddit.PostLimit > 100:
		return fmt.Errorf("%w: reddit.post_limit must be within [1,100]", ErrInvalidConfig)
	case c.Stock.Enabled && c.Stock.CheckIntervalSeconds < 60:
		return fmt.Errorf("%w: stock.check_interval must be at least 60 seconds", ErrInvalidConfig)
	}
	for _, w := range []struct {
		name string
		cfg  WindowConfig
	}{
		{"drop_window", c.DropWindow},
		{"stock_schedule", c.StockSchedule},
	} {
		if err := w.cfg.validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, w.name, err)
		}
	}
	return nil
}

func (w WindowConfig) validate() error {
	for _, d := range w.DaysOfWeek {
		if d < 0 || d > 6 {
			return fmt.Errorf("days_of_week entries must be within [0,6], got %d", d)
		}
	}
	if w.StartHour < 0 || w.StartHour > 23 || w.EndHour < 0 || w.EndHour > 23 {
		return fmt.Errorf("hours must be within [0,23]")
	}
	if w.StartMinute < 0 || w.StartMinute > 59 || w.EndMinute < 0 || w.EndMinute > 59 {
		return fmt.Errorf("minutes must be within [0,59]")
	}
	if w.Timezone != "" {
		if _, err := time.LoadLocation(w.Timezone); err != nil {
			return fmt.Errorf("unknown timezone %q", w.Timezone)
		}
	}
	return nil
}
