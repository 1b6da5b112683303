// Package simulate drives notification channels with canned events so an
// operator can verify delivery without waiting for a real drop.
package simulate

import (
	"context"
	"fmt"
	"time"

	"github.com/fragdrop/fragwatch/internal/adapters/notify"
	"github.com/fragdrop/fragwatch/internal/domain/detect"
	"github.com/fragdrop/fragwatch/internal/domain/model"
	"github.com/fragdrop/fragwatch/pkg/logger"
)

// Config holds configuration for a simulation run.
type Config struct {
	WebhookURL    string // Discord-compatible webhook URL, empty to skip
	PushoverToken string // Pushover application token, empty to skip
	PushoverUser  string // Pushover user key
	Scenario      string // drop, restock, or test
	Watchlisted   bool   // mark the restock scenario as watchlisted
}

// Run builds a notification for the chosen scenario and sends it on every
// configured channel.
func Run(ctx context.Context, cfg *Config) error {
	log := logger.Get().Named("simulate")

	manager := notify.NewManager()
	if cfg.WebhookURL != "" {
		manager.Add(notify.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.PushoverToken != "" && cfg.PushoverUser != "" {
		manager.Add(notify.NewPushoverNotifier(cfg.PushoverToken, cfg.PushoverUser))
	}
	if len(manager.Channels()) == 0 {
		return fmt.Errorf("no notification channels configured")
	}

	n, err := buildNotification(cfg)
	if err != nil {
		return err
	}

	log.Info(ctx, "sending simulated notification",
		logger.String("scenario", cfg.Scenario),
		logger.Any("channels", manager.Channels()),
	)
	results := manager.Send(ctx, n)
	for channel, ok := range results {
		log.Info(ctx, "delivery result",
			logger.String("channel", channel),
			logger.Bool("delivered", ok),
		)
	}
	if !notify.AnyDelivered(results) {
		return fmt.Errorf("no channel accepted the notification")
	}
	return nil
}

func buildNotification(cfg *Config) (notify.Notification, error) {
	switch cfg.Scenario {
	case "drop":
		return notify.FromMatch(sampleDrop()), nil
	case "restock":
		return notify.FromChange(sampleRestock(cfg.Watchlisted)), nil
	case "test":
		return notify.TestNotification(), nil
	default:
		return notify.Notification{}, fmt.Errorf("unknown scenario %q", cfg.Scenario)
	}
}

// sampleDrop classifies a canned announcement post so the notification
// carries a realistic confidence and explanation.
func sampleDrop() model.Match {
	post := model.SocialPost{
		ID:        "simulated-drop",
		Title:     "RESTOCK today at 8pm EST",
		Body:      "Parfums restock going live tonight, link on the website.",
		Author:    "montagneparfums",
		Flair:     "Restock",
		URL:       "https://www.reddit.com/r/MontagneParfums/comments/simulated",
		CreatedAt: time.Now().UTC(),
	}
	classifier, err := detect.NewClassifier(detect.WithTrustedAuthors([]string{post.Author}))
	if err != nil {
		// Default options never produce an invalid pattern.
		panic(err)
	}
	return model.Match{Post: post, Decision: classifier.Classify(post)}
}

func sampleRestock(watchlisted bool) model.ChangeEvent {
	return model.ChangeEvent{
		Kind: model.ChangeRestocked,
		Product: model.ProductRecord{
			Slug:    "aventus-decant",
			Name:    "Aventus Decant",
			URL:     "https://www.montagneparfums.com/fragrance/aventus-decant",
			Price:   "$34.00",
			InStock: true,
		},
		Watchlisted: watchlisted,
	}
}
