package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/fragdrop/fragwatch/internal/simulate"
	"github.com/fragdrop/fragwatch/pkg/logger"
)

const defaultTimeout = 30 * time.Second

func main() {
	var (
		webhookURL    = flag.String("webhook", "", "Discord-compatible webhook URL")
		pushoverToken = flag.String("pushover-token", "", "Pushover application token")
		pushoverUser  = flag.String("pushover-user", "", "Pushover user key")
		scenario      = flag.String("scenario", "restock", "Scenario to send: drop, restock, or test")
		watchlisted   = flag.Bool("watchlisted", false, "Mark the restock scenario as watchlisted")
		timeout       = flag.Duration("timeout", defaultTimeout, "Overall send timeout")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cfg := &simulate.Config{
		WebhookURL:    *webhookURL,
		PushoverToken: *pushoverToken,
		PushoverUser:  *pushoverUser,
		Scenario:      *scenario,
		Watchlisted:   *watchlisted,
	}
	if err := simulate.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
