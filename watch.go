package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/tidewatch/tidewatch/internal/connectivity"
	"github.com/tidewatch/tidewatch/internal/queue"
	"github.com/tidewatch/tidewatch/internal/refresh"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run continuously: drain on reconnect, refresh on a timer",
		Long: `Run the sync engine until interrupted.

Holds the backend events socket open as the connectivity signal; every
offline-to-online transition drains the mutation queue. Marine data is
refreshed on the configured interval and hazard trends are reported as
they develop.`,
		RunE: runWatch,
	}
}

func runWatch(_ *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signalContext()
	defer stop()

	horizon := time.Duration(resolvedCfg.Sync.RetentionDays) * hoursPerDay * time.Hour
	a.store.SweepPlans(horizon)

	// drainRequests coalesces connectivity-change signals into drain
	// passes on a single consumer goroutine.
	drainRequests := make(chan struct{}, 1)

	requestDrain := func() {
		select {
		case drainRequests <- struct{}{}:
		default:
		}
	}

	monitor := connectivity.NewMonitor(resolvedCfg.EventsURL, requestDrain, a.logger)

	drainer := queue.NewDrainer(a.store, a.client, monitor, a.logger, queue.Options{
		AttemptsPerPass: resolvedCfg.Sync.DrainAttempts,
		BackoffBase:     resolvedCfg.Sync.DrainBackoff.Std(),
		AbandonAfter:    resolvedCfg.Sync.AbandonAfter,
	})

	refresher := refresh.New(a.store, a.client, monitor, a.logger)

	notifier := refresh.NotifierFunc(func(_ context.Context, h refresh.Hazard) {
		// Notification delivery is a presentation concern; the daemon
		// surface is the log.
		fmt.Printf("ALERT [%s] %s: %s\n", h.Kind, h.StationID, h.Message)
	})

	go func() {
		if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("connectivity monitor stopped", slog.String("error", err.Error()))
		}
	}()

	ticker := time.NewTicker(resolvedCfg.Sync.RefreshInterval.Std())
	defer ticker.Stop()

	a.logger.Info("watch mode started",
		slog.Duration("refresh_interval", resolvedCfg.Sync.RefreshInterval.Std()),
		slog.Int("queued_mutations", a.store.PendingCount()),
	)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("watch mode stopping")
			return nil

		case <-drainRequests:
			drainer.Drain(ctx)

		case <-ticker.C:
			refresher.RefreshAll(ctx)
			refresher.DetectHazards(ctx, notifier)
			drainer.Drain(ctx)
		}
	}
}
