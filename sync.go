package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tidewatch/tidewatch/internal/connectivity"
	"github.com/tidewatch/tidewatch/internal/queue"
	"github.com/tidewatch/tidewatch/internal/refresh"
)

// hoursPerDay converts the configured retention days to a duration.
const hoursPerDay = 24

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass: sweep, refresh, drain",
		Long: `Run one synchronization pass.

Evicts plan records past the retention horizon, refreshes any marine data
whose TTL has lapsed, and drains the offline mutation queue in order.
Offline, the pass is a no-op beyond the retention sweep.`,
		RunE: runSync,
	}
}

func runSync(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()

	horizon := time.Duration(resolvedCfg.Sync.RetentionDays) * hoursPerDay * time.Hour
	evicted := a.store.SweepPlans(horizon)

	probe := connectivity.NewProbe(resolvedCfg.APIBaseURL+"/v1/health", a.logger)

	refresher := refresh.New(a.store, a.client, probe, a.logger)
	refresher.RefreshAll(ctx)
	refresher.DetectHazards(ctx, nil)

	drainer := queue.NewDrainer(a.store, a.client, probe, a.logger, queue.Options{
		AttemptsPerPass: resolvedCfg.Sync.DrainAttempts,
		BackoffBase:     resolvedCfg.Sync.DrainBackoff.Std(),
		AbandonAfter:    resolvedCfg.Sync.AbandonAfter,
	})
	delivered := drainer.Drain(ctx)

	remaining := a.store.PendingCount()

	fmt.Printf("swept %d plans, delivered %d mutations, %d pending\n",
		evicted, delivered, remaining)

	return nil
}
