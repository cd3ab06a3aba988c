package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tidewatch/tidewatch/internal/freshness"
	"github.com/tidewatch/tidewatch/internal/store"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue depth, cache freshness, and plan counts",
		RunE:  runStatus,
	}
}

// cacheStatus reports one cached category's freshness.
type cacheStatus struct {
	Category    string `json:"category"`
	LastFetched string `json:"last_fetched,omitempty"`
	Fresh       bool   `json:"fresh"`
}

// statusReport is the sync-status surface: everything the UI needs to
// render "you have N unsynced changes" and per-category staleness.
type statusReport struct {
	QueuedMutations int           `json:"queued_mutations"`
	OldestQueuedAge string        `json:"oldest_queued_age,omitempty"`
	Plans           int           `json:"plans"`
	ActivePlans     int           `json:"active_plans"`
	OverduePlans    int           `json:"overdue_plans"`
	Caches          []cacheStatus `json:"caches"`
}

func runStatus(_ *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	report := buildStatusReport(a.store.Read(), store.NowNano())

	if flagJSON {
		return json.NewEncoder(os.Stdout).Encode(report)
	}

	printStatusText(report)

	return nil
}

// buildStatusReport derives the status surface from a snapshot.
func buildStatusReport(snap store.Snapshot, now int64) statusReport {
	report := statusReport{
		QueuedMutations: len(snap.Queue),
		Plans:           len(snap.Plans),
	}

	if len(snap.Queue) > 0 {
		age := time.Duration(now - snap.Queue[0].CreatedAt)
		report.OldestQueuedAge = age.Round(time.Second).String()
	}

	for _, p := range snap.Plans {
		switch store.EffectiveStatus(p, now) {
		case store.PlanActive:
			report.ActivePlans++
		case store.PlanOverdue:
			report.OverduePlans++
		}
	}

	report.Caches = []cacheStatus{
		cacheLine("stations", snap.StationsFetchedAt, freshness.StationListTTL, now),
		cacheLine("alerts", snap.AlertsFetchedAt, freshness.AlertTTL, now),
		cacheLine("observations", newestStamp(snap.ObservationsFetchedAt), freshness.ObservationTTL, now),
		cacheLine("forecasts", newestStamp(snap.ForecastsFetchedAt), freshness.ForecastTTL, now),
	}

	return report
}

// cacheLine formats one category's freshness.
func cacheLine(category string, fetchedAt int64, ttl time.Duration, now int64) cacheStatus {
	line := cacheStatus{
		Category: category,
		Fresh:    freshness.IsValid(fetchedAt, ttl, now),
	}

	if fetchedAt != 0 {
		line.LastFetched = time.Unix(0, fetchedAt).Format(time.RFC3339)
	}

	return line
}

// newestStamp reduces a per-station timestamp map to its newest entry for
// summary display.
func newestStamp(stamps map[string]int64) int64 {
	var newest int64

	for _, ts := range stamps {
		if ts > newest {
			newest = ts
		}
	}

	return newest
}

func printStatusText(report statusReport) {
	if report.QueuedMutations == 0 {
		fmt.Println("Queue: empty, all changes synced")
	} else {
		fmt.Printf("Queue: %d pending (oldest %s)\n",
			report.QueuedMutations, report.OldestQueuedAge)
	}

	fmt.Printf("Plans: %d total, %d active, %d overdue\n",
		report.Plans, report.ActivePlans, report.OverduePlans)

	for _, c := range report.Caches {
		state := "stale"
		if c.Fresh {
			state = "fresh"
		}

		last := c.LastFetched
		if last == "" {
			last = "never"
		}

		fmt.Printf("Cache %-13s %s (fetched %s)\n", c.Category+":", state, last)
	}
}
