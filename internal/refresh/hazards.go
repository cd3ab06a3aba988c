package refresh

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tidewatch/tidewatch/internal/marine"
)

// HazardKind distinguishes detected marine hazards.
type HazardKind string

// Hazard kinds raised by DetectHazards.
const (
	HazardPressureDrop   HazardKind = "pressure_drop"
	HazardWindEscalation HazardKind = "wind_escalation"
)

// Hazard is one detected hazardous trend at a station.
type Hazard struct {
	StationID  string
	Kind       HazardKind
	Message    string
	DetectedAt int64
}

// Notifier dispatches detected hazards. Actual delivery (push, UI badge)
// is a presentation concern outside the core.
type Notifier interface {
	Notify(ctx context.Context, h Hazard)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, h Hazard)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, h Hazard) {
	f(ctx, h)
}

// DetectHazards runs the trend detectors over every station's sensor
// history and dispatches one notification per detected hazard. Returns
// the hazards found. Stations with insufficient history are skipped —
// "unknown" is not a hazard.
func (r *Refresher) DetectHazards(ctx context.Context, notifier Notifier) []Hazard {
	snap := r.store.Read()
	if !snap.Settings.AlertsEnabled {
		return nil
	}

	now := r.nowFunc()
	threshold := snap.Settings.PressureDropThresholdHPa

	var hazards []Hazard

	for stationID, seq := range snap.PressureHistory {
		drop, ok := marine.CheckPressureDrop(seq, threshold, marine.DefaultLookback, now)
		if !ok || !drop.Significant {
			continue
		}

		hazards = append(hazards, Hazard{
			StationID: stationID,
			Kind:      HazardPressureDrop,
			Message: fmt.Sprintf("pressure fell %.1f hPa over the last %.1f h",
				drop.DropAmount, drop.HoursAgo),
			DetectedAt: now,
		})
	}

	for stationID, seq := range snap.WindHistory {
		if marine.WindTrend(seq, marine.DefaultLookback, now) != marine.TrendRising {
			continue
		}

		hazards = append(hazards, Hazard{
			StationID:  stationID,
			Kind:       HazardWindEscalation,
			Message:    "wind speed rising significantly",
			DetectedAt: now,
		})
	}

	for _, h := range hazards {
		r.logger.Warn("hazard detected",
			slog.String("station_id", h.StationID),
			slog.String("kind", string(h.Kind)),
			slog.String("message", h.Message),
		)

		if notifier != nil {
			notifier.Notify(ctx, h)
		}
	}

	return hazards
}
