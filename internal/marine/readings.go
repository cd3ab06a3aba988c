// Package marine implements the time-windowed sensor history: per-station
// rolling buffers of pressure and wind readings bounded by wall-clock age,
// with trend and threshold detectors layered on top. All functions are pure
// over reading sequences — the snapshot in the store owns the actual state.
package marine

import (
	"math"
	"sort"
	"time"
)

// HistoryWindow bounds how long readings are retained after insert.
const HistoryWindow = 4 * time.Hour

// DefaultLookback is the window trend detectors examine.
const DefaultLookback = 3 * time.Hour

// Reading is a single sensor observation. Value is hPa for pressure
// sequences and m/s for wind sequences.
type Reading struct {
	StationID string  `json:"station_id"`
	Timestamp int64   `json:"timestamp"` // Unix nanoseconds
	Value     float64 `json:"value"`
}

// valid rejects readings that must never enter a history buffer:
// zero/negative timestamps and non-finite values.
func (r Reading) valid() bool {
	return r.Timestamp > 0 && !math.IsNaN(r.Value) && !math.IsInf(r.Value, 0)
}

// Append adds a reading to a sequence, evicts every entry older than
// HistoryWindow relative to now, and re-sorts ascending by timestamp.
// Readings may arrive out of order from concurrent fetches, so the sort
// is unconditional. Invalid readings are dropped silently and the input
// sequence is never modified in place.
func Append(seq []Reading, r Reading, now int64) []Reading {
	cutoff := now - int64(HistoryWindow)

	out := make([]Reading, 0, len(seq)+1)

	for _, existing := range seq {
		if existing.Timestamp >= cutoff {
			out = append(out, existing)
		}
	}

	if r.valid() && r.Timestamp >= cutoff {
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})

	return out
}

// qualifying returns the subsequence of readings no older than lookback
// relative to now. The input is assumed sorted ascending (the Append
// invariant), so the result is too.
func qualifying(seq []Reading, lookback time.Duration, now int64) []Reading {
	cutoff := now - int64(lookback)

	for i, r := range seq {
		if r.Timestamp >= cutoff {
			return seq[i:]
		}
	}

	return nil
}
