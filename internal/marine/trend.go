package marine

import (
	"math"
	"time"
)

// MetersPerSecondToKnots converts provider wind speeds (m/s) to the knots
// the trend thresholds are defined in.
const MetersPerSecondToKnots = 1.9438444924406046

// WindTrendThresholdKnots is the significance boundary for wind escalation.
// A delta of exactly 3 knots does not trigger — comparisons are strict.
const WindTrendThresholdKnots = 3.0

// DefaultPressureDropHPa is the default significant pressure drop over the
// lookback window.
const DefaultPressureDropHPa = 4.0

// Trend classifies the direction of a sensor sequence over a lookback
// window. TrendUnknown means insufficient data, not "no hazard".
type Trend int

const (
	TrendUnknown Trend = iota
	TrendSteady
	TrendRising
	TrendFalling
)

// String returns the lowercase name used in logs and status output.
func (t Trend) String() string {
	switch t {
	case TrendSteady:
		return "steady"
	case TrendRising:
		return "rising"
	case TrendFalling:
		return "falling"
	default:
		return "unknown"
	}
}

// Classify compares the earliest and latest qualifying readings within
// lookback against threshold (in the sequence's native unit). Fewer than
// two qualifying readings yields TrendUnknown. The threshold comparison
// is strict: a delta exactly at threshold classifies as steady.
func Classify(seq []Reading, lookback time.Duration, threshold float64, now int64) Trend {
	q := qualifying(seq, lookback, now)
	if len(q) < 2 {
		return TrendUnknown
	}

	delta := q[len(q)-1].Value - q[0].Value

	if math.Abs(delta) > threshold {
		if delta > 0 {
			return TrendRising
		}

		return TrendFalling
	}

	return TrendSteady
}

// WindTrend classifies a wind sequence stored in m/s against the knots
// threshold.
func WindTrend(seq []Reading, lookback time.Duration, now int64) Trend {
	return Classify(seq, lookback, WindTrendThresholdKnots/MetersPerSecondToKnots, now)
}

// PressureDrop describes a detected barometric pressure fall.
type PressureDrop struct {
	Significant bool
	DropAmount  float64 // hPa between oldest and newest qualifying sample
	HoursAgo    float64 // age of the oldest qualifying sample
}

// CheckPressureDrop inspects a pressure sequence for a fall exceeding
// threshold hPa (strictly) within lookback. HoursAgo reports the age of
// the oldest qualifying sample so the result reflects how long the drop
// has been developing, not when it was last observed. The second return
// is false when fewer than two qualifying samples exist.
func CheckPressureDrop(seq []Reading, threshold float64, lookback time.Duration, now int64) (PressureDrop, bool) {
	q := qualifying(seq, lookback, now)
	if len(q) < 2 {
		return PressureDrop{}, false
	}

	oldest := q[0]
	newest := q[len(q)-1]
	drop := oldest.Value - newest.Value

	return PressureDrop{
		Significant: drop > threshold,
		DropAmount:  drop,
		HoursAgo:    float64(now-oldest.Timestamp) / float64(time.Hour),
	}, true
}
