package marine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func windReading(offset time.Duration, knots float64) Reading {
	return Reading{
		StationID: "st-1",
		Timestamp: at(offset),
		Value:     knots / MetersPerSecondToKnots,
	}
}

func TestWindTrendExactThresholdIsSteady(t *testing.T) {
	t.Parallel()

	now := at(time.Hour)

	// A delta of exactly 3.00 knots does not cross the strict threshold.
	seq := []Reading{
		windReading(0, 10.00),
		windReading(time.Hour, 13.00),
	}

	assert.Equal(t, TrendSteady, WindTrend(seq, DefaultLookback, now))
}

func TestWindTrendAboveThresholdIsRising(t *testing.T) {
	t.Parallel()

	now := at(time.Hour)

	seq := []Reading{
		windReading(0, 10.00),
		windReading(time.Hour, 13.01),
	}

	assert.Equal(t, TrendRising, WindTrend(seq, DefaultLookback, now))
}

func TestWindTrendFalling(t *testing.T) {
	t.Parallel()

	now := at(time.Hour)

	seq := []Reading{
		windReading(0, 18),
		windReading(time.Hour, 12),
	}

	assert.Equal(t, TrendFalling, WindTrend(seq, DefaultLookback, now))
}

func TestClassifyInsufficientData(t *testing.T) {
	t.Parallel()

	now := at(time.Hour)

	assert.Equal(t, TrendUnknown, Classify(nil, DefaultLookback, 1.0, now))
	assert.Equal(t, TrendUnknown,
		Classify([]Reading{reading(time.Hour, 1013)}, DefaultLookback, 1.0, now))
}

func TestClassifyIgnoresReadingsOutsideLookback(t *testing.T) {
	t.Parallel()

	// Two readings exist but only one falls inside the lookback window,
	// so the trend is unknown rather than computed against stale data.
	now := at(4 * time.Hour)

	seq := []Reading{
		reading(30*time.Minute, 1013), // 3.5h old, outside the 3h lookback
		reading(4*time.Hour, 1005),
	}

	assert.Equal(t, TrendUnknown, Classify(seq, DefaultLookback, 4.0, now))
}

func TestCheckPressureDrop(t *testing.T) {
	t.Parallel()

	// 1013 -> 1010 -> 1008 over two hours: a 5 hPa fall whose oldest
	// qualifying sample is two hours old.
	now := at(2 * time.Hour)

	seq := []Reading{
		reading(0, 1013),
		reading(time.Hour, 1010),
		reading(2*time.Hour, 1008),
	}

	drop, ok := CheckPressureDrop(seq, 4.0, DefaultLookback, now)
	require.True(t, ok)

	assert.True(t, drop.Significant)
	assert.InDelta(t, 5.0, drop.DropAmount, 1e-9)
	assert.InDelta(t, 2.0, drop.HoursAgo, 1e-9)
}

func TestCheckPressureDropExactThresholdNotSignificant(t *testing.T) {
	t.Parallel()

	now := at(time.Hour)

	seq := []Reading{
		reading(0, 1012),
		reading(time.Hour, 1008),
	}

	drop, ok := CheckPressureDrop(seq, 4.0, DefaultLookback, now)
	require.True(t, ok)

	assert.False(t, drop.Significant)
	assert.InDelta(t, 4.0, drop.DropAmount, 1e-9)
}

func TestCheckPressureDropRisingPressure(t *testing.T) {
	t.Parallel()

	now := at(time.Hour)

	seq := []Reading{
		reading(0, 1008),
		reading(time.Hour, 1015),
	}

	drop, ok := CheckPressureDrop(seq, 4.0, DefaultLookback, now)
	require.True(t, ok)

	assert.False(t, drop.Significant)
	assert.InDelta(t, -7.0, drop.DropAmount, 1e-9)
}

func TestCheckPressureDropInsufficientData(t *testing.T) {
	t.Parallel()

	now := at(time.Hour)

	_, ok := CheckPressureDrop([]Reading{reading(time.Hour, 1013)}, 4.0, DefaultLookback, now)
	assert.False(t, ok)
}

func TestCheckPressureDropLookbackExcludesOldSamples(t *testing.T) {
	t.Parallel()

	// The 3.5h-old sample sits inside the 4h history window but outside
	// the 3h lookback; the drop is measured from the 2h-old sample.
	now := at(4 * time.Hour)

	seq := []Reading{
		reading(30*time.Minute, 1020),
		reading(2*time.Hour, 1013),
		reading(4*time.Hour, 1008),
	}

	drop, ok := CheckPressureDrop(seq, 4.0, DefaultLookback, now)
	require.True(t, ok)

	assert.True(t, drop.Significant)
	assert.InDelta(t, 5.0, drop.DropAmount, 1e-9)
	assert.InDelta(t, 2.0, drop.HoursAgo, 1e-9)
}

func TestTrendString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unknown", TrendUnknown.String())
	assert.Equal(t, "steady", TrendSteady.String())
	assert.Equal(t, "rising", TrendRising.String())
	assert.Equal(t, "falling", TrendFalling.String())
}
