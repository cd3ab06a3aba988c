package marine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// t0 is an arbitrary fixed base time for deterministic tests.
var t0 = time.Date(2026, 3, 15, 6, 0, 0, 0, time.UTC).UnixNano()

func at(offset time.Duration) int64 {
	return t0 + int64(offset)
}

func reading(offset time.Duration, value float64) Reading {
	return Reading{StationID: "st-1", Timestamp: at(offset), Value: value}
}

func TestAppendKeepsAscendingOrder(t *testing.T) {
	t.Parallel()

	now := at(2 * time.Hour)

	// Out-of-order arrival from concurrent fetches.
	seq := Append(nil, reading(time.Hour, 1010), now)
	seq = Append(seq, reading(0, 1013), now)
	seq = Append(seq, reading(2*time.Hour, 1008), now)

	require.Len(t, seq, 3)
	assert.Equal(t, at(0), seq[0].Timestamp)
	assert.Equal(t, at(time.Hour), seq[1].Timestamp)
	assert.Equal(t, at(2*time.Hour), seq[2].Timestamp)
}

func TestAppendEvictsOutsideWindow(t *testing.T) {
	t.Parallel()

	seq := Append(nil, reading(0, 1013), at(0))
	seq = Append(seq, reading(time.Hour, 1012), at(time.Hour))

	// Advancing now past t0+4h must evict the first reading on the next
	// append.
	now := at(4*time.Hour + time.Minute)
	seq = Append(seq, reading(4*time.Hour, 1010), now)

	require.Len(t, seq, 2)
	assert.Equal(t, at(time.Hour), seq[0].Timestamp)
	assert.Equal(t, at(4*time.Hour), seq[1].Timestamp)
}

func TestAppendDropsInvalidReadings(t *testing.T) {
	t.Parallel()

	now := at(time.Hour)

	tests := []struct {
		name string
		r    Reading
	}{
		{"zero timestamp", Reading{StationID: "st-1", Timestamp: 0, Value: 1013}},
		{"negative timestamp", Reading{StationID: "st-1", Timestamp: -1, Value: 1013}},
		{"NaN value", Reading{StationID: "st-1", Timestamp: at(0), Value: math.NaN()}},
		{"positive infinity", Reading{StationID: "st-1", Timestamp: at(0), Value: math.Inf(1)}},
		{"negative infinity", Reading{StationID: "st-1", Timestamp: at(0), Value: math.Inf(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Empty(t, Append(nil, tt.r, now))
		})
	}
}

func TestAppendStaleReadingNotInserted(t *testing.T) {
	t.Parallel()

	// A reading already older than the window never enters the buffer.
	now := at(5 * time.Hour)
	seq := Append(nil, reading(0, 1013), now)

	assert.Empty(t, seq)
}

func TestAppendDoesNotModifyInput(t *testing.T) {
	t.Parallel()

	now := at(2 * time.Hour)
	orig := []Reading{reading(0, 1013), reading(time.Hour, 1010)}
	snapshot := append([]Reading(nil), orig...)

	_ = Append(orig, reading(30*time.Minute, 1011), now)

	assert.Equal(t, snapshot, orig)
}
