// Package freshness implements the cache validity model: pure predicates
// over "last fetched" timestamps and fixed per-category TTL constants.
// It never performs I/O — callers use it to decide whether a refresh
// can be skipped.
package freshness

import "time"

// TTLs per data category. Station metadata changes rarely; point
// observations, alerts, and forecasts age out on provider cadence.
const (
	StationListTTL = 24 * time.Hour
	ObservationTTL = 20 * time.Minute
	AlertTTL       = 15 * time.Minute
	ForecastTTL    = time.Hour
)

// IsValid reports whether a cached value fetched at lastFetched (Unix
// nanoseconds, 0 meaning "never fetched") is still usable at now.
//
// Comparison uses wall-clock timestamps. A device clock that jumps
// backward can make a cache appear valid longer than intended; this is
// accepted rather than corrected because a monotonic source is not
// guaranteed across process restarts.
func IsValid(lastFetched int64, ttl time.Duration, now int64) bool {
	return lastFetched != 0 && now-lastFetched < int64(ttl)
}
