// Package refresh implements the background refresh of remote-sourced
// marine data. Every category is gated by the cache validity model: a
// fetch only happens once the cached copy is stale, and a failed or
// aborted fetch leaves both the cached data and its fetch timestamp
// untouched so the stale copy remains the authoritative fallback.
package refresh

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tidewatch/tidewatch/internal/api"
	"github.com/tidewatch/tidewatch/internal/connectivity"
	"github.com/tidewatch/tidewatch/internal/freshness"
	"github.com/tidewatch/tidewatch/internal/marine"
	"github.com/tidewatch/tidewatch/internal/store"
)

// fetchTimeout bounds each remote fetch; on expiry the fetch is abandoned
// and the stale cache kept.
const fetchTimeout = 30 * time.Second

// stationFetchConcurrency limits the per-station fan-out.
const stationFetchConcurrency = 4

// Reader is the slice of the backend read API the refresher consumes.
type Reader interface {
	Stations(ctx context.Context) ([]api.Station, error)
	Observation(ctx context.Context, stationID string) (*api.Observation, error)
	Alerts(ctx context.Context) ([]api.Alert, error)
	Forecast(ctx context.Context, stationID string) (*api.Forecast, error)
}

// Refresher refreshes stale caches and runs the hazard detectors over the
// updated sensor histories.
type Refresher struct {
	store  *store.Store
	reader Reader
	online connectivity.Checker
	logger *slog.Logger

	nowFunc func() int64 // injectable for testing
}

// New creates a Refresher.
func New(st *store.Store, reader Reader, online connectivity.Checker, logger *slog.Logger) *Refresher {
	return &Refresher{
		store:   st,
		reader:  reader,
		online:  online,
		logger:  logger,
		nowFunc: store.NowNano,
	}
}

// RefreshAll refreshes every stale category. Offline, it returns
// immediately — the stale cache is the designed fallback. Individual fetch
// failures are logged and skipped, never fatal: refresh simply does not
// update that cache.
func (r *Refresher) RefreshAll(ctx context.Context) {
	if !r.online.Online() {
		r.logger.Debug("refresh skipped, offline")
		return
	}

	r.refreshStations(ctx)
	r.refreshAlerts(ctx)
	r.refreshObservations(ctx)
	r.refreshForecasts(ctx)
}

// refreshStations refetches the station list when its TTL has lapsed.
func (r *Refresher) refreshStations(ctx context.Context) {
	now := r.nowFunc()
	snap := r.store.Read()

	if freshness.IsValid(snap.StationsFetchedAt, freshness.StationListTTL, now) {
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	stations, err := r.reader.Stations(fetchCtx)
	if err != nil {
		r.logger.Warn("station list refresh failed", slog.String("error", err.Error()))
		return
	}

	converted := make([]store.Station, 0, len(stations))
	for _, st := range stations {
		converted = append(converted, store.Station(st))
	}

	r.store.SetStations(converted, r.nowFunc())
	r.logger.Debug("station list refreshed", slog.Int("stations", len(converted)))
}

// refreshAlerts refetches the alert list when its TTL has lapsed.
func (r *Refresher) refreshAlerts(ctx context.Context) {
	now := r.nowFunc()
	snap := r.store.Read()

	if freshness.IsValid(snap.AlertsFetchedAt, freshness.AlertTTL, now) {
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	alerts, err := r.reader.Alerts(fetchCtx)
	if err != nil {
		r.logger.Warn("alerts refresh failed", slog.String("error", err.Error()))
		return
	}

	converted := make([]store.Alert, 0, len(alerts))
	for _, a := range alerts {
		converted = append(converted, store.Alert{
			ID:        a.ID,
			Area:      a.Area,
			Event:     a.Event,
			Severity:  a.Severity,
			Headline:  a.Headline,
			OnsetAt:   parseWireTime(a.OnsetAt),
			ExpiresAt: parseWireTime(a.ExpiresAt),
		})
	}

	r.store.SetAlerts(converted, r.nowFunc())
	r.logger.Debug("alerts refreshed", slog.Int("alerts", len(converted)))
}

// refreshObservations refetches stale per-station observations in
// parallel and feeds the sensor histories. Per-station errors are logged
// and skipped; the group itself never fails.
func (r *Refresher) refreshObservations(ctx context.Context) {
	now := r.nowFunc()
	snap := r.store.Read()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stationFetchConcurrency)

	for _, st := range snap.Stations {
		if freshness.IsValid(snap.ObservationsFetchedAt[st.ID], freshness.ObservationTTL, now) {
			continue
		}

		g.Go(func() error {
			r.refreshOneObservation(gctx, st.ID)
			return nil
		})
	}

	_ = g.Wait()
}

// refreshOneObservation fetches and stores one station's observation.
func (r *Refresher) refreshOneObservation(ctx context.Context, stationID string) {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	obs, err := r.reader.Observation(fetchCtx, stationID)
	if err != nil {
		r.logger.Debug("observation refresh failed",
			slog.String("station_id", stationID),
			slog.String("error", err.Error()),
		)

		return
	}

	observedAt := parseWireTime(obs.ObservedAt)

	r.store.SetObservation(store.Observation{
		StationID:   stationID,
		ObservedAt:  observedAt,
		PressureHPa: obs.PressureHPa,
		WindSpeedMS: obs.WindSpeedMS,
		WindGustMS:  obs.WindGustMS,
		WindDirDeg:  obs.WindDirDeg,
		WaterTempC:  obs.WaterTempC,
	}, r.nowFunc())

	// Feed the rolling histories. Invalid values are dropped at ingestion
	// by marine.Append.
	r.store.AddPressureReading(marine.Reading{
		StationID: stationID,
		Timestamp: observedAt,
		Value:     obs.PressureHPa,
	})
	r.store.AddWindReading(marine.Reading{
		StationID: stationID,
		Timestamp: observedAt,
		Value:     obs.WindSpeedMS,
	})
}

// refreshForecasts refetches stale per-station forecasts in parallel.
func (r *Refresher) refreshForecasts(ctx context.Context) {
	now := r.nowFunc()
	snap := r.store.Read()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stationFetchConcurrency)

	for _, st := range snap.Stations {
		if freshness.IsValid(snap.ForecastsFetchedAt[st.ID], freshness.ForecastTTL, now) {
			continue
		}

		g.Go(func() error {
			r.refreshOneForecast(gctx, st.ID)
			return nil
		})
	}

	_ = g.Wait()
}

// refreshOneForecast fetches and stores one station's forecast.
func (r *Refresher) refreshOneForecast(ctx context.Context, stationID string) {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	fc, err := r.reader.Forecast(fetchCtx, stationID)
	if err != nil {
		r.logger.Debug("forecast refresh failed",
			slog.String("station_id", stationID),
			slog.String("error", err.Error()),
		)

		return
	}

	periods := make([]store.ForecastPeriod, 0, len(fc.Periods))
	for _, p := range fc.Periods {
		periods = append(periods, store.ForecastPeriod{
			StartAt:     parseWireTime(p.StartAt),
			Summary:     p.Summary,
			WindSpeedMS: p.WindSpeedMS,
			WaveHeightM: p.WaveHeightM,
		})
	}

	r.store.SetForecast(store.Forecast{
		StationID: stationID,
		IssuedAt:  parseWireTime(fc.IssuedAt),
		Periods:   periods,
	}, r.nowFunc())
}

// parseWireTime converts an RFC 3339 wire timestamp to Unix nanoseconds.
// Malformed timestamps coerce to 0 ("no data") rather than erroring —
// a bad provider timestamp must not poison an otherwise good reading.
func parseWireTime(s string) int64 {
	if s == "" {
		return 0
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0
	}

	return t.UnixNano()
}
