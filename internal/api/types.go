package api

// Wire types for the backend's read API. These mirror the provider
// contract, not the store's snapshot types — the refresh layer converts
// at the boundary so backend field renames never leak into local state.

// Station is one marine observation station.
type Station struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Observation is a point-in-time station reading. Timestamps are RFC 3339
// on the wire and converted to Unix nanoseconds at the boundary.
type Observation struct {
	StationID   string  `json:"station_id"`
	ObservedAt  string  `json:"observed_at"`
	PressureHPa float64 `json:"pressure_hpa"`
	WindSpeedMS float64 `json:"wind_speed_ms"`
	WindGustMS  float64 `json:"wind_gust_ms"`
	WindDirDeg  float64 `json:"wind_dir_deg"`
	WaterTempC  float64 `json:"water_temp_c"`
}

// Alert is a marine weather alert.
type Alert struct {
	ID        string `json:"id"`
	Area      string `json:"area"`
	Event     string `json:"event"`
	Severity  string `json:"severity"`
	Headline  string `json:"headline"`
	OnsetAt   string `json:"onset_at"`
	ExpiresAt string `json:"expires_at"`
}

// ForecastPeriod is one segment of a station forecast.
type ForecastPeriod struct {
	StartAt     string  `json:"start_at"`
	Summary     string  `json:"summary"`
	WindSpeedMS float64 `json:"wind_speed_ms"`
	WaveHeightM float64 `json:"wave_height_m"`
}

// Forecast is a station forecast.
type Forecast struct {
	StationID string           `json:"station_id"`
	IssuedAt  string           `json:"issued_at"`
	Periods   []ForecastPeriod `json:"periods"`
}
