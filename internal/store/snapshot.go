// Package store implements the single state store for the tidewatch client:
// one snapshot of all domain entities and derived caches, mutated only
// through named mutators and persisted asynchronously to a durable
// key-value boundary. It also owns the offline mutation queue data and the
// retention sweep over aged plans.
package store

import (
	"time"

	"github.com/tidewatch/tidewatch/internal/marine"
)

// PlanStatus is the stored lifecycle state of a trip plan.
type PlanStatus string

// Stored plan statuses. PlanOverdue is derived, never stored — see
// EffectiveStatus.
const (
	PlanDraft     PlanStatus = "draft"
	PlanActive    PlanStatus = "active"
	PlanCheckedIn PlanStatus = "checked_in"
	PlanOverdue   PlanStatus = "overdue"
)

// Plan is a float plan: where a vessel is going, when it is due back, and
// who to alarm if it isn't.
type Plan struct {
	ID         string     `json:"id"`
	BoatID     string     `json:"boat_id"`
	Name       string     `json:"name"`
	DepartFrom string     `json:"depart_from"`
	ArriveAt   string     `json:"arrive_at"`
	StartAt    int64      `json:"start_at"` // Unix nanoseconds
	ETA        int64      `json:"eta"`      // check-in deadline, Unix nanoseconds
	Status     PlanStatus `json:"status"`
	Notes      string     `json:"notes"`
	ContactIDs []string   `json:"contact_ids"`
	CreatedAt  int64      `json:"created_at"`
	UpdatedAt  int64      `json:"updated_at"`
}

// EffectiveStatus derives the display status of a plan at now. An active
// plan past its ETA is overdue; overdue is computed here and nowhere else,
// so it can never go stale in storage.
func EffectiveStatus(p Plan, now int64) PlanStatus {
	if p.Status == PlanActive && p.ETA != 0 && now > p.ETA {
		return PlanOverdue
	}

	return p.Status
}

// Boat is a registered vessel.
type Boat struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Registration string  `json:"registration"`
	LengthMeters float64 `json:"length_meters"`
	HullColor    string  `json:"hull_color"`
	CreatedAt    int64   `json:"created_at"`
	UpdatedAt    int64   `json:"updated_at"`
}

// Contact is an emergency contact attached to plans.
type Contact struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// InventoryItem is a piece of safety gear carried aboard a boat.
type InventoryItem struct {
	ID        string `json:"id"`
	BoatID    string `json:"boat_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	ExpiresAt int64  `json:"expires_at"` // 0 = no expiry
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// Task is a maintenance or preparation item for a boat.
type Task struct {
	ID        string `json:"id"`
	BoatID    string `json:"boat_id"`
	Title     string `json:"title"`
	Done      bool   `json:"done"`
	DueAt     int64  `json:"due_at"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// MutationType distinguishes the intent of a queued remote write.
type MutationType string

// Mutation types as delivered to the remote API.
const (
	MutationCreate MutationType = "create"
	MutationUpdate MutationType = "update"
	MutationDelete MutationType = "delete"
)

// PendingMutation is one queued remote-write intent. Created once and
// immutable except RetryCount; removed only on confirmed remote success.
// The queue preserves enqueue order — it never reorders or deduplicates,
// so a delete enqueued after an update is delivered after it.
type PendingMutation struct {
	ID         string       `json:"id"`
	Type       MutationType `json:"type"`
	Endpoint   string       `json:"endpoint"`
	Method     string       `json:"method"`
	Body       []byte       `json:"body,omitempty"`
	CreatedAt  int64        `json:"created_at"`
	RetryCount int          `json:"retry_count"`
}

// Station is a marine observation station.
type Station struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Observation is the latest point reading from a station.
type Observation struct {
	StationID   string  `json:"station_id"`
	ObservedAt  int64   `json:"observed_at"`
	PressureHPa float64 `json:"pressure_hpa"`
	WindSpeedMS float64 `json:"wind_speed_ms"`
	WindGustMS  float64 `json:"wind_gust_ms"`
	WindDirDeg  float64 `json:"wind_dir_deg"`
	WaterTempC  float64 `json:"water_temp_c"`
}

// Alert is a marine weather alert issued by the backend.
type Alert struct {
	ID        string `json:"id"`
	Area      string `json:"area"`
	Event     string `json:"event"`
	Severity  string `json:"severity"`
	Headline  string `json:"headline"`
	OnsetAt   int64  `json:"onset_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// ForecastPeriod is one segment of a station forecast.
type ForecastPeriod struct {
	StartAt     int64   `json:"start_at"`
	Summary     string  `json:"summary"`
	WindSpeedMS float64 `json:"wind_speed_ms"`
	WaveHeightM float64 `json:"wave_height_m"`
}

// Forecast is the marine forecast for a station.
type Forecast struct {
	StationID string           `json:"station_id"`
	IssuedAt  int64            `json:"issued_at"`
	Periods   []ForecastPeriod `json:"periods"`
}

// Settings are device-scoped preferences. They survive logout.
type Settings struct {
	Units                    string  `json:"units"`
	AlertsEnabled            bool    `json:"alerts_enabled"`
	PressureDropThresholdHPa float64 `json:"pressure_drop_threshold_hpa"`
}

// Snapshot is the single mutable state of the client. JSON-tagged fields
// form the declared persistable subset; fields tagged "-" are ephemeral
// and never written to durable storage. Callers outside this package hold
// read-only references — all changes go through named mutators.
type Snapshot struct {
	// User-scoped entities, reset by Logout.
	Plans     map[string]Plan          `json:"plans"`
	Boats     map[string]Boat          `json:"boats"`
	Contacts  map[string]Contact       `json:"contacts"`
	Inventory map[string]InventoryItem `json:"inventory"`
	Tasks     map[string]Task          `json:"tasks"`
	Queue     []PendingMutation        `json:"queue"`

	// Remote-sourced caches, each paired with its fetch timestamp.
	// A collection and its timestamp are only ever updated together.
	Stations              []Station              `json:"stations"`
	StationsFetchedAt     int64                  `json:"stations_fetched_at"`
	Observations          map[string]Observation `json:"observations"`
	ObservationsFetchedAt map[string]int64       `json:"observations_fetched_at"`
	Alerts                []Alert                `json:"alerts"`
	AlertsFetchedAt       int64                  `json:"alerts_fetched_at"`
	Forecasts             map[string]Forecast    `json:"forecasts"`
	ForecastsFetchedAt    map[string]int64       `json:"forecasts_fetched_at"`

	// Rolling sensor histories, bounded by marine.HistoryWindow.
	PressureHistory map[string][]marine.Reading `json:"pressure_history"`
	WindHistory     map[string][]marine.Reading `json:"wind_history"`

	// Device-scoped settings, kept across logout.
	Settings Settings `json:"settings"`

	// Ephemeral, excluded from persistence.
	Draining bool `json:"-"`
}

// defaultSettings are applied to fresh snapshots and after rehydrating
// blobs written before the settings field existed.
func defaultSettings() Settings {
	return Settings{
		Units:                    "metric",
		AlertsEnabled:            true,
		PressureDropThresholdHPa: marine.DefaultPressureDropHPa,
	}
}

// emptySnapshot is the initial state: all collections allocated, device
// settings at defaults.
func emptySnapshot() Snapshot {
	return Snapshot{
		Plans:                 map[string]Plan{},
		Boats:                 map[string]Boat{},
		Contacts:              map[string]Contact{},
		Inventory:             map[string]InventoryItem{},
		Tasks:                 map[string]Task{},
		Queue:                 []PendingMutation{},
		Observations:          map[string]Observation{},
		ObservationsFetchedAt: map[string]int64{},
		Forecasts:             map[string]Forecast{},
		ForecastsFetchedAt:    map[string]int64{},
		PressureHistory:       map[string][]marine.Reading{},
		WindHistory:           map[string][]marine.Reading{},
		Settings:              defaultSettings(),
	}
}

// NowNano returns the current time as Unix nanoseconds. All internal code
// uses int64 nanoseconds; conversion happens at boundaries only.
func NowNano() int64 {
	return time.Now().UnixNano()
}
