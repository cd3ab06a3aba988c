package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewatch/tidewatch/internal/marine"
)

// memPersister is an in-memory Persister for tests.
type memPersister struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemPersister() *memPersister {
	return &memPersister{data: map[string][]byte{}}
}

func (m *memPersister) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.data[key], nil
}

func (m *memPersister) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = value

	return nil
}

func (m *memPersister) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)

	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testNow is a fixed base time used by all deterministic store tests.
var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC).UnixNano()

// newTestStore builds a Store with a deterministic clock and sequential
// IDs ("id-1", "id-2", ...) over an in-memory persister.
func newTestStore(t *testing.T) (*Store, *memPersister) {
	t.Helper()

	p := newMemPersister()
	s := New(p, testLogger())
	t.Cleanup(s.Close)

	var idSeq int

	s.nowFunc = func() int64 { return testNow }
	s.newID = func() string {
		idSeq++
		return fmt.Sprintf("id-%d", idSeq)
	}

	return s, p
}

func TestCreatePlanAssignsIdentity(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)

	p := s.CreatePlan(Plan{Name: "evening sail", BoatID: "b-1"})

	assert.Equal(t, "id-1", p.ID)
	assert.Equal(t, PlanDraft, p.Status)
	assert.Equal(t, testNow, p.CreatedAt)
	assert.Equal(t, testNow, p.UpdatedAt)

	stored, ok := s.Read().Plans[p.ID]
	require.True(t, ok)
	assert.Equal(t, p, stored)
}

func TestUpdatePlanAppliesPatch(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)

	p := s.CreatePlan(Plan{Name: "evening sail", Notes: "check fuel"})

	name := "morning sail"
	eta := testNow + int64(6*time.Hour)

	updated, ok := s.UpdatePlan(p.ID, PlanPatch{Name: &name, ETA: &eta})
	require.True(t, ok)

	assert.Equal(t, "morning sail", updated.Name)
	assert.Equal(t, eta, updated.ETA)
	assert.Equal(t, "check fuel", updated.Notes, "unpatched fields keep their values")
}

func TestUpdatePlanMissing(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)

	name := "x"
	_, ok := s.UpdatePlan("nope", PlanPatch{Name: &name})
	assert.False(t, ok)
}

func TestPlanLifecycle(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)

	p := s.CreatePlan(Plan{Name: "crossing"})

	activated, ok := s.ActivatePlan(p.ID)
	require.True(t, ok)
	assert.Equal(t, PlanActive, activated.Status)

	checked, ok := s.CheckInPlan(p.ID)
	require.True(t, ok)
	assert.Equal(t, PlanCheckedIn, checked.Status)

	assert.True(t, s.DeletePlan(p.ID))
	assert.False(t, s.DeletePlan(p.ID))
}

func TestEffectiveStatusOverdueIsDerived(t *testing.T) {
	t.Parallel()

	eta := testNow + int64(time.Hour)
	p := Plan{Status: PlanActive, ETA: eta}

	assert.Equal(t, PlanActive, EffectiveStatus(p, eta), "not overdue exactly at ETA")
	assert.Equal(t, PlanOverdue, EffectiveStatus(p, eta+1))

	// Only active plans go overdue, and only with a deadline set.
	assert.Equal(t, PlanCheckedIn, EffectiveStatus(Plan{Status: PlanCheckedIn, ETA: eta}, eta+1))
	assert.Equal(t, PlanDraft, EffectiveStatus(Plan{Status: PlanDraft, ETA: eta}, eta+1))
	assert.Equal(t, PlanActive, EffectiveStatus(Plan{Status: PlanActive}, eta+1), "no ETA, never overdue")
}

func TestQueueIsStrictFIFO(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)

	first := s.EnqueueMutation(PendingMutation{Method: "POST", Endpoint: "/v1/plans"})
	second := s.EnqueueMutation(PendingMutation{Method: "PUT", Endpoint: "/v1/plans/a"})
	third := s.EnqueueMutation(PendingMutation{Method: "DELETE", Endpoint: "/v1/plans/a"})

	queue := s.Read().Queue
	require.Len(t, queue, 3)
	assert.Equal(t, first, queue[0].ID)
	assert.Equal(t, second, queue[1].ID)
	assert.Equal(t, third, queue[2].ID)

	// Retry bumps never reorder.
	require.True(t, s.IncrementRetry(second))

	queue = s.Read().Queue
	assert.Equal(t, second, queue[1].ID)
	assert.Equal(t, 1, queue[1].RetryCount)
	assert.Equal(t, 0, queue[0].RetryCount)

	// Removal splices, preserving relative order of the rest.
	require.True(t, s.RemoveMutation(second))

	queue = s.Read().Queue
	require.Len(t, queue, 2)
	assert.Equal(t, first, queue[0].ID)
	assert.Equal(t, third, queue[1].ID)

	assert.False(t, s.RemoveMutation("nope"))
	assert.Equal(t, 2, s.PendingCount())
}

func TestLogoutResetsUserScopeOnly(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)

	s.CreatePlan(Plan{Name: "p"})
	s.CreateBoat(Boat{Name: "b"})
	s.UpsertContact(Contact{Name: "c"})
	s.UpsertInventoryItem(InventoryItem{Name: "flare kit"})
	s.UpsertTask(Task{Title: "grease winches"})
	s.EnqueueMutation(PendingMutation{Method: "POST", Endpoint: "/v1/plans"})

	s.SetStations([]Station{{ID: "st-1", Name: "Harbor"}}, testNow)
	s.AddPressureReading(marine.Reading{StationID: "st-1", Timestamp: testNow, Value: 1013})

	units := "imperial"
	s.UpdateSettings(SettingsPatch{Units: &units})

	s.Logout()

	snap := s.Read()

	assert.Empty(t, snap.Plans)
	assert.Empty(t, snap.Boats)
	assert.Empty(t, snap.Contacts)
	assert.Empty(t, snap.Inventory)
	assert.Empty(t, snap.Tasks)
	assert.Empty(t, snap.Queue)

	// Device-scoped state survives.
	assert.Equal(t, "imperial", snap.Settings.Units)
	require.Len(t, snap.Stations, 1)
	assert.Equal(t, testNow, snap.StationsFetchedAt)
	assert.Len(t, snap.PressureHistory["st-1"], 1)
}

func TestCacheSettersUpdateDataAndTimestampTogether(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)

	obs := Observation{StationID: "st-1", PressureHPa: 1013}
	s.SetObservation(obs, testNow)

	snap := s.Read()
	assert.Equal(t, obs, snap.Observations["st-1"])
	assert.Equal(t, testNow, snap.ObservationsFetchedAt["st-1"])

	fc := Forecast{StationID: "st-1", IssuedAt: testNow}
	s.SetForecast(fc, testNow+1)

	snap = s.Read()
	assert.Equal(t, fc, snap.Forecasts["st-1"])
	assert.Equal(t, testNow+1, snap.ForecastsFetchedAt["st-1"])

	alerts := []Alert{{ID: "a-1", Event: "Small Craft Advisory"}}
	s.SetAlerts(alerts, testNow+2)

	snap = s.Read()
	assert.Equal(t, alerts, snap.Alerts)
	assert.Equal(t, testNow+2, snap.AlertsFetchedAt)
}

func TestReadSnapshotIsolatedFromLaterMutations(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)

	p := s.CreatePlan(Plan{Name: "before"})
	before := s.Read()

	name := "after"
	_, ok := s.UpdatePlan(p.ID, PlanPatch{Name: &name})
	require.True(t, ok)

	// The earlier snapshot still shows the pre-mutation value: mutators
	// copy-on-write, they never modify handed-out collections.
	assert.Equal(t, "before", before.Plans[p.ID].Name)
	assert.Equal(t, "after", s.Read().Plans[p.ID].Name)
}

func TestPersistedBlobExcludesEphemeralFields(t *testing.T) {
	t.Parallel()

	p := newMemPersister()
	s := New(p, testLogger())

	s.CreatePlan(Plan{Name: "p"})
	s.SetDraining(true)
	s.Close()

	data := p.data[snapshotKey]
	require.NotNil(t, data)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.NotContains(t, raw, "draining")
	assert.Contains(t, raw, "plans")
}

func TestCloseFlushesLastWrite(t *testing.T) {
	t.Parallel()

	p := newMemPersister()
	s := New(p, testLogger())

	created := s.CreatePlan(Plan{Name: "must survive"})
	s.Close()

	var snap Snapshot
	require.NoError(t, json.Unmarshal(p.data[snapshotKey], &snap))

	stored, ok := snap.Plans[created.ID]
	require.True(t, ok)
	assert.Equal(t, "must survive", stored.Name)
}

func TestRehydrateRoundTrip(t *testing.T) {
	t.Parallel()

	p := newMemPersister()

	first := New(p, testLogger())
	created := first.CreatePlan(Plan{Name: "round trip"})
	first.EnqueueMutation(PendingMutation{Method: "POST", Endpoint: "/v1/plans"})
	first.Close()

	second := New(p, testLogger())
	t.Cleanup(second.Close)

	require.NoError(t, second.Rehydrate(context.Background()))

	snap := second.Read()
	assert.Equal(t, "round trip", snap.Plans[created.ID].Name)
	assert.Len(t, snap.Queue, 1)
}

func TestRehydrateMissingBlobStartsEmpty(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)

	require.NoError(t, s.Rehydrate(context.Background()))

	snap := s.Read()
	assert.NotNil(t, snap.Plans)
	assert.Empty(t, snap.Plans)
	assert.Equal(t, defaultSettings(), snap.Settings)
}

func TestRehydrateCorruptBlobStartsEmpty(t *testing.T) {
	t.Parallel()

	p := newMemPersister()
	p.data[snapshotKey] = []byte("{not json")

	s := New(p, testLogger())
	t.Cleanup(s.Close)

	require.NoError(t, s.Rehydrate(context.Background()))

	snap := s.Read()
	assert.Empty(t, snap.Plans)
	assert.NotNil(t, snap.Queue)
}

func TestRehydrateNormalizesOldLayouts(t *testing.T) {
	t.Parallel()

	// A blob from before tasks/settings existed must still rehydrate into
	// fully allocated collections with default settings.
	p := newMemPersister()
	p.data[snapshotKey] = []byte(`{"plans":{"p1":{"id":"p1","name":"old","status":"draft"}}}`)

	s := New(p, testLogger())
	t.Cleanup(s.Close)

	require.NoError(t, s.Rehydrate(context.Background()))

	snap := s.Read()
	assert.Equal(t, "old", snap.Plans["p1"].Name)
	assert.NotNil(t, snap.Tasks)
	assert.NotNil(t, snap.PressureHistory)
	assert.Equal(t, defaultSettings(), snap.Settings)
}

func TestUpsertContactPreservesCreatedAt(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)

	c := s.UpsertContact(Contact{Name: "harbormaster"})
	createdAt := c.CreatedAt

	s.nowFunc = func() int64 { return testNow + int64(time.Hour) }

	c.Phone = "555-0100"
	updated := s.UpsertContact(c)

	assert.Equal(t, createdAt, updated.CreatedAt)
	assert.Equal(t, testNow+int64(time.Hour), updated.UpdatedAt)
	assert.Equal(t, "555-0100", s.Read().Contacts[c.ID].Phone)
}

func TestUpdateSettings(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)

	threshold := 6.0
	enabled := false

	updated := s.UpdateSettings(SettingsPatch{
		PressureDropThresholdHPa: &threshold,
		AlertsEnabled:            &enabled,
	})

	assert.Equal(t, 6.0, updated.PressureDropThresholdHPa)
	assert.False(t, updated.AlertsEnabled)
	assert.Equal(t, "metric", updated.Units, "unpatched field keeps default")
}

func TestSensorHistoryMutators(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)

	s.AddPressureReading(marine.Reading{StationID: "st-1", Timestamp: testNow - int64(time.Hour), Value: 1013})
	s.AddPressureReading(marine.Reading{StationID: "st-1", Timestamp: testNow, Value: 1008})
	s.AddWindReading(marine.Reading{StationID: "st-1", Timestamp: testNow, Value: 7.5})

	snap := s.Read()
	require.Len(t, snap.PressureHistory["st-1"], 2)
	assert.Equal(t, 1013.0, snap.PressureHistory["st-1"][0].Value)
	require.Len(t, snap.WindHistory["st-1"], 1)
}
