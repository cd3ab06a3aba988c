package store

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/tidewatch/tidewatch/internal/marine"
)

// --- Plans ---

// PlanPatch lists the mutable fields of a plan. Nil means "leave as is".
// Typed patches replace ad hoc partial updates so a caller can never
// touch identity, status, or timestamp fields directly.
type PlanPatch struct {
	BoatID     *string
	Name       *string
	DepartFrom *string
	ArriveAt   *string
	StartAt    *int64
	ETA        *int64
	Notes      *string
	ContactIDs *[]string
}

// CreatePlan inserts a new plan in draft status. ID and timestamps are
// assigned by the store, never the caller.
func (s *Store) CreatePlan(p Plan) Plan {
	p.ID = s.newID()
	p.Status = PlanDraft
	now := s.nowFunc()
	p.CreatedAt = now
	p.UpdatedAt = now

	s.apply("CreatePlan", func(snap Snapshot) Snapshot {
		snap.Plans = maps.Clone(snap.Plans)
		snap.Plans[p.ID] = p

		return snap
	})

	s.logger.Debug("plan created", slog.String("id", p.ID), slog.String("name", p.Name))

	return p
}

// UpdatePlan applies a patch to an existing plan. Returns false when the
// plan does not exist.
func (s *Store) UpdatePlan(id string, patch PlanPatch) (Plan, bool) {
	var (
		updated Plan
		found   bool
	)

	now := s.nowFunc()

	s.apply("UpdatePlan", func(snap Snapshot) Snapshot {
		p, ok := snap.Plans[id]
		if !ok {
			return snap
		}

		applyPlanPatch(&p, patch)
		p.UpdatedAt = now

		snap.Plans = maps.Clone(snap.Plans)
		snap.Plans[id] = p
		updated, found = p, true

		return snap
	})

	return updated, found
}

// applyPlanPatch merges the non-nil patch fields into a plan.
func applyPlanPatch(p *Plan, patch PlanPatch) {
	if patch.BoatID != nil {
		p.BoatID = *patch.BoatID
	}

	if patch.Name != nil {
		p.Name = *patch.Name
	}

	if patch.DepartFrom != nil {
		p.DepartFrom = *patch.DepartFrom
	}

	if patch.ArriveAt != nil {
		p.ArriveAt = *patch.ArriveAt
	}

	if patch.StartAt != nil {
		p.StartAt = *patch.StartAt
	}

	if patch.ETA != nil {
		p.ETA = *patch.ETA
	}

	if patch.Notes != nil {
		p.Notes = *patch.Notes
	}

	if patch.ContactIDs != nil {
		p.ContactIDs = slices.Clone(*patch.ContactIDs)
	}
}

// setPlanStatus transitions a plan's stored lifecycle status.
func (s *Store) setPlanStatus(name, id string, status PlanStatus) (Plan, bool) {
	var (
		updated Plan
		found   bool
	)

	now := s.nowFunc()

	s.apply(name, func(snap Snapshot) Snapshot {
		p, ok := snap.Plans[id]
		if !ok {
			return snap
		}

		p.Status = status
		p.UpdatedAt = now

		snap.Plans = maps.Clone(snap.Plans)
		snap.Plans[id] = p
		updated, found = p, true

		return snap
	})

	return updated, found
}

// ActivatePlan marks a plan as underway.
func (s *Store) ActivatePlan(id string) (Plan, bool) {
	return s.setPlanStatus("ActivatePlan", id, PlanActive)
}

// CheckInPlan marks a plan as safely completed.
func (s *Store) CheckInPlan(id string) (Plan, bool) {
	return s.setPlanStatus("CheckInPlan", id, PlanCheckedIn)
}

// DeletePlan removes a plan. Returns false when it does not exist.
func (s *Store) DeletePlan(id string) bool {
	var found bool

	s.apply("DeletePlan", func(snap Snapshot) Snapshot {
		if _, ok := snap.Plans[id]; !ok {
			return snap
		}

		snap.Plans = maps.Clone(snap.Plans)
		delete(snap.Plans, id)
		found = true

		return snap
	})

	return found
}

// --- Boats ---

// BoatPatch lists the mutable fields of a boat.
type BoatPatch struct {
	Name         *string
	Registration *string
	LengthMeters *float64
	HullColor    *string
}

// CreateBoat inserts a new boat.
func (s *Store) CreateBoat(b Boat) Boat {
	b.ID = s.newID()
	now := s.nowFunc()
	b.CreatedAt = now
	b.UpdatedAt = now

	s.apply("CreateBoat", func(snap Snapshot) Snapshot {
		snap.Boats = maps.Clone(snap.Boats)
		snap.Boats[b.ID] = b

		return snap
	})

	return b
}

// UpdateBoat applies a patch to an existing boat.
func (s *Store) UpdateBoat(id string, patch BoatPatch) (Boat, bool) {
	var (
		updated Boat
		found   bool
	)

	now := s.nowFunc()

	s.apply("UpdateBoat", func(snap Snapshot) Snapshot {
		b, ok := snap.Boats[id]
		if !ok {
			return snap
		}

		if patch.Name != nil {
			b.Name = *patch.Name
		}

		if patch.Registration != nil {
			b.Registration = *patch.Registration
		}

		if patch.LengthMeters != nil {
			b.LengthMeters = *patch.LengthMeters
		}

		if patch.HullColor != nil {
			b.HullColor = *patch.HullColor
		}

		b.UpdatedAt = now

		snap.Boats = maps.Clone(snap.Boats)
		snap.Boats[id] = b
		updated, found = b, true

		return snap
	})

	return updated, found
}

// DeleteBoat removes a boat.
func (s *Store) DeleteBoat(id string) bool {
	var found bool

	s.apply("DeleteBoat", func(snap Snapshot) Snapshot {
		if _, ok := snap.Boats[id]; !ok {
			return snap
		}

		snap.Boats = maps.Clone(snap.Boats)
		delete(snap.Boats, id)
		found = true

		return snap
	})

	return found
}

// --- Contacts ---

// UpsertContact inserts or replaces a contact. A missing ID means insert.
func (s *Store) UpsertContact(c Contact) Contact {
	now := s.nowFunc()

	if c.ID == "" {
		c.ID = s.newID()
		c.CreatedAt = now
	}

	c.UpdatedAt = now

	s.apply("UpsertContact", func(snap Snapshot) Snapshot {
		if existing, ok := snap.Contacts[c.ID]; ok {
			c.CreatedAt = existing.CreatedAt
		}

		snap.Contacts = maps.Clone(snap.Contacts)
		snap.Contacts[c.ID] = c

		return snap
	})

	return c
}

// DeleteContact removes a contact.
func (s *Store) DeleteContact(id string) bool {
	var found bool

	s.apply("DeleteContact", func(snap Snapshot) Snapshot {
		if _, ok := snap.Contacts[id]; !ok {
			return snap
		}

		snap.Contacts = maps.Clone(snap.Contacts)
		delete(snap.Contacts, id)
		found = true

		return snap
	})

	return found
}

// --- Inventory ---

// UpsertInventoryItem inserts or replaces a gear item.
func (s *Store) UpsertInventoryItem(it InventoryItem) InventoryItem {
	now := s.nowFunc()

	if it.ID == "" {
		it.ID = s.newID()
		it.CreatedAt = now
	}

	it.UpdatedAt = now

	s.apply("UpsertInventoryItem", func(snap Snapshot) Snapshot {
		if existing, ok := snap.Inventory[it.ID]; ok {
			it.CreatedAt = existing.CreatedAt
		}

		snap.Inventory = maps.Clone(snap.Inventory)
		snap.Inventory[it.ID] = it

		return snap
	})

	return it
}

// DeleteInventoryItem removes a gear item.
func (s *Store) DeleteInventoryItem(id string) bool {
	var found bool

	s.apply("DeleteInventoryItem", func(snap Snapshot) Snapshot {
		if _, ok := snap.Inventory[id]; !ok {
			return snap
		}

		snap.Inventory = maps.Clone(snap.Inventory)
		delete(snap.Inventory, id)
		found = true

		return snap
	})

	return found
}

// --- Tasks ---

// UpsertTask inserts or replaces a task.
func (s *Store) UpsertTask(t Task) Task {
	now := s.nowFunc()

	if t.ID == "" {
		t.ID = s.newID()
		t.CreatedAt = now
	}

	t.UpdatedAt = now

	s.apply("UpsertTask", func(snap Snapshot) Snapshot {
		if existing, ok := snap.Tasks[t.ID]; ok {
			t.CreatedAt = existing.CreatedAt
		}

		snap.Tasks = maps.Clone(snap.Tasks)
		snap.Tasks[t.ID] = t

		return snap
	})

	return t
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(id string) bool {
	var found bool

	s.apply("DeleteTask", func(snap Snapshot) Snapshot {
		if _, ok := snap.Tasks[id]; !ok {
			return snap
		}

		snap.Tasks = maps.Clone(snap.Tasks)
		delete(snap.Tasks, id)
		found = true

		return snap
	})

	return found
}

// --- Offline mutation queue ---

// EnqueueMutation appends a remote-write intent with a fresh ID and a zero
// retry count, returning the assigned ID. The queue is strictly FIFO.
func (s *Store) EnqueueMutation(m PendingMutation) string {
	m.ID = s.newID()
	m.CreatedAt = s.nowFunc()
	m.RetryCount = 0

	s.apply("EnqueueMutation", func(snap Snapshot) Snapshot {
		queue := make([]PendingMutation, len(snap.Queue), len(snap.Queue)+1)
		copy(queue, snap.Queue)
		snap.Queue = append(queue, m)

		return snap
	})

	s.logger.Debug("mutation queued",
		slog.String("id", m.ID),
		slog.String("method", m.Method),
		slog.String("endpoint", m.Endpoint),
	)

	return m.ID
}

// RemoveMutation deletes a queued mutation by ID, called only on confirmed
// remote success (or explicit abandonment).
func (s *Store) RemoveMutation(id string) bool {
	var found bool

	s.apply("RemoveMutation", func(snap Snapshot) Snapshot {
		idx := slices.IndexFunc(snap.Queue, func(m PendingMutation) bool {
			return m.ID == id
		})
		if idx < 0 {
			return snap
		}

		queue := make([]PendingMutation, 0, len(snap.Queue)-1)
		queue = append(queue, snap.Queue[:idx]...)
		queue = append(queue, snap.Queue[idx+1:]...)
		snap.Queue = queue
		found = true

		return snap
	})

	return found
}

// IncrementRetry bumps the retry counter of a queued mutation in place.
// Position in the queue is unchanged.
func (s *Store) IncrementRetry(id string) bool {
	var found bool

	s.apply("IncrementRetry", func(snap Snapshot) Snapshot {
		idx := slices.IndexFunc(snap.Queue, func(m PendingMutation) bool {
			return m.ID == id
		})
		if idx < 0 {
			return snap
		}

		queue := slices.Clone(snap.Queue)
		queue[idx].RetryCount++
		snap.Queue = queue
		found = true

		return snap
	})

	return found
}

// PendingCount returns the current queue depth.
func (s *Store) PendingCount() int {
	return len(s.Read().Queue)
}

// SetDraining flips the ephemeral drain-in-progress flag. Excluded from
// persistence.
func (s *Store) SetDraining(v bool) {
	s.apply("SetDraining", func(snap Snapshot) Snapshot {
		snap.Draining = v

		return snap
	})
}

// --- Remote-sourced caches ---
// Every setter updates a collection and its fetch timestamp together, in
// one mutation. Failed or aborted fetches never reach these mutators, so
// stale data keeps its honest timestamp.

// SetStations replaces the station list and its fetch timestamp.
func (s *Store) SetStations(stations []Station, fetchedAt int64) {
	s.apply("SetStations", func(snap Snapshot) Snapshot {
		snap.Stations = slices.Clone(stations)
		snap.StationsFetchedAt = fetchedAt

		return snap
	})
}

// SetObservation records the latest observation for one station together
// with its per-station fetch timestamp.
func (s *Store) SetObservation(obs Observation, fetchedAt int64) {
	s.apply("SetObservation", func(snap Snapshot) Snapshot {
		snap.Observations = maps.Clone(snap.Observations)
		snap.Observations[obs.StationID] = obs

		snap.ObservationsFetchedAt = maps.Clone(snap.ObservationsFetchedAt)
		snap.ObservationsFetchedAt[obs.StationID] = fetchedAt

		return snap
	})
}

// SetAlerts replaces the alert list and its fetch timestamp.
func (s *Store) SetAlerts(alerts []Alert, fetchedAt int64) {
	s.apply("SetAlerts", func(snap Snapshot) Snapshot {
		snap.Alerts = slices.Clone(alerts)
		snap.AlertsFetchedAt = fetchedAt

		return snap
	})
}

// SetForecast records the forecast for one station together with its
// per-station fetch timestamp.
func (s *Store) SetForecast(f Forecast, fetchedAt int64) {
	s.apply("SetForecast", func(snap Snapshot) Snapshot {
		snap.Forecasts = maps.Clone(snap.Forecasts)
		snap.Forecasts[f.StationID] = f

		snap.ForecastsFetchedAt = maps.Clone(snap.ForecastsFetchedAt)
		snap.ForecastsFetchedAt[f.StationID] = fetchedAt

		return snap
	})
}

// --- Sensor histories ---

// AddPressureReading appends a pressure reading to a station's rolling
// buffer, evicting entries older than the history window and keeping the
// sequence sorted. Invalid readings are dropped by marine.Append.
func (s *Store) AddPressureReading(r marine.Reading) {
	now := s.nowFunc()

	s.apply("AddPressureReading", func(snap Snapshot) Snapshot {
		snap.PressureHistory = maps.Clone(snap.PressureHistory)
		snap.PressureHistory[r.StationID] = marine.Append(snap.PressureHistory[r.StationID], r, now)

		return snap
	})
}

// AddWindReading appends a wind reading (m/s) to a station's rolling buffer.
func (s *Store) AddWindReading(r marine.Reading) {
	now := s.nowFunc()

	s.apply("AddWindReading", func(snap Snapshot) Snapshot {
		snap.WindHistory = maps.Clone(snap.WindHistory)
		snap.WindHistory[r.StationID] = marine.Append(snap.WindHistory[r.StationID], r, now)

		return snap
	})
}

// --- Settings ---

// SettingsPatch lists the mutable device-scoped preferences.
type SettingsPatch struct {
	Units                    *string
	AlertsEnabled            *bool
	PressureDropThresholdHPa *float64
}

// UpdateSettings applies a patch to the device-scoped settings.
func (s *Store) UpdateSettings(patch SettingsPatch) Settings {
	var updated Settings

	s.apply("UpdateSettings", func(snap Snapshot) Snapshot {
		if patch.Units != nil {
			snap.Settings.Units = *patch.Units
		}

		if patch.AlertsEnabled != nil {
			snap.Settings.AlertsEnabled = *patch.AlertsEnabled
		}

		if patch.PressureDropThresholdHPa != nil {
			snap.Settings.PressureDropThresholdHPa = *patch.PressureDropThresholdHPa
		}

		updated = snap.Settings

		return snap
	})

	return updated
}

// --- Logout ---

// Logout resets all user-scoped fields (entities and the mutation queue)
// to their empty initial values. Device-scoped settings and the marine
// caches are left untouched.
func (s *Store) Logout() {
	empty := emptySnapshot()

	s.apply("Logout", func(snap Snapshot) Snapshot {
		snap.Plans = empty.Plans
		snap.Boats = empty.Boats
		snap.Contacts = empty.Contacts
		snap.Inventory = empty.Inventory
		snap.Tasks = empty.Tasks
		snap.Queue = empty.Queue

		return snap
	})

	s.logger.Info("user state reset")
}
