package store

import (
	"context"
	"encoding/json"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
)

// snapshotKey names the single persisted blob in the durable store.
const snapshotKey = "tidewatch/state"

// persistTimeout bounds a single background write to durable storage.
const persistTimeout = 10 * time.Second

// Persister is the durable key-value boundary the store writes through.
// Each call is independently atomic; no cross-key transactionality is
// assumed. Get returns (nil, nil) when the key is absent.
type Persister interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Store holds the snapshot and serializes all mutations behind a single
// mutex (single-writer). Mutators are pure functions of (old, args) → new;
// the only side effect is an asynchronous, best-effort persist of the
// JSON-tagged subset, which never blocks the mutator or other readers.
type Store struct {
	mu        stdsync.Mutex
	snap      Snapshot
	persister Persister
	logger    *slog.Logger

	// Injectable for deterministic tests.
	nowFunc func() int64
	newID   func() string

	// persistCh carries the latest marshaled snapshot to the background
	// writer. Capacity 1 with replace-on-full semantics gives
	// last-write-wins on the persisted blob.
	persistCh chan []byte
	persistWG stdsync.WaitGroup
}

// New creates a Store with the empty initial snapshot and starts the
// background persist goroutine. Call Rehydrate before first use and Close
// at shutdown.
func New(p Persister, logger *slog.Logger) *Store {
	s := &Store{
		snap:      emptySnapshot(),
		persister: p,
		logger:    logger,
		nowFunc:   NowNano,
		newID:     uuid.NewString,
		persistCh: make(chan []byte, 1),
	}

	s.persistWG.Add(1)

	go s.persistLoop()

	return s
}

// Rehydrate loads the persisted snapshot. A missing blob yields the empty
// snapshot; a blob that fails to parse is logged and also yields the empty
// snapshot — losing cached state is acceptable, failing to start is not.
func (s *Store) Rehydrate(ctx context.Context) error {
	data, err := s.persister.Get(ctx, snapshotKey)
	if err != nil {
		return err
	}

	if data == nil {
		s.logger.Debug("no persisted snapshot, starting empty")
		return nil
	}

	snap := emptySnapshot()

	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("persisted snapshot unreadable, starting empty",
			slog.String("error", err.Error()),
		)

		return nil
	}

	normalize(&snap)

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	s.logger.Info("snapshot rehydrated",
		slog.Int("plans", len(snap.Plans)),
		slog.Int("queued_mutations", len(snap.Queue)),
	)

	return nil
}

// normalize allocates any collections a persisted blob from an older
// layout left nil, so a missing field deserializes to its declared default.
func normalize(snap *Snapshot) {
	empty := emptySnapshot()

	if snap.Plans == nil {
		snap.Plans = empty.Plans
	}

	if snap.Boats == nil {
		snap.Boats = empty.Boats
	}

	if snap.Contacts == nil {
		snap.Contacts = empty.Contacts
	}

	if snap.Inventory == nil {
		snap.Inventory = empty.Inventory
	}

	if snap.Tasks == nil {
		snap.Tasks = empty.Tasks
	}

	if snap.Queue == nil {
		snap.Queue = empty.Queue
	}

	if snap.Observations == nil {
		snap.Observations = empty.Observations
	}

	if snap.ObservationsFetchedAt == nil {
		snap.ObservationsFetchedAt = empty.ObservationsFetchedAt
	}

	if snap.Forecasts == nil {
		snap.Forecasts = empty.Forecasts
	}

	if snap.ForecastsFetchedAt == nil {
		snap.ForecastsFetchedAt = empty.ForecastsFetchedAt
	}

	if snap.PressureHistory == nil {
		snap.PressureHistory = empty.PressureHistory
	}

	if snap.WindHistory == nil {
		snap.WindHistory = empty.WindHistory
	}

	if snap.Settings == (Settings{}) {
		snap.Settings = empty.Settings
	}
}

// Read returns the current snapshot. The struct is copied but the
// contained maps and slices are shared — callers must treat them as
// read-only. Mutators copy-on-write every collection they touch, so a
// snapshot handed out here is never modified underneath the reader.
func (s *Store) Read() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snap
}

// apply runs one named mutator: replace the snapshot atomically, then hand
// the marshaled persistable subset to the background writer. Marshaling
// happens under the lock so the persisted bytes always correspond to a
// snapshot some reader could have observed.
func (s *Store) apply(name string, fn func(Snapshot) Snapshot) {
	s.mu.Lock()
	s.snap = fn(s.snap)

	data, err := json.Marshal(s.snap)
	s.mu.Unlock()

	if err != nil {
		// Snapshot contents are plain data types; this should be
		// unreachable. Persist is best-effort, so log and move on.
		s.logger.Error("snapshot marshal failed",
			slog.String("mutator", name),
			slog.String("error", err.Error()),
		)

		return
	}

	s.enqueuePersist(data)
}

// enqueuePersist replaces any not-yet-written blob with the newer one.
// Never blocks: persistence is fire-and-forget, last-write-wins.
func (s *Store) enqueuePersist(data []byte) {
	for {
		select {
		case s.persistCh <- data:
			return
		default:
		}

		select {
		case <-s.persistCh:
		default:
		}
	}
}

// persistLoop writes marshaled snapshots to durable storage until the
// channel is closed. Write failures are logged, never surfaced — the
// in-memory snapshot remains authoritative.
func (s *Store) persistLoop() {
	defer s.persistWG.Done()

	for data := range s.persistCh {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)

		if err := s.persister.Set(ctx, snapshotKey, data); err != nil {
			s.logger.Warn("snapshot persist failed",
				slog.String("error", err.Error()),
			)
		}

		cancel()
	}
}

// Close stops the background writer after draining any pending blob, so
// the final state of an orderly shutdown reaches disk. No mutators may be
// called after Close. Crash-time loss of the last write is acceptable.
func (s *Store) Close() {
	close(s.persistCh)
	s.persistWG.Wait()
}
