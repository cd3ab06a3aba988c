package store

import (
	"log/slog"
	"time"
)

// DefaultRetentionDays is the default horizon for the plan retention sweep.
const DefaultRetentionDays = 30

// SweepPlans evicts plan records older than the retention horizon in one
// atomic mutation, returning the number evicted. A plan survives when its
// status is active — an unfinished trip must never be cleaned up — or when
// its UpdatedAt is within the horizon. A corrupt (non-positive) UpdatedAt
// counts as "not recent" so a bad timestamp cannot block cleanup forever.
//
// Runs at process start of the sync and watch commands; periodic
// scheduling is the caller's concern.
func (s *Store) SweepPlans(horizon time.Duration) int {
	now := s.nowFunc()
	cutoff := now - int64(horizon)

	var evicted int

	s.apply("SweepPlans", func(snap Snapshot) Snapshot {
		retained := make(map[string]Plan, len(snap.Plans))

		for id, p := range snap.Plans {
			if p.Status == PlanActive || p.UpdatedAt >= cutoff {
				retained[id] = p
				continue
			}

			evicted++
		}

		if evicted == 0 {
			return snap
		}

		snap.Plans = retained

		return snap
	})

	if evicted > 0 {
		s.logger.Info("retention sweep evicted plans",
			slog.Int("evicted", evicted),
			slog.Duration("horizon", horizon),
		)
	}

	return evicted
}
