package queue

import (
	"context"
	"log/slog"

	"github.com/tidewatch/tidewatch/internal/connectivity"
	"github.com/tidewatch/tidewatch/internal/store"
)

// Submitter performs the remote half of an optimistic mutation. The local
// snapshot update has already succeeded by the time Submit is called;
// Submit either delivers the write immediately or queues it for a later
// drain. Callers therefore never see a remote failure — only the
// background sync status reflects unresolved queue depth.
type Submitter struct {
	store  *store.Store
	remote Remote
	online connectivity.Checker
	logger *slog.Logger
}

// NewSubmitter creates a Submitter over the given store and remote.
func NewSubmitter(st *store.Store, remote Remote, online connectivity.Checker, logger *slog.Logger) *Submitter {
	return &Submitter{
		store:  st,
		remote: remote,
		online: online,
		logger: logger,
	}
}

// Submit attempts one remote write and enqueues it on failure or when
// offline. A write is also queued without an attempt whenever the queue is
// non-empty: delivering it ahead of older queued mutations would violate
// FIFO ordering for the resources they may share.
func (s *Submitter) Submit(ctx context.Context, typ store.MutationType, method, endpoint string, body []byte) {
	if s.online.Online() && s.store.PendingCount() == 0 {
		err := s.remote.Do(ctx, method, endpoint, body)
		if err == nil {
			s.logger.Debug("remote write delivered",
				slog.String("method", method),
				slog.String("endpoint", endpoint),
			)

			return
		}

		s.logger.Debug("remote write failed, queueing",
			slog.String("method", method),
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
	}

	s.store.EnqueueMutation(store.PendingMutation{
		Type:     typ,
		Method:   method,
		Endpoint: endpoint,
		Body:     body,
	})
}
