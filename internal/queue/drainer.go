// Package queue implements delivery of the store's offline mutation queue:
// optimistic submission of remote writes with enqueue-on-failure, and the
// drain loop that attempts queued mutations strictly in enqueue order.
package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/tidewatch/tidewatch/internal/connectivity"
	"github.com/tidewatch/tidewatch/internal/store"
)

// Remote performs one HTTP-shaped write. Success is nil; any error means
// the mutation stays queued.
type Remote interface {
	Do(ctx context.Context, method, endpoint string, body []byte) error
}

// Defaults for drain behavior. A single drain pass retries each mutation a
// few times with fibonacci backoff before declaring the pass blocked.
const (
	DefaultAttemptsPerPass = 3
	DefaultBackoffBase     = time.Second
)

// Options tune a Drainer. The zero value selects the defaults.
type Options struct {
	// AttemptsPerPass is how many delivery tries one mutation gets within
	// a single drain pass before the pass stops.
	AttemptsPerPass int

	// BackoffBase is the fibonacci backoff seed between tries.
	BackoffBase time.Duration

	// AbandonAfter removes a mutation whose retry count reaches this
	// value, with a warning log. 0 (the default) never abandons: for a
	// safety-critical tracker, losing a write silently is worse than a
	// stuck queue the status surface makes visible.
	AbandonAfter int
}

// Drainer attempts delivery of queued mutations in enqueue order. It holds
// no queue state of its own — the store's snapshot is authoritative.
type Drainer struct {
	store  *store.Store
	remote Remote
	online connectivity.Checker
	logger *slog.Logger
	opts   Options
}

// NewDrainer creates a Drainer over the given store and remote.
func NewDrainer(st *store.Store, remote Remote, online connectivity.Checker, logger *slog.Logger, opts Options) *Drainer {
	if opts.AttemptsPerPass <= 0 {
		opts.AttemptsPerPass = DefaultAttemptsPerPass
	}

	if opts.BackoffBase <= 0 {
		opts.BackoffBase = DefaultBackoffBase
	}

	return &Drainer{
		store:  st,
		remote: remote,
		online: online,
		logger: logger,
		opts:   opts,
	}
}

// Drain runs one pass over the queue, delivering mutations head-first and
// returning the number delivered. The pass stops at the first mutation
// that cannot be delivered (head-of-line blocking): later mutations may
// reference resources created by earlier ones, so out-of-order delivery
// could target a resource that does not exist remotely yet. Failures are
// expected and never returned as errors — the mutation simply stays
// queued for the next pass.
func (d *Drainer) Drain(ctx context.Context) int {
	if !d.online.Online() {
		d.logger.Debug("drain skipped, offline")
		return 0
	}

	d.store.SetDraining(true)
	defer d.store.SetDraining(false)

	var delivered int

	for ctx.Err() == nil {
		queue := d.store.Read().Queue
		if len(queue) == 0 {
			break
		}

		head := queue[0]

		if err := d.attempt(ctx, head); err != nil {
			d.store.IncrementRetry(head.ID)
			d.handleBlocked(head, err)

			break
		}

		d.store.RemoveMutation(head.ID)
		delivered++

		d.logger.Debug("mutation delivered",
			slog.String("id", head.ID),
			slog.String("endpoint", head.Endpoint),
		)
	}

	if delivered > 0 {
		d.logger.Info("drain pass complete",
			slog.Int("delivered", delivered),
			slog.Int("remaining", d.store.PendingCount()),
		)
	}

	return delivered
}

// attempt tries to deliver one mutation, retrying transient failures with
// fibonacci backoff up to the per-pass attempt budget. Going offline
// mid-pass aborts immediately rather than burning the budget.
func (d *Drainer) attempt(ctx context.Context, m store.PendingMutation) error {
	b := retry.WithMaxRetries(uint64(d.opts.AttemptsPerPass-1), retry.NewFibonacci(d.opts.BackoffBase))

	return retry.Do(ctx, b, func(ctx context.Context) error {
		if !d.online.Online() {
			return context.Canceled
		}

		if err := d.remote.Do(ctx, m.Method, m.Endpoint, m.Body); err != nil {
			return retry.RetryableError(err)
		}

		return nil
	})
}

// handleBlocked logs the stalled head and applies the abandonment policy
// when one is configured.
func (d *Drainer) handleBlocked(m store.PendingMutation, err error) {
	retries := m.RetryCount + 1

	d.logger.Debug("drain blocked at queue head",
		slog.String("id", m.ID),
		slog.String("endpoint", m.Endpoint),
		slog.Int("retry_count", retries),
		slog.String("error", err.Error()),
	)

	if d.opts.AbandonAfter > 0 && retries >= d.opts.AbandonAfter {
		d.store.RemoveMutation(m.ID)
		d.logger.Warn("mutation abandoned after repeated failures",
			slog.String("id", m.ID),
			slog.String("method", m.Method),
			slog.String("endpoint", m.Endpoint),
			slog.Int("retry_count", retries),
		)
	}
}
