// Package connectivity provides the online predicate the engine samples
// before any network attempt, plus a monitor that turns backend events
// socket state into connectivity-change signals for the queue drain loop.
package connectivity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/sethvargo/go-retry"
)

// Checker is the boolean online predicate. The engine never attempts a
// remote call when Online reports false.
type Checker interface {
	Online() bool
}

// probeTimeout bounds a single HTTP reachability probe.
const probeTimeout = 5 * time.Second

// Probe is a one-shot Checker backed by an HTTP HEAD request against the
// backend health endpoint. Used by one-shot commands that have no
// long-lived events socket.
type Probe struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewProbe creates a Probe against the given health URL.
func NewProbe(url string, logger *slog.Logger) *Probe {
	return &Probe{
		url:    url,
		client: &http.Client{Timeout: probeTimeout},
		logger: logger,
	}
}

// Online reports whether the backend answered the health probe.
func (p *Probe) Online() bool {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("connectivity probe failed", slog.String("error", err.Error()))
		return false
	}

	resp.Body.Close()

	return resp.StatusCode < http.StatusInternalServerError
}

// Reconnect backoff bounds for the events socket.
const (
	reconnectBase = time.Second
	reconnectCap  = time.Minute
)

// Monitor holds a long-lived websocket to the backend events endpoint.
// Connection state is the online predicate; an offline→online transition
// invokes the registered callback (which the watch command wires to the
// queue drain). Messages on the socket are backend change events and
// currently only refresh liveness.
type Monitor struct {
	url    string
	logger *slog.Logger
	online atomic.Bool

	// onOnline fires on each offline→online transition.
	onOnline func()
}

// NewMonitor creates a Monitor for the given websocket URL. onOnline may
// be nil.
func NewMonitor(url string, onOnline func(), logger *slog.Logger) *Monitor {
	return &Monitor{
		url:      url,
		logger:   logger,
		onOnline: onOnline,
	}
}

// Online reports whether the events socket is currently connected.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Run dials the events socket and keeps it alive until ctx is canceled,
// reconnecting with capped fibonacci backoff. Network failures are
// expected and logged at debug level only.
func (m *Monitor) Run(ctx context.Context) error {
	b := retry.WithCappedDuration(reconnectCap, retry.NewFibonacci(reconnectBase))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := m.connectAndRead(ctx); err != nil {
			m.logger.Debug("events socket lost", slog.String("error", err.Error()))
		}

		m.setOnline(false)

		delay, _ := b.Next()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// connectAndRead dials once and reads until the connection drops.
func (m *Monitor) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, m.url, nil)
	if err != nil {
		return fmt.Errorf("connectivity: dial events socket: %w", err)
	}

	defer conn.Close(websocket.StatusNormalClosure, "shutting down")

	m.logger.Info("events socket connected", slog.String("url", m.url))
	m.setOnline(true)

	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return fmt.Errorf("connectivity: read events socket: %w", err)
		}
	}
}

// setOnline updates the predicate and fires the transition callback.
func (m *Monitor) setOnline(v bool) {
	was := m.online.Swap(v)

	if !was && v && m.onOnline != nil {
		m.onOnline()
	}
}

// Always is a Checker fixed to a constant value. Used in tests and by
// commands that defer the online decision to the remote call itself.
type Always bool

// Online implements Checker.
func (a Always) Online() bool {
	return bool(a)
}
