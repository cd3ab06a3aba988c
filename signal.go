package main

import (
	"context"
	"os/signal"
	"syscall"
)

// cmdContext returns a background context for one-shot commands. Long
// running commands use signalContext instead.
func cmdContext() context.Context {
	return context.Background()
}

// signalContext returns a context canceled on SIGINT or SIGTERM, plus its
// stop function for orderly teardown.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
