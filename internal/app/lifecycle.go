package app

import (
	"context"
	"os/signal"
	"syscall"
	"time"
)

// SetupLifecycle derives a context canceled by the timeout or by SIGINT or
// SIGTERM, whichever comes first.
//
// Parameters:
//   - ctx: The parent context.
//   - timeout: The run limit; zero or negative disables it.
//
// Returns:
//   - context.Context: The derived context.
//   - context.CancelFunc: Releases the timer and the signal handler.
func SetupLifecycle(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	cancelTimeout := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancelTimeout = context.WithTimeout(ctx, timeout)
	}
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	return ctx, func() {
		stopSignals()
		cancelTimeout()
	}
}
