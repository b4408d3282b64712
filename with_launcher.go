package spxlauncher

import (
	"context"
	"fmt"
	"time"
)

// drainTimeout bounds the wait for the sidecar's last output lines after
// it has been stopped.
const drainTimeout = 5 * time.Second

// WithLauncher runs fn with a launched sidecar and stops it afterwards.
//
// The sidecar is launched before fn is called; a launch failure is returned
// without calling fn. If Stop fails, a warning is logged but does not
// override fn's error. WithLauncher returns once every output line has
// reached the sink, or after a short grace period.
//
// Example usage:
//
//	err := spxlauncher.WithLauncher(ctx, func(l *spxlauncher.Launcher) error {
//	    fmt.Println("serving on port", l.Port())
//	    <-l.Exited()
//	    return nil
//	},
//	    spxlauncher.WithSink(sink),
//	)
func WithLauncher(ctx context.Context, fn func(*Launcher) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	launcher := New(opts...)

	if _, err := launcher.Launch(ctx); err != nil {
		return fmt.Errorf("failed to launch server: %w", err)
	}

	drained := launcher.Drained()

	defer func() {
		if _, stopErr := launcher.Stop(context.WithoutCancel(ctx)); stopErr != nil {
			launcher.log.Warn("Failed to stop server", "error", stopErr)
		}

		select {
		case <-drained:
		case <-time.After(drainTimeout):
			launcher.log.Warn("Server output still open after stop")
		}
	}()

	return fn(launcher)
}
