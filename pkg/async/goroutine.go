// Package async provides a panic-safe helper for fire-and-forget work that
// must never affect the caller, such as post-commit notifications.
package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/rentdesk/rentdesk/pkg/observability"
)

// SafeGo executes a function in a goroutine with:
// - Context cancellation support
// - Panic recovery
// - Timeout enforcement
// - Error logging through the injected logger
//
// Use this instead of bare `go func()` for best-effort work: errors and
// panics are recorded, never propagated.
//
// Example:
//
//	SafeGo(ctx, logger, 10*time.Second, "welcome email", func(ctx context.Context) error {
//	    return mailer.SendWelcome(ctx, user)
//	})
func SafeGo(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) {
	// Detach from the request context so cancellation of the HTTP request
	// does not abort already-committed follow-up work.
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parentCtx), timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(map[string]interface{}{
					"task":  taskName,
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("panic in background task")
			}
		}()

		if err := fn(ctx); err != nil {
			logger.WithError(err).WithField("task", taskName).Warn("background task failed")
		}
	}()
}
