// Package drain separates the request to stop a cycle from the lifetime of
// the work already in flight.
package drain

import (
	"context"
	"sync"
	"time"
)

// Detach returns a context for in-flight work that survives cancellation of
// stop. Once stop is done the work context lives for grace more and is then
// cancelled. A grace of zero or less is never enforced. The returned cancel
// func must be called when the cycle ends.
func Detach(stop context.Context, grace time.Duration) (context.Context, context.CancelFunc) {
	work, cancel := context.WithCancel(context.WithoutCancel(stop))
	if grace <= 0 {
		return work, cancel
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	unregister := context.AfterFunc(stop, func() {
		mu.Lock()
		defer mu.Unlock()
		timer = time.AfterFunc(grace, cancel)
	})
	return work, func() {
		unregister()
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		cancel()
	}
}

// Stopped reports whether stop has been requested.
func Stopped(stop context.Context) bool {
	return stop.Err() != nil
}
