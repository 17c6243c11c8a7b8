package util

import (
	"context"
	"time"
)

// Every runs fn on a background goroutine once per interval until ctx is
// cancelled or the returned stop func is called. A tick that fires while fn is
// still running is dropped rather than queued. Stop blocks until the loop exits.
func Every(ctx context.Context, interval time.Duration, fn func()) (stop func()) {
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
