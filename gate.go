package main

import (
	"context"
	"sync"
	"time"
)

// rateGate spaces calls to the remote endpoint by a fixed interval. The
// scheduling policy lives here so it can be swapped without touching the
// gateway or the pipeline.
type rateGate struct {
	interval time.Duration

	mu   sync.Mutex
	next time.Time
}

func newRateGate(interval time.Duration) *rateGate {
	return &rateGate{interval: interval}
}

// Wait blocks until the caller's slot arrives or the context is done. The
// first call passes immediately; each call reserves the next slot one
// interval later.
func (g *rateGate) Wait(ctx context.Context) error {
	if g.interval <= 0 {
		return ctx.Err()
	}

	g.mu.Lock()
	now := time.Now()
	at := g.next
	if at.Before(now) {
		at = now
	}
	g.next = at.Add(g.interval)
	g.mu.Unlock()

	if wait := time.Until(at); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
