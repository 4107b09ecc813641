package service

import (
	"context"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// runGuard — one workflow run per target table at a time
// ─────────────────────────────────────────────────────────────

// runGuard rejects a run while another run holds the same key and lets
// shutdown wait for every run in flight.
type runGuard struct {
	mu      sync.Mutex
	running map[string]string // key → run id
	wg      sync.WaitGroup
}

// TryLock marks key as held by runID. It returns false, plus the holder's
// run id, when key is already held.
func (g *runGuard) TryLock(key, runID string) (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]string)
	}
	if holder, ok := g.running[key]; ok {
		return false, holder
	}
	g.running[key] = runID
	g.wg.Add(1)
	return true, ""
}

// Unlock releases key. Must be called after TryLock returns true.
func (g *runGuard) Unlock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, key)
	g.wg.Done()
}

// Running returns the number of keys currently held.
func (g *runGuard) Running() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.running)
}

// WaitAll blocks until every held key is released or ctx is cancelled.
func (g *runGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
