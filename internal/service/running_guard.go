package service

import (
	"context"
	"sync"
)

// ExportedRunGuard exposes runGuard to the service_test package.
type ExportedRunGuard = runGuard

// runGuard admits one run per key, where a key is an export job name or an
// ingested file path, and counts in-flight runs so shutdown can wait.
type runGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock marks key as running. It returns false if it already is.
func (g *runGuard) TryLock(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	_, busy := g.running[key]
	if !busy {
		g.running[key] = struct{}{}
		g.wg.Add(1)
	}
	return !busy
}

// Unlock marks key as finished. Must follow a successful TryLock.
func (g *runGuard) Unlock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, key)
	g.wg.Done()
}

// Running reports whether key is in flight.
func (g *runGuard) Running(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.running[key]
	return ok
}

// WaitAll returns once nothing is in flight or ctx is done.
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
