package service

import (
	"context"
	"time"
)

// Hooks for the service_test package.

func (s *IngestService) HoldPath(path string) (release func(), ok bool) {
	if !s.inflight.TryLock(path) {
		return nil, false
	}
	return func() { s.inflight.Unlock(path) }, true
}

func (s *IngestService) IngestSettled(ctx context.Context, path string, retry time.Duration) {
	s.ingestSettled(ctx, path, retry)
}
