package apikeys

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"bedtime-server/internal/interfaces"
)

// Resolver fetches provider API keys lazily and caches them for the
// lifetime of the process. Concurrent first lookups for the same key name
// collapse into a single repository query.
type Resolver struct {
	repo   interfaces.APIKeyRepository
	logger *zap.Logger

	mu       sync.Mutex
	cache    map[string]string
	inflight map[string]chan struct{}
}

// NewResolver creates a key resolver backed by the given repository.
func NewResolver(repo interfaces.APIKeyRepository, logger *zap.Logger) *Resolver {
	return &Resolver{
		repo:     repo,
		logger:   logger.Named("KeyResolver"),
		cache:    make(map[string]string),
		inflight: make(map[string]chan struct{}),
	}
}

// Resolve returns the secret value for a named key. The first call hits the
// repository; later calls are served from the cache. A lookup that fails is
// not cached, the next caller retries the repository.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	for {
		r.mu.Lock()
		if value, ok := r.cache[name]; ok {
			r.mu.Unlock()
			return value, nil
		}
		if waitCh, ok := r.inflight[name]; ok {
			// Кто-то уже запрашивает этот ключ, ждём его результата
			r.mu.Unlock()
			select {
			case <-waitCh:
				continue
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		doneCh := make(chan struct{})
		r.inflight[name] = doneCh
		r.mu.Unlock()

		key, err := r.repo.GetActiveByName(ctx, name)

		r.mu.Lock()
		delete(r.inflight, name)
		if err == nil {
			r.cache[name] = key.Value
		}
		r.mu.Unlock()
		close(doneCh)

		if err != nil {
			r.logger.Warn("Failed to resolve api key", zap.String("name", name), zap.Error(err))
			return "", err
		}
		r.logger.Info("API key resolved and cached", zap.String("name", name))
		return key.Value, nil
	}
}

// Invalidate drops a cached value so the next Resolve re-reads the
// repository. Called after an admin updates or deactivates a key.
func (r *Resolver) Invalidate(name string) {
	r.mu.Lock()
	delete(r.cache, name)
	r.mu.Unlock()
	r.logger.Info("API key cache invalidated", zap.String("name", name))
}
