package status

import (
	"context"
	"fmt"
	"sync"

	"subscription-report-service/internal/logging"
	"subscription-report-service/internal/models"
)

// Store is the persistence backing the status cache.
type Store interface {
	ListStatuses(ctx context.Context) ([]models.StatusEntity, error)
	GetStatusByCode(ctx context.Context, code models.StatusCode) (models.StatusEntity, error)
}

// Resolver is a process-wide read-through cache from status code to its
// canonical entity. The cache is bulk-loaded at construction; a miss triggers
// a single-entry refresh before giving up. Entries are immutable once
// resolved, so concurrent refreshes are last-writer-wins.
type Resolver struct {
	store  Store
	logger *logging.Logger

	mu    sync.RWMutex
	cache map[models.StatusCode]models.StatusEntity
}

// NewResolver bulk-loads the status table into the cache.
func NewResolver(ctx context.Context, store Store, logger *logging.Logger) (*Resolver, error) {
	statuses, err := store.ListStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load status codes: %w", err)
	}
	cache := make(map[models.StatusCode]models.StatusEntity, len(statuses))
	for _, s := range statuses {
		cache[s.Code] = s
	}
	return &Resolver{store: store, logger: logger, cache: cache}, nil
}

// Resolve returns the canonical entity for a code. The read path never fails
// fast: a cache miss falls back to a store lookup and repairs the cache.
func (r *Resolver) Resolve(ctx context.Context, code models.StatusCode) (models.StatusEntity, error) {
	r.mu.RLock()
	entity, ok := r.cache[code]
	r.mu.RUnlock()
	if ok {
		return entity, nil
	}

	entity, err := r.store.GetStatusByCode(ctx, code)
	if err != nil {
		return models.StatusEntity{}, fmt.Errorf("status %q not resolvable: %w", code, err)
	}

	r.logger.Warnf("Status cache miss for %q, repaired from store", code)
	r.mu.Lock()
	r.cache[code] = entity
	r.mu.Unlock()
	return entity, nil
}
