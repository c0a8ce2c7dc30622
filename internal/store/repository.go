package store

import (
	"context"
	"sync"

	pkgerrors "viewfilter/pkg/errors"
)

// Repository persists the raw filter document of each view. Get returns an
// error matching pkgerrors.ErrNotFound when nothing is stored.
type Repository interface {
	Get(ctx context.Context, viewID string) (StoredValue, error)
	Put(ctx context.Context, viewID string, value StoredValue) error
}

type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[string]StoredValue
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: make(map[string]StoredValue)}
}

func (r *MemoryRepository) Get(ctx context.Context, viewID string) (StoredValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[viewID]
	if !ok {
		return nil, pkgerrors.ErrNotFound.WithDetail("view_id", viewID)
	}
	return append(StoredValue(nil), doc...), nil
}

func (r *MemoryRepository) Put(ctx context.Context, viewID string, value StoredValue) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.docs[viewID] = append(StoredValue(nil), value...)
	return nil
}
