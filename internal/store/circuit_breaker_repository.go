package store

import (
	"context"
	"fmt"

	"viewfilter/internal/config"
	"viewfilter/pkg/circuitbreaker"
	pkgerrors "viewfilter/pkg/errors"
)

// CircuitBreakerRepository guards a backend. Not-found answers count as
// successful calls.
type CircuitBreakerRepository struct {
	repo Repository
	cb   *circuitbreaker.Wrapper
}

func NewCircuitBreakerRepository(repo Repository, name string, cfg config.CircuitBreakerConfig) *CircuitBreakerRepository {
	if !cfg.Enabled {
		return &CircuitBreakerRepository{repo: repo}
	}

	return &CircuitBreakerRepository{
		repo: repo,
		cb:   circuitbreaker.NewWrapper(circuitbreaker.FromSettings(name, cfg)),
	}
}

func (r *CircuitBreakerRepository) Get(ctx context.Context, viewID string) (StoredValue, error) {
	if r.cb == nil {
		return r.repo.Get(ctx, viewID)
	}

	var notFound error
	result, err := r.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		value, err := r.repo.Get(ctx, viewID)
		if pkgerrors.IsNotFound(err) {
			notFound = err
			return StoredValue(nil), nil
		}
		return value, err
	})

	r.cb.RecordRequest(err == nil)

	if err != nil {
		return nil, r.wrap(err)
	}
	if notFound != nil {
		return nil, notFound
	}

	value, ok := result.(StoredValue)
	if !ok {
		return nil, fmt.Errorf("repository returned invalid result type")
	}
	return value, nil
}

func (r *CircuitBreakerRepository) Put(ctx context.Context, viewID string, value StoredValue) error {
	if r.cb == nil {
		return r.repo.Put(ctx, viewID, value)
	}

	_, err := r.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return nil, r.repo.Put(ctx, viewID, value)
	})

	r.cb.RecordRequest(err == nil)

	if err != nil {
		return r.wrap(err)
	}
	return nil
}

func (r *CircuitBreakerRepository) wrap(err error) error {
	if r.cb.IsOpen() {
		return fmt.Errorf("circuit breaker is open for %s: %w", r.cb.Name(), err)
	}
	return err
}

func (r *CircuitBreakerRepository) State() string {
	if r.cb == nil {
		return "disabled"
	}
	return r.cb.State().String()
}

func (r *CircuitBreakerRepository) IsOpen() bool {
	if r.cb == nil {
		return false
	}
	return r.cb.IsOpen()
}
