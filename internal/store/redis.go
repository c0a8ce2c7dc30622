package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "viewfilter/pkg/errors"
	"viewfilter/pkg/metrics"
)

type RedisRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) key(viewID string) string {
	return r.prefix + viewID
}

func (r *RedisRepository) Get(ctx context.Context, viewID string) (StoredValue, error) {
	start := time.Now()
	raw, err := r.client.Get(ctx, r.key(viewID)).Bytes()
	r.observe("get", start, err)

	if errors.Is(err, redis.Nil) {
		return nil, pkgerrors.ErrNotFound.WithDetail("view_id", viewID)
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET failed: %w", err)
	}
	return raw, nil
}

func (r *RedisRepository) Put(ctx context.Context, viewID string, value StoredValue) error {
	start := time.Now()
	err := r.client.Set(ctx, r.key(viewID), []byte(value), 0).Err()
	r.observe("set", start, err)

	if err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}
	return nil
}

func (r *RedisRepository) observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, redis.Nil) {
		status = "error"
	}
	metrics.IncDatabaseQuery(serviceName, "redis", operation, status)
	metrics.ObserveDatabaseQueryDuration(serviceName, "redis", operation, time.Since(start))
}
