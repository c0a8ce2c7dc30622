package health

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

const checkTimeout = 5 * time.Second

type Checker interface {
	Check(ctx context.Context) error
	Name() string
}

type Health struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

type CheckResult struct {
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CheckerRegistry runs required and optional checks. A failing optional
// check degrades the service instead of marking it unhealthy.
type CheckerRegistry struct {
	mu       sync.RWMutex
	checkers []registered
}

type registered struct {
	checker  Checker
	optional bool
}

func NewCheckerRegistry() *CheckerRegistry {
	return &CheckerRegistry{}
}

func (r *CheckerRegistry) Register(checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers = append(r.checkers, registered{checker: checker})
}

func (r *CheckerRegistry) RegisterOptional(checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers = append(r.checkers, registered{checker: checker, optional: true})
}

func (r *CheckerRegistry) Check(ctx context.Context) Health {
	r.mu.RLock()
	checkers := append([]registered(nil), r.checkers...)
	r.mu.RUnlock()

	results := make(map[string]CheckResult, len(checkers))
	overall := StatusHealthy

	for _, c := range checkers {
		result := CheckResult{Status: StatusHealthy, Timestamp: time.Now()}

		if err := c.checker.Check(ctx); err != nil {
			result.Message = err.Error()
			if c.optional {
				result.Status = StatusDegraded
				if overall == StatusHealthy {
					overall = StatusDegraded
				}
			} else {
				result.Status = StatusUnhealthy
				overall = StatusUnhealthy
			}
		}

		results[c.checker.Name()] = result
	}

	return Health{
		Status:    overall,
		Timestamp: time.Now(),
		Checks:    results,
	}
}

// SQLChecker pings a database/sql pool. name is reported as the check key.
type SQLChecker struct {
	name string
	db   *sql.DB
}

func NewSQLChecker(name string, db *sql.DB) *SQLChecker {
	return &SQLChecker{name: name, db: db}
}

func (c *SQLChecker) Name() string {
	return c.name
}

func (c *SQLChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%s ping failed: %w", c.name, err)
	}
	return nil
}

type RedisChecker struct {
	client *redis.Client
}

func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Name() string {
	return "redis"
}

func (c *RedisChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

type MongoDBChecker struct {
	client *mongo.Client
}

func NewMongoDBChecker(client *mongo.Client) *MongoDBChecker {
	return &MongoDBChecker{client: client}
}

func (c *MongoDBChecker) Name() string {
	return "mongodb"
}

func (c *MongoDBChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := c.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongodb ping failed: %w", err)
	}
	return nil
}

// CheckFunc adapts a function into a Checker.
type CheckFunc struct {
	CheckName string
	Fn        func(ctx context.Context) error
}

func (c CheckFunc) Name() string {
	return c.CheckName
}

func (c CheckFunc) Check(ctx context.Context) error {
	return c.Fn(ctx)
}
