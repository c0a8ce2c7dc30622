package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	pkgerrors "viewfilter/pkg/errors"
	"viewfilter/pkg/metrics"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

const serviceName = "viewfilter"

// SQLRepository keeps one row per view in a table with a JSON column.
// The table name comes from validated configuration.
type SQLRepository struct {
	db       *sql.DB
	dialect  Dialect
	getQuery string
	putQuery string
}

func NewSQLRepository(db *sql.DB, dialect Dialect, table string) *SQLRepository {
	r := &SQLRepository{db: db, dialect: dialect}

	switch dialect {
	case DialectMySQL:
		r.getQuery = fmt.Sprintf(`SELECT filters FROM %s WHERE view_id = ?`, table)
		r.putQuery = fmt.Sprintf(`
			INSERT INTO %s (view_id, filters, updated_at)
			VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE filters = VALUES(filters), updated_at = VALUES(updated_at)
		`, table)
	default:
		r.dialect = DialectPostgres
		r.getQuery = fmt.Sprintf(`SELECT filters FROM %s WHERE view_id = $1`, table)
		r.putQuery = fmt.Sprintf(`
			INSERT INTO %s (view_id, filters, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (view_id) DO UPDATE SET filters = EXCLUDED.filters, updated_at = EXCLUDED.updated_at
		`, table)
	}

	return r
}

func (r *SQLRepository) Get(ctx context.Context, viewID string) (StoredValue, error) {
	start := time.Now()

	var raw []byte
	err := r.db.QueryRowContext(ctx, r.getQuery, viewID).Scan(&raw)
	r.observe("select", start, err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithDetail("view_id", viewID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query view filters: %w", err)
	}

	return raw, nil
}

func (r *SQLRepository) Put(ctx context.Context, viewID string, value StoredValue) error {
	start := time.Now()

	_, err := r.db.ExecContext(ctx, r.putQuery, viewID, string(value), time.Now().UTC())
	r.observe("upsert", start, err)

	if err != nil {
		return fmt.Errorf("failed to save view filters: %w", err)
	}
	return nil
}

func (r *SQLRepository) observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		status = "error"
	}
	metrics.IncDatabaseQuery(serviceName, string(r.dialect), operation, status)
	metrics.ObserveDatabaseQueryDuration(serviceName, string(r.dialect), operation, time.Since(start))
}
