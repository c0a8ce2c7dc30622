package viewfilter

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"viewfilter/internal/store"
	"viewfilter/pkg/migrations"
)

const auditTable = "view_filter_audit_logs"

type sqlAuditRepository struct {
	db          *sql.DB
	insertQuery string
	selectQuery string
}

// NewSQLAuditRepository writes audit entries to the table created by the
// embedded migrations.
func NewSQLAuditRepository(db *sql.DB, dialect store.Dialect) AuditRepository {
	r := &sqlAuditRepository{db: db}

	switch dialect {
	case store.DialectMySQL:
		r.insertQuery = `
			INSERT INTO ` + auditTable + ` (id, view_id, action, old_value, new_value, changed_by, changed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		r.selectQuery = `
			SELECT id, view_id, action, old_value, new_value, changed_by, changed_at
			FROM ` + auditTable + `
			WHERE view_id = ?
			ORDER BY changed_at DESC
			LIMIT ?
		`
	default:
		r.insertQuery = `
			INSERT INTO ` + auditTable + ` (id, view_id, action, old_value, new_value, changed_by, changed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		r.selectQuery = `
			SELECT id, view_id, action, old_value, new_value, changed_by, changed_at
			FROM ` + auditTable + `
			WHERE view_id = $1
			ORDER BY changed_at DESC
			LIMIT $2
		`
	}

	return r
}

func (r *sqlAuditRepository) CreateAuditLog(ctx context.Context, entry AuditLog) error {
	entry = withAuditDefaults(entry)

	_, err := r.db.ExecContext(ctx, r.insertQuery,
		entry.ID, entry.ViewID, entry.Action,
		nullableJSON(entry.OldValue), nullableJSON(entry.NewValue),
		entry.ChangedBy, entry.ChangedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *sqlAuditRepository) GetAuditLogs(ctx context.Context, viewID string, limit int) ([]AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, r.selectQuery, viewID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var (
			entry    AuditLog
			oldValue sql.NullString
			newValue sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.ViewID, &entry.Action, &oldValue, &newValue, &entry.ChangedBy, &entry.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		entry.OldValue = oldValue.String
		entry.NewValue = newValue.String
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit logs: %w", err)
	}

	return logs, nil
}

func nullableJSON(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

func withAuditDefaults(entry AuditLog) AuditLog {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now().UTC()
	}
	return entry
}

type mongoAuditEntry struct {
	ID        string    `bson:"_id"`
	ViewID    string    `bson:"view_id"`
	Action    string    `bson:"action"`
	OldValue  string    `bson:"old_value,omitempty"`
	NewValue  string    `bson:"new_value,omitempty"`
	ChangedBy string    `bson:"changed_by,omitempty"`
	ChangedAt time.Time `bson:"changed_at"`
}

type mongoAuditRepository struct {
	collection *mongo.Collection
}

// NewMongoAuditRepository keeps audit entries next to a MongoDB rule store.
func NewMongoAuditRepository(db *mongo.Database) AuditRepository {
	return &mongoAuditRepository{collection: db.Collection(migrations.MongoAuditCollection)}
}

func (r *mongoAuditRepository) CreateAuditLog(ctx context.Context, entry AuditLog) error {
	entry = withAuditDefaults(entry)

	_, err := r.collection.InsertOne(ctx, mongoAuditEntry(entry))
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *mongoAuditRepository) GetAuditLogs(ctx context.Context, viewID string, limit int) ([]AuditLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "changed_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{"view_id": viewID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoAuditEntry
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to read audit logs: %w", err)
	}

	logs := make([]AuditLog, 0, len(docs))
	for _, d := range docs {
		logs = append(logs, AuditLog(d))
	}
	return logs, nil
}

type memoryAuditRepository struct {
	mu   sync.RWMutex
	logs map[string][]AuditLog
}

func NewMemoryAuditRepository() AuditRepository {
	return &memoryAuditRepository{logs: make(map[string][]AuditLog)}
}

func (r *memoryAuditRepository) CreateAuditLog(_ context.Context, entry AuditLog) error {
	entry = withAuditDefaults(entry)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.logs[entry.ViewID] = append(r.logs[entry.ViewID], entry)
	return nil
}

func (r *memoryAuditRepository) GetAuditLogs(_ context.Context, viewID string, limit int) ([]AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	logs := append([]AuditLog(nil), r.logs[viewID]...)
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].ChangedAt.After(logs[j].ChangedAt)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}
