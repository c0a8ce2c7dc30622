package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAuditCollection mirrors the SQL audit table.
const MongoAuditCollection = "view_filter_audit_logs"

// EnsureMongoCollections prepares the view filters collection, keyed by view
// id through _id, and the audit collection read newest first per view.
func EnsureMongoCollections(ctx context.Context, db *mongo.Database, filtersCollection string) error {
	plan := map[string][]mongo.IndexModel{
		filtersCollection: {{
			Keys:    bson.D{{Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("idx_" + filtersCollection + "_updated_at"),
		}},
		MongoAuditCollection: {{
			Keys:    bson.D{{Key: "view_id", Value: 1}, {Key: "changed_at", Value: -1}},
			Options: options.Index().SetName("idx_" + MongoAuditCollection + "_view_changed"),
		}},
	}

	for collection, indexes := range plan {
		_, err := db.Collection(collection).Indexes().CreateMany(ctx, indexes)
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
	}
	return nil
}
