package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	pkgerrors "viewfilter/pkg/errors"
	"viewfilter/pkg/metrics"
)

// MongoRepository stores native rule sets as subdocuments and legacy
// documents as plain strings, keyed by view id.
type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database, collection string) *MongoRepository {
	return &MongoRepository{collection: db.Collection(collection)}
}

type mongoViewFilters struct {
	ViewID    string        `bson:"_id"`
	Filters   bson.RawValue `bson:"filters"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

func (r *MongoRepository) Get(ctx context.Context, viewID string) (StoredValue, error) {
	start := time.Now()

	var doc mongoViewFilters
	err := r.collection.FindOne(ctx, bson.M{"_id": viewID}).Decode(&doc)
	r.observe("find", start, err)

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, pkgerrors.ErrNotFound.WithDetail("view_id", viewID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find view filters: %w", err)
	}

	switch doc.Filters.Type {
	case bson.TypeString:
		return json.Marshal(doc.Filters.StringValue())
	case bson.TypeEmbeddedDocument:
		raw, err := bson.MarshalExtJSON(doc.Filters.Document(), false, false)
		if err != nil {
			return nil, fmt.Errorf("failed to convert view filters: %w", err)
		}
		return raw, nil
	case bson.TypeNull, 0:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected filters type %s", doc.Filters.Type)
	}
}

func (r *MongoRepository) Put(ctx context.Context, viewID string, value StoredValue) error {
	var filters interface{}
	if text, ok := isLegacyString(value); ok {
		filters = text
	} else {
		var doc bson.D
		if err := bson.UnmarshalExtJSON(value, false, &doc); err != nil {
			return fmt.Errorf("failed to convert view filters: %w", err)
		}
		filters = doc
	}

	replacement := bson.D{
		{Key: "_id", Value: viewID},
		{Key: "filters", Value: filters},
		{Key: "updated_at", Value: time.Now().UTC()},
	}

	start := time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": viewID}, replacement, options.Replace().SetUpsert(true))
	r.observe("replace", start, err)

	if err != nil {
		return fmt.Errorf("failed to save view filters: %w", err)
	}
	return nil
}

func (r *MongoRepository) observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		status = "error"
	}
	metrics.IncDatabaseQuery(serviceName, "mongodb", operation, status)
	metrics.ObserveDatabaseQueryDuration(serviceName, "mongodb", operation, time.Since(start))
}
