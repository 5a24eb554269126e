// internal/database/mongo.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"car-inspection-api-server/config"
	"car-inspection-api-server/internal/inspection"
)

const (
	reportsCollection  = "inspection_reports"
	partsCollection    = "car_parts"
	carsCollection     = "cars"
	usersCollection    = "users"
	countersCollection = "counters"
)

const defaultOpTimeout = 10 * time.Second

// Connect opens a client and verifies it with a ping.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, opTimeout(cfg.OpTimeout))
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, client.Database(cfg.DBName), nil
}

// EnsureIndexes creates the indexes the stores rely on for uniqueness and
// ordering. It is safe to call on every start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		reportsCollection: {
			{Keys: bson.D{{Key: "reportNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
			{
				Keys: bson.D{{Key: "shareableLink", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"shareableLink": bson.M{"$type": "string"}}),
			},
			{Keys: bson.D{{Key: "inspector", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "car", Value: 1}}},
		},
		partsCollection: {
			{Keys: bson.D{{Key: "inspectionReport", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		carsCollection: {
			{Keys: bson.D{{Key: "vin", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating indexes on %s: %w", name, err)
		}
	}
	return nil
}

func opTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultOpTimeout
	}
	return d
}

// translate maps driver errors onto the inspection error kinds.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return inspection.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", inspection.ErrConflict, err)
	default:
		return err
	}
}
