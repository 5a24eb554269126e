// internal/database/part_store.go
package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"car-inspection-api-server/internal/inspection"
	"car-inspection-api-server/internal/models"
)

// PartStore is the MongoDB implementation of inspection.PartStore.
type PartStore struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func NewPartStore(db *mongo.Database, timeout time.Duration) *PartStore {
	return &PartStore{coll: db.Collection(partsCollection), timeout: opTimeout(timeout)}
}

var _ inspection.PartStore = (*PartStore)(nil)

func (s *PartStore) InsertPart(ctx context.Context, p *models.CarPart) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.InsertOne(ctx, p)
	if err != nil {
		return translate(err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return nil
}

func (s *PartStore) FindPart(ctx context.Context, id primitive.ObjectID) (*models.CarPart, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var p models.CarPart
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *PartStore) SavePart(ctx context.Context, p *models.CarPart) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": bson.M{
		"category":       p.Category,
		"partName":       p.PartName,
		"condition":      p.Condition,
		"conditionScore": p.ConditionScore,
		"issues":         p.Issues,
		"images":         p.Images,
		"recommendation": p.Recommendation,
		"notes":          p.Notes,
		"updatedAt":      p.UpdatedAt,
	}})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return inspection.ErrNotFound
	}
	return nil
}

func (s *PartStore) DeletePart(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return inspection.ErrNotFound
	}
	return nil
}

func (s *PartStore) ListParts(ctx context.Context, reportID primitive.ObjectID) ([]models.CarPart, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// ObjectIDs grow monotonically per process, so _id breaks createdAt ties
	// in insertion order.
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.coll.Find(ctx, bson.M{"inspectionReport": reportID}, opts)
	if err != nil {
		return nil, fmt.Errorf("querying car parts: %w", err)
	}
	defer cursor.Close(ctx)

	var parts []models.CarPart
	if err := cursor.All(ctx, &parts); err != nil {
		return nil, fmt.Errorf("decoding car parts: %w", err)
	}
	return parts, nil
}

func (s *PartStore) DeletePartsByReport(ctx context.Context, reportID primitive.ObjectID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.DeleteMany(ctx, bson.M{"inspectionReport": reportID})
	if err != nil {
		return 0, translate(err)
	}
	return res.DeletedCount, nil
}

func (s *PartStore) PartReportIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	values, err := s.coll.Distinct(ctx, "inspectionReport", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("listing distinct report ids: %w", err)
	}
	ids := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		if oid, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, oid)
		}
	}
	return ids, nil
}
