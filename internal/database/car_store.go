// internal/database/car_store.go
package database

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"car-inspection-api-server/internal/inspection"
	"car-inspection-api-server/internal/models"
)

type CarStore struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func NewCarStore(db *mongo.Database, timeout time.Duration) *CarStore {
	return &CarStore{coll: db.Collection(carsCollection), timeout: opTimeout(timeout)}
}

var _ inspection.CarFinder = (*CarStore)(nil)

func (s *CarStore) CarExists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *CarStore) InsertCar(ctx context.Context, c *models.Car) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.InsertOne(ctx, c)
	if err != nil {
		return translate(err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		c.ID = oid
	}
	return nil
}

func (s *CarStore) FindCar(ctx context.Context, id primitive.ObjectID) (*models.Car, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var c models.Car
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// ListCars filters by a case-insensitive brand when given.
func (s *CarStore) ListCars(ctx context.Context, brand string) ([]models.Car, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	filter := bson.M{}
	if brand != "" {
		filter["brand"] = bson.M{"$regex": "^" + regexp.QuoteMeta(brand) + "$", "$options": "i"}
	}
	cursor, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("querying cars: %w", err)
	}
	defer cursor.Close(ctx)

	var cars []models.Car
	if err := cursor.All(ctx, &cars); err != nil {
		return nil, fmt.Errorf("decoding cars: %w", err)
	}
	if cars == nil {
		cars = []models.Car{}
	}
	return cars, nil
}

func (s *CarStore) UpdateCar(ctx context.Context, c *models.Car) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": c.ID}, bson.M{"$set": bson.M{
		"brand":        c.Brand,
		"model":        c.Model,
		"year":         c.Year,
		"vin":          c.VIN,
		"plateNumber":  c.PlateNumber,
		"color":        c.Color,
		"mileage":      c.Mileage,
		"fuelType":     c.FuelType,
		"transmission": c.Transmission,
		"updatedAt":    c.UpdatedAt,
	}})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return inspection.ErrNotFound
	}
	return nil
}

func (s *CarStore) DeleteCar(ctx context.Context, id primitive.ObjectID) error {
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
