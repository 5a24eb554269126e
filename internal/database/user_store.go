// internal/database/user_store.go
package database

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"car-inspection-api-server/internal/models"
)

type UserStore struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func NewUserStore(db *mongo.Database, timeout time.Duration) *UserStore {
	return &UserStore{coll: db.Collection(usersCollection), timeout: opTimeout(timeout)}
}

func (s *UserStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var u models.User
	if err := s.coll.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *UserStore) FindUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var u models.User
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// InsertUser stores u with a lower-cased email; a taken email is ErrConflict.
func (s *UserStore) InsertUser(ctx context.Context, u *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	u.Email = strings.ToLower(u.Email)
	res, err := s.coll.InsertOne(ctx, u)
	if err != nil {
		return translate(err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}
