// internal/database/seeder.go
package database

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"car-inspection-api-server/config"
	"car-inspection-api-server/internal/auth"
	"car-inspection-api-server/internal/models"
)

// SeedAdmin makes sure an admin account exists so the first users can be
// created through the API.
func SeedAdmin(ctx context.Context, db *mongo.Database, cfg config.SeedConfig, logger *slog.Logger) error {
	userCollection := db.Collection(usersCollection)
	email := strings.ToLower(cfg.AdminEmail)

	count, err := userCollection.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return err
	}
	if count > 0 {
		logger.Info("admin already exists, seeding skipped", "email", email)
		return nil
	}
	if cfg.AdminPassword == "" {
		logger.Warn("no admin account and SEED_ADMIN_PASSWORD is empty, seeding skipped", "email", email)
		return nil
	}

	logger.Info("admin not found, seeding", "email", email)
	hashedPassword, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	admin := models.User{
		Email:     email,
		Name:      "Administrator",
		Password:  hashedPassword,
		Role:      models.RoleAdmin,
		Status:    models.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := userCollection.InsertOne(ctx, admin); err != nil {
		return err
	}

	logger.Info("admin seeded successfully", "email", email)
	return nil
}
