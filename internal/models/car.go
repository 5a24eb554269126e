// internal/models/car.go
package models

import (
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Car struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Brand        string             `bson:"brand" json:"brand"`               // e.g. "Toyota"
	Model        string             `bson:"model" json:"model"`               // e.g. "Corolla Altis"
	Year         int                `bson:"year" json:"year"`
	VIN          string             `bson:"vin" json:"vin"`                   // unique, 17 chars
	PlateNumber  string             `bson:"plateNumber" json:"plateNumber"`
	Color        string             `bson:"color,omitempty" json:"color,omitempty"`
	Mileage      int                `bson:"mileage" json:"mileage"`           // km
	FuelType     string             `bson:"fuelType,omitempty" json:"fuelType,omitempty"`         // PETROL, DIESEL, HYBRID, ELECTRIC
	Transmission string             `bson:"transmission,omitempty" json:"transmission,omitempty"` // MANUAL, AUTOMATIC
	CreatedBy    primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Label is the short "2019 Toyota Corolla" form used in documents.
func (c Car) Label() string {
	if c.Year == 0 {
		return c.Brand + " " + c.Model
	}
	return strconv.Itoa(c.Year) + " " + c.Brand + " " + c.Model
}
