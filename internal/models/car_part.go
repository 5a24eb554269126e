// internal/models/car_part.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Part categories, in presentation order.
var PartCategories = []string{
	"exterior", "interior", "engine", "transmission", "suspension",
	"brakes", "wheels", "electrical", "safety",
}

var PartConditions = []string{"Excellent", "Good", "Fair", "Poor", "Damaged", "Missing"}

var PartRecommendations = []string{"no-action", "monitor", "service-soon", "repair-soon", "replace-immediately"}

type PartIssue struct {
	Type         string `bson:"type" json:"type"`
	Severity     string `bson:"severity,omitempty" json:"severity,omitempty" validate:"omitempty,severity"`
	Description  string `bson:"description" json:"description"`
	RepairNeeded bool   `bson:"repairNeeded" json:"repairNeeded"`
}

type PartImage struct {
	URL     string `bson:"url" json:"url" validate:"required"`
	Caption string `bson:"caption,omitempty" json:"caption,omitempty"`
	Angle   string `bson:"angle,omitempty" json:"angle,omitempty"`
}

type CarPart struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	InspectionReport primitive.ObjectID `bson:"inspectionReport" json:"inspectionReport"`
	Category         string             `bson:"category" json:"category" validate:"part_category"`
	PartName         string             `bson:"partName" json:"partName" validate:"required"`
	Condition        string             `bson:"condition,omitempty" json:"condition,omitempty" validate:"omitempty,part_condition"`
	ConditionScore   float64            `bson:"conditionScore" json:"conditionScore" validate:"gte=0,lte=10"`
	Issues           []PartIssue        `bson:"issues" json:"issues" validate:"dive"`
	Images           []PartImage        `bson:"images" json:"images" validate:"dive"`
	Recommendation   string             `bson:"recommendation,omitempty" json:"recommendation,omitempty" validate:"omitempty,part_recommendation"`
	Notes            string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// PartGroup is the parts of one category, in insertion order.
type PartGroup struct {
	Category string    `json:"category"`
	Parts    []CarPart `json:"parts"`
}
