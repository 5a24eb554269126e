// internal/models/inspection_report.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Overall vehicle condition recorded on a report.
const (
	ConditionExcellent = "Excellent"
	ConditionVeryGood  = "Very Good"
	ConditionGood      = "Good"
	ConditionFair      = "Fair"
	ConditionPoor      = "Poor"
)

// Buyer-facing recommendation in the overall assessment.
const (
	RecommendationHighly      = "Highly Recommended"
	RecommendationRecommended = "Recommended"
	RecommendationWithRepairs = "Recommended with Repairs"
	RecommendationNot         = "Not Recommended"
)

// Checkpoint statuses. NotChecked only counts toward the total.
const (
	CheckpointPass       = "pass"
	CheckpointFail       = "fail"
	CheckpointWarning    = "warning"
	CheckpointNotChecked = "not_checked"
)

type MajorIssue struct {
	Category      string  `bson:"category" json:"category" validate:"omitempty,part_category"`
	Issue         string  `bson:"issue" json:"issue" validate:"required"`
	Severity      string  `bson:"severity,omitempty" json:"severity,omitempty" validate:"omitempty,severity"`
	RepairUrgency string  `bson:"repairUrgency,omitempty" json:"repairUrgency,omitempty" validate:"omitempty,repair_urgency"`
	EstimatedCost float64 `bson:"estimatedCost" json:"estimatedCost" validate:"gte=0"`
}

type OverallAssessment struct {
	Recommendation       string       `bson:"recommendation,omitempty" json:"recommendation,omitempty" validate:"omitempty,recommendation"`
	EstimatedMarketValue float64      `bson:"estimatedMarketValue" json:"estimatedMarketValue" validate:"gte=0"`
	EstimatedRepairCost  float64      `bson:"estimatedRepairCost" json:"estimatedRepairCost" validate:"gte=0"`
	Strengths            []string     `bson:"strengths" json:"strengths"`
	Weaknesses           []string     `bson:"weaknesses" json:"weaknesses"`
	MajorIssues          []MajorIssue `bson:"majorIssues" json:"majorIssues" validate:"dive"`
	InspectorNotes       string       `bson:"inspectorNotes" json:"inspectorNotes"`
}

// Checkpoint is one inspected attribute, e.g. "front bumper condition".
type Checkpoint struct {
	Item   string `bson:"item" json:"item" validate:"required"`
	Status string `bson:"status" json:"status" validate:"checkpoint_status"`
	Notes  string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Checkpoints holds one optional section per part category.
type Checkpoints struct {
	Exterior     []Checkpoint `bson:"exterior,omitempty" json:"exterior,omitempty" validate:"dive"`
	Interior     []Checkpoint `bson:"interior,omitempty" json:"interior,omitempty" validate:"dive"`
	Engine       []Checkpoint `bson:"engine,omitempty" json:"engine,omitempty" validate:"dive"`
	Transmission []Checkpoint `bson:"transmission,omitempty" json:"transmission,omitempty" validate:"dive"`
	Suspension   []Checkpoint `bson:"suspension,omitempty" json:"suspension,omitempty" validate:"dive"`
	Brakes       []Checkpoint `bson:"brakes,omitempty" json:"brakes,omitempty" validate:"dive"`
	Wheels       []Checkpoint `bson:"wheels,omitempty" json:"wheels,omitempty" validate:"dive"`
	Electrical   []Checkpoint `bson:"electrical,omitempty" json:"electrical,omitempty" validate:"dive"`
	Safety       []Checkpoint `bson:"safety,omitempty" json:"safety,omitempty" validate:"dive"`
}

// Sections returns the checkpoint sections in category order.
func (c Checkpoints) Sections() [][]Checkpoint {
	return [][]Checkpoint{
		c.Exterior, c.Interior, c.Engine, c.Transmission, c.Suspension,
		c.Brakes, c.Wheels, c.Electrical, c.Safety,
	}
}

type InspectionSummary struct {
	TotalCheckpoints   int `bson:"totalCheckpoints" json:"totalCheckpoints"`
	PassedCheckpoints  int `bson:"passedCheckpoints" json:"passedCheckpoints"`
	FailedCheckpoints  int `bson:"failedCheckpoints" json:"failedCheckpoints"`
	WarningCheckpoints int `bson:"warningCheckpoints" json:"warningCheckpoints"`
}

type CarImage struct {
	URL       string `bson:"url" json:"url" validate:"required"`
	Category  string `bson:"category" json:"category"`
	IsPrimary bool   `bson:"isPrimary" json:"isPrimary"`
}

type InspectionReport struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ReportNumber      string             `bson:"reportNumber" json:"reportNumber"`
	Car               primitive.ObjectID `bson:"car" json:"car"`
	Inspector         primitive.ObjectID `bson:"inspector" json:"inspector"`
	InspectionDate    time.Time          `bson:"inspectionDate" json:"inspectionDate"`
	OverallRating     float64            `bson:"overallRating" json:"overallRating" validate:"gte=0,lte=10"`
	OverallCondition  string             `bson:"overallCondition,omitempty" json:"overallCondition,omitempty" validate:"omitempty,overall_condition"`
	OverallAssessment OverallAssessment  `bson:"overallAssessment" json:"overallAssessment"`
	Checkpoints       Checkpoints        `bson:"checkpoints" json:"checkpoints"`
	CarImages         []CarImage         `bson:"carImages" json:"carImages" validate:"dive"`
	IsPublished       bool               `bson:"isPublished" json:"isPublished"`
	ShareableLink     *string            `bson:"shareableLink" json:"shareableLink"`
	PublishedAt       *time.Time         `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	ViewCount         int64              `bson:"viewCount" json:"viewCount"`
	InspectionSummary InspectionSummary  `bson:"inspectionSummary" json:"inspectionSummary"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// HasBeenPublished reports whether a shareable link was ever minted.
func (r *InspectionReport) HasBeenPublished() bool {
	return r.ShareableLink != nil && *r.ShareableLink != ""
}
