package inspection

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"car-inspection-api-server/internal/models"
)

// ReportStore persists inspection reports. Implementations return
// ErrNotFound for unknown ids or links.
type ReportStore interface {
	NextReportNumber(ctx context.Context) (string, error)
	InsertReport(ctx context.Context, r *models.InspectionReport) error
	FindReport(ctx context.Context, id primitive.ObjectID) (*models.InspectionReport, error)
	ListReports(ctx context.Context, f ReportFilter) ([]models.InspectionReport, int64, error)
	// UpdateReport sets only the non-nil fields of ch in a single write and
	// returns the stored document, so concurrent edits of different fields
	// never revert each other.
	UpdateReport(ctx context.Context, id primitive.ObjectID, ch ReportChanges) (*models.InspectionReport, error)
	// PushReportImage appends img in a single write. A primary img demotes
	// the stored primary in the same write.
	PushReportImage(ctx context.Context, id primitive.ObjectID, img models.CarImage, at time.Time) (*models.InspectionReport, error)
	// PublishReport sets isPublished and assigns link only if the report has
	// no link yet.
	PublishReport(ctx context.Context, id primitive.ObjectID, link string, at time.Time) (*models.InspectionReport, error)
	UnpublishReport(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.InspectionReport, error)
	// RecordView atomically increments viewCount of the published report
	// behind link and returns the updated document.
	RecordView(ctx context.Context, link string) (*models.InspectionReport, error)
	FindPublished(ctx context.Context, link string) (*models.InspectionReport, error)
	DeleteReport(ctx context.Context, id primitive.ObjectID) error
}

// PartStore persists car parts.
type PartStore interface {
	InsertPart(ctx context.Context, p *models.CarPart) error
	FindPart(ctx context.Context, id primitive.ObjectID) (*models.CarPart, error)
	SavePart(ctx context.Context, p *models.CarPart) error
	DeletePart(ctx context.Context, id primitive.ObjectID) error
	// ListParts returns the parts of a report in insertion order.
	ListParts(ctx context.Context, reportID primitive.ObjectID) ([]models.CarPart, error)
	DeletePartsByReport(ctx context.Context, reportID primitive.ObjectID) (int64, error)
	PartReportIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

// CarFinder checks car references.
type CarFinder interface {
	CarExists(ctx context.Context, id primitive.ObjectID) (bool, error)
}

// ReportChanges are the editable fields of one update. Nil fields are left
// as stored.
type ReportChanges struct {
	InspectionDate    *time.Time
	OverallRating     *float64
	OverallCondition  *string
	OverallAssessment *models.OverallAssessment
	Checkpoints       *models.Checkpoints
	InspectionSummary *models.InspectionSummary
	CarImages         *[]models.CarImage
	UpdatedAt         time.Time
}

type ReportFilter struct {
	Inspector *primitive.ObjectID
	Car       *primitive.ObjectID
	Published *bool
	Limit     int64
	Skip      int64
}

// FormatReportNumber renders a counter value as a report number.
func FormatReportNumber(seq int64) string {
	return fmt.Sprintf("INS-%06d", seq)
}
