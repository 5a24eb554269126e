package inspection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"car-inspection-api-server/internal/models"
)

// PartFields are the authored fields of a new car part.
type PartFields struct {
	Category       string
	PartName       string
	Condition      string
	ConditionScore float64
	Issues         []models.PartIssue
	Images         []models.PartImage
	Recommendation string
	Notes          string
}

// PartPatch is a partial part update. InspectionReport is immutable.
type PartPatch struct {
	InspectionReport *primitive.ObjectID
	Category         *string
	PartName         *string
	Condition        *string
	ConditionScore   *float64
	Issues           *[]models.PartIssue
	Images           *[]models.PartImage
	Recommendation   *string
	Notes            *string
}

// PartRegistry manages the car parts of a report. Write access is derived
// from the owning report through canEdit.
type PartRegistry struct {
	reports ReportStore
	parts   PartStore
	now     func() time.Time
	logger  *slog.Logger
}

func NewPartRegistry(reports ReportStore, parts PartStore, logger *slog.Logger) *PartRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &PartRegistry{reports: reports, parts: parts, now: time.Now, logger: logger}
}

// AddPart attaches a new part to reportID.
func (p *PartRegistry) AddPart(ctx context.Context, reportID primitive.ObjectID, who Identity, f PartFields) (*models.CarPart, error) {
	if reportID.IsZero() {
		return nil, invalid("inspectionReport", "is required")
	}
	now := p.now().UTC()
	part := &models.CarPart{
		ID:               primitive.NewObjectID(),
		InspectionReport: reportID,
		Category:         f.Category,
		PartName:         f.PartName,
		Condition:        f.Condition,
		ConditionScore:   f.ConditionScore,
		Issues:           f.Issues,
		Images:           f.Images,
		Recommendation:   f.Recommendation,
		Notes:            f.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := validateStruct(part); err != nil {
		return nil, err
	}

	r, err := p.reports.FindReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if err := canEdit(r, who); err != nil {
		return nil, err
	}

	if err := p.parts.InsertPart(ctx, part); err != nil {
		return nil, fmt.Errorf("inserting car part: %w", err)
	}

	// The report may have been deleted between the lookup and the insert.
	if _, err := p.reports.FindReport(ctx, reportID); errors.Is(err, ErrNotFound) {
		if derr := p.parts.DeletePart(ctx, part.ID); derr != nil && !errors.Is(derr, ErrNotFound) {
			p.logger.ErrorContext(ctx, "failed to roll back orphaned car part", "part_id", part.ID.Hex(), "error", derr)
		}
		return nil, fmt.Errorf("%w: inspection report was deleted", ErrConflict)
	} else if err != nil {
		return nil, err
	}
	return part, nil
}

// UpdatePart applies patch under the owning report's edit rule.
func (p *PartRegistry) UpdatePart(ctx context.Context, partID primitive.ObjectID, who Identity, patch PartPatch) (*models.CarPart, error) {
	part, err := p.parts.FindPart(ctx, partID)
	if err != nil {
		return nil, err
	}
	if err := p.authorize(ctx, part.InspectionReport, who); err != nil {
		return nil, err
	}
	if patch.InspectionReport != nil && *patch.InspectionReport != part.InspectionReport {
		return nil, invalid("inspectionReport", "is immutable")
	}

	if patch.Category != nil {
		part.Category = *patch.Category
	}
	if patch.PartName != nil {
		part.PartName = *patch.PartName
	}
	if patch.Condition != nil {
		part.Condition = *patch.Condition
	}
	if patch.ConditionScore != nil {
		part.ConditionScore = *patch.ConditionScore
	}
	if patch.Issues != nil {
		part.Issues = *patch.Issues
	}
	if patch.Images != nil {
		part.Images = *patch.Images
	}
	if patch.Recommendation != nil {
		part.Recommendation = *patch.Recommendation
	}
	if patch.Notes != nil {
		part.Notes = *patch.Notes
	}
	if err := validateStruct(part); err != nil {
		return nil, err
	}

	part.UpdatedAt = p.now().UTC()
	if err := p.parts.SavePart(ctx, part); err != nil {
		return nil, fmt.Errorf("saving car part: %w", err)
	}
	return part, nil
}

// RemovePart deletes a single part. Siblings and the report are untouched.
func (p *PartRegistry) RemovePart(ctx context.Context, partID primitive.ObjectID, who Identity) error {
	part, err := p.parts.FindPart(ctx, partID)
	if err != nil {
		return err
	}
	if err := p.authorize(ctx, part.InspectionReport, who); err != nil {
		return err
	}
	return p.parts.DeletePart(ctx, partID)
}

// ListParts returns the parts of a readable report grouped by category, in
// category order and insertion order within each group. Empty categories
// are omitted.
func (p *PartRegistry) ListParts(ctx context.Context, reportID primitive.ObjectID, who Identity) ([]models.PartGroup, error) {
	r, err := p.reports.FindReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !canRead(r, who) {
		return nil, ErrNotFound
	}
	parts, err := p.parts.ListParts(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("listing car parts: %w", err)
	}
	return GroupParts(parts), nil
}

// PartsOf groups the parts of a report the caller has already resolved and
// authorized, such as one loaded through its shareable link.
func (p *PartRegistry) PartsOf(ctx context.Context, r *models.InspectionReport) ([]models.PartGroup, error) {
	parts, err := p.parts.ListParts(ctx, r.ID)
	if err != nil {
		return nil, fmt.Errorf("listing car parts: %w", err)
	}
	return GroupParts(parts), nil
}

// SweepOrphans deletes parts whose report no longer exists and returns how
// many were removed.
func (p *PartRegistry) SweepOrphans(ctx context.Context) (int64, error) {
	ids, err := p.parts.PartReportIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing part owners: %w", err)
	}
	var removed int64
	for _, id := range ids {
		_, err := p.reports.FindReport(ctx, id)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return removed, err
		}
		n, err := p.parts.DeletePartsByReport(ctx, id)
		if err != nil {
			return removed, fmt.Errorf("removing orphaned parts of %s: %w", id.Hex(), err)
		}
		removed += n
		p.logger.WarnContext(ctx, "removed orphaned car parts", "report_id", id.Hex(), "count", n)
	}
	return removed, nil
}

func (p *PartRegistry) authorize(ctx context.Context, reportID primitive.ObjectID, who Identity) error {
	r, err := p.reports.FindReport(ctx, reportID)
	if errors.Is(err, ErrNotFound) {
		// part without a report: treat like a missing part
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return canEdit(r, who)
}

// GroupParts buckets parts by category in models.PartCategories order,
// keeping the input order inside each bucket.
func GroupParts(parts []models.CarPart) []models.PartGroup {
	byCategory := make(map[string][]models.CarPart, len(models.PartCategories))
	for _, part := range parts {
		byCategory[part.Category] = append(byCategory[part.Category], part)
	}
	groups := make([]models.PartGroup, 0, len(byCategory))
	for _, c := range models.PartCategories {
		if ps, ok := byCategory[c]; ok {
			groups = append(groups, models.PartGroup{Category: c, Parts: ps})
		}
	}
	return groups
}
