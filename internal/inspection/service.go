// Package inspection owns the inspection report lifecycle: drafting,
// publishing behind a shareable link, public view accounting, and the car
// part records attached to a report.
package inspection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"car-inspection-api-server/internal/models"
)

// ReportFields are the authored fields accepted on creation.
type ReportFields struct {
	InspectionDate    *time.Time
	OverallRating     float64
	OverallCondition  string
	OverallAssessment models.OverallAssessment
	Checkpoints       models.Checkpoints
	CarImages         []models.CarImage
}

// ReportPatch is a partial update. Nil fields are left as they are. Car,
// Inspector and ReportNumber are immutable and only accepted when unchanged.
type ReportPatch struct {
	Car               *primitive.ObjectID
	Inspector         *primitive.ObjectID
	ReportNumber      *string
	InspectionDate    *time.Time
	OverallRating     *float64
	OverallCondition  *string
	OverallAssessment *models.OverallAssessment
	Checkpoints       *models.Checkpoints
	CarImages         *[]models.CarImage
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLinkGenerator replaces the shareable token generator.
func WithLinkGenerator(gen func() string) Option {
	return func(s *Service) { s.newLink = gen }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// Service is the inspection report lifecycle manager.
type Service struct {
	reports ReportStore
	parts   PartStore
	cars    CarFinder
	now     func() time.Time
	newLink func() string
	logger  *slog.Logger
}

func NewService(reports ReportStore, parts PartStore, cars CarFinder, opts ...Option) *Service {
	s := &Service{
		reports: reports,
		parts:   parts,
		cars:    cars,
		now:     time.Now,
		newLink: uuid.NewString,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new unpublished report authored by who.
func (s *Service) Create(ctx context.Context, who Identity, car primitive.ObjectID, f ReportFields) (*models.InspectionReport, error) {
	if car.IsZero() {
		return nil, invalid("car", "is required")
	}
	if !who.IsAuthenticated() {
		return nil, invalid("inspector", "is required")
	}
	if !who.CanAuthor() {
		return nil, forbidden("role may not create inspection reports")
	}

	now := s.now().UTC()
	r := &models.InspectionReport{
		ID:                primitive.NewObjectID(),
		Car:               car,
		Inspector:         who.UserID,
		InspectionDate:    now,
		OverallRating:     f.OverallRating,
		OverallCondition:  f.OverallCondition,
		OverallAssessment: f.OverallAssessment,
		Checkpoints:       f.Checkpoints,
		CarImages:         f.CarImages,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if f.InspectionDate != nil && !f.InspectionDate.IsZero() {
		r.InspectionDate = f.InspectionDate.UTC()
	}
	if r.CarImages == nil {
		r.CarImages = []models.CarImage{}
	}
	normalizeImages(r.CarImages)
	if err := validateStruct(r); err != nil {
		return nil, err
	}

	exists, err := s.cars.CarExists(ctx, car)
	if err != nil {
		return nil, fmt.Errorf("checking car: %w", err)
	}
	if !exists {
		return nil, invalid("car", "does not reference an existing car")
	}

	number, err := s.reports.NextReportNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("assigning report number: %w", err)
	}
	r.ReportNumber = number
	r.InspectionSummary = Summarize(r.Checkpoints)

	if err := s.reports.InsertReport(ctx, r); err != nil {
		return nil, fmt.Errorf("inserting report: %w", err)
	}
	s.logger.InfoContext(ctx, "inspection report created",
		"report_id", r.ID.Hex(), "report_number", r.ReportNumber, "inspector", who.UserID.Hex())
	return r, nil
}

// Get returns a report readable by who. Unreadable drafts look missing.
func (s *Service) Get(ctx context.Context, id primitive.ObjectID, who Identity) (*models.InspectionReport, error) {
	r, err := s.reports.FindReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canRead(r, who) {
		return nil, ErrNotFound
	}
	return r, nil
}

// List returns reports visible to who: everything for admins, own reports
// for inspectors.
func (s *Service) List(ctx context.Context, who Identity, f ReportFilter) ([]models.InspectionReport, int64, error) {
	if !who.CanAuthor() {
		return nil, 0, forbidden("role may not list inspection reports")
	}
	if !who.IsAdmin() {
		uid := who.UserID
		f.Inspector = &uid
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Skip < 0 {
		f.Skip = 0
	}
	return s.reports.ListReports(ctx, f)
}

// Update applies patch to a report owned by who (or any report for admins).
func (s *Service) Update(ctx context.Context, id primitive.ObjectID, who Identity, patch ReportPatch) (*models.InspectionReport, error) {
	r, err := s.reports.FindReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canEdit(r, who); err != nil {
		return nil, err
	}

	if patch.Car != nil && *patch.Car != r.Car {
		return nil, invalid("car", "is immutable")
	}
	if patch.Inspector != nil && *patch.Inspector != r.Inspector {
		return nil, invalid("inspector", "is immutable")
	}
	if patch.ReportNumber != nil && *patch.ReportNumber != r.ReportNumber {
		return nil, invalid("reportNumber", "is immutable")
	}

	// r is validated as a whole, but only the patched fields are written.
	ch := ReportChanges{UpdatedAt: s.now().UTC()}
	if patch.InspectionDate != nil && !patch.InspectionDate.IsZero() {
		r.InspectionDate = patch.InspectionDate.UTC()
		ch.InspectionDate = &r.InspectionDate
	}
	if patch.OverallRating != nil {
		r.OverallRating = *patch.OverallRating
		ch.OverallRating = &r.OverallRating
	}
	if patch.OverallCondition != nil {
		r.OverallCondition = *patch.OverallCondition
		ch.OverallCondition = &r.OverallCondition
	}
	if patch.OverallAssessment != nil {
		r.OverallAssessment = *patch.OverallAssessment
		ch.OverallAssessment = &r.OverallAssessment
	}
	if patch.Checkpoints != nil {
		r.Checkpoints = *patch.Checkpoints
		r.InspectionSummary = Summarize(r.Checkpoints)
		ch.Checkpoints = &r.Checkpoints
		ch.InspectionSummary = &r.InspectionSummary
	}
	if patch.CarImages != nil {
		r.CarImages = *patch.CarImages
		if r.CarImages == nil {
			r.CarImages = []models.CarImage{}
		}
		normalizeImages(r.CarImages)
		ch.CarImages = &r.CarImages
	}
	if err := validateStruct(r); err != nil {
		return nil, err
	}

	out, err := s.reports.UpdateReport(ctx, id, ch)
	if err != nil {
		return nil, fmt.Errorf("saving report: %w", err)
	}
	return out, nil
}

// CheckEdit reports whether who may modify report id without changing it.
func (s *Service) CheckEdit(ctx context.Context, id primitive.ObjectID, who Identity) error {
	r, err := s.reports.FindReport(ctx, id)
	if err != nil {
		return err
	}
	return canEdit(r, who)
}

// AddImage appends a car image. A new primary image demotes the old one.
func (s *Service) AddImage(ctx context.Context, id primitive.ObjectID, who Identity, img models.CarImage) (*models.InspectionReport, error) {
	if img.URL == "" {
		return nil, invalid("url", "is required")
	}
	r, err := s.reports.FindReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canEdit(r, who); err != nil {
		return nil, err
	}
	out, err := s.reports.PushReportImage(ctx, id, img, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("saving report image: %w", err)
	}
	return out, nil
}

// Publish makes the report publicly readable. The first publish mints the
// shareable link; later calls keep it.
func (s *Service) Publish(ctx context.Context, id primitive.ObjectID, who Identity) (*models.InspectionReport, error) {
	r, err := s.reports.FindReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canEdit(r, who); err != nil {
		return nil, err
	}
	out, err := s.reports.PublishReport(ctx, id, s.newLink(), s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "inspection report published", "report_id", id.Hex(), "first_publish", !r.HasBeenPublished())
	return out, nil
}

// Unpublish hides the report from the public path. The link is retained so
// a later Publish restores the same URL.
func (s *Service) Unpublish(ctx context.Context, id primitive.ObjectID, who Identity) (*models.InspectionReport, error) {
	r, err := s.reports.FindReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canEdit(r, who); err != nil {
		return nil, err
	}
	out, err := s.reports.UnpublishReport(ctx, id, s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "inspection report unpublished", "report_id", id.Hex())
	return out, nil
}

// GetByShareableLink is the public read path and the only one that counts a
// view. Unpublished reports are indistinguishable from unknown links.
func (s *Service) GetByShareableLink(ctx context.Context, link string) (*models.InspectionReport, error) {
	if link == "" {
		return nil, ErrNotFound
	}
	return s.reports.RecordView(ctx, link)
}

// GetPublished resolves a link like GetByShareableLink without counting a
// view. Used by the document renderers.
func (s *Service) GetPublished(ctx context.Context, link string) (*models.InspectionReport, error) {
	if link == "" {
		return nil, ErrNotFound
	}
	return s.reports.FindPublished(ctx, link)
}

// Delete removes the report and every part attached to it.
func (s *Service) Delete(ctx context.Context, id primitive.ObjectID, who Identity) error {
	r, err := s.reports.FindReport(ctx, id)
	if err != nil {
		return err
	}
	if err := canEdit(r, who); err != nil {
		return err
	}
	if err := s.reports.DeleteReport(ctx, id); err != nil {
		return err
	}
	n, err := s.parts.DeletePartsByReport(ctx, id)
	if err != nil {
		return fmt.Errorf("report deleted but removing its parts failed: %w", err)
	}
	s.logger.InfoContext(ctx, "inspection report deleted", "report_id", id.Hex(), "parts_removed", n)
	return nil
}

// normalizeImages keeps at most one primary image, the last one flagged.
func normalizeImages(imgs []models.CarImage) {
	primary := -1
	for i := range imgs {
		if imgs[i].IsPrimary {
			primary = i
		}
	}
	for i := range imgs {
		imgs[i].IsPrimary = i == primary
	}
}
