// Package mock provides in-memory stores with the same contracts as the
// MongoDB stores, for tests.
package mock

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"car-inspection-api-server/internal/inspection"
	"car-inspection-api-server/internal/models"
)

// Store keeps every collection behind one mutex, which gives the same
// per-operation atomicity the MongoDB stores get from the server.
type Store struct {
	mu      sync.Mutex
	seq     int64
	reports []*models.InspectionReport
	parts   []*models.CarPart
	cars    map[primitive.ObjectID]*models.Car
	users   map[primitive.ObjectID]*models.User

	// Err, when set, is returned by every call.
	Err error
}

func NewStore() *Store {
	return &Store{
		cars:  make(map[primitive.ObjectID]*models.Car),
		users: make(map[primitive.ObjectID]*models.User),
	}
}

var (
	_ inspection.ReportStore = (*Store)(nil)
	_ inspection.PartStore   = (*Store)(nil)
	_ inspection.CarFinder   = (*Store)(nil)
)

// clone deep-copies through BSON so callers never share memory with the store.
func clone[T any](v *T) *T {
	raw, err := bson.Marshal(v)
	if err != nil {
		panic(err)
	}
	out := new(T)
	if err := bson.Unmarshal(raw, out); err != nil {
		panic(err)
	}
	return out
}

func (s *Store) findReport(id primitive.ObjectID) (int, *models.InspectionReport) {
	for i, r := range s.reports {
		if r.ID == id {
			return i, r
		}
	}
	return -1, nil
}

func (s *Store) findPublished(link string) *models.InspectionReport {
	for _, r := range s.reports {
		if r.IsPublished && r.ShareableLink != nil && *r.ShareableLink == link {
			return r
		}
	}
	return nil
}

func (s *Store) NextReportNumber(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	s.seq++
	return inspection.FormatReportNumber(s.seq), nil
}

func (s *Store) InsertReport(ctx context.Context, r *models.InspectionReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	for _, existing := range s.reports {
		if existing.ID == r.ID || existing.ReportNumber == r.ReportNumber {
			return inspection.ErrConflict
		}
	}
	s.reports = append(s.reports, clone(r))
	return nil
}

func (s *Store) FindReport(ctx context.Context, id primitive.ObjectID) (*models.InspectionReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	_, r := s.findReport(id)
	if r == nil {
		return nil, inspection.ErrNotFound
	}
	return clone(r), nil
}

func (s *Store) ListReports(ctx context.Context, f inspection.ReportFilter) ([]models.InspectionReport, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}
	var matched []models.InspectionReport
	// newest first
	for i := len(s.reports) - 1; i >= 0; i-- {
		r := s.reports[i]
		if f.Inspector != nil && r.Inspector != *f.Inspector {
			continue
		}
		if f.Car != nil && r.Car != *f.Car {
			continue
		}
		if f.Published != nil && r.IsPublished != *f.Published {
			continue
		}
		matched = append(matched, *clone(r))
	}
	total := int64(len(matched))
	start := min(f.Skip, total)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}
	page := matched[start:end]
	if page == nil {
		page = []models.InspectionReport{}
	}
	return page, total, nil
}

func (s *Store) UpdateReport(ctx context.Context, id primitive.ObjectID, ch inspection.ReportChanges) (*models.InspectionReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	_, r := s.findReport(id)
	if r == nil {
		return nil, inspection.ErrNotFound
	}
	if ch.InspectionDate != nil {
		r.InspectionDate = *ch.InspectionDate
	}
	if ch.OverallRating != nil {
		r.OverallRating = *ch.OverallRating
	}
	if ch.OverallCondition != nil {
		r.OverallCondition = *ch.OverallCondition
	}
	if ch.OverallAssessment != nil {
		r.OverallAssessment = *clone(ch.OverallAssessment)
	}
	if ch.Checkpoints != nil {
		r.Checkpoints = *clone(ch.Checkpoints)
	}
	if ch.InspectionSummary != nil {
		r.InspectionSummary = *ch.InspectionSummary
	}
	if ch.CarImages != nil {
		r.CarImages = append([]models.CarImage{}, *ch.CarImages...)
	}
	r.UpdatedAt = ch.UpdatedAt
	return clone(r), nil
}

func (s *Store) PushReportImage(ctx context.Context, id primitive.ObjectID, img models.CarImage, at time.Time) (*models.InspectionReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	_, r := s.findReport(id)
	if r == nil {
		return nil, inspection.ErrNotFound
	}
	if img.IsPrimary {
		for i := range r.CarImages {
			r.CarImages[i].IsPrimary = false
		}
	}
	r.CarImages = append(r.CarImages, img)
	r.UpdatedAt = at
	return clone(r), nil
}

func (s *Store) PublishReport(ctx context.Context, id primitive.ObjectID, link string, at time.Time) (*models.InspectionReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	_, r := s.findReport(id)
	if r == nil {
		return nil, inspection.ErrNotFound
	}
	if r.ShareableLink == nil {
		l := link
		r.ShareableLink = &l
		r.PublishedAt = &at
	}
	r.IsPublished = true
	r.UpdatedAt = at
	return clone(r), nil
}

func (s *Store) UnpublishReport(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.InspectionReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	_, r := s.findReport(id)
	if r == nil {
		return nil, inspection.ErrNotFound
	}
	r.IsPublished = false
	r.UpdatedAt = at
	return clone(r), nil
}

func (s *Store) RecordView(ctx context.Context, link string) (*models.InspectionReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	r := s.findPublished(link)
	if r == nil {
		return nil, inspection.ErrNotFound
	}
	r.ViewCount++
	return clone(r), nil
}

func (s *Store) FindPublished(ctx context.Context, link string) (*models.InspectionReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	r := s.findPublished(link)
	if r == nil {
		return nil, inspection.ErrNotFound
	}
	return clone(r), nil
}

func (s *Store) DeleteReport(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	i, _ := s.findReport(id)
	if i < 0 {
		return inspection.ErrNotFound
	}
	s.reports = append(s.reports[:i], s.reports[i+1:]...)
	return nil
}

func (s *Store) CountReportsForCar(ctx context.Context, carID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for _, r := range s.reports {
		if r.Car == carID {
			n++
		}
	}
	return n, nil
}

func (s *Store) InsertPart(ctx context.Context, p *models.CarPart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	s.parts = append(s.parts, clone(p))
	return nil
}

func (s *Store) findPart(id primitive.ObjectID) (int, *models.CarPart) {
	for i, p := range s.parts {
		if p.ID == id {
			return i, p
		}
	}
	return -1, nil
}

func (s *Store) FindPart(ctx context.Context, id primitive.ObjectID) (*models.CarPart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	_, p := s.findPart(id)
	if p == nil {
		return nil, inspection.ErrNotFound
	}
	return clone(p), nil
}

func (s *Store) SavePart(ctx context.Context, p *models.CarPart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	i, cur := s.findPart(p.ID)
	if cur == nil {
		return inspection.ErrNotFound
	}
	in := clone(p)
	in.InspectionReport = cur.InspectionReport
	in.CreatedAt = cur.CreatedAt
	s.parts[i] = in
	return nil
}

func (s *Store) DeletePart(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	i, _ := s.findPart(id)
	if i < 0 {
		return inspection.ErrNotFound
	}
	s.parts = append(s.parts[:i], s.parts[i+1:]...)
	return nil
}

func (s *Store) ListParts(ctx context.Context, reportID primitive.ObjectID) ([]models.CarPart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []models.CarPart
	for _, p := range s.parts {
		if p.InspectionReport == reportID {
			out = append(out, *clone(p))
		}
	}
	return out, nil
}

func (s *Store) DeletePartsByReport(ctx context.Context, reportID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	kept := s.parts[:0]
	var removed int64
	for _, p := range s.parts {
		if p.InspectionReport == reportID {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	s.parts = kept
	return removed, nil
}

func (s *Store) PartReportIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	seen := map[primitive.ObjectID]bool{}
	var ids []primitive.ObjectID
	for _, p := range s.parts {
		if !seen[p.InspectionReport] {
			seen[p.InspectionReport] = true
			ids = append(ids, p.InspectionReport)
		}
	}
	return ids, nil
}

// PartCount returns the number of stored parts across all reports.
func (s *Store) PartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.parts)
}

func (s *Store) CarExists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	_, ok := s.cars[id]
	return ok, nil
}

func (s *Store) InsertCar(ctx context.Context, c *models.Car) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, existing := range s.cars {
		if c.VIN != "" && strings.EqualFold(existing.VIN, c.VIN) {
			return inspection.ErrConflict
		}
	}
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	s.cars[c.ID] = clone(c)
	return nil
}

func (s *Store) FindCar(ctx context.Context, id primitive.ObjectID) (*models.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	c, ok := s.cars[id]
	if !ok {
		return nil, inspection.ErrNotFound
	}
	return clone(c), nil
}

func (s *Store) ListCars(ctx context.Context, brand string) ([]models.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	cars := []models.Car{}
	for _, c := range s.cars {
		if brand == "" || strings.EqualFold(c.Brand, brand) {
			cars = append(cars, *clone(c))
		}
	}
	return cars, nil
}

func (s *Store) UpdateCar(ctx context.Context, c *models.Car) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	cur, ok := s.cars[c.ID]
	if !ok {
		return inspection.ErrNotFound
	}
	in := clone(c)
	in.CreatedBy = cur.CreatedBy
	in.CreatedAt = cur.CreatedAt
	s.cars[c.ID] = in
	return nil
}

func (s *Store) DeleteCar(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.cars[id]; !ok {
		return inspection.ErrNotFound
	}
	delete(s.cars, id)
	return nil
}

func (s *Store) InsertUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	u.Email = strings.ToLower(u.Email)
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return inspection.ErrConflict
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	s.users[u.ID] = clone(u)
	return nil
}

func (s *Store) FindUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, inspection.ErrNotFound
	}
	return clone(u), nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.users {
		if u.Email == strings.ToLower(email) {
			return clone(u), nil
		}
	}
	return nil, inspection.ErrNotFound
}
