// internal/database/report_store.go
package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"car-inspection-api-server/internal/inspection"
	"car-inspection-api-server/internal/models"
)

const reportCounterID = "inspectionReport"

// ReportStore is the MongoDB implementation of inspection.ReportStore.
type ReportStore struct {
	coll     *mongo.Collection
	counters *mongo.Collection
	timeout  time.Duration
}

func NewReportStore(db *mongo.Database, timeout time.Duration) *ReportStore {
	return &ReportStore{
		coll:     db.Collection(reportsCollection),
		counters: db.Collection(countersCollection),
		timeout:  opTimeout(timeout),
	}
}

var _ inspection.ReportStore = (*ReportStore)(nil)

// NextReportNumber draws from a single upserted counter document, so numbers
// are globally unique across inspectors.
func (s *ReportStore) NextReportNumber(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": reportCounterID},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return "", fmt.Errorf("incrementing report counter: %w", err)
	}
	return inspection.FormatReportNumber(counter.Seq), nil
}

func (s *ReportStore) InsertReport(ctx context.Context, r *models.InspectionReport) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.InsertOne(ctx, r)
	if err != nil {
		return translate(err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		r.ID = oid
	}
	return nil
}

func (s *ReportStore) FindReport(ctx context.Context, id primitive.ObjectID) (*models.InspectionReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var r models.InspectionReport
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *ReportStore) ListReports(ctx context.Context, f inspection.ReportFilter) ([]models.InspectionReport, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	filter := bson.M{}
	if f.Inspector != nil {
		filter["inspector"] = *f.Inspector
	}
	if f.Car != nil {
		filter["car"] = *f.Car
	}
	if f.Published != nil {
		filter["isPublished"] = *f.Published
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("counting reports: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(f.Skip)
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("querying reports: %w", err)
	}
	defer cursor.Close(ctx)

	var reports []models.InspectionReport
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, 0, fmt.Errorf("decoding reports: %w", err)
	}
	if reports == nil {
		reports = []models.InspectionReport{}
	}
	return reports, total, nil
}

// changeSet builds the $set document of an update from the non-nil fields.
func changeSet(ch inspection.ReportChanges) bson.M {
	set := bson.M{"updatedAt": ch.UpdatedAt}
	if ch.InspectionDate != nil {
		set["inspectionDate"] = *ch.InspectionDate
	}
	if ch.OverallRating != nil {
		set["overallRating"] = *ch.OverallRating
	}
	if ch.OverallCondition != nil {
		set["overallCondition"] = *ch.OverallCondition
	}
	if ch.OverallAssessment != nil {
		set["overallAssessment"] = *ch.OverallAssessment
	}
	if ch.Checkpoints != nil {
		set["checkpoints"] = *ch.Checkpoints
	}
	if ch.InspectionSummary != nil {
		set["inspectionSummary"] = *ch.InspectionSummary
	}
	if ch.CarImages != nil {
		set["carImages"] = *ch.CarImages
	}
	return set
}

func (s *ReportStore) UpdateReport(ctx context.Context, id primitive.ObjectID, ch inspection.ReportChanges) (*models.InspectionReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var r models.InspectionReport
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": changeSet(ch)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&r)
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

// PushReportImage appends through an update pipeline: demoting the old
// primary and appending cannot share one classic update, since both touch
// carImages. $ifNull covers documents stored with a null image list.
func (s *ReportStore) PushReportImage(ctx context.Context, id primitive.ObjectID, img models.CarImage, at time.Time) (*models.InspectionReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var existing any = bson.M{"$ifNull": bson.A{"$carImages", bson.A{}}}
	if img.IsPrimary {
		existing = bson.M{"$map": bson.M{
			"input": existing,
			"in":    bson.M{"$mergeObjects": bson.A{"$$this", bson.M{"isPrimary": false}}},
		}}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"carImages": bson.M{"$concatArrays": bson.A{existing, bson.A{bson.M{"$literal": img}}}},
			"updatedAt": at,
		}}},
	}

	var r models.InspectionReport
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&r)
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

// PublishReport first tries to mint the link on a report that has none; if
// a link already exists only the flag is flipped, so the link never rotates
// even when two publishers race.
func (s *ReportStore) PublishReport(ctx context.Context, id primitive.ObjectID, link string, at time.Time) (*models.InspectionReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	after := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var r models.InspectionReport
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "shareableLink": nil},
		bson.M{"$set": bson.M{"isPublished": true, "shareableLink": link, "publishedAt": at, "updatedAt": at}},
		after,
	).Decode(&r)
	if err == nil {
		return &r, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, translate(err)
	}

	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isPublished": true, "updatedAt": at}},
		after,
	).Decode(&r)
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *ReportStore) UnpublishReport(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.InspectionReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var r models.InspectionReport
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isPublished": false, "updatedAt": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&r)
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

// RecordView is a single conditional $inc; concurrent viewers never lose a
// count and unpublished reports never match.
func (s *ReportStore) RecordView(ctx context.Context, link string) (*models.InspectionReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var r models.InspectionReport
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"shareableLink": link, "isPublished": true},
		bson.M{"$inc": bson.M{"viewCount": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&r)
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *ReportStore) FindPublished(ctx context.Context, link string) (*models.InspectionReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var r models.InspectionReport
	if err := s.coll.FindOne(ctx, bson.M{"shareableLink": link, "isPublished": true}).Decode(&r); err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *ReportStore) DeleteReport(ctx context.Context, id primitive.ObjectID) error {
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

// CountReportsForCar is used to refuse deleting a car that is still referenced.
func (s *ReportStore) CountReportsForCar(ctx context.Context, carID primitive.ObjectID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.coll.CountDocuments(ctx, bson.M{"car": carID})
}
