package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"car-inspection-api-server/internal/inspection"
	"car-inspection-api-server/internal/models"
)

func newMock(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

// toDoc converts a model into the document a server would return.
func toDoc(t *testing.T, v any) bson.D {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var d bson.D
	require.NoError(t, bson.Unmarshal(raw, &d))
	return d
}

func ns(mt *mtest.T, coll string) string {
	return mt.DB.Name() + "." + coll
}

func duplicateKey() bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"})
}

func publishedReport(link string, views int64) *models.InspectionReport {
	return &models.InspectionReport{
		ID:            primitive.NewObjectID(),
		ReportNumber:  "INS-000003",
		IsPublished:   true,
		ShareableLink: &link,
		ViewCount:     views,
	}
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(mongo.ErrNoDocuments), inspection.ErrNotFound)

	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "dup"}}}
	assert.ErrorIs(t, translate(dup), inspection.ErrConflict)

	other := errors.New("socket closed")
	assert.Equal(t, other, translate(other))
}

func TestReportStore_NextReportNumber(t *testing.T) {
	mt := newMock(t)
	mt.Run("formats the counter", func(mt *mtest.T) {
		store := NewReportStore(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: reportCounterID}, {Key: "seq", Value: int64(42)},
		}}))

		number, err := store.NextReportNumber(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, "INS-000042", number)

		ev := mt.GetStartedEvent()
		require.NotNil(mt, ev)
		assert.Equal(mt, "findAndModify", ev.CommandName)
		assert.True(mt, ev.Command.Lookup("upsert").Boolean())
		assert.Equal(mt, int32(1), ev.Command.Lookup("update", "$inc", "seq").Int32())
	})
	mt.Run("server error", func(mt *mtest.T) {
		store := NewReportStore(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad"}))
		_, err := store.NextReportNumber(context.Background())
		assert.Error(mt, err)
	})
}

func TestReportStore_InsertReport(t *testing.T) {
	mt := newMock(t)
	mt.Run("success", func(mt *mtest.T) {
		store := NewReportStore(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		r := &models.InspectionReport{ReportNumber: "INS-000001"}
		require.NoError(mt, store.InsertReport(context.Background(), r))
		assert.False(mt, r.ID.IsZero())
	})
	mt.Run("duplicate report number", func(mt *mtest.T) {
		store := NewReportStore(mt.DB, time.Second)
		mt.AddMockResponses(duplicateKey())
		err := store.InsertReport(context.Background(), &models.InspectionReport{ReportNumber: "INS-000001"})
		assert.ErrorIs(mt, err, inspection.ErrConflict)
	})
}

func TestReportStore_FindReport(t *testing.T) {
	mt := newMock(t)
	mt.Run("found", func(mt *mtest.T) {
		store := NewReportStore(mt.DB, time.Second)
		want := publishedReport("abc", 4)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, reportsCollection), mtest.FirstBatch, toDoc(mt.T, want)))

		got, err := store.FindReport(context.Background(), want.ID)
		require.NoError(mt, err)
		assert.Equal(mt, want.ID, got.ID)
		assert.Equal(mt, "abc", *got.ShareableLink)
	})
	mt.Run("missing", func(mt *mtest.T) {
		store := NewReportStore(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, reportsCollection), mtest.FirstBatch))
		_, err := store.FindReport(context.Background(), primitive.NewObjectID())
		assert.ErrorIs(mt, err, inspection.ErrNotFound)
	})
}

func TestReportStore_ListReports(t *testing.T) {
	mt := newMock(t)
	mt.Run("filters and pages", func(mt *mtest.T) {
		store := NewReportStore(mt.DB, time.Second)
		a, b := publishedReport("a", 0), publishedReport("b", 0)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(mt, reportsCollection), mtest.FirstBatch, bson.D{{Key: "n", Value: int32(7)}}),
			mtest.CreateCursorResponse(0, ns(mt, reportsCollection), mtest.FirstBatch, toDoc(mt.T, a), toDoc(mt.T, b)),
		)

		inspector := primitive.NewObjectID()
		published := true
		reports, total, err := store.ListReports(context.Background(), inspection.ReportFilter{
			Inspector: &inspector, Published: &published, Limit: 2, Skip: 4,
		})
		require.NoError(mt, err)
		assert.Equal(mt, int64(7), total)
		require.Len(mt, reports, 2)
		assert.Equal(mt, a.ID, reports[0].ID)

		count := mt.GetStartedEvent()
		require.NotNil(mt, count)
		assert.Equal(mt, "aggregate", count.CommandName)

		find := mt.GetStartedEvent()
		require.NotNil(mt, find)
		assert.Equal(mt, "find", find.CommandName)
		assert.Equal(mt, inspector, find.Command.Lookup("filter", "inspector").ObjectID())
		assert.True(mt, find.Command.Lookup("filter", "isPublished").Boolean())
		assert.Equal(mt, int64(4), find.Command.Lookup("skip").Int64())
		assert.Equal(mt, int64(2), find.Command.Lookup("limit").Int64())
	})
	mt.Run("empty result is not nil", func(mt *mtest.T) {
		store := NewReportStore(mt.DB, time.Second)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(mt, reportsCollection), mtest.FirstBatch),
			mtest.CreateCursorResponse(0, ns(mt, reportsCollection), mtest.FirstBatch),
		)
		reports, total, err := store.ListReports(context.Background(), inspection.ReportFilter{})
		require.NoError(mt, err)
		assert.Zero(mt, total)
		assert.NotNil(mt, reports)
	})
}

func TestReportStore_PublishReport(t *testing.T) {
	mt := newMock(t)
	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	mt.Run("first publish mints the link", func(mt *mtest.T) {
		store := NewReportStore(mt.DB, time.Second)
		want := publishedReport("new-link", 0)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: toDoc(mt.T, want)}))

		got, err := store.PublishReport(context.Background(), want.ID, "new-link", at)
		require.NoError(mt, err)
		assert.Equal(mt, "new-link", *got.ShareableLink)

		ev := mt.GetStartedEvent()
		require.NotNil(mt, ev)
		assert.Equal(mt, bson.TypeNull, ev.Command.Lookup("query", "shareableLink").Type)
		assert.Equal(mt, "new-link", ev.Command.Lookup("update", "$set", "shareableLink").StringValue())
		assert.Nil(mt, mt.GetStartedEvent())
	})
	mt.Run("existing link is kept", func(mt *mtest.T) {
		store := NewReportStore(mt.DB, time.Second)
		want := publishedReport("old-link", 9)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: toDoc(mt.T, want)}),
		)

		got, err := store.PublishReport(context.Background(), want.ID, "unused-link", at)
		require.NoError(mt, err)
		assert.Equal(mt, "old-link", *got.ShareableLink)
		assert.Equal(mt, int64(9), got.ViewCount)

		mt.GetStartedEvent()
		fallback := mt.GetStartedEvent()
		require.NotNil(mt, fallback)
		_, err = fallback.Command.LookupErr("update", "$set", "shareableLink")
		assert.Error(mt, err, "fallback must not touch the link")
		_, err = fallback.Command.LookupErr("update", "$set", "publishedAt")
		assert.Error(mt, err, "fallback must not move publishedAt")
	})
	mt.Run("unknown report", func(mt *mtest.T) {
		store := NewReportStore(mt.DB, time.Second)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
		)
		_, err := store.PublishReport(context.Background(), primitive.NewObjectID(), "x", at)
		assert.ErrorIs(mt, err, inspection.ErrNotFound)
	})
}

func TestReportStore_RecordView(t *testing.T) {
	mt := newMock(t)
	mt.Run("increments published reports", func(mt *mtest.T) {
		store := NewReportStore(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: toDoc(mt.T, publishedReport("lnk", 5))}))

		got, err := store.RecordView(context.Background(), "lnk")
		require.NoError(mt, err)
		assert.Equal(mt, int64(5), got.ViewCount)

		ev := mt.GetStartedEvent()
		require.NotNil(mt, ev)
		assert.Equal(mt, "lnk", ev.Command.Lookup("query", "shareableLink").StringValue())
		assert.True(mt, ev.Command.Lookup("query", "isPublished").Boolean())
		assert.Equal(mt, int32(1), ev.Command.Lookup("update", "$inc", "viewCount").Int32())
	})
	mt.Run("unpublished looks missing", func(mt *mtest.T) {
		store := NewReportStore(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))
		_, err := store.RecordView(context.Background(), "lnk")
		assert.ErrorIs(mt, err, inspection.ErrNotFound)
	})
}

func TestReportStore_DeleteReport(t *testing.T) {
	mt := newMock(t)
	mt.Run("deleted", func(mt *mtest.T) {
		store := NewReportStore(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(1)}))
		assert.NoError(mt, store.DeleteReport(context.Background(), primitive.NewObjectID()))
	})
	mt.Run("missing", func(mt *mtest.T) {
		store := NewReportStore(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}))
		assert.ErrorIs(mt, store.DeleteReport(context.Background(), primitive.NewObjectID()), inspection.ErrNotFound)
	})
}

func TestChangeSet(t *testing.T) {
	at := time.Date(2026, 10, 2, 8, 0, 0, 0, time.UTC)
	rating := 3.0
	assert.Equal(t, bson.M{"overallRating": 3.0, "updatedAt": at},
		changeSet(inspection.ReportChanges{OverallRating: &rating, UpdatedAt: at}))

	checkpoints := models.Checkpoints{Brakes: []models.Checkpoint{{Item: "pads", Status: models.CheckpointPass}}}
	summary := models.InspectionSummary{TotalCheckpoints: 1, PassedCheckpoints: 1}
	set := changeSet(inspection.ReportChanges{Checkpoints: &checkpoints, InspectionSummary: &summary, UpdatedAt: at})
	assert.Len(t, set, 3)
	assert.Contains(t, set, "checkpoints")
	assert.Contains(t, set, "inspectionSummary")
	assert.NotContains(t, set, "overallCondition")
}

func TestReportStore_UpdateReport(t *testing.T) {
	mt := newMock(t)
	at := time.Date(2026, 10, 2, 8, 0, 0, 0, time.UTC)

	mt.Run("sets only the changed fields", func(mt *mtest.T) {
		store := NewReportStore(mt.DB, time.Second)
		want := publishedReport("lnk", 3)
		want.OverallCondition = models.ConditionFair
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: toDoc(mt.T, want)}))

		cond := models.ConditionFair
		got, err := store.UpdateReport(context.Background(), want.ID, inspection.ReportChanges{OverallCondition: &cond, UpdatedAt: at})
		require.NoError(mt, err)
		assert.Equal(mt, models.ConditionFair, got.OverallCondition)
		assert.Equal(mt, int64(3), got.ViewCount)

		ev := mt.GetStartedEvent()
		require.NotNil(mt, ev)
		set := ev.Command.Lookup("update", "$set").Document()
		assert.Equal(mt, models.ConditionFair, set.Lookup("overallCondition").StringValue())
		_, err = set.LookupErr("overallRating")
		assert.Error(mt, err, "untouched fields stay out of the write")
		_, err = set.LookupErr("carImages")
		assert.Error(mt, err)
	})
	mt.Run("missing", func(mt *mtest.T) {
		store := NewReportStore(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))
		_, err := store.UpdateReport(context.Background(), primitive.NewObjectID(), inspection.ReportChanges{UpdatedAt: at})
		assert.ErrorIs(mt, err, inspection.ErrNotFound)
	})
}

func TestReportStore_PushReportImage(t *testing.T) {
	mt := newMock(t)
	at := time.Date(2026, 10, 2, 8, 0, 0, 0, time.UTC)

	mt.Run("primary demotes in the same write", func(mt *mtest.T) {
		store := NewReportStore(mt.DB, time.Second)
		want := publishedReport("lnk", 0)
		want.CarImages = []models.CarImage{{URL: "https://cdn/a.jpg"}, {URL: "https://cdn/b.jpg", IsPrimary: true}}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: toDoc(mt.T, want)}))

		got, err := store.PushReportImage(context.Background(), want.ID, models.CarImage{URL: "https://cdn/b.jpg", IsPrimary: true}, at)
		require.NoError(mt, err)
		assert.Len(mt, got.CarImages, 2)

		ev := mt.GetStartedEvent()
		require.NotNil(mt, ev)
		assert.Equal(mt, bson.TypeArray, ev.Command.Lookup("update").Type, "pipeline update")
		update := ev.Command.Lookup("update").String()
		assert.Contains(mt, update, "$concatArrays")
		assert.Contains(mt, update, "$mergeObjects")
		assert.Nil(mt, mt.GetStartedEvent(), "one round trip")
	})
	mt.Run("secondary image leaves flags alone", func(mt *mtest.T) {
		store := NewReportStore(mt.DB, time.Second)
		want := publishedReport("lnk", 0)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: toDoc(mt.T, want)}))

		_, err := store.PushReportImage(context.Background(), want.ID, models.CarImage{URL: "https://cdn/c.jpg"}, at)
		require.NoError(mt, err)
		update := mt.GetStartedEvent().Command.Lookup("update").String()
		assert.Contains(mt, update, "$ifNull")
		assert.NotContains(mt, update, "$mergeObjects")
	})
	mt.Run("missing", func(mt *mtest.T) {
		store := NewReportStore(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))
		_, err := store.PushReportImage(context.Background(), primitive.NewObjectID(), models.CarImage{URL: "x"}, at)
		assert.ErrorIs(mt, err, inspection.ErrNotFound)
	})
}

func TestPartStore(t *testing.T) {
	mt := newMock(t)
	reportID := primitive.NewObjectID()

	mt.Run("list in insertion order", func(mt *mtest.T) {
		store := NewPartStore(mt.DB, time.Second)
		first := models.CarPart{ID: primitive.NewObjectID(), InspectionReport: reportID, Category: "engine", PartName: "belt"}
		second := models.CarPart{ID: primitive.NewObjectID(), InspectionReport: reportID, Category: "brakes", PartName: "pads"}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, partsCollection), mtest.FirstBatch, toDoc(mt.T, first), toDoc(mt.T, second)))

		parts, err := store.ListParts(context.Background(), reportID)
		require.NoError(mt, err)
		require.Len(mt, parts, 2)
		assert.Equal(mt, "belt", parts[0].PartName)

		ev := mt.GetStartedEvent()
		require.NotNil(mt, ev)
		sort := ev.Command.Lookup("sort").Document()
		assert.Equal(mt, int32(1), sort.Lookup("createdAt").Int32())
		assert.Equal(mt, int32(1), sort.Lookup("_id").Int32())
	})
	mt.Run("cascade delete counts", func(mt *mtest.T) {
		store := NewPartStore(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(3)}))
		n, err := store.DeletePartsByReport(context.Background(), reportID)
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), n)
	})
	mt.Run("distinct report ids", func(mt *mtest.T) {
		store := NewPartStore(mt.DB, time.Second)
		other := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "values", Value: bson.A{reportID, other}}))
		ids, err := store.PartReportIDs(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, []primitive.ObjectID{reportID, other}, ids)
	})
	mt.Run("find missing part", func(mt *mtest.T) {
		store := NewPartStore(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, partsCollection), mtest.FirstBatch))
		_, err := store.FindPart(context.Background(), primitive.NewObjectID())
		assert.ErrorIs(mt, err, inspection.ErrNotFound)
	})
}

func TestCarAndUserStores(t *testing.T) {
	mt := newMock(t)
	mt.Run("duplicate vin", func(mt *mtest.T) {
		store := NewCarStore(mt.DB, time.Second)
		mt.AddMockResponses(duplicateKey())
		err := store.InsertCar(context.Background(), &models.Car{VIN: "JTDBR32E720123456"})
		assert.ErrorIs(mt, err, inspection.ErrConflict)
	})
	mt.Run("car exists", func(mt *mtest.T) {
		store := NewCarStore(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, carsCollection), mtest.FirstBatch, bson.D{{Key: "n", Value: int32(1)}}))
		ok, err := store.CarExists(context.Background(), primitive.NewObjectID())
		require.NoError(mt, err)
		assert.True(mt, ok)
	})
	mt.Run("brand filter is an anchored case-insensitive regex", func(mt *mtest.T) {
		store := NewCarStore(mt.DB, time.Second)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, carsCollection), mtest.FirstBatch))
		cars, err := store.ListCars(context.Background(), "Mercedes-Benz")
		require.NoError(mt, err)
		assert.Empty(mt, cars)

		ev := mt.GetStartedEvent()
		require.NotNil(mt, ev)
		assert.Equal(mt, `^Mercedes-Benz$`, ev.Command.Lookup("filter", "brand", "$regex").StringValue())
		assert.Equal(mt, "i", ev.Command.Lookup("filter", "brand", "$options").StringValue())
	})
	mt.Run("email lookup is lower-cased", func(mt *mtest.T) {
		store := NewUserStore(mt.DB, time.Second)
		u := models.User{ID: primitive.NewObjectID(), Email: "ina@example.com", Role: models.RoleInspector}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, usersCollection), mtest.FirstBatch, toDoc(mt.T, u)))

		got, err := store.FindUserByEmail(context.Background(), "Ina@Example.COM")
		require.NoError(mt, err)
		assert.Equal(mt, u.ID, got.ID)

		ev := mt.GetStartedEvent()
		require.NotNil(mt, ev)
		assert.Equal(mt, "ina@example.com", ev.Command.Lookup("filter", "email").StringValue())
	})
	mt.Run("taken email", func(mt *mtest.T) {
		store := NewUserStore(mt.DB, time.Second)
		mt.AddMockResponses(duplicateKey())
		err := store.InsertUser(context.Background(), &models.User{Email: "Ina@example.com"})
		assert.ErrorIs(mt, err, inspection.ErrConflict)
	})
}
