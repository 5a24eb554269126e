package inspection_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"car-inspection-api-server/internal/database/mock"
	"car-inspection-api-server/internal/inspection"
	"car-inspection-api-server/internal/models"
)

func TestAddPart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.draft(t)

	part, err := f.parts.AddPart(ctx, r.ID, f.inspector, inspection.PartFields{
		Category:       "brakes",
		PartName:       "front pads",
		Condition:      "Fair",
		ConditionScore: 6,
		Issues:         []models.PartIssue{{Type: "wear", Severity: "moderate", Description: "3mm left", RepairNeeded: true}},
		Recommendation: "service-soon",
	})
	require.NoError(t, err)
	assert.False(t, part.ID.IsZero())
	assert.Equal(t, r.ID, part.InspectionReport)
	assert.False(t, part.CreatedAt.IsZero())
}

func TestAddPart_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.draft(t)

	tests := []struct {
		name   string
		report primitive.ObjectID
		fields inspection.PartFields
		field  string
	}{
		{name: "missing report", report: primitive.NilObjectID, fields: inspection.PartFields{Category: "engine", PartName: "belt"}, field: "inspectionReport"},
		{name: "unknown category", report: r.ID, fields: inspection.PartFields{Category: "roof", PartName: "rack"}, field: "category"},
		{name: "missing name", report: r.ID, fields: inspection.PartFields{Category: "engine"}, field: "partName"},
		{name: "score too high", report: r.ID, fields: inspection.PartFields{Category: "engine", PartName: "belt", ConditionScore: 11}, field: "conditionScore"},
		{name: "bad condition", report: r.ID, fields: inspection.PartFields{Category: "engine", PartName: "belt", Condition: "Shiny"}, field: "condition"},
		{name: "bad recommendation", report: r.ID, fields: inspection.PartFields{Category: "engine", PartName: "belt", Recommendation: "panic"}, field: "recommendation"},
		{
			name: "bad issue severity", report: r.ID,
			fields: inspection.PartFields{Category: "engine", PartName: "belt", Issues: []models.PartIssue{{Type: "crack", Severity: "apocalyptic"}}},
			field:  "issues[0].severity",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.parts.AddPart(ctx, tt.report, f.inspector, tt.fields)
			var verr *inspection.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
	assert.Zero(t, f.store.PartCount())
}

func TestAddPart_UnknownReport(t *testing.T) {
	f := newFixture(t)
	_, err := f.parts.AddPart(context.Background(), primitive.NewObjectID(), f.inspector,
		inspection.PartFields{Category: "engine", PartName: "belt"})
	assert.ErrorIs(t, err, inspection.ErrNotFound)
}

func TestPartAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.draft(t)
	fields := inspection.PartFields{Category: "wheels", PartName: "left front tyre", ConditionScore: 4}

	_, err := f.parts.AddPart(ctx, r.ID, f.other, fields)
	require.ErrorIs(t, err, inspection.ErrForbidden)

	part, err := f.parts.AddPart(ctx, r.ID, f.admin, fields)
	require.NoError(t, err)

	score := 5.0
	_, err = f.parts.UpdatePart(ctx, part.ID, f.other, inspection.PartPatch{ConditionScore: &score})
	assert.ErrorIs(t, err, inspection.ErrForbidden)
	assert.ErrorIs(t, f.parts.RemovePart(ctx, part.ID, f.other), inspection.ErrForbidden)

	updated, err := f.parts.UpdatePart(ctx, part.ID, f.inspector, inspection.PartPatch{ConditionScore: &score})
	require.NoError(t, err)
	assert.Equal(t, 5.0, updated.ConditionScore)
	assert.Equal(t, "left front tyre", updated.PartName)
}

func TestUpdatePart_ReportImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.draft(t)
	part, err := f.parts.AddPart(ctx, r.ID, f.inspector, inspection.PartFields{Category: "safety", PartName: "airbags"})
	require.NoError(t, err)

	elsewhere := primitive.NewObjectID()
	_, err = f.parts.UpdatePart(ctx, part.ID, f.inspector, inspection.PartPatch{InspectionReport: &elsewhere})
	assert.ErrorIs(t, err, inspection.ErrValidation)

	bad := "teleport"
	_, err = f.parts.UpdatePart(ctx, part.ID, f.inspector, inspection.PartPatch{Category: &bad})
	assert.ErrorIs(t, err, inspection.ErrValidation)
}

func TestRemovePart_LeavesSiblings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.draft(t)

	first, err := f.parts.AddPart(ctx, r.ID, f.inspector, inspection.PartFields{Category: "interior", PartName: "seats"})
	require.NoError(t, err)
	_, err = f.parts.AddPart(ctx, r.ID, f.inspector, inspection.PartFields{Category: "interior", PartName: "dashboard"})
	require.NoError(t, err)

	require.NoError(t, f.parts.RemovePart(ctx, first.ID, f.inspector))
	assert.ErrorIs(t, f.parts.RemovePart(ctx, first.ID, f.inspector), inspection.ErrNotFound)

	groups, err := f.parts.ListParts(ctx, r.ID, f.inspector)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Parts, 1)
	assert.Equal(t, "dashboard", groups[0].Parts[0].PartName)

	_, err = f.svc.Get(ctx, r.ID, f.inspector)
	assert.NoError(t, err)
}

func TestListParts_Grouping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.draft(t)

	for _, p := range []inspection.PartFields{
		{Category: "engine", PartName: "oil"},
		{Category: "exterior", PartName: "bumper"},
		{Category: "engine", PartName: "belt"},
		{Category: "safety", PartName: "seatbelts"},
	} {
		_, err := f.parts.AddPart(ctx, r.ID, f.inspector, p)
		require.NoError(t, err)
	}

	groups, err := f.parts.ListParts(ctx, r.ID, f.inspector)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, "exterior", groups[0].Category)
	assert.Equal(t, "engine", groups[1].Category)
	assert.Equal(t, "safety", groups[2].Category)
	require.Len(t, groups[1].Parts, 2)
	assert.Equal(t, "oil", groups[1].Parts[0].PartName)
	assert.Equal(t, "belt", groups[1].Parts[1].PartName)
}

func TestListParts_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.draft(t)
	_, err := f.parts.AddPart(ctx, r.ID, f.inspector, inspection.PartFields{Category: "engine", PartName: "oil"})
	require.NoError(t, err)

	_, err = f.parts.ListParts(ctx, r.ID, inspection.Anonymous)
	assert.ErrorIs(t, err, inspection.ErrNotFound)

	_, err = f.svc.Publish(ctx, r.ID, f.inspector)
	require.NoError(t, err)
	groups, err := f.parts.ListParts(ctx, r.ID, inspection.Anonymous)
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}

func TestPartsOf_ResolvedReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.draft(t)
	_, err := f.parts.AddPart(ctx, r.ID, f.inspector, inspection.PartFields{Category: "engine", PartName: "oil"})
	require.NoError(t, err)
	published, err := f.svc.Publish(ctx, r.ID, f.inspector)
	require.NoError(t, err)

	// An unpublish racing the public read does not fail the page that
	// already resolved the report.
	_, err = f.svc.Unpublish(ctx, r.ID, f.inspector)
	require.NoError(t, err)
	groups, err := f.parts.PartsOf(ctx, published)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "oil", groups[0].Parts[0].PartName)
}

func TestListParts_EmptyReport(t *testing.T) {
	f := newFixture(t)
	r := f.draft(t)

	groups, err := f.parts.ListParts(context.Background(), r.ID, f.inspector)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

// deletingReports removes the report right after the part is inserted,
// simulating a concurrent report delete.
type deletingReports struct {
	*mock.Store
	target  primitive.ObjectID
	lookups int
}

func (d *deletingReports) FindReport(ctx context.Context, id primitive.ObjectID) (*models.InspectionReport, error) {
	d.lookups++
	if d.lookups == 2 {
		_ = d.Store.DeleteReport(ctx, d.target)
	}
	return d.Store.FindReport(ctx, id)
}

func TestAddPart_ReportDeletedConcurrently(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.draft(t)

	reports := &deletingReports{Store: f.store, target: r.ID}
	registry := inspection.NewPartRegistry(reports, f.store, nil)

	_, err := registry.AddPart(ctx, r.ID, f.inspector, inspection.PartFields{Category: "engine", PartName: "oil"})
	require.ErrorIs(t, err, inspection.ErrConflict)
	assert.Zero(t, f.store.PartCount(), "the orphaned part is rolled back")
}

func TestSweepOrphans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gone := f.draft(t)
	kept := f.draft(t)

	for _, id := range []primitive.ObjectID{gone.ID, gone.ID, kept.ID} {
		_, err := f.parts.AddPart(ctx, id, f.inspector, inspection.PartFields{Category: "engine", PartName: "oil"})
		require.NoError(t, err)
	}
	// drop the report without the cascade
	require.NoError(t, f.store.DeleteReport(ctx, gone.ID))

	removed, err := f.parts.SweepOrphans(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)
	assert.Equal(t, 1, f.store.PartCount())

	removed, err = f.parts.SweepOrphans(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestSweepOrphans_StoreError(t *testing.T) {
	f := newFixture(t)
	f.store.Err = errors.New("connection reset")

	_, err := f.parts.SweepOrphans(context.Background())
	assert.Error(t, err)
}
