package report

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"car-inspection-api-server/internal/models"
)

func sampleReport() *models.InspectionReport {
	link := "3f0c2a6e-link"
	return &models.InspectionReport{
		ID:               primitive.NewObjectID(),
		ReportNumber:     "INS-000007",
		Car:              primitive.NewObjectID(),
		InspectionDate:   time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
		OverallRating:    7.5,
		OverallCondition: models.ConditionGood,
		OverallAssessment: models.OverallAssessment{
			Recommendation: models.RecommendationWithRepairs,
			Strengths:      []string{"clean interior"},
			MajorIssues:    []models.MajorIssue{{Issue: "worn clutch", Severity: "major"}},
			InspectorNotes: "Överall solid car.",
		},
		Checkpoints: models.Checkpoints{
			Brakes: []models.Checkpoint{{Item: "pads", Status: models.CheckpointWarning, Notes: "4mm"}},
			Safety: []models.Checkpoint{{Item: "airbags", Status: models.CheckpointPass}},
		},
		InspectionSummary: models.InspectionSummary{TotalCheckpoints: 2, PassedCheckpoints: 1, WarningCheckpoints: 1},
		IsPublished:       true,
		ShareableLink:     &link,
		ViewCount:         12,
	}
}

func TestQRCode(t *testing.T) {
	raw, err := QRCode("https://example.com/report/abc", 200)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://x.io/report/abc", PublicURL("https://x.io/report/", "abc"))
	assert.Equal(t, "https://x.io/report/abc", PublicURL("https://x.io/report", "abc"))
}

func TestRenderPDF(t *testing.T) {
	r := sampleReport()
	car := &models.Car{Brand: "Mazda", Model: "3", Year: 2020, VIN: "JM1BPACL0L1000001", Mileage: 42000}
	groups := []models.PartGroup{{
		Category: "engine",
		Parts:    []models.CarPart{{PartName: "timing belt", Category: "engine", ConditionScore: 6, Recommendation: "monitor"}},
	}}

	var buf bytes.Buffer
	err := RenderPDF(&buf, Document{Report: r, Car: car, Parts: groups, PublicURL: PublicURL("https://x.io/report", *r.ShareableLink)})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 1000)
}

func TestRenderPDF_NoReport(t *testing.T) {
	assert.Error(t, RenderPDF(&bytes.Buffer{}, Document{}))
}

func TestWriteWorkbook(t *testing.T) {
	r := sampleReport()
	draft := models.InspectionReport{ReportNumber: "INS-000008", Car: primitive.NewObjectID()}
	cars := map[primitive.ObjectID]models.Car{r.Car: {Brand: "Mazda", Model: "3", Year: 2020, VIN: "JM1BPACL0L1000001"}}

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, []models.InspectionReport{*r, draft}, cars))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{reportsSheet}, f.GetSheetList())

	header, err := f.GetCellValue(reportsSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Report Number", header)

	number, err := f.GetCellValue(reportsSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "INS-000007", number)

	label, err := f.GetCellValue(reportsSheet, "C2")
	require.NoError(t, err)
	assert.Equal(t, "2020 Mazda 3", label)

	link, err := f.GetCellValue(reportsSheet, "N2")
	require.NoError(t, err)
	assert.Equal(t, "3f0c2a6e-link", link)

	second, err := f.GetCellValue(reportsSheet, "A3")
	require.NoError(t, err)
	assert.Equal(t, "INS-000008", second)
}
