package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"car-inspection-api-server/internal/models"
)

const reportsSheet = "Reports"

var workbookHeaders = []string{
	"Report Number", "Inspection Date", "Car", "VIN", "Rating", "Condition",
	"Recommendation", "Total", "Passed", "Failed", "Warnings",
	"Published", "Views", "Shareable Link",
}

// WriteWorkbook writes one row per report to an XLSX workbook. cars is
// used to label rows and may miss entries.
func WriteWorkbook(w io.Writer, reports []models.InspectionReport, cars map[primitive.ObjectID]models.Car) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(reportsSheet); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	if f.GetSheetName(0) != reportsSheet {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("removing default sheet: %w", err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.SetSheetRow(reportsSheet, "A1", &workbookHeaders); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err == nil {
		_ = f.SetRowStyle(reportsSheet, 1, 1, headerStyle)
	}

	for i, r := range reports {
		car := cars[r.Car]
		link := ""
		if r.ShareableLink != nil {
			link = *r.ShareableLink
		}
		s := r.InspectionSummary
		values := []any{
			r.ReportNumber,
			r.InspectionDate.Format("2006-01-02"),
			car.Label(),
			car.VIN,
			r.OverallRating,
			r.OverallCondition,
			r.OverallAssessment.Recommendation,
			s.TotalCheckpoints,
			s.PassedCheckpoints,
			s.FailedCheckpoints,
			s.WarningCheckpoints,
			r.IsPublished,
			r.ViewCount,
			link,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(reportsSheet, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	last, _ := excelize.ColumnNumberToName(len(workbookHeaders))
	_ = f.SetColWidth(reportsSheet, "A", last, 16)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
