package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"car-inspection-api-server/internal/models"
)

// Document is everything the PDF rendition shows.
type Document struct {
	Report    *models.InspectionReport
	Car       *models.Car // optional
	Parts     []models.PartGroup
	PublicURL string // encoded as a QR code when set
}

const (
	pageWidth   = 210.0
	margin      = 15.0
	contentWide = pageWidth - 2*margin
	lineHeight  = 6.0
)

var sectionTitles = []string{
	"Exterior", "Interior", "Engine", "Transmission", "Suspension",
	"Brakes", "Wheels", "Electrical", "Safety",
}

// RenderPDF writes an A4 PDF of doc to w.
func RenderPDF(w io.Writer, doc Document) error {
	if doc.Report == nil {
		return fmt.Errorf("rendering pdf: no report")
	}
	r := doc.Report

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle("Inspection report "+r.ReportNumber, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(contentWide, 10, tr("Vehicle Inspection Report"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(contentWide, lineHeight, tr("Report "+r.ReportNumber+"  |  "+r.InspectionDate.Format("02 Jan 2006")), "", 1, "L", false, 0, "")

	if doc.PublicURL != "" {
		if err := placeQR(pdf, doc.PublicURL); err != nil {
			return err
		}
	}
	pdf.Ln(4)

	if doc.Car != nil {
		heading(pdf, tr, "Vehicle")
		row(pdf, tr, "Car", doc.Car.Label())
		row(pdf, tr, "VIN", doc.Car.VIN)
		row(pdf, tr, "Plate", doc.Car.PlateNumber)
		row(pdf, tr, "Mileage", fmt.Sprintf("%d km", doc.Car.Mileage))
	}

	heading(pdf, tr, "Overall")
	row(pdf, tr, "Rating", fmt.Sprintf("%.1f / 10", r.OverallRating))
	row(pdf, tr, "Condition", orDash(r.OverallCondition))
	row(pdf, tr, "Recommendation", orDash(r.OverallAssessment.Recommendation))
	s := r.InspectionSummary
	row(pdf, tr, "Checkpoints", fmt.Sprintf("%d total, %d passed, %d failed, %d warnings",
		s.TotalCheckpoints, s.PassedCheckpoints, s.FailedCheckpoints, s.WarningCheckpoints))
	if a := r.OverallAssessment; a.EstimatedMarketValue > 0 || a.EstimatedRepairCost > 0 {
		row(pdf, tr, "Market value", fmt.Sprintf("%.0f", a.EstimatedMarketValue))
		row(pdf, tr, "Repair cost", fmt.Sprintf("%.0f", a.EstimatedRepairCost))
	}
	if len(r.OverallAssessment.Strengths) > 0 {
		row(pdf, tr, "Strengths", strings.Join(r.OverallAssessment.Strengths, ", "))
	}
	if len(r.OverallAssessment.Weaknesses) > 0 {
		row(pdf, tr, "Weaknesses", strings.Join(r.OverallAssessment.Weaknesses, ", "))
	}
	for _, issue := range r.OverallAssessment.MajorIssues {
		row(pdf, tr, "Major issue", strings.TrimSpace(issue.Issue+" "+bracket(issue.Severity)))
	}
	if notes := r.OverallAssessment.InspectorNotes; notes != "" {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(contentWide, lineHeight-1, tr(notes), "", "L", false)
	}

	for i, section := range r.Checkpoints.Sections() {
		if len(section) == 0 {
			continue
		}
		heading(pdf, tr, sectionTitles[i])
		for _, cp := range section {
			row(pdf, tr, cp.Item, strings.TrimSpace(statusLabel(cp.Status)+" "+cp.Notes))
		}
	}

	if len(doc.Parts) > 0 {
		heading(pdf, tr, "Parts")
		for _, g := range doc.Parts {
			for _, p := range g.Parts {
				row(pdf, tr, p.PartName, fmt.Sprintf("%s, %.1f/10 %s", g.Category, p.ConditionScore, bracket(p.Recommendation)))
			}
		}
	}

	pdf.SetY(-20)
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentWide, 4, tr(fmt.Sprintf("Viewed %d times", r.ViewCount)), "", 0, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("rendering pdf: %w", err)
	}
	return nil
}

func placeQR(pdf *fpdf.Fpdf, url string) error {
	png, err := QRCode(url, DefaultQRSize)
	if err != nil {
		return err
	}
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(png))
	pdf.ImageOptions("qr", pageWidth-margin-28, margin, 28, 28, false, opts, 0, url)
	return pdf.Error()
}

func heading(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetFillColor(230, 230, 240)
	pdf.CellFormat(contentWide, 8, tr(title), "", 1, "L", true, 0, "")
	pdf.Ln(1)
}

func row(pdf *fpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(50, lineHeight, tr(label), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(contentWide-50, lineHeight, tr(value), "", "L", false)
}

func statusLabel(status string) string {
	switch status {
	case models.CheckpointPass:
		return "PASS"
	case models.CheckpointFail:
		return "FAIL"
	case models.CheckpointWarning:
		return "WARNING"
	default:
		return "NOT CHECKED"
	}
}

func bracket(s string) string {
	if s == "" {
		return ""
	}
	return "(" + s + ")"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
