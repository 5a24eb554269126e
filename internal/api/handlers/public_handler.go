package handlers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"car-inspection-api-server/internal/inspection"
	"car-inspection-api-server/internal/models"
	"car-inspection-api-server/internal/report"
	"car-inspection-api-server/internal/socket"
)

// PublicHandler serves published reports to anonymous visitors.
type PublicHandler struct {
	Service       *inspection.Service
	Parts         *inspection.PartRegistry
	Cars          CarReader
	Hub           Notifier // optional
	PublicBaseURL string
	Logger        *slog.Logger
}

// GetPublicReport is the only route that counts a view. Everything shown
// next to the report is loaded first, so a failed request never counts.
func (h *PublicHandler) GetPublicReport(c *gin.Context) {
	ctx := c.Request.Context()
	link := c.Param("shareableLink")
	published, err := h.Service.GetPublished(ctx, link)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	car, groups, err := h.extras(ctx, published)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	r, err := h.Service.GetByShareableLink(ctx, link)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	if h.Hub != nil {
		h.Hub.Notify(r.Inspector.Hex(), socket.Event{
			Type:         socket.EventReportViewed,
			ReportID:     r.ID.Hex(),
			ReportNumber: r.ReportNumber,
			ViewCount:    r.ViewCount,
		})
	}
	c.JSON(http.StatusOK, gin.H{"report": r, "car": car, "carParts": groups})
}

// GetQRCode renders the public URL as PNG. ?size= sets the edge in pixels.
func (h *PublicHandler) GetQRCode(c *gin.Context) {
	link := c.Param("shareableLink")
	if _, err := h.Service.GetPublished(c.Request.Context(), link); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	size := report.DefaultQRSize
	if v := c.Query("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 64 || n > 1024 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "size must be between 64 and 1024"})
			return
		}
		size = n
	}
	png, err := report.QRCode(report.PublicURL(h.PublicBaseURL, link), size)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", png)
}

// DownloadReport streams the PDF rendition of a published report.
func (h *PublicHandler) DownloadReport(c *gin.Context) {
	ctx := c.Request.Context()
	link := c.Param("shareableLink")
	r, err := h.Service.GetPublished(ctx, link)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	car, groups, err := h.extras(ctx, r)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	var buf bytes.Buffer
	doc := report.Document{Report: r, Car: car, Parts: groups, PublicURL: report.PublicURL(h.PublicBaseURL, link)}
	if err := report.RenderPDF(&buf, doc); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+r.ReportNumber+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// extras loads the car and the grouped parts shown next to a public report.
// A deleted car is shown as absent rather than failing the page.
func (h *PublicHandler) extras(ctx context.Context, r *models.InspectionReport) (*models.Car, []models.PartGroup, error) {
	var car *models.Car
	if h.Cars != nil {
		found, err := h.Cars.FindCar(ctx, r.Car)
		switch {
		case err == nil:
			car = found
		case !errors.Is(err, inspection.ErrNotFound):
			return nil, nil, err
		}
	}
	groups, err := h.Parts.PartsOf(ctx, r)
	if err != nil {
		return nil, nil, err
	}
	return car, groups, nil
}
