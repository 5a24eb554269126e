// internal/api/handlers/inspection_handler.go
package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"car-inspection-api-server/config"
	"car-inspection-api-server/internal/api/middleware"
	"car-inspection-api-server/internal/inspection"
	"car-inspection-api-server/internal/media"
	"car-inspection-api-server/internal/models"
	"car-inspection-api-server/internal/report"
	"car-inspection-api-server/internal/s3"
	"car-inspection-api-server/internal/socket"
)

// Notifier pushes live events to a user without blocking the request.
// *socket.Hub implements it.
type Notifier interface {
	Notify(userID string, ev socket.Event)
}

// ImageUploader stores an encoded image and returns its URL. *s3.Uploader
// implements it.
type ImageUploader interface {
	UploadFile(ctx context.Context, body io.Reader, objectKey, contentType string) (string, error)
}

// CarReader looks up cars for rendering.
type CarReader interface {
	FindCar(ctx context.Context, id primitive.ObjectID) (*models.Car, error)
}

type InspectionHandler struct {
	Service  *inspection.Service
	Cars     CarReader
	Hub      Notifier      // optional
	Uploader ImageUploader // optional, uploads answer 503 without it
	Media    config.MediaConfig
	Logger   *slog.Logger
}

type CreateInspectionPayload struct {
	Car               string                   `json:"car" binding:"required"`
	InspectionDate    *time.Time               `json:"inspectionDate"`
	OverallRating     float64                  `json:"overallRating"`
	OverallCondition  string                   `json:"overallCondition"`
	OverallAssessment models.OverallAssessment `json:"overallAssessment"`
	Checkpoints       models.Checkpoints       `json:"checkpoints"`
	CarImages         []models.CarImage        `json:"carImages"`
}

// UpdateInspectionPayload mirrors inspection.ReportPatch. Car, inspector and
// reportNumber are accepted only to reject attempts to change them.
type UpdateInspectionPayload struct {
	Car               *string                   `json:"car"`
	Inspector         *string                   `json:"inspector"`
	ReportNumber      *string                   `json:"reportNumber"`
	InspectionDate    *time.Time                `json:"inspectionDate"`
	OverallRating     *float64                  `json:"overallRating"`
	OverallCondition  *string                   `json:"overallCondition"`
	OverallAssessment *models.OverallAssessment `json:"overallAssessment"`
	Checkpoints       *models.Checkpoints       `json:"checkpoints"`
	CarImages         *[]models.CarImage        `json:"carImages"`
}

func (h *InspectionHandler) CreateInspection(c *gin.Context) {
	var payload CreateInspectionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	carID, err := primitive.ObjectIDFromHex(payload.Car)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid car id"})
		return
	}

	who, _ := middleware.IdentityFrom(c)
	r, err := h.Service.Create(c.Request.Context(), who, carID, inspection.ReportFields{
		InspectionDate:    payload.InspectionDate,
		OverallRating:     payload.OverallRating,
		OverallCondition:  payload.OverallCondition,
		OverallAssessment: payload.OverallAssessment,
		Checkpoints:       payload.Checkpoints,
		CarImages:         payload.CarImages,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// ListInspections supports ?car=, ?published=, ?limit= and ?skip=.
func (h *InspectionHandler) ListInspections(c *gin.Context) {
	filter, ok := parseReportFilter(c)
	if !ok {
		return
	}
	who, _ := middleware.IdentityFrom(c)
	reports, total, err := h.Service.List(c.Request.Context(), who, filter)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reports, "total": total, "limit": effectiveLimit(filter.Limit), "skip": filter.Skip})
}

func (h *InspectionHandler) GetInspection(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	who, _ := middleware.IdentityFrom(c)
	r, err := h.Service.Get(c.Request.Context(), id, who)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *InspectionHandler) UpdateInspection(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var payload UpdateInspectionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patch := inspection.ReportPatch{
		ReportNumber:      payload.ReportNumber,
		InspectionDate:    payload.InspectionDate,
		OverallRating:     payload.OverallRating,
		OverallCondition:  payload.OverallCondition,
		OverallAssessment: payload.OverallAssessment,
		Checkpoints:       payload.Checkpoints,
		CarImages:         payload.CarImages,
	}
	var err error
	if patch.Car, err = optionalID(payload.Car); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid car id"})
		return
	}
	if patch.Inspector, err = optionalID(payload.Inspector); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid inspector id"})
		return
	}

	who, _ := middleware.IdentityFrom(c)
	r, err := h.Service.Update(c.Request.Context(), id, who, patch)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *InspectionHandler) PublishInspection(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	who, _ := middleware.IdentityFrom(c)
	r, err := h.Service.Publish(c.Request.Context(), id, who)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.notify(r, socket.EventReportPublished)
	c.JSON(http.StatusOK, gin.H{"message": "Inspection report published", "shareableLink": r.ShareableLink, "report": r})
}

func (h *InspectionHandler) UnpublishInspection(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	who, _ := middleware.IdentityFrom(c)
	r, err := h.Service.Unpublish(c.Request.Context(), id, who)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.notify(r, socket.EventReportUnpublished)
	c.JSON(http.StatusOK, gin.H{"message": "Inspection report unpublished", "report": r})
}

func (h *InspectionHandler) DeleteInspection(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	who, _ := middleware.IdentityFrom(c)
	if err := h.Service.Delete(c.Request.Context(), id, who); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Inspection report deleted"})
}

// UploadImage takes a multipart "image" file plus optional "category" and
// "isPrimary" fields, re-encodes it as JPEG and attaches it to the report.
func (h *InspectionHandler) UploadImage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if h.Uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Image storage is not configured"})
		return
	}
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image file is required"})
		return
	}
	if h.Media.MaxBytes > 0 && fileHeader.Size > h.Media.MaxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image is too large"})
		return
	}
	isPrimary, _ := strconv.ParseBool(c.PostForm("isPrimary"))

	ctx := c.Request.Context()
	who, _ := middleware.IdentityFrom(c)
	// Authorize before spending time on the image.
	if err := h.Service.CheckEdit(ctx, id, who); err != nil {
		respondError(c, h.Logger, err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read image"})
		return
	}
	defer file.Close()

	jpg, err := media.PrepareJPEG(file, media.Options{MaxWidth: h.Media.MaxWidth, JPEGQuality: h.Media.JPEGQuality})
	if errors.Is(err, media.ErrNotImage) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	} else if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	key := s3.ObjectKey("inspections/"+id.Hex(), ".jpg", time.Now())
	url, err := h.Uploader.UploadFile(ctx, bytes.NewReader(jpg), key, "image/jpeg")
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	r, err := h.Service.AddImage(ctx, id, who, models.CarImage{URL: url, Category: c.PostForm("category"), IsPrimary: isPrimary})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url, "report": r})
}

// ExportInspections streams every report visible to the admin as XLSX.
func (h *InspectionHandler) ExportInspections(c *gin.Context) {
	filter, ok := parseReportFilter(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	who, _ := middleware.IdentityFrom(c)

	const page = 100
	var all []models.InspectionReport
	filter.Limit = page
	for filter.Skip = 0; ; filter.Skip += page {
		reports, total, err := h.Service.List(ctx, who, filter)
		if err != nil {
			respondError(c, h.Logger, err)
			return
		}
		all = append(all, reports...)
		if len(reports) < page || int64(len(all)) >= total {
			break
		}
	}

	cars := make(map[primitive.ObjectID]models.Car)
	for _, r := range all {
		if _, seen := cars[r.Car]; seen || h.Cars == nil {
			continue
		}
		car, err := h.Cars.FindCar(ctx, r.Car)
		if err != nil {
			if !errors.Is(err, inspection.ErrNotFound) {
				respondError(c, h.Logger, err)
				return
			}
			car = &models.Car{}
		}
		cars[r.Car] = *car
	}

	var buf bytes.Buffer
	if err := report.WriteWorkbook(&buf, all, cars); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	filename := "inspection-reports-" + time.Now().UTC().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *InspectionHandler) notify(r *models.InspectionReport, eventType string) {
	if h.Hub == nil {
		return
	}
	h.Hub.Notify(r.Inspector.Hex(), socket.Event{
		Type:         eventType,
		ReportID:     r.ID.Hex(),
		ReportNumber: r.ReportNumber,
		ViewCount:    r.ViewCount,
	})
}

func parseReportFilter(c *gin.Context) (inspection.ReportFilter, bool) {
	var f inspection.ReportFilter
	if v := c.Query("car"); v != "" {
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid car id"})
			return f, false
		}
		f.Car = &id
	}
	if v := c.Query("published"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid published flag"})
			return f, false
		}
		f.Published = &b
	}
	for name, dst := range map[string]*int64{"limit": &f.Limit, "skip": &f.Skip} {
		if v := c.Query(name); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
				return f, false
			}
			*dst = n
		}
	}
	return f, true
}

func effectiveLimit(limit int64) int64 {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}

func optionalID(hex *string) (*primitive.ObjectID, error) {
	if hex == nil {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(*hex)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
