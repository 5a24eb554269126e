package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"car-inspection-api-server/internal/api/middleware"
	"car-inspection-api-server/internal/inspection"
	"car-inspection-api-server/internal/models"
)

type CarPartHandler struct {
	Parts  *inspection.PartRegistry
	Logger *slog.Logger
}

type CreateCarPartPayload struct {
	InspectionReport string             `json:"inspectionReport" binding:"required"`
	Category         string             `json:"category" binding:"required"`
	PartName         string             `json:"partName" binding:"required"`
	Condition        string             `json:"condition"`
	ConditionScore   float64            `json:"conditionScore"`
	Issues           []models.PartIssue `json:"issues"`
	Images           []models.PartImage `json:"images"`
	Recommendation   string             `json:"recommendation"`
	Notes            string             `json:"notes"`
}

type UpdateCarPartPayload struct {
	InspectionReport *string             `json:"inspectionReport"`
	Category         *string             `json:"category"`
	PartName         *string             `json:"partName"`
	Condition        *string             `json:"condition"`
	ConditionScore   *float64            `json:"conditionScore"`
	Issues           *[]models.PartIssue `json:"issues"`
	Images           *[]models.PartImage `json:"images"`
	Recommendation   *string             `json:"recommendation"`
	Notes            *string             `json:"notes"`
}

func (h *CarPartHandler) CreateCarPart(c *gin.Context) {
	var payload CreateCarPartPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reportID, err := primitive.ObjectIDFromHex(payload.InspectionReport)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid inspection report id"})
		return
	}

	who, _ := middleware.IdentityFrom(c)
	part, err := h.Parts.AddPart(c.Request.Context(), reportID, who, inspection.PartFields{
		Category:       payload.Category,
		PartName:       payload.PartName,
		Condition:      payload.Condition,
		ConditionScore: payload.ConditionScore,
		Issues:         payload.Issues,
		Images:         payload.Images,
		Recommendation: payload.Recommendation,
		Notes:          payload.Notes,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, part)
}

func (h *CarPartHandler) UpdateCarPart(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var payload UpdateCarPartPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reportID, err := optionalID(payload.InspectionReport)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid inspection report id"})
		return
	}

	who, _ := middleware.IdentityFrom(c)
	part, err := h.Parts.UpdatePart(c.Request.Context(), id, who, inspection.PartPatch{
		InspectionReport: reportID,
		Category:         payload.Category,
		PartName:         payload.PartName,
		Condition:        payload.Condition,
		ConditionScore:   payload.ConditionScore,
		Issues:           payload.Issues,
		Images:           payload.Images,
		Recommendation:   payload.Recommendation,
		Notes:            payload.Notes,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, part)
}

func (h *CarPartHandler) DeleteCarPart(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	who, _ := middleware.IdentityFrom(c)
	if err := h.Parts.RemovePart(c.Request.Context(), id, who); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Car part deleted"})
}

// GetCarPartsByInspection returns the parts grouped by category.
func (h *CarPartHandler) GetCarPartsByInspection(c *gin.Context) {
	reportID, ok := paramID(c, "reportId")
	if !ok {
		return
	}
	who, _ := middleware.IdentityFrom(c)
	groups, err := h.Parts.ListParts(c.Request.Context(), reportID, who)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": groups})
}
