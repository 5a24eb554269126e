// internal/api/handlers/car_handler.go
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"car-inspection-api-server/internal/api/middleware"
	"car-inspection-api-server/internal/inspection"
	"car-inspection-api-server/internal/models"
)

// CarRepository is implemented by database.CarStore and the mock store.
type CarRepository interface {
	CarReader
	InsertCar(ctx context.Context, c *models.Car) error
	ListCars(ctx context.Context, brand string) ([]models.Car, error)
	UpdateCar(ctx context.Context, c *models.Car) error
	DeleteCar(ctx context.Context, id primitive.ObjectID) error
}

// ReportCounter tells whether reports still reference a car.
type ReportCounter interface {
	CountReportsForCar(ctx context.Context, carID primitive.ObjectID) (int64, error)
}

type CarHandler struct {
	Cars    CarRepository
	Reports ReportCounter
	Logger  *slog.Logger
}

type CarPayload struct {
	Brand        string `json:"brand" binding:"required"`
	Model        string `json:"model" binding:"required"`
	Year         int    `json:"year" binding:"required,gte=1886"`
	VIN          string `json:"vin" binding:"required,len=17,alphanum"`
	PlateNumber  string `json:"plateNumber"`
	Color        string `json:"color"`
	Mileage      int    `json:"mileage" binding:"gte=0"`
	FuelType     string `json:"fuelType" binding:"omitempty,oneof=PETROL DIESEL HYBRID ELECTRIC"`
	Transmission string `json:"transmission" binding:"omitempty,oneof=MANUAL AUTOMATIC"`
}

func (p CarPayload) validYear(now time.Time) error {
	if p.Year > now.Year()+1 {
		return fmt.Errorf("year must be at most %d", now.Year()+1)
	}
	return nil
}

func (h *CarHandler) CreateCar(c *gin.Context) {
	var payload CarPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	now := time.Now().UTC()
	if err := payload.validYear(now); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	who, _ := middleware.IdentityFrom(c)
	car := payload.toCar()
	car.CreatedBy = who.UserID
	car.CreatedAt = now
	car.UpdatedAt = now

	if err := h.Cars.InsertCar(c.Request.Context(), car); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, car)
}

// GetAllCars supports ?brand= (case-insensitive exact match).
func (h *CarHandler) GetAllCars(c *gin.Context) {
	cars, err := h.Cars.ListCars(c.Request.Context(), c.Query("brand"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, cars)
}

func (h *CarHandler) GetCarByID(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	car, err := h.Cars.FindCar(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, car)
}

func (h *CarHandler) UpdateCar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var payload CarPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	now := time.Now().UTC()
	if err := payload.validYear(now); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	existing, err := h.Cars.FindCar(ctx, id)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	car := payload.toCar()
	car.ID = id
	car.CreatedBy = existing.CreatedBy
	car.CreatedAt = existing.CreatedAt
	car.UpdatedAt = now
	if err := h.Cars.UpdateCar(ctx, car); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, car)
}

// DeleteCar refuses while inspection reports still reference the car.
func (h *CarHandler) DeleteCar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	n, err := h.Reports.CountReportsForCar(ctx, id)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if n > 0 {
		respondError(c, h.Logger, fmt.Errorf("%w: car is referenced by %d inspection reports", inspection.ErrConflict, n))
		return
	}
	if err := h.Cars.DeleteCar(ctx, id); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Car deleted"})
}

func (p CarPayload) toCar() *models.Car {
	return &models.Car{
		Brand:        strings.TrimSpace(p.Brand),
		Model:        strings.TrimSpace(p.Model),
		Year:         p.Year,
		VIN:          strings.ToUpper(p.VIN),
		PlateNumber:  p.PlateNumber,
		Color:        p.Color,
		Mileage:      p.Mileage,
		FuelType:     p.FuelType,
		Transmission: p.Transmission,
	}
}
