// internal/api/handlers/auth_handler.go
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"car-inspection-api-server/internal/api/middleware"
	"car-inspection-api-server/internal/auth"
	"car-inspection-api-server/internal/inspection"
	"car-inspection-api-server/internal/models"
)

// UserRepository is implemented by database.UserStore and the mock store.
type UserRepository interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	InsertUser(ctx context.Context, u *models.User) error
}

type AuthHandler struct {
	Users  UserRepository
	Tokens *auth.Tokens
	Logger *slog.Logger
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,oneof=admin inspector user"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.Users.FindUserByEmail(c.Request.Context(), req.Email)
	if errors.Is(err, inspection.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	} else if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if !auth.CheckPasswordHash(req.Password, user.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if user.Status == models.StatusDisabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
		return
	}

	token, err := h.Tokens.Generate(user)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *AuthHandler) Me(c *gin.Context) {
	who, _ := middleware.IdentityFrom(c)
	user, err := h.Users.FindUser(c.Request.Context(), who.UserID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// CreateUser is the admin-only account creation endpoint.
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	user := &models.User{
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Name:      req.Name,
		Password:  hashed,
		Role:      req.Role,
		Status:    models.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Users.InsertUser(c.Request.Context(), user); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}
