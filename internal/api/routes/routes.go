// internal/api/routes/routes.go
package routes

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"car-inspection-api-server/config"
	"car-inspection-api-server/internal/api/handlers"
	"car-inspection-api-server/internal/api/middleware"
	"car-inspection-api-server/internal/auth"
	"car-inspection-api-server/internal/inspection"
	"car-inspection-api-server/internal/models"
	"car-inspection-api-server/internal/socket"
)

// Dependencies are the wired components the router needs.
type Dependencies struct {
	Config   config.Config
	Logger   *slog.Logger
	Tokens   *auth.Tokens
	Service  *inspection.Service
	Parts    *inspection.PartRegistry
	Cars     handlers.CarRepository
	Reports  handlers.ReportCounter
	Users    handlers.UserRepository
	Hub      *socket.Hub
	Uploader handlers.ImageUploader // nil disables image uploads
	// Ping checks the database for /healthz.
	Ping func(ctx context.Context) error
}

// SetupRouter builds the gin engine with every route under /api/v1.
func SetupRouter(d Dependencies) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(logger))
	router.Use(cors.New(corsConfig(d.Config.Server.CORSOrigins)))

	var notifier handlers.Notifier
	if d.Hub != nil {
		notifier = d.Hub
	}

	authHandler := &handlers.AuthHandler{Users: d.Users, Tokens: d.Tokens, Logger: logger}
	carHandler := &handlers.CarHandler{Cars: d.Cars, Reports: d.Reports, Logger: logger}
	inspectionHandler := &handlers.InspectionHandler{
		Service:  d.Service,
		Cars:     d.Cars,
		Hub:      notifier,
		Uploader: d.Uploader,
		Media:    d.Config.Media,
		Logger:   logger,
	}
	publicHandler := &handlers.PublicHandler{
		Service:       d.Service,
		Parts:         d.Parts,
		Cars:          d.Cars,
		Hub:           notifier,
		PublicBaseURL: d.Config.Server.PublicBaseURL,
		Logger:        logger,
	}
	carPartHandler := &handlers.CarPartHandler{Parts: d.Parts, Logger: logger}
	webSocketHandler := &handlers.WebSocketHandler{
		Hub:            d.Hub,
		Tokens:         d.Tokens,
		Users:          d.Users,
		AllowedOrigins: d.Config.Server.CORSOrigins,
		Logger:         logger,
	}

	router.GET("/healthz", healthz(d.Ping))

	authenticated := middleware.Authenticate(d.Tokens, d.Users)
	authors := middleware.Authorize(models.RoleAdmin, models.RoleInspector)
	adminOnly := middleware.Authorize(models.RoleAdmin)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/ws", webSocketHandler.ServeWs)

		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.GET("/me", authenticated, authHandler.Me)
		}

		// Public report access, no token.
		public := apiV1.Group("/inspections")
		{
			public.GET("/public/:shareableLink", publicHandler.GetPublicReport)
			public.GET("/public/:shareableLink/qr", publicHandler.GetQRCode)
			public.GET("/download/:shareableLink", publicHandler.DownloadReport)
		}

		admin := apiV1.Group("/admin")
		admin.Use(authenticated, adminOnly)
		{
			admin.POST("/users", authHandler.CreateUser)
		}

		cars := apiV1.Group("/cars")
		cars.Use(authenticated)
		{
			cars.GET("", carHandler.GetAllCars)
			cars.GET("/:id", carHandler.GetCarByID)
			cars.POST("", authors, carHandler.CreateCar)
			cars.PUT("/:id", authors, carHandler.UpdateCar)
			cars.DELETE("/:id", adminOnly, carHandler.DeleteCar)
		}

		inspections := apiV1.Group("/inspections")
		inspections.Use(authenticated)
		{
			inspections.POST("", authors, inspectionHandler.CreateInspection)
			inspections.GET("", authors, inspectionHandler.ListInspections)
			inspections.GET("/export", adminOnly, inspectionHandler.ExportInspections)
			inspections.GET("/:id", inspectionHandler.GetInspection)
			inspections.PUT("/:id", authors, inspectionHandler.UpdateInspection)
			inspections.PUT("/:id/publish", authors, inspectionHandler.PublishInspection)
			inspections.PUT("/:id/unpublish", authors, inspectionHandler.UnpublishInspection)
			inspections.DELETE("/:id", authors, inspectionHandler.DeleteInspection)
			inspections.POST("/:id/images", authors, inspectionHandler.UploadImage)
		}

		carParts := apiV1.Group("/car-parts")
		carParts.Use(authenticated)
		{
			carParts.GET("/inspection/:reportId", carPartHandler.GetCarPartsByInspection)
			carParts.POST("", authors, carPartHandler.CreateCarPart)
			carParts.PUT("/:id", authors, carPartHandler.UpdateCarPart)
			carParts.DELETE("/:id", authors, carPartHandler.DeleteCarPart)
		}
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func healthz(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
