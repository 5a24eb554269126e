// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"car-inspection-api-server/config"
	"car-inspection-api-server/internal/api/handlers"
	"car-inspection-api-server/internal/api/routes"
	"car-inspection-api-server/internal/auth"
	"car-inspection-api-server/internal/database"
	"car-inspection-api-server/internal/inspection"
	"car-inspection-api-server/internal/jobs"
	"car-inspection-api-server/internal/logging"
	"car-inspection-api-server/internal/s3"
	"car-inspection-api-server/internal/socket"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration; a missing .env is fine.
	_ = godotenv.Load()
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		return err
	}

	logger := logging.Setup(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	if logging.ParseLevel(cfg.Logging.Level) > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. MongoDB
	client, db, err := database.Connect(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()
	logger.Info("connected to MongoDB", "db", cfg.Mongo.DBName)

	if err := database.EnsureIndexes(ctx, db); err != nil {
		return err
	}
	if err := database.SeedAdmin(ctx, db, cfg.Seed, logger); err != nil {
		return err
	}

	// 3. Domain services
	reports := database.NewReportStore(db, cfg.Mongo.OpTimeout)
	parts := database.NewPartStore(db, cfg.Mongo.OpTimeout)
	cars := database.NewCarStore(db, cfg.Mongo.OpTimeout)
	users := database.NewUserStore(db, cfg.Mongo.OpTimeout)

	service := inspection.NewService(reports, parts, cars, inspection.WithLogger(logger))
	registry := inspection.NewPartRegistry(reports, parts, logger)

	tokens, err := auth.NewTokens(cfg.JWT.Secret, cfg.JWT.Expiration)
	if err != nil {
		return err
	}

	// 4. Optional image storage
	var uploader handlers.ImageUploader
	if cfg.S3.Bucket != "" {
		u, err := s3.NewUploader(ctx, cfg.S3)
		if err != nil {
			return err
		}
		uploader = u
	} else {
		logger.Warn("S3 bucket not configured, image uploads are disabled")
	}

	hub := socket.NewHub(logger)

	// 5. Background jobs
	scheduler := jobs.NewScheduler(logger, cfg.Mongo.OpTimeout*6)
	if err := scheduler.AddOrphanSweep(cfg.Jobs.OrphanSweep, registry); err != nil {
		return err
	}
	scheduler.Start()

	router := routes.SetupRouter(routes.Dependencies{
		Config:   cfg,
		Logger:   logger,
		Tokens:   tokens,
		Service:  service,
		Parts:    registry,
		Cars:     cars,
		Reports:  reports,
		Users:    users,
		Hub:      hub,
		Uploader: uploader,
		Ping:     func(ctx context.Context) error { return client.Ping(ctx, nil) },
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 6. Start server, stop on signal.
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting API server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()
	scheduler.Stop(shutdownCtx)
	err = srv.Shutdown(shutdownCtx)
	hub.Close()
	return err
}
