package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/cache"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/config"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/handlers"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/repositories/postgres"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/services"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/utils"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/validator"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
	} else {
		logger = utils.NewDevelopmentLogger()
	}
	slogger := utils.ToSlogLogger(logger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisClient.Close()

	// Repositories
	assessmentRepo := postgres.NewAssessmentPostgreSQL(db)
	responseRepo := postgres.NewResponsePostgreSQL(db)
	catalogRepo := postgres.NewCatalogPostgreSQL(db)

	// Cross-tab sync bus; owned here. The service layer publishes on it,
	// client sessions subscribe.
	bus, err := cfg.Sync.CreateBus(redisClient, slogger)
	if err != nil {
		log.Fatalf("sync bus setup failed: %v", err)
	}
	busCtx, busCancel := context.WithCancel(context.Background())
	defer busCancel()
	if err := bus.Start(busCtx); err != nil {
		log.Fatalf("sync bus start failed: %v", err)
	}
	defer bus.Close()

	// Services
	v := validator.New()
	cacheService := cache.NewRedisCache(redisClient, slogger)
	catalogService := services.NewCatalogService(catalogRepo, cacheService, slogger)
	assessmentService := services.NewBroadcastingAssessmentService(
		services.NewAssessmentService(
			assessmentRepo, responseRepo, catalogService, slogger, v,
			services.AssessmentServiceConfig{
				MaxAttempts: cfg.MaxAttempts,
				ExpiryDays:  cfg.ExpiryDays,
			}),
		bus, slogger)
	importService := services.NewCatalogImportService(
		catalogRepo, assessmentService, catalogService, slogger, v)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))

	handlerManager := handlers.NewHandlerManager(
		assessmentService, catalogService, importService, v, logger)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("Security posture tool listening", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
}
