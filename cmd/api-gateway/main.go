package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/apnealab/dive-scheduler-api/api/swagger"
	"github.com/apnealab/dive-scheduler-api/internal/handler"
	"github.com/apnealab/dive-scheduler-api/internal/middleware"
	"github.com/apnealab/dive-scheduler-api/internal/models"
	"github.com/apnealab/dive-scheduler-api/internal/repository"
	"github.com/apnealab/dive-scheduler-api/internal/service"
	"github.com/apnealab/dive-scheduler-api/pkg/cache"
	"github.com/apnealab/dive-scheduler-api/pkg/config"
	"github.com/apnealab/dive-scheduler-api/pkg/database"
	"github.com/apnealab/dive-scheduler-api/pkg/logger"
	corsmiddleware "github.com/apnealab/dive-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/apnealab/dive-scheduler-api/pkg/middleware/requestid"
	"github.com/apnealab/dive-scheduler-api/pkg/storage"
)

// @title Dive Scheduler API
// @version 1.0.0
// @description Scheduling coordination for freediving schools
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	// Redis is optional: stats endpoints recompute on every request when
	// the cache is absent.
	var cacheSvc *service.CacheService
	if cfg.Stats.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, stats cache disabled", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, true)
		}
	}

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	validate := validator.New()

	orgRepo := repository.NewOrganizationRepository(db)
	userRepo := repository.NewUserRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)

	authSvc := service.NewAuthService(userRepo, orgRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "dive-scheduler-api",
	})
	orgSvc := service.NewOrganizationService(orgRepo, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	lessonSvc := service.NewLessonService(lessonRepo, availabilityRepo, cacheSvc, validate, logr)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, lessonRepo, userRepo, cacheSvc, validate, logr)
	statsSvc := service.NewStatsService(lessonSvc, userRepo, cacheSvc, logr)
	exportSvc := service.NewExportService(statsSvc, exportStore, signer, logr)

	// Expired export files are reaped on the signed URL TTL cadence.
	go func() {
		ticker := time.NewTicker(cfg.Exports.SignedURLTTL)
		defer ticker.Stop()
		for range ticker.C {
			exportSvc.Cleanup(cfg.Exports.SignedURLTTL)
		}
	}()

	authHandler := handler.NewAuthHandler(authSvc)
	orgHandler := handler.NewOrganizationHandler(orgSvc)
	userHandler := handler.NewUserHandler(userSvc)
	lessonHandler := handler.NewLessonHandler(lessonSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	statsHandler := handler.NewStatsHandler(statsSvc, exportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.GET("/organizations", orgHandler.List)
	api.GET("/exports/download", statsHandler.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.GET("/auth/me", authHandler.Me)

	admin := middleware.RequireRoles(models.RoleAdmin)

	authed.GET("/users", userHandler.List)
	authed.POST("/users", admin, userHandler.Create)
	authed.PUT("/users/:id", admin, userHandler.Update)
	authed.DELETE("/users/:id", admin, userHandler.Delete)

	authed.GET("/lessons", lessonHandler.Calendar)
	authed.POST("/lessons", admin, lessonHandler.Create)
	authed.PUT("/lessons/:id", admin, lessonHandler.Update)
	authed.DELETE("/lessons/:id", admin, lessonHandler.Delete)

	authed.GET("/series/:token", lessonHandler.SeriesInfo)
	authed.PUT("/series/:token", admin, lessonHandler.UpdateSeries)
	authed.DELETE("/series/:token", admin, lessonHandler.DeleteSeries)

	authed.PUT("/lessons/:id/availability", availabilityHandler.Set)
	authed.POST("/lessons/:id/availability/toggle", availabilityHandler.Toggle)
	authed.PUT("/lessons/:id/availability/note", availabilityHandler.SetNote)
	authed.DELETE("/lessons/:id/availability", availabilityHandler.Remove)
	authed.DELETE("/lessons/:id/availability/:teacherId", admin, availabilityHandler.RemoveForTeacher)

	authed.GET("/stats/summary", statsHandler.Summary)
	authed.GET("/stats/workload", admin, statsHandler.Workload)
	authed.POST("/stats/export", admin, statsHandler.Export)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
