package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/carebridge/community-api/api/swagger"
	"github.com/carebridge/community-api/internal/handler"
	"github.com/carebridge/community-api/internal/middleware"
	"github.com/carebridge/community-api/internal/models"
	"github.com/carebridge/community-api/internal/repository"
	"github.com/carebridge/community-api/internal/service"
	"github.com/carebridge/community-api/pkg/cache"
	"github.com/carebridge/community-api/pkg/config"
	"github.com/carebridge/community-api/pkg/database"
	"github.com/carebridge/community-api/pkg/export"
	"github.com/carebridge/community-api/pkg/jobs"
	"github.com/carebridge/community-api/pkg/logger"
	corsmiddleware "github.com/carebridge/community-api/pkg/middleware/cors"
	reqidmiddleware "github.com/carebridge/community-api/pkg/middleware/requestid"
	"github.com/carebridge/community-api/pkg/storage"
)

// @title CareBridge Community API
// @version 1.0.0
// @description Community platform for end-of-life care coordination
// @BasePath /api/v1
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			defer redisClient.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	contentRepo := repository.NewContentRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)
	taxonomyRepo := repository.NewTaxonomyRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	reportJobRepo := repository.NewReportJobRepository(db)
	reportingRepo := repository.NewReportingRepository(db)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	taxonomySvc := service.NewTaxonomyService(taxonomyRepo, cacheSvc, logr)
	contentSvc := service.NewContentService(contentRepo, attachmentRepo, assignmentRepo, ratingRepo, taxonomySvc, validate, logr)
	noteSvc := service.NewNoteService(contentSvc, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, contentRepo, attachmentRepo, userRepo, familyRepo, validate, logr)
	curationSvc := service.NewCurationService(contentRepo, ratingRepo, attachmentRepo, validate, logr)
	attachmentSvc := service.NewAttachmentService(attachmentRepo, contentRepo, documentRepo, userRepo, validate, logr)

	documentFS, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init document storage", "error", err)
	}
	documentSigner := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)
	documentSvc := service.NewDocumentService(documentRepo, documentFS, documentSigner, service.DocumentConfig{
		APIPrefix:        cfg.APIPrefix,
		MaxFileSizeBytes: cfg.Documents.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Documents.AllowedMIMEs,
	}, logr)

	var reportSvc *service.ReportService
	var reportQueue *jobs.Queue
	if cfg.Reports.Enabled {
		reportFS, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		reportSigner := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportSvc := service.NewExportService(reportingRepo, reportFS, reportSigner, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr, export.NewCSVExporter(), export.NewPDFExporter())

		reportWorker := service.NewReportWorker(reportJobRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
		reportQueue = jobs.NewQueue("reports", reportWorker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportQueue.Start(ctx)

		reportSvc = service.NewReportService(reportJobRepo, familyRepo, reportQueue, exportSvc, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
	}

	authH := handler.NewAuthHandler(authSvc)
	contentH := handler.NewContentHandler(contentSvc)
	noteH := handler.NewNoteHandler(noteSvc)
	assignmentH := handler.NewAssignmentHandler(assignmentSvc)
	curationH := handler.NewCurationHandler(curationSvc)
	attachmentH := handler.NewAttachmentHandler(attachmentSvc)
	documentH := handler.NewDocumentHandler(documentSvc)
	taxonomyH := handler.NewTaxonomyHandler(taxonomySvc)
	metricsH := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsH.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsH.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authH.Login)
	api.POST("/auth/refresh", authH.Refresh)

	protected := api.Group("", middleware.JWT(authSvc))
	protected.POST("/auth/logout", authH.Logout)
	protected.POST("/auth/change-password", authH.ChangePassword)
	protected.GET("/auth/me", authH.Me)

	protected.GET("/content", contentH.List)
	protected.POST("/content", middleware.Audit(userRepo, models.AuditActionContentCreate, "content"), contentH.Create)
	protected.GET("/content/:id", contentH.Get)
	protected.PUT("/content/:id", middleware.Audit(userRepo, models.AuditActionContentUpdate, "content"), contentH.Update)
	protected.DELETE("/content/:id", middleware.Audit(userRepo, models.AuditActionContentDelete, "content"), contentH.Delete)
	protected.POST("/content/:id/rating", curationH.Rate)
	protected.POST("/content/:id/documents", attachmentH.Attach)
	protected.DELETE("/content/:id/documents/:documentId", attachmentH.Detach)
	protected.POST("/content/:id/shares", attachmentH.Share)
	protected.DELETE("/content/:id/shares/:userId", attachmentH.Unshare)

	protected.GET("/notes", noteH.List)
	protected.POST("/notes", middleware.Audit(userRepo, models.AuditActionContentCreate, "note"), noteH.Create)
	protected.GET("/notes/:id", noteH.Get)
	protected.PUT("/notes/:id", middleware.Audit(userRepo, models.AuditActionContentUpdate, "note"), noteH.Update)
	protected.DELETE("/notes/:id", middleware.Audit(userRepo, models.AuditActionContentDelete, "note"), noteH.Delete)

	protected.GET("/assignments", assignmentH.Inbox)
	protected.POST("/assignments", middleware.Audit(userRepo, models.AuditActionAssignment, "assignment"), assignmentH.Create)
	protected.PUT("/assignments/:id/status", middleware.Audit(userRepo, models.AuditActionAssignment, "assignment"), assignmentH.UpdateStatus)

	curation := protected.Group("/curation", middleware.RequireRoles(models.RoleAdmin))
	curation.Use(middleware.Audit(userRepo, models.AuditActionCuration, "content"))
	curation.GET("/queue", curationH.Queue)
	curation.POST("/approve/:id", curationH.Approve)
	curation.POST("/reject/:id", curationH.Reject)
	curation.POST("/feature/:id", curationH.Feature)

	protected.POST("/documents", documentH.Upload)
	protected.GET("/documents/:id", documentH.Get)
	protected.GET("/documents/:id/url", documentH.SignURL)
	protected.DELETE("/documents/:id", documentH.Delete)
	api.GET("/downloads/documents/:token", documentH.Download)

	if reportSvc != nil {
		reportH := handler.NewReportHandler(reportSvc)
		protected.POST("/reports", reportH.Create)
		protected.GET("/reports/:id", reportH.Status)
		api.GET("/downloads/reports/:token", reportH.Download)
	}

	protected.GET("/categories", taxonomyH.Categories)
	protected.GET("/healthcare-categories", taxonomyH.HealthcareCategories)

	admin := protected.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/metrics", metricsH.Snapshot)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
	if reportQueue != nil {
		reportQueue.Stop()
	}
}
