package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/westgate-schools/sms-api/api/swagger"
	"github.com/westgate-schools/sms-api/internal/handler"
	internalmiddleware "github.com/westgate-schools/sms-api/internal/middleware"
	"github.com/westgate-schools/sms-api/internal/repository"
	"github.com/westgate-schools/sms-api/internal/service"
	"github.com/westgate-schools/sms-api/pkg/cache"
	"github.com/westgate-schools/sms-api/pkg/config"
	"github.com/westgate-schools/sms-api/pkg/database"
	"github.com/westgate-schools/sms-api/pkg/export"
	"github.com/westgate-schools/sms-api/pkg/logger"
	corsmiddleware "github.com/westgate-schools/sms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/westgate-schools/sms-api/pkg/middleware/requestid"
	"github.com/westgate-schools/sms-api/pkg/storage"
)

// @title Westgate Schools API
// @version 1.0.0
// @description School administration backend: students, billing, results
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	store, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}

	metricsSvc := service.NewMetricsService()

	cacheEnabled := true
	var cacheRepo *repository.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		cacheEnabled = false
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Results.CacheTTL, logr, cacheEnabled)

	validate := validator.New()

	sessionRepo := repository.NewSessionRepository(db)
	termRepo := repository.NewTermRepository(db)
	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)
	resultRepo := repository.NewResultRepository(db)
	userRepo := repository.NewUserRepository(db)

	authSvc := service.NewAuthService(userRepo, cfg.JWT, validate, logr)
	academicSvc := service.NewAcademicService(sessionRepo, termRepo, cacheSvc, validate, logr)
	classSvc := service.NewClassService(classRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, classRepo, store, validate, logr)
	importSvc := service.NewStudentImportService(studentRepo, classSvc, metricsSvc, logr)
	invoiceSvc := service.NewInvoiceService(invoiceRepo, receiptRepo, studentRepo, export.NewPDFExporter(), cfg.Finance.SchoolName, cfg.Finance.Currency, validate, logr)
	receiptSvc := service.NewReceiptService(receiptRepo, invoiceRepo, validate, logr)
	resultSvc := service.NewResultService(resultRepo, studentRepo, subjectRepo, cacheSvc, export.NewCSVExporter(), cfg.Results.CacheTTL, validate, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Dependencies{
		Auth:            handler.NewAuthHandler(authSvc),
		Academic:        handler.NewAcademicHandler(academicSvc),
		Classes:         handler.NewClassHandler(classSvc),
		Subjects:        handler.NewSubjectHandler(subjectSvc),
		Students:        handler.NewStudentHandler(studentSvc, importSvc, store, logr),
		Invoices:        handler.NewInvoiceHandler(invoiceSvc, cfg.Finance.PDFStatements),
		Receipts:        handler.NewReceiptHandler(receiptSvc),
		Results:         handler.NewResultHandler(resultSvc),
		AuthService:     authSvc,
		AcademicService: academicSvc,
		Logger:          logr,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
