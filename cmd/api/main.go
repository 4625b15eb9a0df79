package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/ndalu/portaria-api/api/swagger"
	"github.com/ndalu/portaria-api/internal/academic"
	"github.com/ndalu/portaria-api/internal/handler"
	"github.com/ndalu/portaria-api/internal/middleware"
	"github.com/ndalu/portaria-api/internal/models"
	"github.com/ndalu/portaria-api/internal/repository"
	"github.com/ndalu/portaria-api/internal/service"
	"github.com/ndalu/portaria-api/pkg/broadcast"
	"github.com/ndalu/portaria-api/pkg/cache"
	"github.com/ndalu/portaria-api/pkg/config"
	"github.com/ndalu/portaria-api/pkg/database"
	"github.com/ndalu/portaria-api/pkg/jobs"
	"github.com/ndalu/portaria-api/pkg/logger"
	corsmiddleware "github.com/ndalu/portaria-api/pkg/middleware/cors"
	reqidmiddleware "github.com/ndalu/portaria-api/pkg/middleware/requestid"
	"github.com/ndalu/portaria-api/pkg/storage"
)

// @title Portaria API
// @version 1.0.0
// @description School gate admission and tuition tracking service
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, realtime broadcast and caching disabled", zap.Error(err))
		redisClient = nil
	}

	location, err := time.LoadLocation(cfg.Gate.Timezone)
	if err != nil {
		logr.Warn("unknown timezone, falling back to UTC", zap.String("timezone", cfg.Gate.Timezone))
		location = time.UTC
	}
	calendar := academic.NewCalendar(time.Month(cfg.Gate.FiscalStartMonth))

	photoStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Fatal("failed to init photo storage", zap.Error(err))
	}
	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to init export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	entryRepo := repository.NewEntryRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Observability and caching.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.RecognitionTTL, logr, cfg.Cache.Enabled && redisClient != nil)

	// Post-commit side effects: realtime broadcast and onboarding mail.
	var publisher broadcast.Publisher = broadcast.Nop{}
	if redisClient != nil {
		publisher = broadcast.NewRedisPublisher(redisClient)
	}
	var mailer service.Mailer = service.NewLogMailer(logr, cfg.Mail.FromName, cfg.Mail.FromEmail)

	queue := jobs.NewQueue("side-effects", func(ctx context.Context, job jobs.Job) error {
		switch job.Type {
		case service.JobTypeBroadcast:
			return publisher.Publish(ctx, cfg.Broadcast.Channel, job.Payload)
		case service.JobTypeMail:
			mail, ok := job.Payload.(service.MailJob)
			if !ok {
				return fmt.Errorf("unexpected mail payload %T", job.Payload)
			}
			return mailer.SendPIN(ctx, mail.Email, mail.Name, mail.Pin)
		default:
			return fmt.Errorf("unknown job type %s", job.Type)
		}
	}, jobs.QueueConfig{Workers: 2, MaxRetries: 3, RetryDelay: 2 * time.Second, Logger: logr})
	queue.Start(context.Background())
	defer queue.Stop()

	// Services.
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	exportSvc := service.NewExportService(exportStore, signer, cfg.APIPrefix, logr)
	rosterSvc := service.NewRosterService(studentRepo, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, studentRepo, calendar, cacheSvc, exportSvc, cfg.Gate.GraceDays, location, validate, logr)
	recognitionSvc := service.NewRecognitionService(studentRepo, photoRepo, rosterSvc, paymentSvc, cacheSvc, logr)
	entrySvc := service.NewEntryService(entryRepo, studentRepo, userRepo, queue, exportSvc, location, cfg.Gate.FeedPageSize, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, photoRepo, photoStore, calendar, location, cfg.Uploads.BaseURL, cfg.Uploads.MinPhotos, cfg.Uploads.MaxPhotos, validate, logr)
	staffSvc := service.NewStaffService(userRepo, queue, validate, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	entryHandler := handler.NewEntryHandler(entrySvc)
	recognitionHandler := handler.NewRecognitionHandler(recognitionSvc)
	staffHandler := handler.NewStaffHandler(staffSvc)
	downloadHandler := handler.NewDownloadHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Student photos are served directly from disk.
	r.Static(cfg.Uploads.BaseURL, cfg.Uploads.StorageDir)

	requireJWT := middleware.JWT(authSvc)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	anyStaff := middleware.RequireRoles(models.RoleAdmin, models.RoleVigilante)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)
		api.GET("/auth/me", requireJWT, authHandler.Me)

		// The signed token is the authorization; claims are attached only
		// for request logging when a bearer token happens to be present.
		api.GET("/downloads/:token", middleware.OptionalJWT(authSvc), downloadHandler.Download)

		api.GET("/recognition/:studentId", requireJWT, anyStaff, recognitionHandler.Lookup)

		gate := api.Group("/entry", requireJWT, anyStaff)
		{
			gate.POST("/:studentId/admit", entryHandler.Admit)
			gate.POST("/:studentId/deny", entryHandler.Deny)
		}
		entries := api.Group("/entries", requireJWT, anyStaff)
		{
			entries.GET("/feed", entryHandler.Feed)
			entries.GET("/summary", entryHandler.Summary)
			entries.GET("/export", entryHandler.Export)
		}

		payments := api.Group("/payments", requireJWT)
		{
			payments.GET("/:studentId", anyStaff, paymentHandler.Statement)
			payments.GET("/:studentId/export", anyStaff, paymentHandler.Export)
			auditPayment := middleware.Audit(userRepo, models.AuditActionPayment, "payment_records")
			payments.POST("/:studentId", adminOnly, auditPayment, paymentHandler.Pay)
			payments.DELETE("/:studentId", adminOnly, auditPayment, paymentHandler.Cancel)
		}

		students := api.Group("/students", requireJWT)
		{
			students.GET("", anyStaff, studentHandler.List)
			students.GET("/:id", anyStaff, studentHandler.Get)
			students.POST("", adminOnly, studentHandler.Create)
			students.PUT("/:id", adminOnly, studentHandler.Update)
			students.DELETE("/:id", adminOnly, studentHandler.Deactivate)
			students.GET("/:id/photos", anyStaff, studentHandler.ListPhotos)
			students.POST("/:id/photos", adminOnly, studentHandler.AddPhoto)
			students.DELETE("/:id/photos/:photoId", adminOnly, studentHandler.RemovePhoto)
		}

		staff := api.Group("/staff", requireJWT, adminOnly)
		{
			staff.GET("", staffHandler.List)
			staff.GET("/:id", staffHandler.Get)
			staff.POST("", staffHandler.Create)
			staff.PUT("/:id", staffHandler.Update)
			staff.DELETE("/:id", staffHandler.Deactivate)
		}

		api.GET("/system/stats", requireJWT, adminOnly, metricsHandler.Stats)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("forced shutdown", zap.Error(err))
	}
}
