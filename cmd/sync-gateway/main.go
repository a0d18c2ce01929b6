package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studyplanhq/calsync-api/internal/google"
	"github.com/studyplanhq/calsync-api/internal/handler"
	"github.com/studyplanhq/calsync-api/internal/middleware"
	"github.com/studyplanhq/calsync-api/internal/repository"
	"github.com/studyplanhq/calsync-api/internal/service"
	"github.com/studyplanhq/calsync-api/pkg/cache"
	"github.com/studyplanhq/calsync-api/pkg/config"
	"github.com/studyplanhq/calsync-api/pkg/database"
	"github.com/studyplanhq/calsync-api/pkg/jobs"
	"github.com/studyplanhq/calsync-api/pkg/lock"
	"github.com/studyplanhq/calsync-api/pkg/logger"
	corsmiddleware "github.com/studyplanhq/calsync-api/pkg/middleware/cors"
	reqidmiddleware "github.com/studyplanhq/calsync-api/pkg/middleware/requestid"
)

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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The locker degrades to always-acquire without Redis, fine for a
		// single instance but never in production.
		if cfg.Env == config.EnvProduction {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		logr.Sugar().Warnw("redis unavailable, sync locking disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	assessmentRepo := repository.NewAssessmentRepository(db)
	sessionRepo := repository.NewStudySessionRepository(db)
	customEventRepo := repository.NewCustomEventRepository(db)
	milestoneRepo := repository.NewMilestoneRepository(db)
	connectionRepo := repository.NewConnectionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	googleClient := google.NewClient(cfg.Google)
	locker := lock.NewLocker(redisClient, logr)
	metricsSvc := service.NewMetricsService()

	reminderSvc := service.NewReminderService(reminderRepo, settingsRepo, cfg.Reminder, logr)
	syncSvc := service.NewSyncService(
		googleClient,
		connectionRepo,
		assessmentRepo,
		sessionRepo,
		customEventRepo,
		notificationRepo,
		settingsRepo,
		reminderSvc,
		locker,
		metricsSvc,
		cfg.Sync,
		logr,
	)
	connectionSvc := service.NewConnectionService(googleClient, connectionRepo, nil, cfg.Sync, logr)
	calendarSvc := service.NewCalendarService(assessmentRepo, sessionRepo, customEventRepo, milestoneRepo, courseRepo, settingsRepo, logr)

	webhookHandler := handler.NewWebhookHandler(syncSvc, metricsSvc)
	syncHandler := handler.NewSyncHandler(syncSvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc)
	connectionHandler := handler.NewConnectionHandler(connectionSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	renewalQueue := jobs.NewQueue("channel-renewal", func(ctx context.Context, _ jobs.Job) error {
		return connectionSvc.RenewExpiringChannels(ctx)
	}, jobs.QueueConfig{
		Workers: cfg.Sync.RenewalWorkers,
		Logger:  logr,
	})
	if cfg.Sync.Enabled {
		renewalQueue.Start(ctx)
		defer renewalQueue.Stop()
		go scheduleRenewals(ctx, renewalQueue, cfg.Sync.ChannelRenewalInterval)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.POST("/webhooks/google-calendar", webhookHandler.Receive)
	api.POST("/sync", syncHandler.Trigger)
	api.GET("/calendar/events", calendarHandler.List)
	api.POST("/google/connect", connectionHandler.Connect)
	api.DELETE("/google/connect/:user_id", connectionHandler.Disconnect)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

func scheduleRenewals(ctx context.Context, queue *jobs.Queue, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job := jobs.Job{ID: uuid.NewString(), Type: "renew-channels"}
			if err := queue.Enqueue(job); err != nil {
				return
			}
		}
	}
}
