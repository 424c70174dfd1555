// Package main runs the event check-in HTTP server with WebSocket monitoring
// and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nexstage/events-backend/config"
	"github.com/nexstage/events-backend/internal/auth"
	"github.com/nexstage/events-backend/internal/certificates"
	"github.com/nexstage/events-backend/internal/checkin"
	"github.com/nexstage/events-backend/internal/clock"
	"github.com/nexstage/events-backend/internal/events"
	"github.com/nexstage/events-backend/internal/middleware"
	"github.com/nexstage/events-backend/internal/notifications"
	"github.com/nexstage/events-backend/internal/realtime"
	"github.com/nexstage/events-backend/internal/registrations"
	"github.com/nexstage/events-backend/internal/users"
	"github.com/nexstage/events-backend/pkg/database"
	"github.com/nexstage/events-backend/pkg/queue"
	"github.com/nexstage/events-backend/pkg/redis"
	"github.com/nexstage/events-backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	systemClock := clock.NewSystem()

	// Collaborator services
	usersClient := users.NewClient(cfg.Services.UsersURL, cfg.Services.FetchTimeout)
	certClient := certificates.NewClient(cfg.Services.CertificatesURL, cfg.Services.IssueTimeout)

	// Notifications: enqueue on the request path, deliver in the worker.
	jobQueue := queue.NewQueue(rdb.Client, logger)
	dispatcher := notifications.NewDispatcher(jobQueue, logger)

	// Events
	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, logger)

	// Certificates (local mirror + remote issuance)
	certRepo := certificates.NewRepository(pool)
	issuer := certificates.NewIssuer(certRepo, certClient, cfg.Services.IssueTimeout, logger)
	certHandler := certificates.NewHandler(certClient, certRepo, logger)

	// Registrations
	registrationRepo := registrations.NewRepository(pool)
	registrationSvc := registrations.NewService(registrationRepo, eventRepo, issuer, dispatcher, logger)
	registrationHandler := registrations.NewHandler(registrationSvc, usersClient, logger)

	// Check-in
	checkinRepo := checkin.NewRepository(pool)
	tokenSvc := checkin.NewTokenService(
		checkinRepo, eventRepo, systemClock,
		cfg.Server.FrontendURL,
		time.Duration(cfg.Checkin.DefaultDurationMinutes)*time.Minute,
		logger,
	)
	checkinSvc := checkin.NewService(
		checkinRepo, registrationRepo, tokenSvc, eventRepo,
		issuer, dispatcher, usersClient, hub,
		systemClock, cfg.Checkin.SingleUse, logger,
	)
	checkinHandler := checkin.NewHandler(checkinSvc, tokenSvc, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public: event catalog and certificate validation for the portal
	router.GET("/events", eventHandler.List)
	router.GET("/events/:id", eventHandler.GetByID)
	router.GET("/certificates/validate/:code", certHandler.Validate)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Registrations
		api.POST("/registrations", registrationHandler.Create)
		api.GET("/registrations/me", registrationHandler.ListMine)
		api.PATCH("/registrations/:id/cancel", registrationHandler.Cancel)

		// QR check-in (any authenticated attendee)
		api.POST("/checkin/:token", checkinHandler.ConsumeQR)

		// Admin surface
		admin := api.Group("/admin", middleware.RequireRole("admin"))
		{
			admin.POST("/events", eventHandler.Create)
			admin.PATCH("/events/:id", eventHandler.Update)
			admin.POST("/events/:id/checkin-token", checkinHandler.GenerateToken)
			admin.DELETE("/checkin-tokens/:token", checkinHandler.DeactivateToken)

			admin.GET("/registrations", registrationHandler.AdminList)
			admin.POST("/registrations", registrationHandler.AdminCreate)
			admin.POST("/registrations/:id/checkin", checkinHandler.AdminCheckin)
			admin.DELETE("/registrations/:id/presence", checkinHandler.DeletePresence)

			admin.POST("/checkin/sync", checkinHandler.SyncPresences)
		}
	}

	// WebSocket monitor (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, jwtService, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
