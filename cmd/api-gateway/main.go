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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/admin-console-api/api/swagger"
	"github.com/noah-isme/admin-console-api/internal/handler"
	"github.com/noah-isme/admin-console-api/internal/middleware"
	"github.com/noah-isme/admin-console-api/internal/realtime"
	"github.com/noah-isme/admin-console-api/internal/repository"
	"github.com/noah-isme/admin-console-api/internal/service"
	"github.com/noah-isme/admin-console-api/pkg/cache"
	"github.com/noah-isme/admin-console-api/pkg/config"
	"github.com/noah-isme/admin-console-api/pkg/database"
	"github.com/noah-isme/admin-console-api/pkg/jobs"
	"github.com/noah-isme/admin-console-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/admin-console-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/admin-console-api/pkg/middleware/requestid"
)

// @title Admin Console API
// @version 1.0.0
// @description Session lifecycle, dictionaries, notices and live monitoring for the admin console
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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	dictRepo := repository.NewDictRepository(db)
	noticeRepo := repository.NewNoticeRepository(db)
	challengeRepo := repository.NewChallengeRepository(redisClient)
	revocationRepo := repository.NewRevocationRepository(redisClient)
	dictCache := repository.NewDictCache(redisClient, 10*time.Minute, logr)

	// Services. The delivery queue calls back into the challenge service, so
	// the handler closes over a variable assigned after construction.
	metricsSvc := service.NewMetricsService()
	codec := service.NewTokenCodec(cfg.JWT.Secret, cfg.JWT.Issuer)

	var challengeSvc *service.ChallengeService
	deliveryQueue := jobs.NewQueue("challenge-delivery", func(ctx context.Context, job jobs.Job) error {
		return challengeSvc.HandleDelivery(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Delivery.Workers,
		MaxRetries: cfg.Delivery.MaxRetries,
		RetryDelay: cfg.Delivery.RetryDelay,
		Logger:     logr,
	})
	challengeSvc = service.NewChallengeService(challengeRepo, service.NoopSender{}, deliveryQueue, service.ChallengeConfig{
		TTL:         cfg.Challenge.TTL,
		CodeLength:  cfg.Challenge.CodeLength,
		ImageWidth:  cfg.Challenge.ImageWidth,
		ImageHeight: cfg.Challenge.ImageHeight,
		SendTimeout: cfg.Delivery.Timeout,
	}, logr)
	deliveryQueue.Start(ctx)
	defer deliveryQueue.Stop()

	authSvc := service.NewAuthService(userRepo, revocationRepo, challengeSvc, codec, nil, metricsSvc, logr, service.AuthConfig{
		AccessTokenExpiry:  cfg.JWT.AccessExpiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
	})

	broker := realtime.NewBroker(logr, metricsSvc)
	gateway := realtime.NewGateway(broker, authSvc, realtime.GatewayConfig{
		SendQueueSize:  cfg.WebSocket.SendQueueSize,
		WriteTimeout:   cfg.WebSocket.WriteTimeout,
		AllowedOrigins: cfg.WebSocket.AllowedOrigins,
	}, logr)

	dictSvc := service.NewDictService(dictRepo, dictCache, broker, nil, logr)
	noticeSvc := service.NewNoticeService(noticeRepo, broker, logr)
	monitorSvc := service.NewMonitorService(userRepo, broker, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc, challengeSvc)
	dictHandler := handler.NewDictHandler(dictSvc)
	noticeHandler := handler.NewNoticeHandler(noticeSvc)
	monitorHandler := handler.NewMonitorHandler(monitorSvc, authSvc)

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
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "redis unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.GET("/challenge", authHandler.Challenge)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)

			protected := auth.Group("")
			protected.Use(middleware.JWT(authSvc))
			protected.GET("/me", authHandler.Me)
			protected.POST("/change-password", authHandler.ChangePassword)
		}

		api.GET("/ws", gateway.Handle)

		dicts := api.Group("/dicts", middleware.JWT(authSvc))
		{
			dicts.GET("/types/:type", dictHandler.ListByType)
			dicts.GET("", dictHandler.List)

			admin := dicts.Group("", middleware.RequireAdmin())
			admin.POST("", dictHandler.Create)
			admin.PUT("/:id", dictHandler.Update)
			admin.DELETE("/:id", dictHandler.Delete)
		}

		notices := api.Group("/notices", middleware.JWT(authSvc))
		{
			notices.GET("", noticeHandler.List)
			notices.GET("/:id", noticeHandler.Get)

			admin := notices.Group("", middleware.RequireAdmin())
			admin.POST("", noticeHandler.Create)
			admin.PUT("/:id", noticeHandler.Update)
			admin.DELETE("/:id", noticeHandler.Delete)
			admin.POST("/:id/publish", noticeHandler.Publish)
		}

		monitor := api.Group("/monitor", middleware.JWT(authSvc), middleware.RequireAdmin())
		{
			monitor.GET("/online", monitorHandler.Online)
			monitor.POST("/force-logout/:id", monitorHandler.ForceLogout)
			monitor.GET("/audit-logs", monitorHandler.AuditLogs)
			monitor.GET("/audit-logs/export", monitorHandler.ExportAuditLogs)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
