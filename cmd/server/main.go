package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/manu-0990/motion/internal/ai/anthropic"
	"github.com/manu-0990/motion/internal/api"
	"github.com/manu-0990/motion/internal/cache/redis"
	"github.com/manu-0990/motion/internal/config"
	"github.com/manu-0990/motion/internal/render"
	"github.com/manu-0990/motion/internal/service"
	"github.com/manu-0990/motion/internal/service/chat"
	"github.com/manu-0990/motion/internal/service/review"
	"github.com/manu-0990/motion/internal/storage/postgres"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	// Configure log format
	if cfg.LogFormat == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	}

	logger.Info("starting motion server")

	// Connect to database
	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	// Initialize Redis client
	redisClient, err := redis.New(cfg.Redis.URI)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()

	// Initialize Anthropic client
	anthropicClient := anthropic.NewClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model)

	// Initialize render farm client
	renderClient := render.NewClient(cfg.Renderer.URL)

	// Initialize services
	authService := service.NewAuthService(cfg.Server.JWTSecret)
	listCache := redis.NewConversationListCache(redisClient)

	// Initialize repositories
	convRepo := postgres.NewConversationRepository(db.Pool())
	msgRepo := postgres.NewMessageRepository(db.Pool())

	// Initialize chat and review services
	chatService := chat.NewService(anthropicClient, convRepo, msgRepo, listCache, logger, cfg.Anthropic.TitleModel)
	reviewService := review.NewService(renderClient, msgRepo, logger)

	// Initialize API server
	server := api.NewServer(authService, chatService, reviewService, convRepo, msgRepo, listCache, logger)

	// Create Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Add middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
			}).Info("request")
			return nil
		},
	}))

	// Health check endpoint (public)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	// API routes (authenticated)
	g := e.Group("/api", server.AuthMiddleware)
	g.GET("/chat/:id", server.GetHistory)
	g.POST("/chat", server.SendMessage)
	g.POST("/review/:id/approve", server.Approve)
	g.POST("/review/:id/reject", server.Reject)
	g.GET("/conversations", server.ListConversations)
	g.DELETE("/conversations/:id", server.DeleteConversation)

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	go func() {
		logger.WithField("addr", addr).Info("server listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown error")
	}

	logger.Info("server stopped")
}
