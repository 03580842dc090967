// Package main runs the live-polling HTTP server with WebSocket and graceful shutdown.
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

	"github.com/classlive/backend/config"
	"github.com/classlive/backend/internal/chat"
	"github.com/classlive/backend/internal/middleware"
	"github.com/classlive/backend/internal/polls"
	"github.com/classlive/backend/internal/realtime"
	"github.com/classlive/backend/internal/session"
	"github.com/classlive/backend/internal/students"
	"github.com/classlive/backend/pkg/database"
	"github.com/classlive/backend/pkg/redis"
	"github.com/classlive/backend/pkg/response"
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

	hub := realtime.NewHub(logger)

	// Repositories
	pollRepo := polls.NewRepository(pool)
	studentRepo := students.NewRepository(pool)
	chatRepo := chat.NewRepository(pool)

	// The in-memory current-poll pointer does not survive restarts; close any
	// poll a previous process left active.
	if n, err := pollRepo.EndAllActive(ctx, time.Now()); err != nil {
		logger.Warn("end stale polls", zap.Error(err))
	} else if n > 0 {
		logger.Info("ended stale active polls", zap.Int64("count", n))
	}

	// Session coordinator (the core)
	coordinator := session.NewCoordinator(hub, pollRepo, studentRepo, session.Bounds{
		MinOptions:     cfg.Poll.MinOptions,
		MaxOptions:     cfg.Poll.MaxOptions,
		MinTimeSeconds: cfg.Poll.MinTimeSeconds,
		MaxTimeSeconds: cfg.Poll.MaxTimeSeconds,
		DefaultSeconds: cfg.Poll.DefaultSeconds,
	}, logger)
	defer coordinator.Close()

	// Chat relay: with Redis the publish-only path delivers; without it the
	// relay broadcasts locally.
	var publisher chat.Publisher
	var cancelChatSub func()
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("redis unavailable, chat fanout stays local", zap.Error(err))
		} else {
			defer rdb.Close()
			pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
			cancelChatSub, err = pubsub.SubscribeChat(func(payload []byte) {
				hub.BroadcastAll("new-message", payload)
			})
			if err != nil {
				logger.Warn("redis subscribe failed, chat fanout stays local", zap.Error(err))
			} else {
				publisher = pubsub
				defer cancelChatSub()
			}
		}
	}
	relay := chat.NewRelay(chatRepo, hub, publisher, coordinator, logger)

	// Read-only query API
	pollHandler := polls.NewHandler(pollRepo)
	studentHandler := students.NewHandler(studentRepo)
	chatHandler := chat.NewHandler(chatRepo)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger, "/ws"))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	api := router.Group("/api")
	{
		api.GET("/polls/current", pollHandler.Current)
		api.GET("/polls/history", pollHandler.History)
		api.GET("/students", studentHandler.ListActive)
		api.GET("/chat/history", chatHandler.History)
	}

	router.GET("/ws", realtime.ServeWs(hub, coordinator, relay, logger))

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
