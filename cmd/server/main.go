package main

import (
	"context"
	"crypto/tls"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"live-quiz-backend/internal/config"
	"live-quiz-backend/internal/database"
	"live-quiz-backend/internal/handlers"
	"live-quiz-backend/internal/logging"
	"live-quiz-backend/internal/router"
	"live-quiz-backend/internal/services"
	"live-quiz-backend/internal/state"
	"live-quiz-backend/internal/ws"
)

// @title           Live Quiz API
// @version         1.0
// @description     Host-driven live quiz sessions over HTTP and WebSocket
// @host            localhost:8080
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter "Bearer {token}"

func main() {
	// .env is optional; the environment wins when both are set.
	_ = godotenv.Load()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, level, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	cfg.Watch(func(next *config.Config, err error) {
		if err != nil {
			logger.Warn("ignoring invalid config change", zap.Error(err))
			return
		}
		if err := logging.SetLevel(level, next.Logging.Level); err != nil {
			logger.Warn("invalid log level in config", zap.Error(err))
			return
		}
		logger.Info("log level changed", zap.String("level", next.Logging.Level))
	})

	db, err := database.Connect(cfg.DB, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("database migration failed", zap.Error(err))
	}

	redisOpts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	if cfg.Redis.TLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis not reachable at startup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	cancel()

	store := state.NewRedisStore(rdb, cfg.Game.StateTTL)
	hub := ws.NewHub(logger)

	catalog := services.NewCatalogService(db)
	sessionService := services.NewSessionService(catalog, store, hub, logger, cfg.Game.PinLength)
	authService := services.NewAuthService(db, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	gin.SetMode(gin.ReleaseMode)
	engine := router.Setup(logger, cfg.Server, router.Handlers{
		Auth:    handlers.NewAuthHandler(authService, logger),
		Session: handlers.NewSessionHandler(sessionService, logger),
		WS:      handlers.NewWSHandler(hub, sessionService, logger),
	}, authService)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: engine,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
}
