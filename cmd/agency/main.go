package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/braincreator/flow-masters/internal/agency/handler"
	"github.com/braincreator/flow-masters/internal/agency/repository"
	"github.com/braincreator/flow-masters/internal/agency/service"
	"github.com/braincreator/flow-masters/internal/agency/sse"
	"github.com/braincreator/flow-masters/internal/config"
	"github.com/braincreator/flow-masters/internal/database"
	"github.com/braincreator/flow-masters/internal/shared/events"
	"github.com/braincreator/flow-masters/internal/shared/payment"
	"github.com/braincreator/flow-masters/internal/shared/storage"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	zapLogger.Info("Starting flow-masters service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	db, err := database.Open(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	rdb := initRedis(cfg.Redis)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		zapLogger.Warn("Redis is not reachable", zap.Error(err))
	}

	store := initStorage(cfg.MinIO, zapLogger)
	publisher := initPublisher(cfg.RabbitMQ, zapLogger)
	defer publisher.Close()

	hub := sse.NewHub(zapLogger)

	services := service.NewServices(service.Deps{
		Repos:     repository.NewRepositories(db),
		Redis:     rdb,
		Store:     store,
		Publisher: publisher,
		Payments:  initPayments(cfg.Payment, zapLogger),
		Hub:       hub,
		Config:    cfg,
		Logger:    zapLogger,
	})
	handlers := handler.NewHandlers(services, hub, cfg)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handler.NewRouter(handlers, cfg, zapLogger)
	registerOps(router, db, rdb)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // SSE streams stay open
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	hub.Close()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := rdb.Close(); err != nil {
		zapLogger.Warn("Failed to close redis", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// initStorage falls back to a disabled store so the API still serves everything except uploads and exports.
func initStorage(cfg config.MinIOConfig, logger *zap.Logger) storage.ObjectStore {
	if cfg.Endpoint == "" {
		logger.Warn("MinIO endpoint not configured, file storage disabled")
		return storage.Disabled{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := storage.NewMinIOStore(ctx, cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.Bucket, cfg.UseSSL)
	if err != nil {
		logger.Error("Failed to init MinIO, file storage disabled", zap.Error(err))
		return storage.Disabled{}
	}
	return store
}

func initPublisher(cfg config.RabbitMQConfig, logger *zap.Logger) events.Publisher {
	url := cfg.URL()
	if url == "" {
		logger.Info("RabbitMQ not configured, domain events are dropped")
		return events.NopPublisher{}
	}
	p, err := events.NewAMQPPublisher(url, cfg.Exchange, logger)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ, domain events are dropped", zap.Error(err))
		return events.NopPublisher{}
	}
	return p
}

func initPayments(cfg config.PaymentConfig, logger *zap.Logger) *payment.Registry {
	reg := payment.NewRegistry()
	if cfg.YooKassa.Enabled {
		reg.Register(payment.NewYooKassa(cfg.YooKassa.BaseURL, cfg.YooKassa.ShopID, cfg.YooKassa.SecretKey, cfg.YooKassa.Currencies))
		logger.Info("Payment provider enabled", zap.String("provider", "yookassa"))
	}
	if cfg.Stripe.Enabled {
		reg.Register(payment.NewStripe(cfg.Stripe.BaseURL, cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, cfg.Stripe.Currencies))
		logger.Info("Payment provider enabled", zap.String("provider", "stripe"))
	}
	return reg
}

func registerOps(r *gin.Engine, db *gorm.DB, rdb *redis.Client) {
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{"database": "ok", "redis": "ok"}
		status := http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			checks["database"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks})
	})
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": Version, "build_time": BuildTime})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
