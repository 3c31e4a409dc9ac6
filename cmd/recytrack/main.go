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

	"github.com/bitfantasy/recytrack/internal/config"
	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
	"github.com/bitfantasy/recytrack/internal/lifecycle/handler"
	"github.com/bitfantasy/recytrack/internal/lifecycle/repository"
	"github.com/bitfantasy/recytrack/internal/lifecycle/service"
	"github.com/bitfantasy/recytrack/internal/lifecycle/sse"
	"github.com/bitfantasy/recytrack/internal/middleware"
	"github.com/bitfantasy/recytrack/internal/shared/idgen"
	"github.com/bitfantasy/recytrack/internal/shared/metrics"
	"github.com/bitfantasy/recytrack/internal/shared/observability"
	"github.com/bitfantasy/recytrack/internal/shared/storage"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
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

	zapLogger.Info("Starting recytrack service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	shutdownTracing := observability.InitTracing(context.Background(), zapLogger, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Tracing.Environment,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	})

	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := entity.AutoMigrate(db); err != nil {
		zapLogger.Fatal("AutoMigrate lifecycle tables failed", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = initRedis(cfg.Redis)
		defer rdb.Close()
	}
	ids, err := initIDGenerator(cfg, db, rdb)
	if err != nil {
		zapLogger.Fatal("Failed to init identifier generator", zap.Error(err))
	}

	store, err := storage.New(storage.Options{
		Endpoint:   cfg.MinIO.Endpoint,
		AccessKey:  cfg.MinIO.AccessKey,
		SecretKey:  cfg.MinIO.SecretKey,
		Bucket:     cfg.MinIO.Bucket,
		UseSSL:     cfg.MinIO.UseSSL,
		RetryDelay: cfg.MinIO.RetryDelay,
	}, zapLogger.Named("storage"))
	if err != nil {
		zapLogger.Fatal("Failed to init object storage", zap.Error(err))
	}
	var docs service.DocumentStore
	if store != nil {
		docs = store
	} else {
		zapLogger.Warn("MinIO not configured, delivery documents disabled")
	}

	m := metrics.New()
	hub := sse.NewHub(zapLogger.Named("sse"))
	repos := repository.NewRepositories(db)

	services := service.NewServices(service.Deps{
		Repos:   repos,
		IDs:     ids,
		Events:  service.NewFlowEventSink(repos.FlowEvent, hub, m),
		Metrics: m,
		Logger:  zapLogger,
	}, docs, service.StaticPermissions{})
	handlers := handler.NewHandlers(services, hub, zapLogger)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	router.Use(middleware.RequestID())

	registerRoutes(router, handlers, cfg, db, m)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // Disable for SSE long-lived connections
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")
	hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := shutdownTracing(ctx); err != nil {
		zapLogger.Warn("Tracer shutdown failed", zap.Error(err))
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

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// initIDGenerator picks the identifier oracle. Both backends hand out per-day,
// per-prefix sequences that never repeat.
func initIDGenerator(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (idgen.Generator, error) {
	if cfg.IDGen.Backend == "redis" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return idgen.NewRedisGenerator(rdb, cfg.IDGen.KeyPrefix), nil
	}
	if err := db.AutoMigrate(&idgen.IDSequence{}); err != nil {
		return nil, fmt.Errorf("migrate id sequences: %w", err)
	}
	return idgen.NewSequenceGenerator(db), nil
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config, db *gorm.DB, m *metrics.Metrics) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	r.GET("/metrics", gin.WrapH(m.Handler()))

	// SSE 不压缩，token 可走 query
	stream := r.Group("/api/v1")
	stream.Use(middleware.JWTAuth(cfg.JWT.Secret))
	h.RegisterStreamRoutes(stream)

	api := r.Group("/api/v1")
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	api.Use(middleware.JWTAuth(cfg.JWT.Secret))
	h.RegisterRoutes(api)
}
