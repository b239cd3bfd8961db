package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/chrisostomemataba/inventory-ledger/config"
	"github.com/chrisostomemataba/inventory-ledger/internal/pkg/broker"
	"github.com/chrisostomemataba/inventory-ledger/internal/pkg/cache"
	"github.com/chrisostomemataba/inventory-ledger/internal/pkg/logger"
	"github.com/chrisostomemataba/inventory-ledger/internal/pkg/migrate"
	"github.com/chrisostomemataba/inventory-ledger/internal/pkg/postgres"

	anH "github.com/chrisostomemataba/inventory-ledger/internal/analytics/handler"
	anRepoPkg "github.com/chrisostomemataba/inventory-ledger/internal/analytics/repository"
	anUCPkg "github.com/chrisostomemataba/inventory-ledger/internal/analytics/usecase"

	ledH "github.com/chrisostomemataba/inventory-ledger/internal/ledger/handler"
	ledListenerPkg "github.com/chrisostomemataba/inventory-ledger/internal/ledger/listener"
	ledRepoPkg "github.com/chrisostomemataba/inventory-ledger/internal/ledger/repository"
	ledUCPkg "github.com/chrisostomemataba/inventory-ledger/internal/ledger/usecase"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.Config{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             "info",
		DisableCaller:     false,
		DisableStacktrace: false,
	}
	if cfg.Server.AppEnv == "development" || cfg.Server.AppEnv == "dev" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = cfg.Logger.Encoding
		logConfig.Level = cfg.Logger.Level
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	// 3.5 Run migrations
	if err := migrate.Up(db, cfg.Postgres.MigrationsPath); err != nil {
		appLogger.Fatal("Could not run migrations", zap.Error(err))
	}

	// 4. Initialize Repositories
	ledgerRepo := ledRepoPkg.NewPGRepository(db)
	analyticsRepo := anRepoPkg.NewPGRepository(db)

	// 5. Initialize Redis
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// 5.5 Initialize Kafka Consumer
	kafkaConsumer := broker.NewConsumer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer kafkaConsumer.Close()
	appLogger.Info("Connected to Kafka Consumer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))

	// 6. Initialize UseCases
	ledgerUC := ledUCPkg.NewLedgerUseCase(ledgerRepo, redisClient, appLogger, time.Now)
	analyticsUC := anUCPkg.NewAnalyticsUseCase(analyticsRepo, redisClient, appLogger, time.Now)

	// 6.5 Start order event listener
	orderListener := ledListenerPkg.NewOrderListener(kafkaConsumer, ledgerUC, appLogger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go orderListener.Start(ctx)

	// 7. Initialize Handlers and Router
	ledgerHandler := ledH.NewLedgerHandler(ledgerUC, appLogger)
	analyticsHandler := anH.NewAnalyticsHandler(analyticsUC, appLogger, time.Now)

	if cfg.Server.AppEnv != "development" && cfg.Server.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), ledH.ActorContext())

	api := router.Group("/api")
	ledgerHandler.RegisterRoutes(api)
	analyticsHandler.RegisterRoutes(api)

	// 8. Start HTTP Server
	port := cfg.Server.HTTPPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	srv := &http.Server{
		Addr:    port,
		Handler: router,
	}

	appLogger.Info("Starting HTTP server", zap.String("port", port))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to serve: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Forced shutdown", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
