// Package main provides the main entry point for the brand visibility audit engine
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/kagemusha-ai/kagemusha/app/handlers"
	"github.com/kagemusha-ai/kagemusha/app/router"
	"github.com/kagemusha-ai/kagemusha/app/scheduler"
	"github.com/kagemusha-ai/kagemusha/app/services"
	businessflow "github.com/kagemusha-ai/kagemusha/business_flow"
	"github.com/kagemusha-ai/kagemusha/config"
	"github.com/kagemusha-ai/kagemusha/models"
	"github.com/kagemusha-ai/kagemusha/repository"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting Kagemusha visibility audit engine...")

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Client{},
		&models.Prompt{},
		&models.AuditResult{},
		&models.Campaign{},
		&models.Schedule{},
	); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s", cfg.RedisURL)
	return rc, nil
}

// initializeLogger builds the shared application logger writing to stdout and
// a size-rotated file
func initializeLogger(cfg config.LoggingConfig) *log.Logger {
	if cfg.FilePath == "" {
		return log.Default()
	}

	rotated := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	mw := io.MultiWriter(os.Stdout, rotated)
	return log.New(mw, "", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// initializeApplication wires the repositories, flows, handlers, and
// background workers
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	appLogger := initializeLogger(cfg.Logging)

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	redisClient, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	// Repositories
	clientRepo := repository.NewClientRepository(db)
	promptRepo := repository.NewPromptRepository(db)
	resultRepo := repository.NewAuditResultRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)

	// Two-tier result store: authoritative Postgres, Redis fallback
	var cache repository.ResultCache = repository.NoopResultCache{}
	if redisClient != nil {
		cache = repository.NewRedisResultCache(redisClient)
	}
	store := repository.NewTieredResultStore(resultRepo, promptRepo, cache, cfg.Cache.Prefix, appLogger)

	// External services
	scorer := services.NewScoringService(&cfg.Scoring)
	var analyzer services.SourceAnalysisService
	if cfg.SourceAnalysis.Enabled {
		analyzer = services.NewSourceAnalysisService(&cfg.SourceAnalysis)
	}

	// Business flows
	clientFlow := businessflow.NewClientFlow(clientRepo, appLogger)
	promptFlow := businessflow.NewPromptFlow(promptRepo, store, appLogger)
	auditFlow := businessflow.NewAuditFlow(
		clientRepo, promptRepo, resultRepo, campaignRepo, store,
		scorer, analyzer,
		cfg.Scoring, cfg.SourceAnalysis, cfg.Audit,
		appLogger,
	)
	metricsFlow := businessflow.NewMetricsFlow(clientRepo, promptRepo, store, appLogger)
	exportFlow := businessflow.NewExportFlow(clientRepo, promptRepo, store, appLogger)
	scheduleFlow := businessflow.NewScheduleFlow(scheduleRepo, promptRepo, appLogger)

	// Handlers
	clientHandler := handlers.NewClientHandler(clientFlow)
	promptHandler := handlers.NewPromptHandler(promptFlow)
	auditHandler := handlers.NewAuditHandler(auditFlow)
	metricsHandler := handlers.NewMetricsHandler(metricsFlow)
	scheduleHandler := handlers.NewScheduleHandler(scheduleFlow)
	exportHandler := handlers.NewExportHandler(exportFlow)

	fiberRouter := router.NewFiberRouter(
		cfg,
		clientHandler,
		promptHandler,
		auditHandler,
		metricsHandler,
		scheduleHandler,
		exportHandler,
	)

	app := &Application{
		router: fiberRouter,
		config: cfg,
		server: fiberRouter.GetApp(),
	}

	if cfg.Scheduler.Enabled {
		auditScheduler := scheduler.NewAuditScheduler(scheduleFlow, promptFlow, auditFlow, promptRepo, cfg.Scheduler.Interval)
		stop := auditScheduler.Start(context.Background())
		app.stopFuncs = append(app.stopFuncs, stop)
		log.Printf("Audit scheduler started with interval %s", cfg.Scheduler.Interval)
	}

	if redisClient != nil {
		app.stopFuncs = append(app.stopFuncs, func() { _ = redisClient.Close() })
	}

	return app, nil
}
