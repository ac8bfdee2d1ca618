// Command dispatcher hands ranked assets to volunteer nodes and reconciles
// their reported download outcomes back into the catalog.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/data-rescue/internal/allocation"
	"github.com/jonesrussell/data-rescue/internal/api"
	"github.com/jonesrussell/data-rescue/internal/catalog"
	"github.com/jonesrussell/data-rescue/internal/config"
	"github.com/jonesrussell/data-rescue/internal/events"
	"github.com/jonesrussell/data-rescue/internal/handlers"
	"github.com/jonesrussell/data-rescue/internal/logger"
	"github.com/jonesrussell/data-rescue/internal/rankclient"
	"github.com/jonesrussell/data-rescue/internal/reconcile"

	_ "github.com/lib/pq"
)

const serviceName = "dispatcher"

const (
	dbPingTimeout    = 5 * time.Second
	redisPingTimeout = 3 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log, err := createLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	db, err := connectDatabase(cfg, log)
	if err != nil {
		log.Error("Failed to connect to database", logger.Error(err))
		return 1
	}
	defer func() { _ = db.Close() }()

	redisClient := connectRedis(cfg, log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	return runServer(cfg, log, db, redisClient)
}

func loadConfig() (*config.Config, error) {
	configPath := config.GetConfigPath("config.yml")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Service.Name == "" {
		cfg.Service.Name = serviceName
	}
	if validationErr := cfg.Validate(); validationErr != nil {
		return nil, fmt.Errorf("validate config: %w", validationErr)
	}
	return cfg, nil
}

func createLogger(cfg *config.Config) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(logger.String("service", serviceName)), nil
}

func connectDatabase(cfg *config.Config, log logger.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	log.Info("Database connected",
		logger.String("host", cfg.Database.Host),
		logger.Int("port", cfg.Database.Port),
		logger.String("database", cfg.Database.Database),
	)

	return db, nil
}

// connectRedis connects to Redis for the ranking cache and event stream.
// Redis is optional: on failure the dispatcher runs without cache or events.
func connectRedis(cfg *config.Config, log logger.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		log.Info("Redis disabled, running without cache and events")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unreachable, running without cache and events",
			logger.String("address", cfg.Redis.Address),
			logger.Error(err),
		)
		_ = client.Close()
		return nil
	}

	log.Info("Redis connected",
		logger.String("address", cfg.Redis.Address),
	)

	return client
}

// runServer wires the allocation and reconcile pipelines and serves until
// shutdown.
func runServer(cfg *config.Config, log logger.Logger, db *sql.DB, redisClient *redis.Client) int {
	source := rankclient.NewClient(cfg.Dispatcher.RankerBaseURL, cfg.Dispatcher.ClientTimeout, log)
	defer source.Close()

	cache := allocation.NewRankingCache(redisClient, cfg.Dispatcher.CacheTTL, log)
	allocRepo := catalog.NewAllocationRepository(db, log)
	publisher := events.NewPublisher(redisClient, log)

	engine := allocation.NewEngine(source, cache, allocRepo, publisher, log, cfg.Dispatcher.MaxUnknownSizeAssets)

	rescueRepo := catalog.NewRescueRepository(db, log)
	reconciler := reconcile.NewReconciler(rescueRepo, publisher, log)

	var auditLog *reconcile.RescueLog
	if cfg.Dispatcher.RescueLogPath != "" {
		auditLog = reconcile.NewRescueLog(cfg.Dispatcher.RescueLogPath, log)
	}

	dispatchHandler := handlers.NewDispatchHandler(engine, log)
	rescueHandler := handlers.NewRescueHandler(reconciler, auditLog, log)
	healthHandler := handlers.NewHealthHandler(db, serviceName, cfg.Service.Version)

	router := api.NewDispatcherRouter(dispatchHandler, rescueHandler, healthHandler, log)
	server := api.NewServer(cfg.Service.Port, router, log)

	log.Info("Dispatcher starting",
		logger.Int("port", cfg.Service.Port),
		logger.String("ranker_base_url", cfg.Dispatcher.RankerBaseURL),
	)

	if err := server.Run(); err != nil {
		log.Error("Server error", logger.Error(err))
		return 1
	}

	log.Info("Dispatcher exited cleanly")
	return 0
}
