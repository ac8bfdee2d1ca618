// Command ranker serves the dataset ranking API and keeps the ranking fresh
// with a periodic recompute loop.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/jonesrussell/data-rescue/internal/api"
	"github.com/jonesrussell/data-rescue/internal/catalog"
	"github.com/jonesrussell/data-rescue/internal/config"
	"github.com/jonesrussell/data-rescue/internal/handlers"
	"github.com/jonesrussell/data-rescue/internal/logger"
	"github.com/jonesrussell/data-rescue/internal/ranking"

	_ "github.com/lib/pq"
)

const serviceName = "ranker"

// Database connection timeout.
const dbPingTimeout = 5 * time.Second

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

	return runServer(cfg, log, db)
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

// runServer wires the ranking pipeline and serves until shutdown.
func runServer(cfg *config.Config, log logger.Logger, db *sql.DB) int {
	repo := catalog.NewRankRepository(db, log)
	engine := ranking.NewEngine()

	recomputer := ranking.NewRecomputer(engine, repo, log, cfg.Ranking.RecomputeInterval)
	if err := recomputer.Start(); err != nil {
		log.Error("Failed to start recomputer", logger.Error(err))
		return 1
	}
	defer recomputer.Stop()

	rankingHandler := handlers.NewRankingHandler(repo, recomputer, cfg.Ranking.PageSize, log)
	healthHandler := handlers.NewHealthHandler(db, serviceName, cfg.Service.Version)

	router := api.NewRankerRouter(rankingHandler, healthHandler, log)
	server := api.NewServer(cfg.Service.Port, router, log)

	log.Info("Ranker starting",
		logger.Int("port", cfg.Service.Port),
		logger.Duration("recompute_interval", cfg.Ranking.RecomputeInterval),
	)

	if err := server.Run(); err != nil {
		log.Error("Server error", logger.Error(err))
		return 1
	}

	log.Info("Ranker exited cleanly")
	return 0
}
