package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"statlab/adapters/charts"
	"statlab/adapters/postgres"
	"statlab/adapters/stats/cluster"
	"statlab/adapters/stats/correspondence"
	"statlab/adapters/stats/factor"
	"statlab/adapters/stats/forecast"
	"statlab/adapters/stats/pca"
	"statlab/adapters/stats/regress"
	"statlab/adapters/stats/rfm"
	"statlab/app"
	"statlab/internal"
	"statlab/internal/config"
	"statlab/internal/errors"
	"statlab/internal/migration"
	"statlab/ui"
)

// initDatabase connects to PostgreSQL and brings the schema up to date
func initDatabase(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "database migration failed")
	}
	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(cfg.Server.GinMode)
	logger := internal.NewDefaultLogger()

	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	logger.Info("database ready (migration %s)", migration.NewRunner().Version())

	datasetRepo := postgres.NewDatasetRepository(db)
	analysisRepo := postgres.NewAnalysisRepository(db)

	registry := app.NewRegistry(
		correspondence.New(),
		pca.New(),
		factor.New(),
		cluster.New(),
		regress.New(),
		rfm.New(),
		forecast.New(),
	)
	renderer := charts.NewRenderer()

	datasetService := app.NewDatasetService(datasetRepo, analysisRepo, logger)
	analysisService := app.NewAnalysisService(
		datasetRepo, analysisRepo, registry, renderer, logger, cfg.Limits.MaxBatchSize,
	)

	server := ui.NewServer(datasetService, analysisService, logger, cfg.Limits.MaxUploadBytes)
	if err := server.Start(cfg.Server.Port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
