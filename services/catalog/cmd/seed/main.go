// Command seed loads demo stores and taxonomies into the catalog database.
// Products are created through the API.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/utafrali/marketplace/pkg/database"
	"github.com/utafrali/marketplace/pkg/logger"
	"github.com/utafrali/marketplace/services/catalog/internal/config"
	"github.com/utafrali/marketplace/services/catalog/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("catalog-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), log)
	if err != nil {
		log.Error("connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		log.Error("run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := seed(ctx, pool, defaultFixtures(), log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("seed complete")
}
