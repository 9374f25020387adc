// Package main runs the AI task scheduler service: it loads configuration,
// wires the provider router, scheduler, monitor and optional archive and
// publisher, and serves the HTTP ops surface until interrupted.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/star64ccs/CardStrategy-sub008/internal/config"
	"github.com/star64ccs/CardStrategy-sub008/internal/platform/logger"
	"github.com/star64ccs/CardStrategy-sub008/internal/platform/postgres"
)

func main() {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	if err := run(context.Background(), cfg, l); err != nil {
		l.Error("server exited with error", "error", err)
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config, l *slog.Logger) error {
	l.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"archive_enabled", cfg.Database.URL != "",
		"kafka_enabled", len(cfg.Kafka.Brokers) > 0)

	providers, err := buildProviders(ctx, cfg.LLM, l)
	if err != nil {
		return err
	}

	db, err := setupDatabase(ctx, cfg.Database, l)
	if err != nil {
		return err
	}

	app, err := newApplication(cfg, l, db, providers)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}

// setupDatabase opens and migrates the archive database. It returns a nil
// *sql.DB when no URL is configured.
func setupDatabase(ctx context.Context, cfg config.DatabaseConfig, l *slog.Logger) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	db, err := postgres.Open(ctx, cfg.URL, l)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, db, l); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
