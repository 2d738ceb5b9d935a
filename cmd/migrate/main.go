package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mita-backend/internal/config"
	"mita-backend/internal/database"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	seed := flag.Bool("seed", false, "run db/seeds/*.sql after migrating")
	statusOnly := flag.Bool("status", false, "print the schema version and exit")
	wait := flag.Duration("wait", time.Minute, "how long to wait for the database to accept connections")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *statusOnly, *seed, *wait); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, statusOnly, seed bool, wait time.Duration) error {
	cfg := config.LoadDatabase()

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	const backoff = 2 * time.Second
	migrator := database.NewMigrator(db,
		database.WithMigrationsDir(cfg.MigrationsDir),
		database.WithSeedsDir(cfg.SeedsDir),
		database.WithReadiness(int(wait/backoff)+1, backoff),
	)
	if err := migrator.AwaitReady(ctx); err != nil {
		return err
	}

	if statusOnly {
		version, dirty, err := migrator.Version()
		if err != nil {
			return err
		}
		slog.Info("schema status", "version", version, "dirty", dirty)
		return nil
	}

	if err := migrator.Up(); err != nil {
		return err
	}
	if !seed {
		return nil
	}

	applied, err := migrator.Seed(ctx)
	if err != nil {
		return err
	}
	slog.Info("seeding finished", "files", applied)
	return nil
}
