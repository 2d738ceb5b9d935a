package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"mita-backend/internal/config"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const (
	defaultMigrationsDir = "db/migrations"
	defaultSeedsDir      = "db/seeds"
	defaultReadyAttempts = 30
	defaultReadyBackoff  = 2 * time.Second
)

// ErrNoMigrations is returned when the migrations directory does not exist
var ErrNoMigrations = errors.New("migrations directory not found")

// Migrator applies the SQL files under db/migrations and db/seeds
type Migrator struct {
	db            *sql.DB
	migrationsDir string
	seedsDir      string
	attempts      int
	backoff       time.Duration
}

type MigratorOption func(*Migrator)

func WithMigrationsDir(dir string) MigratorOption {
	return func(m *Migrator) {
		if dir != "" {
			m.migrationsDir = dir
		}
	}
}

func WithSeedsDir(dir string) MigratorOption {
	return func(m *Migrator) {
		if dir != "" {
			m.seedsDir = dir
		}
	}
}

// WithReadiness sets how many pings AwaitReady makes and how long it sleeps between them
func WithReadiness(attempts int, backoff time.Duration) MigratorOption {
	return func(m *Migrator) {
		if attempts > 0 {
			m.attempts = attempts
		}
		if backoff >= 0 {
			m.backoff = backoff
		}
	}
}

func NewMigrator(db *sql.DB, opts ...MigratorOption) *Migrator {
	m := &Migrator{
		db:            db,
		migrationsDir: defaultMigrationsDir,
		seedsDir:      defaultSeedsDir,
		attempts:      defaultReadyAttempts,
		backoff:       defaultReadyBackoff,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AwaitReady pings until the database answers, the attempts run out or ctx ends
func (m *Migrator) AwaitReady(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		if lastErr = m.db.PingContext(ctx); lastErr == nil {
			slog.Info("database is ready", "attempt", attempt)
			return nil
		}
		slog.Warn("database not ready", "attempt", attempt, "max_attempts", m.attempts, "error", lastErr)

		if attempt == m.attempts {
			break
		}

		timer := time.NewTimer(m.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("waiting for database: %w", ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("database not ready after %d attempts: %w", m.attempts, lastErr)
}

func (m *Migrator) open() (*migrate.Migrate, error) {
	if _, err := os.Stat(m.migrationsDir); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoMigrations, m.migrationsDir)
	}

	dir, err := filepath.Abs(m.migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("resolve migrations dir: %w", err)
	}

	driver, err := postgres.WithInstance(m.db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres migrate driver: %w", err)
	}

	mg, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migrate instance: %w", err)
	}
	return mg, nil
}

// Up applies every pending migration. A dirty schema is forced back to its
// recorded version first. A missing migrations directory is not an error.
func (m *Migrator) Up() error {
	mg, err := m.open()
	if errors.Is(err, ErrNoMigrations) {
		slog.Info("no migrations directory, skipping", "path", m.migrationsDir)
		return nil
	}
	if err != nil {
		return err
	}

	from, dirty, err := mg.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		slog.Warn("schema is dirty, forcing version", "version", from)
		if err := mg.Force(int(from)); err != nil {
			return fmt.Errorf("force schema version %d: %w", from, err)
		}
	}

	switch err := mg.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		slog.Info("schema up to date", "version", from)
		return nil
	case err != nil:
		return fmt.Errorf("apply migrations: %w", err)
	}

	to, _, err := mg.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	slog.Info("migrations applied", "from", from, "to", to)
	return nil
}

// Version reports the applied schema version and whether it is dirty
func (m *Migrator) Version() (uint, bool, error) {
	mg, err := m.open()
	if err != nil {
		return 0, false, err
	}

	version, dirty, err := mg.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, dirty, nil
}

// Seed executes db/seeds/*.sql in name order. A seed that fails to execute
// is logged and skipped; one that cannot be read aborts the run.
func (m *Migrator) Seed(ctx context.Context) (int, error) {
	files, err := filepath.Glob(filepath.Join(m.seedsDir, "*.sql"))
	if err != nil {
		return 0, fmt.Errorf("list seed files: %w", err)
	}
	if len(files) == 0 {
		slog.Info("no seed files", "path", m.seedsDir)
		return 0, nil
	}
	sort.Strings(files)

	applied := 0
	for _, file := range files {
		body, err := os.ReadFile(file)
		if err != nil {
			return applied, fmt.Errorf("read seed file %s: %w", filepath.Base(file), err)
		}

		if _, err := m.db.ExecContext(ctx, string(body)); err != nil {
			slog.Warn("seed file failed", "file", filepath.Base(file), "error", err)
			continue
		}
		applied++
		slog.Info("seed file applied", "file", filepath.Base(file))
	}
	return applied, nil
}

// MigrateOnStartup runs the migrator when AUTO_MIGRATE is set, seeding
// afterwards when SEED_DATABASE is also set.
func MigrateOnStartup(ctx context.Context, db *sql.DB, cfg *config.DatabaseConfig) error {
	if !cfg.AutoMigrate {
		slog.Info("auto-migration disabled")
		return nil
	}

	m := NewMigrator(db, WithMigrationsDir(cfg.MigrationsDir), WithSeedsDir(cfg.SeedsDir))

	if err := m.AwaitReady(ctx); err != nil {
		return fmt.Errorf("database readiness: %w", err)
	}
	if err := m.Up(); err != nil {
		return err
	}

	if cfg.Seed {
		if _, err := m.Seed(ctx); err != nil {
			slog.Warn("seeding failed", "error", err)
		}
	}
	return nil
}
