package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mita-backend/internal/config"
	"mita-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB wraps the gorm handle shared by every repository
type DB struct {
	*gorm.DB
}

// schema lists the tables gorm creates when no migration run is available
var schema = []any{
	&models.User{},
	&models.RefreshToken{},
	&models.BlacklistedToken{},
	&models.CalendarDay{},
	&models.Transaction{},
	&models.ReferralClaim{},
	&models.PushToken{},
	&models.NotificationLog{},
}

// postgresIndexes are expression and partial indexes AutoMigrate cannot declare
var postgresIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users(LOWER(email))",
	"CREATE INDEX IF NOT EXISTS idx_users_locked_at ON users(locked_at) WHERE locked_at IS NOT NULL",
	"CREATE INDEX IF NOT EXISTS idx_users_referral_prefix ON users(UPPER(SUBSTR(CAST(id AS TEXT), 1, 6)))",
	"CREATE INDEX IF NOT EXISTS idx_calendar_days_user_date ON calendar_days(user_id, date)",
	"CREATE INDEX IF NOT EXISTS idx_transactions_user_spent ON transactions(user_id, spent_at)",
	"CREATE INDEX IF NOT EXISTS idx_notification_logs_user_created ON notification_logs(user_id, created_at DESC)",
}

// Open connects to postgres and sizes the pool from cfg
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	level := logger.Warn
	if cfg.LogQueries {
		level = logger.Info
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:  logger.Default.LogMode(level),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{DB: gdb}, nil
}

// AutoMigrate creates or alters the tables for every persisted model
func (db *DB) AutoMigrate() error {
	return db.DB.AutoMigrate(schema...)
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (db *DB) createIndexes(ctx context.Context) {
	for _, stmt := range postgresIndexes {
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			slog.Warn("index not created", "statement", stmt, "error", err)
		}
	}
}

// Initialize opens the database and brings its schema up to date, using the
// SQL migrations when AUTO_MIGRATE is set and gorm's AutoMigrate otherwise
// or when the migration run fails.
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := Open(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("underlying sql.DB: %w", err)
	}

	migrated := cfg.Database.AutoMigrate
	if err := MigrateOnStartup(ctx, sqlDB, &cfg.Database); err != nil {
		slog.Warn("migration run failed, falling back to AutoMigrate", "error", err)
		migrated = false
	}
	if !migrated {
		if err := db.AutoMigrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto-migrate schema: %w", err)
		}
	}

	db.createIndexes(ctx)
	slog.Info("database initialized", "host", cfg.Database.Host, "name", cfg.Database.Name)

	return db, nil
}
