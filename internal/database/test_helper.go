package database

import (
	"testing"

	"mita-backend/internal/models"

	"github.com/brianvoe/gofakeit/v7"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a migrated in-memory SQLite database. The pool is
// pinned to one connection because every new :memory: connection is a new
// empty database.
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("underlying sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db := &DB{DB: gdb}
	if err := db.AutoMigrate(); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

// CreateTestUser inserts a user with fake names; an empty email is generated
func CreateTestUser(t *testing.T, db *DB, email string) *models.User {
	t.Helper()

	if email == "" {
		email = gofakeit.Email()
	}

	user := &models.User{
		Email:        email,
		PasswordHash: "hashed_password",
		FirstName:    gofakeit.FirstName(),
		LastName:     gofakeit.LastName(),
		Role:         models.RoleUser,
		Country:      gofakeit.CountryAbr(),
		Timezone:     "UTC",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

// CleanupTestDB hard-deletes every row, children before parents
func CleanupTestDB(t *testing.T, db *DB) {
	t.Helper()

	wipe := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped()
	for i := len(schema) - 1; i >= 0; i-- {
		if err := wipe.Delete(schema[i]).Error; err != nil {
			t.Logf("cleanup %T: %v", schema[i], err)
		}
	}
}
