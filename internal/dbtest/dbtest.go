// Package dbtest opens throwaway in-memory databases for tests.
package dbtest

import (
	"testing"

	"market-backend/internal/database"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated in-memory SQLite database. A single connection is used so
// every goroutine sees the same database and transactions run one at a time.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// UseGlobal points database.DB at db for the duration of the test.
func UseGlobal(t testing.TB, db *gorm.DB) {
	t.Helper()
	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })
}

// PostgresDryRun returns a session that renders Postgres SQL without connecting,
// for asserting on statements SQLite never sees, such as row locks.
func PostgresDryRun(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(postgres.Open("host=localhost user=postgres dbname=market sslmode=disable"), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("open postgres dry run: %v", err)
	}
	return db
}
