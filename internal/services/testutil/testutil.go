// Package testutil provides shared test utilities for integration tests.
package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/lucsky/cuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bluelume/bluelume-go/internal/database/models"
	"github.com/bluelume/bluelume-go/internal/database/repositories"
)

// TestDB holds the test database and repositories.
type TestDB struct {
	DB           *gorm.DB
	SnapshotRepo *repositories.SnapshotRepository
}

// SetupTestDB creates an in-memory SQLite database with the snapshot
// schema migrated. The connection is closed via t.Cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	if err := db.AutoMigrate(&models.StoreSnapshot{}); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return &TestDB{
		DB:           db,
		SnapshotRepo: repositories.NewSnapshotRepository(db),
	}
}

// UniqueName generates a unique entity name for testing. This ensures
// tests don't conflict with each other.
func UniqueName(prefix string) string {
	return prefix + "-" + cuid.New()[:8]
}
