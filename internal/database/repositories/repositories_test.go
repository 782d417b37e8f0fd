package repositories

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bluelume/bluelume-go/internal/database/models"
)

// setupTestDB creates an in-memory SQLite database for testing repositories.
func setupTestDB(t *testing.T) (*gorm.DB, func()) {
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

	cleanup := func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	}

	return db, cleanup
}

func TestSnapshotRepository_FindByKey_Missing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSnapshotRepository(db)
	snapshot, err := repo.FindByKey(context.Background(), "missing")
	if err != nil {
		t.Fatalf("FindByKey failed: %v", err)
	}
	if snapshot != nil {
		t.Errorf("Expected nil for missing key, got %+v", snapshot)
	}
}

func TestSnapshotRepository_UpsertAndFind(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSnapshotRepository(db)
	ctx := context.Background()

	// First upsert creates
	if _, err := repo.Upsert(ctx, "device", `[{"id":"A"}]`); err != nil {
		t.Fatalf("Upsert (create) failed: %v", err)
	}
	snapshot, err := repo.FindByKey(ctx, "device")
	if err != nil {
		t.Fatalf("FindByKey failed: %v", err)
	}
	if snapshot == nil {
		t.Fatal("Expected snapshot after upsert")
	}
	if snapshot.Value != `[{"id":"A"}]` {
		t.Errorf("Unexpected value: %s", snapshot.Value)
	}

	// Second upsert replaces the value under the same key
	if _, err := repo.Upsert(ctx, "device", `[]`); err != nil {
		t.Fatalf("Upsert (update) failed: %v", err)
	}
	snapshot, err = repo.FindByKey(ctx, "device")
	if err != nil {
		t.Fatalf("FindByKey failed: %v", err)
	}
	if snapshot.Value != `[]` {
		t.Errorf("Expected replaced value, got %s", snapshot.Value)
	}

	// Keys are independent namespaces
	if _, err := repo.Upsert(ctx, "scenes", `[{"name":"Warm"}]`); err != nil {
		t.Fatalf("Upsert (scenes) failed: %v", err)
	}
	snapshot, err = repo.FindByKey(ctx, "device")
	if err != nil {
		t.Fatalf("FindByKey failed: %v", err)
	}
	if snapshot.Value != `[]` {
		t.Errorf("Writing scenes must not touch device, got %s", snapshot.Value)
	}
}

func TestSnapshotRepository_Delete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSnapshotRepository(db)
	ctx := context.Background()

	if _, err := repo.Upsert(ctx, "timeTask", `[]`); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := repo.Delete(ctx, "timeTask"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	snapshot, err := repo.FindByKey(ctx, "timeTask")
	if err != nil {
		t.Fatalf("FindByKey failed: %v", err)
	}
	if snapshot != nil {
		t.Error("Expected snapshot to be gone after delete")
	}

	// Deleting a missing key is a no-op
	if err := repo.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete of missing key should not error: %v", err)
	}
}
