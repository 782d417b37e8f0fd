package repositories

import (
	"context"

	"github.com/lucsky/cuid"
	"gorm.io/gorm"

	"github.com/bluelume/bluelume-go/internal/database/models"
)

// SnapshotRepository handles store snapshot data access.
type SnapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// FindByKey returns a snapshot by namespace key, or nil if absent.
func (r *SnapshotRepository) FindByKey(ctx context.Context, key string) (*models.StoreSnapshot, error) {
	var snapshot models.StoreSnapshot
	result := r.db.WithContext(ctx).First(&snapshot, "key = ?", key)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &snapshot, nil
}

// Upsert creates or replaces the snapshot for a namespace key.
func (r *SnapshotRepository) Upsert(ctx context.Context, key, value string) (*models.StoreSnapshot, error) {
	var snapshot models.StoreSnapshot

	result := r.db.WithContext(ctx).First(&snapshot, "key = ?", key)

	if result.Error == gorm.ErrRecordNotFound {
		snapshot = models.StoreSnapshot{
			ID:    cuid.New(),
			Key:   key,
			Value: value,
		}
		if err := r.db.WithContext(ctx).Create(&snapshot).Error; err != nil {
			return nil, err
		}
		return &snapshot, nil
	} else if result.Error != nil {
		return nil, result.Error
	}

	snapshot.Value = value
	if err := r.db.WithContext(ctx).Save(&snapshot).Error; err != nil {
		return nil, err
	}

	return &snapshot, nil
}

// Delete deletes a snapshot by namespace key.
func (r *SnapshotRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Delete(&models.StoreSnapshot{}, "key = ?", key).Error
}
