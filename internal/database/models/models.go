// Package models contains the database model definitions.
package models

import (
	"time"
)

// StoreSnapshot persists one local store namespace ("device", "scenes",
// "timeTask") as a JSON array blob. The in-memory store is the source of
// truth during a session; snapshots are read back only at startup.
// Table: store_snapshots
type StoreSnapshot struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Key       string    `gorm:"column:key;uniqueIndex"`
	Value     string    `gorm:"column:value"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (StoreSnapshot) TableName() string { return "store_snapshots" }
