// Package store holds the client-side persisted collections: known devices,
// scenes and scheduled time tasks. Each store is an injectable service
// object owning its collection and its persistence handle; the in-memory
// slice is the source of truth during a session and every mutation writes
// the full collection back to its durable namespace synchronously.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bluelume/bluelume-go/internal/database/repositories"
)

// Durable storage namespace keys. Fixed: they match the original client's
// persisted blobs, so an existing database rehydrates unchanged.
const (
	DeviceKey   = "device"
	SceneKey    = "scenes"
	TimeTaskKey = "timeTask"
)

// ErrBuiltinScene is returned when removing a built-in scene.
var ErrBuiltinScene = errors.New("built-in scenes cannot be removed")

// load reads the JSON array persisted under key into dst. A missing
// snapshot leaves dst untouched.
func load(ctx context.Context, repo *repositories.SnapshotRepository, key string, dst interface{}) error {
	snapshot, err := repo.FindByKey(ctx, key)
	if err != nil {
		return fmt.Errorf("load %s store: %w", key, err)
	}
	if snapshot == nil || snapshot.Value == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(snapshot.Value), dst); err != nil {
		return fmt.Errorf("decode %s store: %w", key, err)
	}
	return nil
}

// persist writes src as the JSON array blob for key.
func persist(ctx context.Context, repo *repositories.SnapshotRepository, key string, src interface{}) error {
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("encode %s store: %w", key, err)
	}
	if _, err := repo.Upsert(ctx, key, string(data)); err != nil {
		return fmt.Errorf("persist %s store: %w", key, err)
	}
	return nil
}
