package store

import (
	"context"
	"sync"

	"github.com/bluelume/bluelume-go/internal/database/repositories"
	"github.com/bluelume/bluelume-go/internal/led"
)

// SceneStore is the persisted list of lighting scenes, keyed by name.
// Uniqueness of names is the caller's responsibility (enforced at the form
// boundary); Add appends unconditionally.
type SceneStore struct {
	mu     sync.RWMutex
	scenes []led.Scene
	repo   *repositories.SnapshotRepository
}

// NewSceneStore creates a SceneStore backed by repo.
func NewSceneStore(repo *repositories.SnapshotRepository) *SceneStore {
	return &SceneStore{repo: repo}
}

// Load rehydrates the store from durable storage. Called once at startup.
func (s *SceneStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return load(ctx, s.repo, SceneKey, &s.scenes)
}

// Scenes returns a copy of the collection in insertion order.
func (s *SceneStore) Scenes() []led.Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]led.Scene, len(s.scenes))
	copy(out, s.scenes)
	return out
}

// Find returns the scene with the given name, or nil.
func (s *SceneStore) Find(name string) *led.Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.scenes {
		if s.scenes[i].Name == name {
			scene := s.scenes[i]
			return &scene
		}
	}
	return nil
}

// Add appends the scene unconditionally.
func (s *SceneStore) Add(ctx context.Context, scene led.Scene) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenes = append(s.scenes, scene)
	return persist(ctx, s.repo, SceneKey, s.scenes)
}

// Remove drops the scene with the given name. A missing name is a no-op.
// Built-in scenes are not user-deletable.
func (s *SceneStore) Remove(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, scene := range s.scenes {
		if scene.Name == name && scene.IsBuiltin {
			return ErrBuiltinScene
		}
	}
	kept := s.scenes[:0]
	for _, scene := range s.scenes {
		if scene.Name != name {
			kept = append(kept, scene)
		}
	}
	s.scenes = kept
	return persist(ctx, s.repo, SceneKey, s.scenes)
}

// Update replaces the scene with the given name in place, preserving order.
// A missing name is a no-op, never an insert.
func (s *SceneStore) Update(ctx context.Context, name string, scene led.Scene) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.scenes {
		if s.scenes[i].Name == name {
			s.scenes[i] = scene
			return persist(ctx, s.repo, SceneKey, s.scenes)
		}
	}
	return nil
}

// Seed installs built-in scenes that are not yet present, keyed by name.
// Existing scenes, built-in or user-defined, are never overwritten.
func (s *SceneStore) Seed(ctx context.Context, builtins []led.Scene) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for _, scene := range builtins {
		scene.IsBuiltin = true
		exists := false
		for i := range s.scenes {
			if s.scenes[i].Name == scene.Name {
				exists = true
				break
			}
		}
		if !exists {
			s.scenes = append(s.scenes, scene)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return persist(ctx, s.repo, SceneKey, s.scenes)
}
