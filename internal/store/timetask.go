package store

import (
	"context"
	"sync"

	"github.com/bluelume/bluelume-go/internal/database/repositories"
	"github.com/bluelume/bluelume-go/internal/led"
)

// TimeTaskStore is the persisted list of scheduled tasks, keyed by name.
// Uniqueness of names is the caller's responsibility (enforced at the form
// boundary); Add appends unconditionally.
type TimeTaskStore struct {
	mu    sync.RWMutex
	tasks []led.TimeTask
	repo  *repositories.SnapshotRepository
}

// NewTimeTaskStore creates a TimeTaskStore backed by repo.
func NewTimeTaskStore(repo *repositories.SnapshotRepository) *TimeTaskStore {
	return &TimeTaskStore{repo: repo}
}

// Load rehydrates the store from durable storage. Called once at startup.
func (s *TimeTaskStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return load(ctx, s.repo, TimeTaskKey, &s.tasks)
}

// Tasks returns a copy of the collection in insertion order.
func (s *TimeTaskStore) Tasks() []led.TimeTask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]led.TimeTask, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Add appends the task unconditionally.
func (s *TimeTaskStore) Add(ctx context.Context, task led.TimeTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	return persist(ctx, s.repo, TimeTaskKey, s.tasks)
}

// Remove drops the task with the given name. A missing name is a no-op.
func (s *TimeTaskStore) Remove(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.tasks[:0]
	for _, task := range s.tasks {
		if task.Name != name {
			kept = append(kept, task)
		}
	}
	s.tasks = kept
	return persist(ctx, s.repo, TimeTaskKey, s.tasks)
}

// Update replaces the task with the given name in place, preserving order.
// A missing name is a no-op, never an insert.
func (s *TimeTaskStore) Update(ctx context.Context, name string, task led.TimeTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].Name == name {
			s.tasks[i] = task
			return persist(ctx, s.repo, TimeTaskKey, s.tasks)
		}
	}
	return nil
}
