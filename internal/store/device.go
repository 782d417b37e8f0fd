package store

import (
	"context"
	"sync"

	"github.com/bluelume/bluelume-go/internal/database/repositories"
	"github.com/bluelume/bluelume-go/internal/led"
)

// DeviceStore is the persisted list of devices the user has added. Devices
// are keyed by id; insertion order is preserved.
type DeviceStore struct {
	mu      sync.RWMutex
	devices []led.Device
	repo    *repositories.SnapshotRepository
}

// NewDeviceStore creates a DeviceStore backed by repo.
func NewDeviceStore(repo *repositories.SnapshotRepository) *DeviceStore {
	return &DeviceStore{repo: repo}
}

// Load rehydrates the store from durable storage. Called once at startup.
func (s *DeviceStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return load(ctx, s.repo, DeviceKey, &s.devices)
}

// Devices returns a copy of the collection in insertion order.
func (s *DeviceStore) Devices() []led.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]led.Device, len(s.devices))
	copy(out, s.devices)
	return out
}

// Add appends the device. Adding an id that is already present is a silent
// no-op.
func (s *DeviceStore) Add(ctx context.Context, device led.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.devices {
		if d.ID == device.ID {
			return nil
		}
	}
	s.devices = append(s.devices, device)
	return persist(ctx, s.repo, DeviceKey, s.devices)
}

// Remove drops the device with the given id. A missing id is a no-op.
func (s *DeviceStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.devices[:0]
	for _, d := range s.devices {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	s.devices = kept
	return persist(ctx, s.repo, DeviceKey, s.devices)
}
