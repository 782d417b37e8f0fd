package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bluelume/bluelume-go/internal/services/pubsub"
)

// Manager owns at most one session per device id. Notices raised by its
// sessions are published on the event bus under TopicNotice with the
// device id as filter.
type Manager struct {
	mu       sync.Mutex
	ctrl     Controller
	events   *pubsub.PubSub
	log      zerolog.Logger
	sessions map[string]*Session
}

func NewManager(ctrl Controller, events *pubsub.PubSub, log zerolog.Logger) *Manager {
	return &Manager{
		ctrl:     ctrl,
		events:   events,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Session returns the session for the device, creating an idle one if none
// exists yet.
func (m *Manager) Session(deviceID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[deviceID]; ok {
		return s
	}
	s := newSession(m.ctrl, m.events, deviceID, m.publishNotice, m.log)
	m.sessions[deviceID] = s
	return s
}

// Get returns the session for the device, or nil if none was created.
func (m *Manager) Get(deviceID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[deviceID]
}

// Release disconnects and forgets the device's session.
func (m *Manager) Release(ctx context.Context, deviceID string) error {
	m.mu.Lock()
	s, ok := m.sessions[deviceID]
	delete(m.sessions, deviceID)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return s.Disconnect(ctx)
}

// Shutdown disconnects every session. Used on server stop; individual
// disconnect failures are logged and do not abort the sweep.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		if err := s.Disconnect(ctx); err != nil {
			m.log.Warn().Err(err).Str("device", s.DeviceID()).Msg("disconnect on shutdown failed")
		}
	}
}

func (m *Manager) publishNotice(n Notice) {
	m.events.Publish(pubsub.TopicNotice, n.DeviceID, n)
}
