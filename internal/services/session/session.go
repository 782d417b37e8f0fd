// Package session orchestrates the per-device connection lifecycle:
// connect, fetch the device's scene, power state and task list, subscribe
// to its push updates, and tear everything down on release.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bluelume/bluelume-go/internal/led"
	"github.com/bluelume/bluelume-go/internal/services/pubsub"
)

// Status is the connection state of a session.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusFailed     Status = "failed"
)

// ErrNotConnected is returned for control calls on a session that has no
// connected device.
var ErrNotConnected = errors.New("device not connected")

// eventBuffer is the per-topic channel depth for push updates. Delivery is
// last-write-wins; dropping under burst is acceptable.
const eventBuffer = 8

// Controller is the backend surface a session drives. *bridge.Bridge
// implements it.
type Controller interface {
	Connect(ctx context.Context, id string) (*led.Device, error)
	Disconnect(ctx context.Context, id string) error
	Control(ctx context.Context, id string, command led.Command) error
	SetScene(ctx context.Context, id string, scene led.Scene) error
	GetScene(ctx context.Context, id string) (*led.Scene, error)
	GetState(ctx context.Context, id string) (led.State, error)
	SetTimer(ctx context.Context, id string, command led.TimerCommand) error
	GetTimeTasks(ctx context.Context, id string) ([]led.TimeTask, error)
}

// Notice is a transient user-facing message. No notice is fatal and none
// triggers a retry; a failed call is retried only by explicit user action.
type Notice struct {
	Level    string `json:"level"` // "success", "warning" or "error"
	DeviceID string `json:"deviceId,omitempty"`
	Message  string `json:"message"`
}

// Snapshot is a point-in-time view of a session for the view layer.
type Snapshot struct {
	DeviceID  string         `json:"deviceId"`
	Status    Status         `json:"status"`
	Device    *led.Device    `json:"device,omitempty"`
	State     led.State      `json:"state"`
	Scene     *led.Scene     `json:"scene,omitempty"`
	TimeTasks []led.TimeTask `json:"timeTasks"`
}

// Session manages one device target. All mutations happen under one mutex;
// results and push events carry the generation they were started under and
// are dropped when a newer connect or teardown has superseded them.
type Session struct {
	mu   sync.Mutex
	ctrl Controller

	events *pubsub.PubSub
	notify func(Notice)
	log    zerolog.Logger

	deviceID string
	status   Status
	device   *led.Device
	state    led.State
	scene    *led.Scene
	tasks    []led.TimeTask
	group    *pubsub.Group
	gen      uint64
}

func newSession(ctrl Controller, events *pubsub.PubSub, deviceID string, notify func(Notice), log zerolog.Logger) *Session {
	return &Session{
		ctrl:     ctrl,
		events:   events,
		notify:   notify,
		log:      log.With().Str("device", deviceID).Logger(),
		deviceID: deviceID,
		status:   StatusIdle,
		state:    led.StateClosed,
	}
}

// DeviceID returns the id this session targets.
func (s *Session) DeviceID() string { return s.deviceID }

// Status returns the current connection status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		DeviceID:  s.deviceID,
		Status:    s.status,
		State:     s.state,
		TimeTasks: make([]led.TimeTask, len(s.tasks)),
	}
	copy(snap.TimeTasks, s.tasks)
	if s.device != nil {
		device := *s.device
		snap.Device = &device
	}
	if s.scene != nil {
		scene := *s.scene
		snap.Scene = &scene
	}
	return snap
}

// Connect runs the full connect sequence: backend connect, then the scene,
// state and task-list reads in that order, then the push subscriptions.
// The session stays in StatusConnecting until all three reads resolve.
// On any failure it lands in StatusFailed with disconnected defaults.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.status = StatusConnecting
	if s.group != nil {
		s.group.Close()
		s.group = nil
	}
	id := s.deviceID
	s.mu.Unlock()

	device, err := s.ctrl.Connect(ctx, id)
	if err != nil {
		return s.failConnect(gen, id, err)
	}
	scene, err := s.ctrl.GetScene(ctx, id)
	if err != nil {
		return s.failConnect(gen, displayName(device), err)
	}
	state, err := s.ctrl.GetState(ctx, id)
	if err != nil {
		return s.failConnect(gen, displayName(device), err)
	}
	tasks, err := s.ctrl.GetTimeTasks(ctx, id)
	if err != nil {
		return s.failConnect(gen, displayName(device), err)
	}

	s.mu.Lock()
	if s.gen != gen {
		// A newer connect or teardown superseded this one; drop the result.
		s.mu.Unlock()
		return nil
	}
	s.device = device
	s.scene = scene
	s.state = state
	s.tasks = tasks
	group := s.events.NewGroup()
	stateSub := group.Subscribe(pubsub.TopicLedState, id, eventBuffer)
	sceneSub := group.Subscribe(pubsub.TopicLedScene, id, eventBuffer)
	tasksSub := group.Subscribe(pubsub.TopicLedTimeTasks, id, eventBuffer)
	s.group = group
	s.status = StatusConnected
	s.mu.Unlock()

	go s.consume(gen, stateSub.Channel, sceneSub.Channel, tasksSub.Channel)

	s.log.Info().Msg("device connected")
	s.post(Notice{Level: "success", DeviceID: id, Message: fmt.Sprintf("connected to device (%s)", displayName(device))})
	return nil
}

func (s *Session) failConnect(gen uint64, name string, err error) error {
	s.mu.Lock()
	if s.gen == gen {
		s.status = StatusFailed
		s.device = nil
		s.state = led.StateClosed
		s.scene = nil
		s.tasks = nil
	}
	id := s.deviceID
	s.mu.Unlock()

	s.log.Warn().Err(err).Msg("device connect failed")
	s.post(Notice{Level: "error", DeviceID: id, Message: fmt.Sprintf("failed to connect device (%s)", name)})
	return err
}

// Reconnect re-enters the connect sequence from any state.
func (s *Session) Reconnect(ctx context.Context) error {
	return s.Connect(ctx)
}

// Disconnect tears the session down: push subscriptions are cancelled and,
// if a device was connected, the backend connection is dropped.
func (s *Session) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	wasConnected := s.status == StatusConnected
	device := s.device
	if s.group != nil {
		s.group.Close()
		s.group = nil
	}
	s.status = StatusIdle
	s.device = nil
	s.state = led.StateClosed
	s.scene = nil
	s.tasks = nil
	id := s.deviceID
	s.mu.Unlock()

	if !wasConnected {
		return nil
	}
	if err := s.ctrl.Disconnect(ctx, id); err != nil {
		s.post(Notice{Level: "error", DeviceID: id, Message: fmt.Sprintf("failed to disconnect device (%s)", displayName(device))})
		return err
	}
	s.post(Notice{Level: "success", DeviceID: id, Message: fmt.Sprintf("disconnected device (%s)", displayName(device))})
	return nil
}

// Open turns the device on.
func (s *Session) Open(ctx context.Context) error {
	return s.control(ctx, led.CommandOpen, "turn on")
}

// Close turns the device off.
func (s *Session) Close(ctx context.Context) error {
	return s.control(ctx, led.CommandClose, "turn off")
}

// Reset restores the device to factory defaults.
func (s *Session) Reset(ctx context.Context) error {
	return s.control(ctx, led.CommandReset, "reset")
}

// control issues a single command. A failure is reported and leaves the
// connection state machine untouched.
func (s *Session) control(ctx context.Context, command led.Command, verb string) error {
	device, err := s.connectedDevice()
	if err != nil {
		return err
	}
	name := displayName(device)
	if err := s.ctrl.Control(ctx, device.ID, command); err != nil {
		s.post(Notice{Level: "error", DeviceID: device.ID, Message: fmt.Sprintf("failed to %s device (%s)", verb, name)})
		return err
	}
	s.post(Notice{Level: "success", DeviceID: device.ID, Message: fmt.Sprintf("device (%s) %s ok", name, verb)})
	return nil
}

// ChangeScene applies a scene to the connected device. Color values are
// normalized to RGB at the wire boundary.
func (s *Session) ChangeScene(ctx context.Context, scene led.Scene) error {
	device, err := s.connectedDevice()
	if err != nil {
		return err
	}
	name := displayName(device)
	if err := s.ctrl.SetScene(ctx, device.ID, scene); err != nil {
		s.post(Notice{Level: "error", DeviceID: device.ID, Message: fmt.Sprintf("failed to set scene on device (%s)", name)})
		return err
	}
	s.post(Notice{Level: "success", DeviceID: device.ID, Message: fmt.Sprintf("scene applied to device (%s)", name)})
	return nil
}

// AddTimeTask installs or removes a scheduled task on the connected device.
func (s *Session) AddTimeTask(ctx context.Context, command led.TimerCommand) error {
	device, err := s.connectedDevice()
	if err != nil {
		return err
	}
	name := displayName(device)
	what := "add timer task"
	if command.Type == led.TimerRemoveTask {
		what = "cancel timer task"
	}
	if err := s.ctrl.SetTimer(ctx, device.ID, command); err != nil {
		s.post(Notice{Level: "error", DeviceID: device.ID, Message: fmt.Sprintf("failed to %s on device (%s)", what, name)})
		return err
	}
	s.post(Notice{Level: "success", DeviceID: device.ID, Message: fmt.Sprintf("%s on device (%s) ok", what, name)})
	return nil
}

func (s *Session) connectedDevice() (*led.Device, error) {
	s.mu.Lock()
	device := s.device
	id := s.deviceID
	s.mu.Unlock()
	if device == nil {
		s.post(Notice{Level: "error", DeviceID: id, Message: "device not connected"})
		return nil, ErrNotConnected
	}
	return device, nil
}

// consume applies push updates until all three subscription channels are
// closed. Updates are last-write-wins; anything delivered after the
// session moved on (gen mismatch) is dropped.
func (s *Session) consume(gen uint64, stateCh, sceneCh, tasksCh chan interface{}) {
	for stateCh != nil || sceneCh != nil || tasksCh != nil {
		select {
		case msg, ok := <-stateCh:
			if !ok {
				stateCh = nil
				continue
			}
			if state, ok := msg.(led.State); ok {
				s.apply(gen, func() { s.state = state })
			}
		case msg, ok := <-sceneCh:
			if !ok {
				sceneCh = nil
				continue
			}
			if scene, ok := msg.(led.Scene); ok {
				s.apply(gen, func() { s.scene = &scene })
			}
		case msg, ok := <-tasksCh:
			if !ok {
				tasksCh = nil
				continue
			}
			if tasks, ok := msg.([]led.TimeTask); ok {
				s.apply(gen, func() { s.tasks = tasks })
			}
		}
	}
}

func (s *Session) apply(gen uint64, mutate func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	mutate()
}

func (s *Session) post(n Notice) {
	if s.notify != nil {
		s.notify(n)
	}
}

func displayName(device *led.Device) string {
	if device == nil {
		return ""
	}
	if device.LocalName != "" {
		return device.LocalName
	}
	return device.ID
}
