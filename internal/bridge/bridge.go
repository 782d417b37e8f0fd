// Package bridge is the typed client for the native BLE backend process.
// Commands travel as correlated request/response frames over a single
// WebSocket connection; push events (device state, scene and time-task
// updates, scan results) arrive on the same connection and fan into the
// event bus.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/lucsky/cuid"
	"github.com/rs/zerolog"

	"github.com/bluelume/bluelume-go/internal/led"
	"github.com/bluelume/bluelume-go/internal/services/pubsub"
)

// ErrClosed is returned for calls made after the bridge connection is gone.
var ErrClosed = errors.New("bridge connection closed")

// Conn is the subset of *websocket.Conn the bridge uses. Tests substitute
// an in-memory fake.
type Conn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	Close() error
}

// request is an outbound command frame.
type request struct {
	ID     string      `json:"id"`
	Cmd    string      `json:"cmd"`
	Params interface{} `json:"params,omitempty"`
}

// envelope is any inbound frame: a response (ID set) or an event (Event set).
type envelope struct {
	ID      string          `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Bridge correlates calls with responses and dispatches push events.
type Bridge struct {
	mu      sync.Mutex
	writeMu sync.Mutex
	conn    Conn
	pending map[string]chan envelope
	closed  bool

	events *pubsub.PubSub
	log    zerolog.Logger
	done   chan struct{}
}

// Dial connects to the backend at url and starts the read loop.
func Dial(ctx context.Context, url string, events *pubsub.PubSub, log zerolog.Logger) (*Bridge, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial backend %s: %w", url, err)
	}
	return New(conn, events, log), nil
}

// New wraps an established connection and starts the read loop.
func New(conn Conn, events *pubsub.PubSub, log zerolog.Logger) *Bridge {
	b := &Bridge{
		conn:    conn,
		pending: make(map[string]chan envelope),
		events:  events,
		log:     log,
		done:    make(chan struct{}),
	}
	go b.readLoop()
	return b
}

// Close tears down the connection. Pending calls fail with ErrClosed.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	return b.conn.Close()
}

func (b *Bridge) readLoop() {
	defer close(b.done)
	for {
		var frame envelope
		if err := b.conn.ReadJSON(&frame); err != nil {
			b.mu.Lock()
			b.closed = true
			for id, ch := range b.pending {
				delete(b.pending, id)
				close(ch)
			}
			b.mu.Unlock()
			b.log.Debug().Err(err).Msg("bridge read loop stopped")
			return
		}
		if frame.Event != "" {
			b.dispatchEvent(frame)
			continue
		}
		b.mu.Lock()
		ch, ok := b.pending[frame.ID]
		if ok {
			delete(b.pending, frame.ID)
		}
		b.mu.Unlock()
		if ok {
			ch <- frame
		}
	}
}

// dispatchEvent decodes a push event and publishes it to the bus. Event
// names carry the device id as a suffix: "state-{id}", "scene-{id}",
// "time-tasks-{id}"; scan results arrive as "scan".
func (b *Bridge) dispatchEvent(frame envelope) {
	switch {
	case frame.Event == "scan":
		var devices []led.Device
		if err := json.Unmarshal(frame.Payload, &devices); err != nil {
			b.log.Warn().Err(err).Msg("bad scan event payload")
			return
		}
		b.events.Publish(pubsub.TopicScan, "", devices)
	case strings.HasPrefix(frame.Event, "state-"):
		id := strings.TrimPrefix(frame.Event, "state-")
		var state led.State
		if err := json.Unmarshal(frame.Payload, &state); err != nil {
			b.log.Warn().Err(err).Str("device", id).Msg("bad state event payload")
			return
		}
		b.events.Publish(pubsub.TopicLedState, id, state)
	case strings.HasPrefix(frame.Event, "scene-"):
		id := strings.TrimPrefix(frame.Event, "scene-")
		var scene led.Scene
		if err := json.Unmarshal(frame.Payload, &scene); err != nil {
			b.log.Warn().Err(err).Str("device", id).Msg("bad scene event payload")
			return
		}
		b.events.Publish(pubsub.TopicLedScene, id, scene)
	case strings.HasPrefix(frame.Event, "time-tasks-"):
		id := strings.TrimPrefix(frame.Event, "time-tasks-")
		var tasks []led.TimeTask
		if err := json.Unmarshal(frame.Payload, &tasks); err != nil {
			b.log.Warn().Err(err).Str("device", id).Msg("bad time-tasks event payload")
			return
		}
		b.events.Publish(pubsub.TopicLedTimeTasks, id, tasks)
	default:
		b.log.Debug().Str("event", frame.Event).Msg("unhandled backend event")
	}
}

// call performs one correlated request/response round trip. There is no
// timeout beyond ctx; a hung backend hangs the call.
func (b *Bridge) call(ctx context.Context, cmd string, params, result interface{}) error {
	id := cuid.New()
	ch := make(chan envelope, 1)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.pending[id] = ch
	b.mu.Unlock()

	b.writeMu.Lock()
	err := b.conn.WriteJSON(request{ID: id, Cmd: cmd, Params: params})
	b.writeMu.Unlock()
	if err != nil {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
		return fmt.Errorf("%s: %w", cmd, err)
	}

	select {
	case <-ctx.Done():
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
		return ctx.Err()
	case frame, ok := <-ch:
		if !ok {
			return ErrClosed
		}
		if frame.Error != "" {
			return fmt.Errorf("%s: %s", cmd, frame.Error)
		}
		if result != nil && len(frame.Result) > 0 {
			if err := json.Unmarshal(frame.Result, result); err != nil {
				return fmt.Errorf("%s: decode result: %w", cmd, err)
			}
		}
		return nil
	}
}

type deviceParams struct {
	ID string `json:"id"`
}

// Init initializes the backend's BLE adapter and returns its status line.
func (b *Bridge) Init(ctx context.Context) (string, error) {
	var status string
	err := b.call(ctx, "init", nil, &status)
	return status, err
}

// StartScan begins device discovery. Results arrive incrementally as scan
// events on the bus.
func (b *Bridge) StartScan(ctx context.Context) error {
	return b.call(ctx, "start_scan", nil, nil)
}

// StopScan ends device discovery.
func (b *Bridge) StopScan(ctx context.Context) error {
	return b.call(ctx, "stop_scan", nil, nil)
}

// GetDevices returns the devices discovered so far.
func (b *Bridge) GetDevices(ctx context.Context) ([]led.Device, error) {
	var devices []led.Device
	err := b.call(ctx, "get_devices", nil, &devices)
	return devices, err
}

// Connect connects to the device and returns its resolved metadata.
func (b *Bridge) Connect(ctx context.Context, id string) (*led.Device, error) {
	var device led.Device
	if err := b.call(ctx, "connect", deviceParams{ID: id}, &device); err != nil {
		return nil, err
	}
	return &device, nil
}

// Disconnect drops the connection to the device.
func (b *Bridge) Disconnect(ctx context.Context, id string) error {
	return b.call(ctx, "disconnect", deviceParams{ID: id}, nil)
}

// Control sends an open/close/reset command.
func (b *Bridge) Control(ctx context.Context, id string, command led.Command) error {
	params := struct {
		ID      string      `json:"id"`
		Command led.Command `json:"command"`
	}{id, command}
	return b.call(ctx, "control", params, nil)
}

// SetScene applies a scene to the device. Colors are rewritten to RGB
// triples for the wire; the conversion has no retry semantics.
func (b *Bridge) SetScene(ctx context.Context, id string, scene led.Scene) error {
	wire, err := led.WireScene(scene)
	if err != nil {
		return fmt.Errorf("set_scene: %w", err)
	}
	params := struct {
		ID    string          `json:"id"`
		Scene json.RawMessage `json:"scene"`
	}{id, wire}
	return b.call(ctx, "set_scene", params, nil)
}

// GetScene reads the scene currently applied to the device.
func (b *Bridge) GetScene(ctx context.Context, id string) (*led.Scene, error) {
	var scene led.Scene
	if err := b.call(ctx, "get_scene", deviceParams{ID: id}, &scene); err != nil {
		return nil, err
	}
	return &scene, nil
}

// GetState reads the device power state.
func (b *Bridge) GetState(ctx context.Context, id string) (led.State, error) {
	var state led.State
	err := b.call(ctx, "get_state", deviceParams{ID: id}, &state)
	return state, err
}

// SetTimer installs or removes a scheduled task on the device.
func (b *Bridge) SetTimer(ctx context.Context, id string, command led.TimerCommand) error {
	if err := command.Validate(); err != nil {
		return fmt.Errorf("set_timer: %w", err)
	}
	params := struct {
		ID         string           `json:"id"`
		TimerEvent led.TimerCommand `json:"timerEvent"`
	}{id, command}
	return b.call(ctx, "set_timer", params, nil)
}

// GetTimeTasks reads the scheduled tasks stored on the device.
func (b *Bridge) GetTimeTasks(ctx context.Context, id string) ([]led.TimeTask, error) {
	var tasks []led.TimeTask
	err := b.call(ctx, "get_time_tasks", deviceParams{ID: id}, &tasks)
	return tasks, err
}
