package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluelume/bluelume-go/internal/led"
	"github.com/bluelume/bluelume-go/internal/services/pubsub"
)

// fakeConn is an in-memory Conn: frames pushed to inbound are read by the
// bridge, frames the bridge writes land on outbound.
type fakeConn struct {
	inbound  chan []byte
	outbound chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound:  make(chan []byte, 16),
		outbound: make(chan []byte, 16),
		closed:   make(chan struct{}),
	}
}

func (c *fakeConn) ReadJSON(v interface{}) error {
	select {
	case data := <-c.inbound:
		return json.Unmarshal(data, v)
	case <-c.closed:
		return errors.New("use of closed connection")
	}
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	select {
	case <-c.closed:
		return errors.New("use of closed connection")
	default:
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.outbound <- data
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// push feeds a raw frame to the bridge's read loop.
func (c *fakeConn) push(t *testing.T, frame interface{}) {
	t.Helper()
	data, err := json.Marshal(frame)
	require.NoError(t, err)
	c.inbound <- data
}

// nextRequest decodes the next frame the bridge wrote.
func (c *fakeConn) nextRequest(t *testing.T) map[string]json.RawMessage {
	t.Helper()
	select {
	case data := <-c.outbound:
		var frame map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &frame))
		return frame
	case <-time.After(time.Second):
		t.Fatal("bridge wrote no frame")
		return nil
	}
}

func rawString(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal(raw, &s))
	return s
}

func setupBridge(t *testing.T) (*Bridge, *fakeConn, *pubsub.PubSub) {
	t.Helper()
	conn := newFakeConn()
	events := pubsub.New()
	b := New(conn, events, zerolog.Nop())
	t.Cleanup(func() { _ = b.Close() })
	return b, conn, events
}

func TestCall_Correlation(t *testing.T) {
	b, conn, _ := setupBridge(t)
	ctx := context.Background()

	type result struct {
		state led.State
		err   error
	}
	results := make(chan result, 2)
	go func() {
		s, err := b.GetState(ctx, "dev-a")
		results <- result{s, err}
	}()
	go func() {
		s, err := b.GetState(ctx, "dev-b")
		results <- result{s, err}
	}()

	first := conn.nextRequest(t)
	second := conn.nextRequest(t)

	// Answer out of order: correlation is by id, not arrival order.
	conn.push(t, map[string]interface{}{"id": rawString(t, second["id"]), "result": "opened"})
	conn.push(t, map[string]interface{}{"id": rawString(t, first["id"]), "result": "closed"})

	states := map[led.State]bool{}
	for i := 0; i < 2; i++ {
		r := <-results
		require.NoError(t, r.err)
		states[r.state] = true
	}
	assert.True(t, states[led.StateOpened])
	assert.True(t, states[led.StateClosed])
}

func TestCall_BackendError(t *testing.T) {
	b, conn, _ := setupBridge(t)

	errs := make(chan error, 1)
	go func() {
		_, err := b.Connect(context.Background(), "dev-a")
		errs <- err
	}()

	req := conn.nextRequest(t)
	assert.Equal(t, "connect", rawString(t, req["cmd"]))
	conn.push(t, map[string]interface{}{"id": rawString(t, req["id"]), "error": "led device not connected"})

	err := <-errs
	require.Error(t, err)
	assert.Contains(t, err.Error(), "led device not connected")
}

func TestCall_ContextCancel(t *testing.T) {
	b, conn, _ := setupBridge(t)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		errs <- b.StartScan(ctx)
	}()
	conn.nextRequest(t)
	cancel()

	err := <-errs
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCall_AfterClose(t *testing.T) {
	b, _, _ := setupBridge(t)
	require.NoError(t, b.Close())

	err := b.StopScan(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEvents_DispatchToBus(t *testing.T) {
	_, conn, events := setupBridge(t)

	stateSub := events.Subscribe(pubsub.TopicLedState, "dev-a", 4)
	sceneSub := events.Subscribe(pubsub.TopicLedScene, "dev-a", 4)
	tasksSub := events.Subscribe(pubsub.TopicLedTimeTasks, "dev-a", 4)
	scanSub := events.Subscribe(pubsub.TopicScan, "", 4)

	conn.push(t, map[string]interface{}{"event": "state-dev-a", "payload": "opened"})
	conn.push(t, map[string]interface{}{"event": "scene-dev-a", "payload": led.NewSolidScene("warm", "#ffaa00", false)})
	conn.push(t, map[string]interface{}{"event": "time-tasks-dev-a", "payload": []led.TimeTask{
		led.NewDayTask("T1", led.OperationOpen, time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)),
	}})
	conn.push(t, map[string]interface{}{"event": "scan", "payload": []led.Device{{ID: "dev-b", Address: "00:22"}}})

	select {
	case msg := <-stateSub.Channel:
		assert.Equal(t, led.StateOpened, msg)
	case <-time.After(time.Second):
		t.Fatal("no state event")
	}
	select {
	case msg := <-sceneSub.Channel:
		scene := msg.(led.Scene)
		assert.Equal(t, "warm", scene.Name)
	case <-time.After(time.Second):
		t.Fatal("no scene event")
	}
	select {
	case msg := <-tasksSub.Channel:
		tasks := msg.([]led.TimeTask)
		require.Len(t, tasks, 1)
		assert.Equal(t, "T1", tasks[0].Name)
	case <-time.After(time.Second):
		t.Fatal("no time-tasks event")
	}
	select {
	case msg := <-scanSub.Channel:
		devices := msg.([]led.Device)
		require.Len(t, devices, 1)
		assert.Equal(t, "dev-b", devices[0].ID)
	case <-time.After(time.Second):
		t.Fatal("no scan event")
	}
}

func TestEvents_WrongDeviceFilterNotDelivered(t *testing.T) {
	_, conn, events := setupBridge(t)

	sub := events.Subscribe(pubsub.TopicLedState, "dev-a", 4)
	conn.push(t, map[string]interface{}{"event": "state-dev-b", "payload": "opened"})

	select {
	case msg := <-sub.Channel:
		t.Fatalf("event for another device delivered: %v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSetScene_NormalizesColorsToRGB(t *testing.T) {
	b, conn, _ := setupBridge(t)

	errs := make(chan error, 1)
	go func() {
		errs <- b.SetScene(context.Background(), "dev-a", led.NewGradientScene("aurora", []led.ColorDuration{
			{Color: "#ff0000", Duration: 2},
			{Color: "rgb(0, 128, 255)", Duration: 3},
		}, true, false))
	}()

	req := conn.nextRequest(t)
	assert.Equal(t, "set_scene", rawString(t, req["cmd"]))

	var params struct {
		ID    string `json:"id"`
		Scene struct {
			Type   led.SceneType `json:"type"`
			Linear bool          `json:"linear"`
			Colors []struct {
				Color    [3]uint8 `json:"color"`
				Duration float64  `json:"duration"`
			} `json:"colors"`
		} `json:"scene"`
	}
	require.NoError(t, json.Unmarshal(req["params"], &params))
	assert.Equal(t, "dev-a", params.ID)
	require.Len(t, params.Scene.Colors, 2)
	assert.Equal(t, [3]uint8{255, 0, 0}, params.Scene.Colors[0].Color)
	assert.Equal(t, [3]uint8{0, 128, 255}, params.Scene.Colors[1].Color)
	assert.True(t, params.Scene.Linear)

	conn.push(t, map[string]interface{}{"id": rawString(t, req["id"])})
	require.NoError(t, <-errs)
}

func TestSetScene_InvalidColorFailsBeforeWire(t *testing.T) {
	b, conn, _ := setupBridge(t)

	err := b.SetScene(context.Background(), "dev-a", led.NewSolidScene("bad", "#zzzzzz", false))
	require.Error(t, err)
	select {
	case <-conn.outbound:
		t.Fatal("invalid scene reached the wire")
	default:
	}
}

func TestReadLoopDeath_FailsPendingCalls(t *testing.T) {
	b, conn, _ := setupBridge(t)

	errs := make(chan error, 1)
	go func() {
		_, err := b.GetDevices(context.Background())
		errs <- err
	}()
	conn.nextRequest(t)
	_ = conn.Close()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("pending call did not fail after connection death")
	}

	// Subsequent calls fail fast.
	_, err := b.GetDevices(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
