package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluelume/bluelume-go/internal/led"
	"github.com/bluelume/bluelume-go/internal/services/pubsub"
	"github.com/bluelume/bluelume-go/internal/services/session"
)

// stubController serves fixed device state for session endpoint tests.
type stubController struct {
	connectErr error
	state      led.State
	tasks      []led.TimeTask
}

func (f *stubController) Connect(ctx context.Context, id string) (*led.Device, error) {
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	return &led.Device{ID: id, Address: "AA:BB", LocalName: "Strip"}, nil
}

func (f *stubController) Disconnect(ctx context.Context, id string) error { return nil }

func (f *stubController) Control(ctx context.Context, id string, command led.Command) error {
	return nil
}

func (f *stubController) SetScene(ctx context.Context, id string, scene led.Scene) error {
	return nil
}

func (f *stubController) GetScene(ctx context.Context, id string) (*led.Scene, error) {
	scene := led.NewSolidScene("Warm", "#ffaa00", true)
	return &scene, nil
}

func (f *stubController) GetState(ctx context.Context, id string) (led.State, error) {
	if f.state == "" {
		return led.StateClosed, nil
	}
	return f.state, nil
}

func (f *stubController) SetTimer(ctx context.Context, id string, command led.TimerCommand) error {
	return nil
}

func (f *stubController) GetTimeTasks(ctx context.Context, id string) ([]led.TimeTask, error) {
	return f.tasks, nil
}

func newTestManager(events *pubsub.PubSub) *session.Manager {
	return session.NewManager(&stubController{}, events, zerolog.Nop())
}

func TestSession_ConnectAndStatus(t *testing.T) {
	srv, _ := setupServer(t)
	srv.Sessions = session.NewManager(&stubController{state: led.StateOpened}, srv.Events, zerolog.Nop())
	router := srv.Router("*")

	rec := doJSON(t, router, http.MethodPost, "/api/devices/dev-1/connect", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, session.StatusConnected, snap.Status)
	assert.Equal(t, led.StateOpened, snap.State)
	require.NotNil(t, snap.Device)
	assert.Equal(t, "dev-1", snap.Device.ID)

	rec = doJSON(t, router, http.MethodGet, "/api/devices/dev-1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, session.StatusConnected, snap.Status)
}

func TestSession_ConnectFailureReportsSnapshot(t *testing.T) {
	srv, _ := setupServer(t)
	srv.Sessions = session.NewManager(&stubController{connectErr: errors.New("unreachable")}, srv.Events, zerolog.Nop())
	router := srv.Router("*")

	rec := doJSON(t, router, http.MethodPost, "/api/devices/dev-1/connect", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, session.StatusFailed, snap.Status)
	assert.Equal(t, led.StateClosed, snap.State)
}

func TestSession_ControlWithoutConnectIs409(t *testing.T) {
	srv, _ := setupServer(t)
	srv.Sessions = newTestManager(srv.Events)

	rec := doJSON(t, srv.Router("*"), http.MethodPost, "/api/devices/dev-1/control", map[string]string{"command": "open"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSession_ControlConnected(t *testing.T) {
	srv, _ := setupServer(t)
	srv.Sessions = newTestManager(srv.Events)
	router := srv.Router("*")

	rec := doJSON(t, router, http.MethodPost, "/api/devices/dev-1/connect", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/devices/dev-1/control", map[string]string{"command": "open"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSession_TimerValidation(t *testing.T) {
	srv, _ := setupServer(t)
	srv.Sessions = newTestManager(srv.Events)
	router := srv.Router("*")

	rec := doJSON(t, router, http.MethodPost, "/api/devices/dev-1/connect", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Invalid command type never reaches the backend.
	rec = doJSON(t, router, http.MethodPost, "/api/devices/dev-1/timer", map[string]string{"type": "noSuchType"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	task := led.NewOnceTask("bedtime", led.OperationClose, time.Date(2026, 8, 30, 22, 0, 0, 0, time.UTC))
	rec = doJSON(t, router, http.MethodPost, "/api/devices/dev-1/timer", led.AddTask(task))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSession_NextTask(t *testing.T) {
	ctrl := &stubController{
		tasks: []led.TimeTask{
			led.NewDayTask("morning", led.OperationOpen, time.Date(2026, 8, 26, 8, 0, 0, 0, time.UTC)),
		},
	}
	srv, _ := setupServer(t)
	srv.Sessions = session.NewManager(ctrl, srv.Events, zerolog.Nop())
	router := srv.Router("*")

	rec := doJSON(t, router, http.MethodPost, "/api/devices/dev-1/connect", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Fixed clock is 08:05; the daily 08:00 task is 23h55m away.
	rec = doJSON(t, router, http.MethodGet, "/api/devices/dev-1/next-task", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"minutes":55`)
	assert.Contains(t, rec.Body.String(), `"hours":23`)
}
