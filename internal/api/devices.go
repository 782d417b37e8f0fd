package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bluelume/bluelume-go/internal/led"
	"github.com/bluelume/bluelume-go/internal/schedule"
	"github.com/bluelume/bluelume-go/internal/services/session"
)

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, s.Devices.Devices())
}

func (s *Server) handleAddDevice(w http.ResponseWriter, r *http.Request) {
	var device led.Device
	if !s.decode(w, r, &device) {
		return
	}
	if device.ID == "" {
		s.respondError(w, http.StatusBadRequest, "device id must not be empty")
		return
	}
	if err := s.Devices.Add(r.Context(), device); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respond(w, http.StatusCreated, device)
}

func (s *Server) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Devices.Remove(r.Context(), id); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	if s.Scanner == nil {
		s.respondError(w, http.StatusServiceUnavailable, "led backend unavailable")
		return
	}
	if err := s.Scanner.StartScan(r.Context()); err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "scanning"})
}

func (s *Server) handleStopScan(w http.ResponseWriter, r *http.Request) {
	if s.Scanner == nil {
		s.respondError(w, http.StatusServiceUnavailable, "led backend unavailable")
		return
	}
	if err := s.Scanner.StopScan(r.Context()); err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// deviceSession resolves the session for the path's device id, or answers
// 503 when the backend bridge is down.
func (s *Server) deviceSession(w http.ResponseWriter, r *http.Request) *session.Session {
	if s.Sessions == nil {
		s.respondError(w, http.StatusServiceUnavailable, "led backend unavailable")
		return nil
	}
	return s.Sessions.Session(chi.URLParam(r, "id"))
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	sess := s.deviceSession(w, r)
	if sess == nil {
		return
	}
	if err := sess.Connect(r.Context()); err != nil {
		s.respond(w, http.StatusBadGateway, sess.Snapshot())
		return
	}
	s.respond(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	sess := s.deviceSession(w, r)
	if sess == nil {
		return
	}
	if err := sess.Disconnect(r.Context()); err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respond(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sess := s.deviceSession(w, r)
	if sess == nil {
		return
	}
	s.respond(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	sess := s.deviceSession(w, r)
	if sess == nil {
		return
	}
	var body struct {
		Command led.Command `json:"command"`
	}
	if !s.decode(w, r, &body) {
		return
	}

	var err error
	switch body.Command {
	case led.CommandOpen:
		err = sess.Open(r.Context())
	case led.CommandClose:
		err = sess.Close(r.Context())
	case led.CommandReset:
		err = sess.Reset(r.Context())
	default:
		s.respondError(w, http.StatusBadRequest, "unknown command")
		return
	}
	if err != nil {
		s.sessionError(w, err)
		return
	}
	s.respond(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleSessionScene(w http.ResponseWriter, r *http.Request) {
	sess := s.deviceSession(w, r)
	if sess == nil {
		return
	}
	var scene led.Scene
	if !s.decode(w, r, &scene) {
		return
	}
	if err := scene.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := sess.ChangeScene(r.Context(), scene); err != nil {
		s.sessionError(w, err)
		return
	}
	s.respond(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleSessionTimer(w http.ResponseWriter, r *http.Request) {
	sess := s.deviceSession(w, r)
	if sess == nil {
		return
	}
	var command led.TimerCommand
	if !s.decode(w, r, &command) {
		return
	}
	if err := command.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := sess.AddTimeTask(r.Context(), command); err != nil {
		s.sessionError(w, err)
		return
	}
	s.respond(w, http.StatusOK, sess.Snapshot())
}

// handleDeviceNextTask reports the connected device's nearest upcoming
// scheduled task and the delay until it fires.
func (s *Server) handleDeviceNextTask(w http.ResponseWriter, r *http.Request) {
	sess := s.deviceSession(w, r)
	if sess == nil {
		return
	}
	task, delay, ok := schedule.Nearest(sess.Snapshot().TimeTasks, s.now())
	if !ok {
		s.respond(w, http.StatusOK, map[string]interface{}{"task": nil})
		return
	}
	s.respond(w, http.StatusOK, map[string]interface{}{"task": task, "delay": delay})
}

func (s *Server) sessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrNotConnected) {
		s.respondError(w, http.StatusConflict, err.Error())
		return
	}
	s.respondError(w, http.StatusBadGateway, err.Error())
}
