// Package api exposes the HTTP and WebSocket surface the view layer talks
// to: store CRUD, scan control, per-device sessions and the event stream.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/bluelume/bluelume-go/internal/led"
	"github.com/bluelume/bluelume-go/internal/services/pubsub"
	"github.com/bluelume/bluelume-go/internal/services/session"
	"github.com/bluelume/bluelume-go/internal/store"
)

// maxNameLen bounds user-supplied scene and task names at the form boundary.
const maxNameLen = 24

// Scanner is the subset of the backend bridge the scan endpoints use.
type Scanner interface {
	StartScan(ctx context.Context) error
	StopScan(ctx context.Context) error
	GetDevices(ctx context.Context) ([]led.Device, error)
}

// Server bundles the handlers' dependencies. Scanner and Sessions are nil
// when the backend bridge is unavailable; the affected endpoints answer 503.
type Server struct {
	Devices   *store.DeviceStore
	Scenes    *store.SceneStore
	TimeTasks *store.TimeTaskStore
	Scanner   Scanner
	Sessions  *session.Manager
	Events    *pubsub.PubSub
	Log       zerolog.Logger

	// Now is the clock used for delay calculations. Defaults to time.Now.
	Now func() time.Time

	// EventBufferSize is the per-topic channel depth for /events streams.
	EventBufferSize int
}

// Router builds the chi router with CORS for the given origin.
func (s *Server) Router(corsOrigin string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/events", s.handleEvents)

	r.Route("/api", func(r chi.Router) {
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleAddDevice)
			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", s.handleRemoveDevice)
				r.Post("/connect", s.handleConnect)
				r.Post("/disconnect", s.handleDisconnect)
				r.Get("/status", s.handleStatus)
				r.Post("/control", s.handleControl)
				r.Post("/scene", s.handleSessionScene)
				r.Post("/timer", s.handleSessionTimer)
				r.Get("/next-task", s.handleDeviceNextTask)
			})
		})

		r.Route("/scan", func(r chi.Router) {
			r.Post("/start", s.handleStartScan)
			r.Post("/stop", s.handleStopScan)
		})

		r.Route("/scenes", func(r chi.Router) {
			r.Get("/", s.handleListScenes)
			r.Post("/", s.handleAddScene)
			r.Put("/{name}", s.handleUpdateScene)
			r.Delete("/{name}", s.handleRemoveScene)
		})

		r.Route("/timetasks", func(r chi.Router) {
			r.Get("/", s.handleListTimeTasks)
			r.Post("/", s.handleAddTimeTask)
			r.Get("/next", s.handleNextTimeTask)
			r.Put("/{name}", s.handleUpdateTimeTask)
			r.Delete("/{name}", s.handleRemoveTimeTask)
		})
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Server) respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.Log.Warn().Err(err).Msg("write response failed")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respond(w, status, map[string]string{"error": message})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// validateName enforces the shared form rules for user-supplied names.
func validateName(name string) string {
	if name == "" {
		return "name must not be empty"
	}
	if len(name) > maxNameLen {
		return "name too long"
	}
	return ""
}
