package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bluelume/bluelume-go/internal/led"
	"github.com/bluelume/bluelume-go/internal/schedule"
)

func (s *Server) handleListTimeTasks(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, s.TimeTasks.Tasks())
}

func (s *Server) handleAddTimeTask(w http.ResponseWriter, r *http.Request) {
	var task led.TimeTask
	if !s.decode(w, r, &task) {
		return
	}
	if msg := validateName(task.Name); msg != "" {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if err := task.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, existing := range s.TimeTasks.Tasks() {
		if existing.Name == task.Name {
			s.respondError(w, http.StatusBadRequest, "task name already exists")
			return
		}
	}
	if err := s.TimeTasks.Add(r.Context(), task); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respond(w, http.StatusCreated, task)
}

func (s *Server) handleUpdateTimeTask(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	found := false
	for _, existing := range s.TimeTasks.Tasks() {
		if existing.Name == name {
			found = true
			break
		}
	}
	if !found {
		s.respondError(w, http.StatusNotFound, "task not found")
		return
	}
	var task led.TimeTask
	if !s.decode(w, r, &task) {
		return
	}
	if err := task.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if task.Name != name {
		if msg := validateName(task.Name); msg != "" {
			s.respondError(w, http.StatusBadRequest, msg)
			return
		}
		for _, existing := range s.TimeTasks.Tasks() {
			if existing.Name == task.Name {
				s.respondError(w, http.StatusBadRequest, "task name already exists")
				return
			}
		}
	}
	if err := s.TimeTasks.Update(r.Context(), name, task); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respond(w, http.StatusOK, task)
}

func (s *Server) handleRemoveTimeTask(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.TimeTasks.Remove(r.Context(), name); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

// handleNextTimeTask reports the nearest upcoming task from the local
// store. Accepts an optional now=RFC3339 override for the reference time.
func (s *Server) handleNextTimeTask(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	if raw := r.URL.Query().Get("now"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid now parameter")
			return
		}
		now = parsed
	}
	task, delay, ok := schedule.Nearest(s.TimeTasks.Tasks(), now)
	if !ok {
		s.respond(w, http.StatusOK, map[string]interface{}{"task": nil})
		return
	}
	s.respond(w, http.StatusOK, map[string]interface{}{"task": task, "delay": delay})
}
