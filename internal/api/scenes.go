package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bluelume/bluelume-go/internal/led"
	"github.com/bluelume/bluelume-go/internal/store"
)

func (s *Server) handleListScenes(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, s.Scenes.Scenes())
}

// handleAddScene validates the scene at the form boundary; the store itself
// appends whatever it is given.
func (s *Server) handleAddScene(w http.ResponseWriter, r *http.Request) {
	var scene led.Scene
	if !s.decode(w, r, &scene) {
		return
	}
	if msg := validateName(scene.Name); msg != "" {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if err := scene.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.Scenes.Find(scene.Name) != nil {
		s.respondError(w, http.StatusBadRequest, "scene name already exists")
		return
	}
	if err := s.Scenes.Add(r.Context(), scene); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respond(w, http.StatusCreated, scene)
}

func (s *Server) handleUpdateScene(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	existing := s.Scenes.Find(name)
	if existing == nil {
		s.respondError(w, http.StatusNotFound, "scene not found")
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
	if scene.Name != name {
		if msg := validateName(scene.Name); msg != "" {
			s.respondError(w, http.StatusBadRequest, msg)
			return
		}
		if existing.IsBuiltin {
			s.respondError(w, http.StatusConflict, "cannot rename a built-in scene")
			return
		}
		if s.Scenes.Find(scene.Name) != nil {
			s.respondError(w, http.StatusBadRequest, "scene name already exists")
			return
		}
	}
	scene.IsBuiltin = existing.IsBuiltin
	if err := s.Scenes.Update(r.Context(), name, scene); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respond(w, http.StatusOK, scene)
}

func (s *Server) handleRemoveScene(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.Scenes.Remove(r.Context(), name); err != nil {
		if errors.Is(err, store.ErrBuiltinScene) {
			s.respondError(w, http.StatusConflict, err.Error())
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}
