package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/claude/trailog/internal/geo"
	"github.com/claude/trailog/internal/mapview"
	"github.com/claude/trailog/internal/session"
	"github.com/claude/trailog/internal/workout"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, workout.ToRecords(s.ctrl.Workouts()))
}

func (s *Server) handleCreateWorkout(w http.ResponseWriter, r *http.Request) {
	var in session.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	created, err := s.ctrl.Create(r.Context(), in)
	switch {
	case errors.Is(err, session.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":  session.AlertInvalidInput,
			"detail": err.Error(),
		})
		return
	case errors.Is(err, session.ErrNoPosition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	case err != nil:
		s.log.Error("create workout error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, workout.ToRecord(created))
}

func (s *Server) handleClearWorkouts(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Clear(r.Context()); err != nil {
		s.log.Error("clear workouts error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	found, ok := s.ctrl.Locate(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
		return
	}
	writeJSON(w, http.StatusOK, workout.ToRecord(found))
}

// handleFocusWorkout is a silent no-op for unknown ids or an unready map,
// matching a click on a list entry that has no marker.
func (s *Server) handleFocusWorkout(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Focus(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

type mapResponse struct {
	mapview.Snapshot
	Alert   string          `json:"alert,omitempty"`
	Pending *workout.Coords `json:"pending,omitempty"`
	SpanKm  float64         `json:"spanKm"`
}

func (s *Server) handleMapSnapshot(w http.ResponseWriter, r *http.Request) {
	resp := mapResponse{
		Snapshot: s.view.Snapshot(),
		Alert:    s.ctrl.Alert(),
	}
	if at, ok := s.ctrl.Pending(); ok {
		resp.Pending = &at
	}

	points := make([]workout.Coords, 0, len(resp.Markers))
	for _, m := range resp.Markers {
		points = append(points, m.Coords)
	}
	if sw, ne, ok := geo.Bounds(points); ok {
		resp.SpanKm = geo.HaversineKm(sw, ne)
	}

	writeJSON(w, http.StatusOK, resp)
}

// position is the browser's {lat, lng} body. Error carries a failed
// geolocation attempt.
type position struct {
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
	Error string   `json:"error,omitempty"`
}

func (p position) coords() (workout.Coords, bool) {
	if p.Lat == nil || p.Lng == nil {
		return workout.Coords{}, false
	}
	at := workout.Coords{Lat: *p.Lat, Lng: *p.Lng}
	return at, at.Valid()
}

func (s *Server) handleMapClick(w http.ResponseWriter, r *http.Request) {
	var p position
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	at, ok := p.coords()
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat and lng required"})
		return
	}

	if err := s.ctrl.SelectPosition(at); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMapFit(w http.ResponseWriter, r *http.Request) {
	s.ctrl.FitAll()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	if s.locator == nil || s.locator.Resolved() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": geo.ErrAlreadyResolved.Error()})
		return
	}

	var p position
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	var err error
	if p.Error != "" {
		err = s.locator.Fail(errors.New(p.Error))
	} else {
		at, ok := p.coords()
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat and lng required"})
			return
		}
		err = s.locator.Deliver(at)
	}
	if errors.Is(err, geo.ErrAlreadyResolved) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleWorkoutsFragment(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.list.HTML()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
