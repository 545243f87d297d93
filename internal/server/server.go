package server

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/claude/trailog/internal/geo"
	"github.com/claude/trailog/internal/mapview"
	"github.com/claude/trailog/internal/render"
	"github.com/claude/trailog/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	ctrl    *session.Controller
	view    *mapview.View
	list    *render.List
	locator *geo.Pending
	events  http.Handler
	log     *slog.Logger
	router  chi.Router
}

// New creates a new Server with all routes configured. locator may be nil
// when the position comes from configuration instead of the browser, and
// events may be nil to disable the live stream.
func New(ctrl *session.Controller, view *mapview.View, list *render.List, locator *geo.Pending, events http.Handler, log *slog.Logger) *Server {
	s := &Server{
		ctrl:    ctrl,
		view:    view,
		list:    list,
		locator: locator,
		events:  events,
		log:     log,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1/workouts", func(r chi.Router) {
		r.Get("/", s.handleListWorkouts)
		r.Post("/", s.handleCreateWorkout)
		r.Delete("/", s.handleClearWorkouts)
		r.Get("/{id}", s.handleGetWorkout)
		r.Post("/{id}/focus", s.handleFocusWorkout)
	})

	s.router.Get("/api/v1/map", s.handleMapSnapshot)
	s.router.Post("/api/v1/map/click", s.handleMapClick)
	s.router.Post("/api/v1/map/fit", s.handleMapFit)
	s.router.Post("/api/v1/location", s.handleLocation)

	s.router.Get("/fragments/workouts", s.handleWorkoutsFragment)

	if s.events != nil {
		s.router.Handle("/api/v1/events", s.events)
	}
	s.router.Handle("/metrics", promhttp.Handler())
}

// SetFrontend mounts the embedded SPA filesystem.
// Unmatched routes serve index.html for client-side routing.
func (s *Server) SetFrontend(webFS fs.FS) {
	fileServer := http.FileServerFS(webFS)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		// Try to serve the exact file first
		f, err := webFS.Open(r.URL.Path[1:]) // strip leading /
		if err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}
