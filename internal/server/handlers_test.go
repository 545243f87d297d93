package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/claude/trailog/internal/config"
	"github.com/claude/trailog/internal/geo"
	"github.com/claude/trailog/internal/mapview"
	"github.com/claude/trailog/internal/render"
	"github.com/claude/trailog/internal/session"
	"github.com/claude/trailog/internal/storage"
	"github.com/claude/trailog/internal/workout"
)

type testEnv struct {
	srv     *Server
	ctrl    *session.Controller
	view    *mapview.View
	locator *geo.Pending
	located <-chan struct{}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	view := mapview.New(config.Default().Map)
	list := render.NewList()
	ctrl := session.New(storage.NewMemory(), view, list, log, session.Options{})
	locator := geo.NewPending()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	located := geo.Request(ctx, locator, ctrl.LocationFound, ctrl.LocationFailed)

	return &testEnv{
		srv:     New(ctrl, view, list, locator, nil, log),
		ctrl:    ctrl,
		view:    view,
		locator: locator,
		located: located,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

// locate resolves the browser geolocation request and waits for the map.
func (e *testEnv) locate(t *testing.T) {
	t.Helper()
	if rec := e.do(t, http.MethodPost, "/api/v1/location", `{"lat":51.5,"lng":-0.12}`); rec.Code != http.StatusAccepted {
		t.Fatalf("location status = %d, want 202: %s", rec.Code, rec.Body)
	}
	select {
	case <-e.located:
	case <-time.After(2 * time.Second):
		t.Fatal("location request never completed")
	}
}

// TestCreateWorkout verifies a valid run is created, listed and fetchable.
func TestCreateWorkout(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/v1/workouts",
		`{"type":"running","distance":5,"duration":30,"cadence":150,"coords":[51.5,-0.1]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}

	var created workout.Record
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if created.Type != workout.KindRunning || created.Pace == nil || *created.Pace != 6 {
		t.Errorf("created = %+v", created)
	}

	rec = e.do(t, http.MethodGet, "/api/v1/workouts", "")
	var list []workout.Record
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Errorf("list = %+v", list)
	}

	if rec := e.do(t, http.MethodGet, "/api/v1/workouts/"+created.ID, ""); rec.Code != http.StatusOK {
		t.Errorf("get status = %d, want 200", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, "/fragments/workouts", ""); !strings.Contains(rec.Body.String(), created.ID) {
		t.Errorf("fragment missing workout: %s", rec.Body)
	}
}

// TestCreateWorkoutInvalid verifies validation failures are 400 with the user alert.
func TestCreateWorkoutInvalid(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/v1/workouts",
		`{"type":"running","distance":-1,"duration":30,"cadence":150,"coords":[1,1]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)
	if body["error"] != session.AlertInvalidInput {
		t.Errorf("error = %q, want %q", body["error"], session.AlertInvalidInput)
	}
	if n := len(e.ctrl.Workouts()); n != 0 {
		t.Errorf("workouts = %d, want 0", n)
	}

	if rec := e.do(t, http.MethodPost, "/api/v1/workouts", `{not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rec.Code)
	}
}

// TestCreateWorkoutOutOfRange verifies explicit coordinates and overflowing
// metrics are rejected like any other invalid input.
func TestCreateWorkoutOutOfRange(t *testing.T) {
	e := newTestEnv(t)
	for _, body := range []string{
		`{"type":"running","distance":5,"duration":30,"cadence":150,"coords":[999,999]}`,
		`{"type":"running","distance":5e-324,"duration":30,"cadence":150,"coords":[1,1]}`,
	} {
		if rec := e.do(t, http.MethodPost, "/api/v1/workouts", body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, rec.Code)
		}
	}
	if n := len(e.ctrl.Workouts()); n != 0 {
		t.Errorf("workouts = %d, want 0", n)
	}
	if rec := e.do(t, http.MethodGet, "/api/v1/workouts", ""); rec.Code != http.StatusOK {
		t.Errorf("list status = %d, want 200", rec.Code)
	}
}

// TestCreateWorkoutNoPosition verifies a workout without a position is a conflict.
func TestCreateWorkoutNoPosition(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/v1/workouts", `{"type":"cycling","distance":20,"duration":60,"elevationGain":400}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

// TestGetWorkoutMissing verifies an unknown id is 404.
func TestGetWorkoutMissing(t *testing.T) {
	e := newTestEnv(t)
	if rec := e.do(t, http.MethodGet, "/api/v1/workouts/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// TestMapFlow verifies location, click, create and fit through the API.
func TestMapFlow(t *testing.T) {
	e := newTestEnv(t)

	if rec := e.do(t, http.MethodPost, "/api/v1/map/click", `{"lat":1,"lng":2}`); rec.Code != http.StatusConflict {
		t.Errorf("click before ready status = %d, want 409", rec.Code)
	}

	e.locate(t)
	if rec := e.do(t, http.MethodPost, "/api/v1/location", `{"lat":1,"lng":1}`); rec.Code != http.StatusConflict {
		t.Errorf("second location status = %d, want 409", rec.Code)
	}

	if rec := e.do(t, http.MethodPost, "/api/v1/map/click", `{"lat":51.51,"lng":-0.13}`); rec.Code != http.StatusNoContent {
		t.Fatalf("click status = %d, want 204", rec.Code)
	}
	rec := e.do(t, http.MethodPost, "/api/v1/workouts", `{"type":"cycling","distance":20,"duration":60,"elevationGain":400}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", rec.Code, rec.Body)
	}
	var created workout.Record
	json.NewDecoder(rec.Body).Decode(&created)

	if rec := e.do(t, http.MethodPost, "/api/v1/workouts/"+created.ID+"/focus", ""); rec.Code != http.StatusNoContent {
		t.Errorf("focus status = %d, want 204", rec.Code)
	}
	if rec := e.do(t, http.MethodPost, "/api/v1/map/fit", ""); rec.Code != http.StatusNoContent {
		t.Errorf("fit status = %d, want 204", rec.Code)
	}

	rec = e.do(t, http.MethodGet, "/api/v1/map", "")
	var snap mapResponse
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !snap.Ready || len(snap.Markers) != 1 || snap.Fit == nil {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Markers[0].Coords != (workout.Coords{Lat: 51.51, Lng: -0.13}) {
		t.Errorf("marker coords = %v", snap.Markers[0].Coords)
	}
}

// TestLocationFailure verifies a failed geolocation leaves the alert set.
func TestLocationFailure(t *testing.T) {
	e := newTestEnv(t)
	if rec := e.do(t, http.MethodPost, "/api/v1/location", `{"error":"permission denied"}`); rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	<-e.located

	rec := e.do(t, http.MethodGet, "/api/v1/map", "")
	var snap mapResponse
	json.NewDecoder(rec.Body).Decode(&snap)
	if snap.Ready {
		t.Error("map ready after failure")
	}
	if snap.Alert != session.AlertNoLocation {
		t.Errorf("alert = %q", snap.Alert)
	}
}

// TestClearWorkouts verifies DELETE empties the collection.
func TestClearWorkouts(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodPost, "/api/v1/workouts", `{"type":"running","distance":5,"duration":30,"cadence":150,"coords":[1,1]}`)

	if rec := e.do(t, http.MethodDelete, "/api/v1/workouts", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if n := len(e.ctrl.Workouts()); n != 0 {
		t.Errorf("workouts = %d, want 0", n)
	}
}

// TestMetricsEndpoint verifies Prometheus metrics are exposed.
func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "trailog_session_workouts") {
		t.Error("session gauge missing from /metrics")
	}
}

// TestSetFrontend verifies static files are served and unknown paths fall back to index.html.
func TestSetFrontend(t *testing.T) {
	e := newTestEnv(t)
	e.srv.SetFrontend(fstest.MapFS{
		"index.html": {Data: []byte("<html>trailog</html>")},
		"app.js":     {Data: []byte("console.log(1)")},
	})

	if rec := e.do(t, http.MethodGet, "/app.js", ""); !strings.Contains(rec.Body.String(), "console.log") {
		t.Errorf("app.js body = %q", rec.Body)
	}
	if rec := e.do(t, http.MethodGet, "/some/route", ""); !strings.Contains(rec.Body.String(), "trailog") {
		t.Errorf("fallback body = %q", rec.Body)
	}
}
