package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/trailog/internal/observability"
	"github.com/claude/trailog/internal/render"
	"github.com/claude/trailog/internal/storage"
	"github.com/claude/trailog/internal/workout"
	"github.com/google/uuid"
)

// DefaultKey is the storage slot holding the serialized workout list.
const DefaultKey = "workouts"

// Store is the durable key-value slot the session mirrors into.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Marker is a map pin for one workout.
type Marker struct {
	ID        string         `json:"id"`
	Coords    workout.Coords `json:"coords"`
	Popup     string         `json:"popup"`
	ClassName string         `json:"className"`
}

// Map is the map collaborator. Calls are only made once the map has been
// initialized from a device position.
type Map interface {
	Init(center workout.Coords, zoom int)
	AddMarker(m Marker)
	SetView(center workout.Coords, zoom int)
	FitBounds(points []workout.Coords, padding int)
	ClearMarkers()
}

// List is the rendered workout list.
type List interface {
	Append(w workout.Workout) error
	Reset()
}

// Options tune a Controller. Zero values fall back to defaults.
type Options struct {
	Key        string
	Zoom       int
	FitPadding int
	Now        func() time.Time
	NewID      func() string
	Notifier   Notifier
}

// Controller owns the session state: the ordered workout collection, map
// readiness and the pending map click. Every operation runs to completion
// under one lock.
type Controller struct {
	mu       sync.Mutex
	store    Store
	m        Map
	list     List
	log      *slog.Logger
	notifier Notifier

	key     string
	zoom    int
	padding int
	now     func() time.Time
	newID   func() string

	workouts []workout.Workout
	dirty    bool
	ready    bool
	pending  *workout.Coords
	alert    string
}

// New creates a Controller with an empty collection. Call Restore to load
// the stored list.
func New(store Store, m Map, list List, log *slog.Logger, opts Options) *Controller {
	c := &Controller{
		store:    store,
		m:        m,
		list:     list,
		log:      log,
		notifier: opts.Notifier,
		key:      opts.Key,
		zoom:     opts.Zoom,
		padding:  opts.FitPadding,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if c.key == "" {
		c.key = DefaultKey
	}
	if c.zoom == 0 {
		c.zoom = 13
	}
	if c.padding == 0 {
		c.padding = 50
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	if c.notifier == nil {
		c.notifier = nopNotifier{}
	}
	return c
}

// Create validates in, builds the workout, appends it, renders it and
// persists the whole collection. A validation failure leaves the session
// untouched. Storage failures are logged and do not fail the call.
func (c *Controller) Create(ctx context.Context, in Input) (workout.Workout, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kind, err := in.validate()
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			observability.RecordValidationFailure(ve.Field)
		}
		return workout.Workout{}, err
	}

	var at workout.Coords
	switch {
	case in.Coords != nil:
		at = *in.Coords
	case c.pending != nil:
		at = *c.pending
	default:
		return workout.Workout{}, ErrNoPosition
	}

	id, date := c.newID(), c.now()
	var w workout.Workout
	switch kind {
	case workout.KindRunning:
		w = workout.NewRunning(id, date, at, in.Distance, in.Duration, in.Cadence)
	case workout.KindCycling:
		w = workout.NewCycling(id, date, at, in.Distance, in.Duration, in.ElevationGain)
	}

	c.workouts = append(c.workouts, w)
	c.dirty = true
	c.pending = nil
	c.appendToList(w)
	if c.ready {
		c.m.AddMarker(markerFor(w))
	}
	if err := c.persistLocked(ctx); err != nil {
		c.log.Error("persisting workouts", "error", err, "count", len(c.workouts))
	}

	observability.RecordWorkoutCreated(string(kind))
	observability.SetSessionWorkouts(len(c.workouts))
	c.log.Info("workout created", "id", w.ID, "type", kind, "description", w.Description)

	rec := workout.ToRecord(w)
	c.notifier.Notify(Event{Type: EventWorkoutCreated, Workout: &rec})
	return w, nil
}

// Persist writes the full collection to the storage slot, overwriting it,
// when it holds changes the slot has not seen yet. A session that restored
// nothing because the slot could not be read never writes over it.
func (c *Controller) Persist(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	return c.persistLocked(ctx)
}

func (c *Controller) persistLocked(ctx context.Context) error {
	data, err := workout.Encode(c.workouts)
	if err == nil {
		err = c.store.Put(ctx, c.key, data)
	}
	observability.RecordStorageWrite(err)
	if err == nil {
		c.dirty = false
	}
	return err
}

func (c *Controller) appendToList(w workout.Workout) {
	if err := c.list.Append(w); err != nil {
		c.log.Error("rendering workout", "id", w.ID, "error", err)
	}
}

// Restore replaces the collection with the stored one and renders each
// entry to the list. An absent, unreadable or malformed value yields an
// empty collection. Returns the number of workouts loaded.
func (c *Controller) Restore(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	ws := c.load(ctx)

	c.workouts = ws
	c.dirty = false
	c.list.Reset()
	for _, w := range ws {
		c.appendToList(w)
	}
	if c.ready {
		c.m.ClearMarkers()
		for _, w := range ws {
			c.m.AddMarker(markerFor(w))
		}
	}

	observability.SetSessionWorkouts(len(ws))
	c.notifier.Notify(Event{Type: EventWorkoutsRestored, Count: len(ws)})
	return len(ws)
}

func (c *Controller) load(ctx context.Context) []workout.Workout {
	data, err := c.store.Get(ctx, c.key)
	if errors.Is(err, storage.ErrNotFound) {
		c.log.Info("no stored workouts", "key", c.key)
		return nil
	}
	if err != nil {
		c.log.Warn("reading stored workouts failed, starting empty", "key", c.key, "error", err)
		return nil
	}

	ws, err := workout.Decode(data)
	if err != nil {
		c.log.Warn("stored workouts are malformed, starting empty", "key", c.key, "error", err)
		return nil
	}
	c.log.Info("workouts restored", "count", len(ws))
	return ws
}

// Workouts returns a copy of the collection in insertion order.
func (c *Controller) Workouts() []workout.Workout {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]workout.Workout(nil), c.workouts...)
}

// Locate finds a workout by id.
func (c *Controller) Locate(id string) (workout.Workout, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locateLocked(id)
}

func (c *Controller) locateLocked(id string) (workout.Workout, bool) {
	for _, w := range c.workouts {
		if w.ID == id {
			return w, true
		}
	}
	return workout.Workout{}, false
}

// Focus centers the map on the workout with the given id. It is a no-op
// returning false when the map is not ready or the id is unknown.
func (c *Controller) Focus(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ready {
		return false
	}
	w, ok := c.locateLocked(id)
	if !ok {
		return false
	}
	c.m.SetView(w.Coords, c.zoom)
	at := w.Coords
	c.notifier.Notify(Event{Type: EventMapFocus, ID: w.ID, Coords: &at})
	return true
}

// FitAll frames every stored coordinate on the map. It is a no-op returning
// false when the collection is empty or the map is not ready.
func (c *Controller) FitAll() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.workouts) == 0 || !c.ready {
		return false
	}
	points := make([]workout.Coords, 0, len(c.workouts))
	for _, w := range c.workouts {
		points = append(points, w.Coords)
	}
	c.m.FitBounds(points, c.padding)
	c.notifier.Notify(Event{Type: EventMapFit, Count: len(points)})
	return true
}

// SelectPosition records a map click as the position of the next workout.
func (c *Controller) SelectPosition(at workout.Coords) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ready {
		return ErrMapNotReady
	}
	c.pending = &at
	c.notifier.Notify(Event{Type: EventMapClick, Coords: &at})
	return nil
}

// Pending returns the selected map position, if any.
func (c *Controller) Pending() (workout.Coords, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return workout.Coords{}, false
	}
	return *c.pending, true
}

// Clear drops the whole collection and its stored copy. On a storage error
// the session keeps its state.
func (c *Controller) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Delete(ctx, c.key); err != nil {
		return err
	}
	n := len(c.workouts)
	c.workouts = nil
	c.dirty = false
	c.pending = nil
	c.list.Reset()
	if c.ready {
		c.m.ClearMarkers()
	}

	observability.SetSessionWorkouts(0)
	c.log.Info("workouts cleared", "count", n)
	c.notifier.Notify(Event{Type: EventWorkoutsCleared, Count: n})
	return nil
}

// LocationFound is the success outcome of the one-shot location request:
// it initializes the map at pos and pins every workout already loaded.
// Later calls are ignored.
func (c *Controller) LocationFound(pos workout.Coords) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ready {
		return
	}
	c.ready = true
	c.alert = ""
	c.m.Init(pos, c.zoom)
	for _, w := range c.workouts {
		c.m.AddMarker(markerFor(w))
	}

	c.log.Info("map ready", "center", pos.String(), "markers", len(c.workouts))
	c.notifier.Notify(Event{Type: EventMapReady, Coords: &pos})
}

// LocationFailed is the failure outcome of the location request. The
// session stays in list-only mode.
func (c *Controller) LocationFailed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ready {
		return
	}
	c.alert = AlertNoLocation
	c.log.Warn("location unavailable, list-only mode", "error", err)
	c.notifier.Notify(Event{Type: EventLocationFailed, Message: AlertNoLocation})
}

// MapReady reports whether the map has been initialized.
func (c *Controller) MapReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Alert returns the last user-facing alert, empty when there is none.
func (c *Controller) Alert() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alert
}

func markerFor(w workout.Workout) Marker {
	return Marker{
		ID:        w.ID,
		Coords:    w.Coords,
		Popup:     render.Popup(w),
		ClassName: string(w.Kind()) + "-popup",
	}
}
