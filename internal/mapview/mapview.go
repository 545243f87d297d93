// Package mapview keeps the server-side model of the map the browser draws.
// The controller drives it through session.Map and clients render Snapshot.
package mapview

import (
	"sync"

	"github.com/claude/trailog/internal/config"
	"github.com/claude/trailog/internal/geo"
	"github.com/claude/trailog/internal/session"
	"github.com/claude/trailog/internal/workout"
)

// Fit is a request to frame a bounding box.
type Fit struct {
	SouthWest workout.Coords `json:"southWest"`
	NorthEast workout.Coords `json:"northEast"`
	Padding   int            `json:"padding"`
}

// Snapshot is the state a client needs to draw the map. Seq increases on
// every view change so clients can tell a fresh SetView or FitBounds from
// one they already applied.
type Snapshot struct {
	Ready       bool             `json:"ready"`
	Seq         uint64           `json:"seq"`
	Center      *workout.Coords  `json:"center,omitempty"`
	Zoom        int              `json:"zoom,omitempty"`
	Fit         *Fit             `json:"fit,omitempty"`
	Markers     []session.Marker `json:"markers"`
	TileURL     string           `json:"tileUrl"`
	Attribution string           `json:"attribution"`
}

// View implements session.Map.
type View struct {
	mu          sync.Mutex
	tileURL     string
	attribution string

	ready   bool
	seq     uint64
	center  workout.Coords
	zoom    int
	fit     *Fit
	markers []session.Marker
}

func New(cfg config.MapConfig) *View {
	return &View{tileURL: cfg.TileURL, attribution: cfg.Attribution}
}

func (v *View) Init(center workout.Coords, zoom int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ready = true
	v.setView(center, zoom)
}

func (v *View) AddMarker(m session.Marker) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.markers = append(v.markers, m)
}

func (v *View) SetView(center workout.Coords, zoom int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setView(center, zoom)
}

func (v *View) setView(center workout.Coords, zoom int) {
	v.center, v.zoom, v.fit = center, zoom, nil
	v.seq++
}

// FitBounds frames points. An empty slice leaves the view unchanged.
func (v *View) FitBounds(points []workout.Coords, padding int) {
	sw, ne, ok := geo.Bounds(points)
	if !ok {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fit = &Fit{SouthWest: sw, NorthEast: ne, Padding: padding}
	v.center = workout.Coords{Lat: (sw.Lat + ne.Lat) / 2, Lng: (sw.Lng + ne.Lng) / 2}
	v.seq++
}

func (v *View) ClearMarkers() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.markers = nil
}

// Snapshot returns a copy of the current state.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := Snapshot{
		Ready:       v.ready,
		Seq:         v.seq,
		Markers:     append([]session.Marker{}, v.markers...),
		TileURL:     v.tileURL,
		Attribution: v.attribution,
	}
	if v.ready {
		c := v.center
		s.Center = &c
		s.Zoom = v.zoom
	}
	if v.fit != nil {
		f := *v.fit
		s.Fit = &f
	}
	return s
}
