package workout

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Kind discriminates the workout variants. The values double as the
// "type" field of the stored records.
type Kind string

const (
	KindRunning Kind = "running"
	KindCycling Kind = "cycling"
)

// ParseKind maps a form value to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindRunning, KindCycling:
		return k, nil
	default:
		return "", fmt.Errorf("unknown workout type %q", s)
	}
}

// Coords is a latitude/longitude pair. It encodes as [lat, lng] so the
// stored records stay compatible with what the map library consumes.
type Coords struct {
	Lat float64
	Lng float64
}

func (c Coords) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lat, c.Lng})
}

func (c *Coords) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("coords: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("coords: want [lat, lng], got %d values", len(pair))
	}
	c.Lat, c.Lng = pair[0], pair[1]
	return nil
}

// Valid reports whether c is a finite position on the globe.
func (c Coords) Valid() bool {
	return !math.IsNaN(c.Lat) && !math.IsNaN(c.Lng) && math.Abs(c.Lat) <= 90 && math.Abs(c.Lng) <= 180
}

func (c Coords) String() string {
	return fmt.Sprintf("%.5f,%.5f", c.Lat, c.Lng)
}

// Detail is the variant-specific payload of a Workout. It is implemented
// only by RunningDetail and CyclingDetail.
type Detail interface {
	Kind() Kind
	isDetail()
}

// RunningDetail holds the running-only fields.
type RunningDetail struct {
	Cadence float64 // steps per minute
	Pace    float64 // minutes per kilometer
}

func (RunningDetail) Kind() Kind { return KindRunning }
func (RunningDetail) isDetail()  {}

// CyclingDetail holds the cycling-only fields.
type CyclingDetail struct {
	ElevationGain float64 // meters
	Speed         float64 // kilometers per hour
}

func (CyclingDetail) Kind() Kind { return KindCycling }
func (CyclingDetail) isDetail()  {}

// Workout is one recorded activity. Values are built once by NewRunning or
// NewCycling and never modified afterwards.
type Workout struct {
	ID          string
	Date        time.Time
	Coords      Coords
	Distance    float64 // kilometers
	Duration    float64 // minutes
	Description string
	Detail      Detail
}

// NewRunning builds a running workout and derives its pace.
// Inputs are assumed to be validated by the caller.
func NewRunning(id string, date time.Time, coords Coords, distance, duration, cadence float64) Workout {
	return Workout{
		ID:          id,
		Date:        date,
		Coords:      coords,
		Distance:    distance,
		Duration:    duration,
		Description: Describe(KindRunning, date),
		Detail: RunningDetail{
			Cadence: cadence,
			Pace:    Pace(distance, duration),
		},
	}
}

// NewCycling builds a cycling workout and derives its speed.
// Inputs are assumed to be validated by the caller.
func NewCycling(id string, date time.Time, coords Coords, distance, duration, elevationGain float64) Workout {
	return Workout{
		ID:          id,
		Date:        date,
		Coords:      coords,
		Distance:    distance,
		Duration:    duration,
		Description: Describe(KindCycling, date),
		Detail: CyclingDetail{
			ElevationGain: elevationGain,
			Speed:         Speed(distance, duration),
		},
	}
}

// Kind reports the variant of w.
func (w Workout) Kind() Kind {
	if w.Detail == nil {
		return ""
	}
	return w.Detail.Kind()
}

// Metric returns the derived metric and its unit.
func (w Workout) Metric() (float64, string) {
	switch d := w.Detail.(type) {
	case RunningDetail:
		return d.Pace, "min/km"
	case CyclingDetail:
		return d.Speed, "km/h"
	default:
		return 0, ""
	}
}

// Pace is minutes per kilometer.
func Pace(distance, duration float64) float64 {
	return duration / distance
}

// Speed is kilometers per hour for a duration given in minutes.
func Speed(distance, duration float64) float64 {
	return distance / (duration / 60)
}

// Describe renders the human-readable label, e.g. "Running on April 14".
func Describe(kind Kind, date time.Time) string {
	label := string(kind)
	if label != "" {
		label = strings.ToUpper(label[:1]) + label[1:]
	}
	return fmt.Sprintf("%s on %s %d", label, date.Month(), date.Day())
}
