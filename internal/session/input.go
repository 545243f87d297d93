package session

import (
	"errors"
	"fmt"
	"math"

	"github.com/claude/trailog/internal/workout"
)

var (
	// ErrInvalidInput matches every *ValidationError.
	ErrInvalidInput = errors.New("invalid workout input")
	// ErrNoPosition means Create had neither explicit coordinates nor a map click.
	ErrNoPosition = errors.New("no position selected on the map")
	// ErrMapNotReady means the map has not been initialized from a device position.
	ErrMapNotReady = errors.New("map is not ready")
)

// User-facing alert texts.
const (
	AlertInvalidInput = "Input positive numbers"
	AlertNoLocation   = "Can't get your location, try again later"
)

// Input is the submitted workout form.
type Input struct {
	Type          string          `json:"type"`
	Distance      float64         `json:"distance"`
	Duration      float64         `json:"duration"`
	Cadence       float64         `json:"cadence,omitempty"`
	ElevationGain float64         `json:"elevationGain,omitempty"`
	Coords        *workout.Coords `json:"coords,omitempty"`
}

// ValidationError reports the first form field that failed validation.
type ValidationError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %v: must be a positive finite number", e.Field, e.Value)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

type field struct {
	name  string
	value float64
}

// validate checks the type and that every field required by it is finite
// and strictly positive. Cycling elevation gain follows the same rule as
// running cadence.
func (in Input) validate() (workout.Kind, error) {
	kind, err := workout.ParseKind(in.Type)
	if err != nil {
		return "", &ValidationError{Field: "type", Reason: err.Error()}
	}

	fields := []field{{"distance", in.Distance}, {"duration", in.Duration}}
	switch kind {
	case workout.KindRunning:
		fields = append(fields, field{"cadence", in.Cadence})
	case workout.KindCycling:
		fields = append(fields, field{"elevationGain", in.ElevationGain})
	}

	for _, f := range fields {
		if !positiveFinite(f.value) {
			return "", &ValidationError{Field: f.name, Value: f.value}
		}
	}

	// Extreme ratios overflow the derived metric, which cannot be stored.
	metric := field{"pace", workout.Pace(in.Distance, in.Duration)}
	if kind == workout.KindCycling {
		metric = field{"speed", workout.Speed(in.Distance, in.Duration)}
	}
	if math.IsInf(metric.value, 0) || math.IsNaN(metric.value) {
		return "", &ValidationError{Field: metric.name, Value: metric.value, Reason: "distance and duration are out of range"}
	}

	if in.Coords != nil && !in.Coords.Valid() {
		return "", &ValidationError{Field: "coords", Reason: in.Coords.String() + " is not a valid position"}
	}
	return kind, nil
}

func positiveFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
