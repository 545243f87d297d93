package session

import "github.com/claude/trailog/internal/workout"

// Event types pushed to live clients.
const (
	EventWorkoutCreated   = "workout.created"
	EventWorkoutsRestored = "workouts.restored"
	EventWorkoutsCleared  = "workouts.cleared"
	EventMapReady         = "map.ready"
	EventMapClick         = "map.click"
	EventMapFocus         = "map.focus"
	EventMapFit           = "map.fit"
	EventLocationFailed   = "location.failed"
)

// Event describes a state change of the session.
type Event struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Workout *workout.Record `json:"workout,omitempty"`
	Coords  *workout.Coords `json:"coords,omitempty"`
	Count   int             `json:"count,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Notifier receives session events. Notify is called with the session lock
// held and must not call back into the Controller.
type Notifier interface {
	Notify(e Event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}
