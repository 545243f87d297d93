package mcp

import (
	"context"
	"errors"

	"github.com/claude/trailog/internal/session"
	"github.com/claude/trailog/internal/workout"
)

// ErrNotFound is returned by GetWorkout for an unknown id.
var ErrNotFound = errors.New("workout not found")

// DataSource abstracts the workout session for MCP tools. Both Local (in
// process) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ListWorkouts(ctx context.Context) ([]workout.Record, error)
	GetWorkout(ctx context.Context, id string) (*workout.Record, error)
	LogWorkout(ctx context.Context, in session.Input) (*workout.Record, error)
}

// Local serves MCP tools straight from a session controller.
type Local struct {
	Ctrl *session.Controller
}

// Compile-time check: Local satisfies DataSource.
var _ DataSource = Local{}

func (l Local) ListWorkouts(context.Context) ([]workout.Record, error) {
	return workout.ToRecords(l.Ctrl.Workouts()), nil
}

func (l Local) GetWorkout(_ context.Context, id string) (*workout.Record, error) {
	w, ok := l.Ctrl.Locate(id)
	if !ok {
		return nil, ErrNotFound
	}
	rec := workout.ToRecord(w)
	return &rec, nil
}

func (l Local) LogWorkout(ctx context.Context, in session.Input) (*workout.Record, error) {
	w, err := l.Ctrl.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	rec := workout.ToRecord(w)
	return &rec, nil
}
