package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/claude/trailog/internal/session"
	"github.com/claude/trailog/internal/workout"
	"github.com/mark3labs/mcp-go/mcp"
)

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// timeRange parses optional bounds. A zero time means unbounded; a date-only
// end covers the whole day.
func timeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if startStr != "" {
		if start, err = parseFlexTime(startStr); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if endStr != "" {
		if end, err = parseFlexTime(endStr); err != nil {
			return time.Time{}, time.Time{}, err
		}
		if len(endStr) == len("2006-01-02") {
			end = end.Add(24 * time.Hour)
		}
	}
	return start, end, nil
}

func filterRecords(records []workout.Record, kind string, start, end time.Time) []workout.Record {
	out := make([]workout.Record, 0, len(records))
	for _, r := range records {
		if kind != "" && string(r.Type) != kind {
			continue
		}
		if !start.IsZero() && r.Date.Before(start) {
			continue
		}
		if !end.IsZero() && !r.Date.Before(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// --- Tool definitions ---

var toolLogWorkout = mcp.NewTool("log_workout",
	mcp.WithDescription("Record a running or cycling workout at a position. All numbers must be positive. Returns the stored workout with its derived pace (min/km) or speed (km/h)."),
	mcp.WithString("type", mcp.Required(), mcp.Description("Workout type"), mcp.Enum("running", "cycling")),
	mcp.WithNumber("distance", mcp.Required(), mcp.Description("Distance in km")),
	mcp.WithNumber("duration", mcp.Required(), mcp.Description("Duration in minutes")),
	mcp.WithNumber("cadence", mcp.Description("Steps per minute. Required for running.")),
	mcp.WithNumber("elevation_gain", mcp.Description("Elevation gain in meters. Required for cycling.")),
	mcp.WithNumber("lat", mcp.Required(), mcp.Description("Latitude of the workout")),
	mcp.WithNumber("lng", mcp.Required(), mcp.Description("Longitude of the workout")),
)

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List recorded workouts in insertion order, optionally filtered by type and date range."),
	mcp.WithString("type", mcp.Description("Filter by workout type"), mcp.Enum("running", "cycling")),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Unbounded when omitted.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Unbounded when omitted.")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get one workout by its id."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout id")),
)

// --- Tool handlers ---

func (h *handlers) logWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError("type parameter is required"), nil
	}
	lat, err := req.RequireFloat("lat")
	if err != nil {
		return mcp.NewToolResultError("lat parameter is required"), nil
	}
	lng, err := req.RequireFloat("lng")
	if err != nil {
		return mcp.NewToolResultError("lng parameter is required"), nil
	}

	in := session.Input{
		Type:          kind,
		Distance:      req.GetFloat("distance", 0),
		Duration:      req.GetFloat("duration", 0),
		Cadence:       req.GetFloat("cadence", 0),
		ElevationGain: req.GetFloat("elevation_gain", 0),
		Coords:        &workout.Coords{Lat: lat, Lng: lng},
	}

	rec, err := h.ds.LogWorkout(ctx, in)
	if errors.Is(err, session.ErrInvalidInput) {
		return mcp.NewToolResultError(session.AlertInvalidInput + ": " + err.Error()), nil
	}
	if err != nil {
		h.log.Error("mcp log_workout", "error", err)
		return mcp.NewToolResultError("log failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(rec)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := timeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	records, err := h.ds.ListWorkouts(ctx)
	if err != nil {
		h.log.Error("mcp list_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"workouts": filterRecords(records, req.GetString("type", ""), start, end),
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	rec, err := h.ds.GetWorkout(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return mcp.NewToolResultError("workout not found: " + id), nil
	}
	if err != nil {
		h.log.Error("mcp get_workout", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(rec)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
