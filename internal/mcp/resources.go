package mcp

import (
	"context"
	"encoding/json"

	"github.com/claude/trailog/internal/workout"
	"github.com/mark3labs/mcp-go/mcp"
)

// TypeSummary aggregates the workouts of one type.
type TypeSummary struct {
	Count       int     `json:"count"`
	DistanceKm  float64 `json:"distance_km"`
	DurationMin float64 `json:"duration_min"`
}

func summarize(records []workout.Record) map[workout.Kind]TypeSummary {
	out := map[workout.Kind]TypeSummary{}
	for _, r := range records {
		s := out[r.Type]
		s.Count++
		s.DistanceKm += r.Distance
		s.DurationMin += r.Duration
		out[r.Type] = s
	}
	return out
}

func (h *handlers) workouts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	records, err := h.ds.ListWorkouts(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, records)
}

func (h *handlers) summary(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	records, err := h.ds.ListWorkouts(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, summarize(records))
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
