package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/claude/trailog/internal/session"
	"github.com/claude/trailog/internal/storage"
	"github.com/claude/trailog/internal/workout"
	"github.com/google/uuid"
)

// Stats tracks import progress.
type Stats struct {
	RecordsRead int
	Imported    int
	Duplicated  int
	Invalid     int
	IDsAssigned int
}

// Importer merges an exported workout list into the stored one.
type Importer struct {
	store  session.Store
	key    string
	log    *slog.Logger
	dryRun bool
	stats  Stats
}

// New creates a new Importer writing under key.
func New(store session.Store, key string, log *slog.Logger, dryRun bool) *Importer {
	if key == "" {
		key = session.DefaultKey
	}
	return &Importer{store: store, key: key, log: log, dryRun: dryRun}
}

// ImportFile imports the export at path. Files ending in .gz are
// decompressed first.
func (imp *Importer) ImportFile(ctx context.Context, path string) (*Stats, error) {
	rc, err := openExport(path)
	if err != nil {
		return &imp.stats, err
	}
	defer rc.Close()
	return imp.Import(ctx, rc)
}

// Import reads a JSON array of workout records from r. Invalid records and
// ids already stored are skipped; the rest are appended in file order.
func (imp *Importer) Import(ctx context.Context, r io.Reader) (*Stats, error) {
	var records []workout.Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return &imp.stats, fmt.Errorf("decoding export: %w", err)
	}
	imp.stats.RecordsRead = len(records)

	existing, err := imp.load(ctx)
	if err != nil {
		return &imp.stats, err
	}

	seen := make(map[string]bool, len(existing)+len(records))
	for _, w := range existing {
		seen[w.ID] = true
	}

	merged := existing
	for i, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
			imp.stats.IDsAssigned++
		}
		w, err := workout.FromRecord(rec)
		if err == nil {
			err = check(w)
		}
		if err != nil {
			imp.stats.Invalid++
			imp.log.Warn("skipping invalid record", "index", i, "id", rec.ID, "error", err)
			continue
		}
		if seen[w.ID] {
			imp.stats.Duplicated++
			continue
		}
		seen[w.ID] = true
		merged = append(merged, w)
		imp.stats.Imported++
	}

	if imp.dryRun || imp.stats.Imported == 0 {
		return &imp.stats, nil
	}

	data, err := workout.Encode(merged)
	if err != nil {
		return &imp.stats, err
	}
	if err := imp.store.Put(ctx, imp.key, data); err != nil {
		return &imp.stats, fmt.Errorf("writing workouts: %w", err)
	}
	imp.log.Info("workouts written", "key", imp.key, "total", len(merged))
	return &imp.stats, nil
}

// load reads the stored collection. Unlike a session restore, a malformed
// value is an error so the import never overwrites data it could not read.
func (imp *Importer) load(ctx context.Context) ([]workout.Workout, error) {
	data, err := imp.store.Get(ctx, imp.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading stored workouts: %w", err)
	}
	ws, err := workout.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("stored workouts: %w", err)
	}
	return ws, nil
}

// check applies the same positivity rule as interactive entry.
func check(w workout.Workout) error {
	type field struct {
		name  string
		value float64
	}
	fields := []field{{"distance", w.Distance}, {"duration", w.Duration}}
	switch d := w.Detail.(type) {
	case workout.RunningDetail:
		fields = append(fields, field{"cadence", d.Cadence})
	case workout.CyclingDetail:
		fields = append(fields, field{"elevationGain", d.ElevationGain})
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value <= 0 {
			return &session.ValidationError{Field: f.name, Value: f.value}
		}
	}
	if !w.Coords.Valid() {
		return &session.ValidationError{Field: "coords", Reason: w.Coords.String() + " is not a valid position"}
	}
	return nil
}
