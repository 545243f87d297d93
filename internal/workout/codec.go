package workout

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is the flat stored shape of a workout. Field names follow the
// records the browser version wrote, so old exports still load.
type Record struct {
	Date          time.Time `json:"date"`
	ID            string    `json:"id"`
	Distance      float64   `json:"distance"`
	Duration      float64   `json:"duration"`
	Coords        Coords    `json:"coords"`
	Type          Kind      `json:"type"`
	Description   string    `json:"description"`
	Cadence       *float64  `json:"cadence,omitempty"`
	Pace          *float64  `json:"pace,omitempty"`
	ElevationGain *float64  `json:"elevationGain,omitempty"`
	Speed         *float64  `json:"speed,omitempty"`
}

// ToRecord flattens w.
func ToRecord(w Workout) Record {
	r := Record{
		Date:        w.Date,
		ID:          w.ID,
		Distance:    w.Distance,
		Duration:    w.Duration,
		Coords:      w.Coords,
		Type:        w.Kind(),
		Description: w.Description,
	}
	switch d := w.Detail.(type) {
	case RunningDetail:
		r.Cadence = ptr(d.Cadence)
		r.Pace = ptr(d.Pace)
	case CyclingDetail:
		r.ElevationGain = ptr(d.ElevationGain)
		r.Speed = ptr(d.Speed)
	}
	return r
}

// FromRecord re-hydrates a typed workout. Stored description and metric
// are kept; they are only derived when a record predates them.
func FromRecord(r Record) (Workout, error) {
	if r.ID == "" {
		return Workout{}, fmt.Errorf("record has no id")
	}
	w := Workout{
		ID:          r.ID,
		Date:        r.Date,
		Coords:      r.Coords,
		Distance:    r.Distance,
		Duration:    r.Duration,
		Description: r.Description,
	}
	switch r.Type {
	case KindRunning:
		d := RunningDetail{Cadence: deref(r.Cadence)}
		if r.Pace != nil {
			d.Pace = *r.Pace
		} else {
			d.Pace = Pace(r.Distance, r.Duration)
		}
		w.Detail = d
	case KindCycling:
		d := CyclingDetail{ElevationGain: deref(r.ElevationGain)}
		if r.Speed != nil {
			d.Speed = *r.Speed
		} else {
			d.Speed = Speed(r.Distance, r.Duration)
		}
		w.Detail = d
	default:
		return Workout{}, fmt.Errorf("record %s: unknown type %q", r.ID, r.Type)
	}
	if w.Description == "" {
		w.Description = Describe(r.Type, r.Date)
	}
	return w, nil
}

// ToRecords flattens a collection, keeping order.
func ToRecords(ws []Workout) []Record {
	records := make([]Record, 0, len(ws))
	for _, w := range ws {
		records = append(records, ToRecord(w))
	}
	return records
}

// Encode serializes the collection as a JSON array of records.
func Encode(ws []Workout) ([]byte, error) {
	data, err := json.Marshal(ToRecords(ws))
	if err != nil {
		return nil, fmt.Errorf("encoding workouts: %w", err)
	}
	return data, nil
}

// Decode parses a JSON array of records back into typed workouts.
// A JSON null decodes to an empty collection.
func Decode(data []byte) ([]Workout, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding workouts: %w", err)
	}
	ws := make([]Workout, 0, len(records))
	for i, r := range records {
		w, err := FromRecord(r)
		if err != nil {
			return nil, fmt.Errorf("decoding workout %d: %w", i, err)
		}
		ws = append(ws, w)
	}
	return ws, nil
}

func ptr(v float64) *float64 { return &v }

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
