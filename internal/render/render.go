package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"sync"

	"github.com/claude/trailog/internal/workout"
)

var itemTmpl = template.Must(template.New("item").Parse(`<li class="workout workout--{{.Type}}" data-id="{{.ID}}">
  <h2 class="workout__title">{{.Description}}</h2>
  <div class="workout__details">
    <span class="workout__icon">{{.Icon}}</span>
    <span class="workout__value">{{.Distance}}</span>
    <span class="workout__unit">km</span>
  </div>
  <div class="workout__details">
    <span class="workout__icon">⏱</span>
    <span class="workout__value">{{.Duration}}</span>
    <span class="workout__unit">min</span>
  </div>
  <div class="workout__details">
    <span class="workout__icon">⚡️</span>
    <span class="workout__value">{{.Metric}}</span>
    <span class="workout__unit">{{.MetricUnit}}</span>
  </div>
  <div class="workout__details">
    <span class="workout__icon">{{.ExtraIcon}}</span>
    <span class="workout__value">{{.Extra}}</span>
    <span class="workout__unit">{{.ExtraUnit}}</span>
  </div>
</li>
`))

type itemView struct {
	ID, Type, Description, Icon string
	Distance, Duration          string
	Metric, MetricUnit          string
	ExtraIcon, Extra, ExtraUnit string
}

// Icon is the emoji shown for a workout type.
func Icon(kind workout.Kind) string {
	if kind == workout.KindRunning {
		return "🏃‍♂️"
	}
	return "🚴‍♀️"
}

// Popup is the marker popup text, e.g. "🏃‍♂️ Running on April 14".
func Popup(w workout.Workout) string {
	return Icon(w.Kind()) + " " + w.Description
}

// Item renders one list entry.
func Item(w workout.Workout) (string, error) {
	metric, unit := w.Metric()
	v := itemView{
		ID:          w.ID,
		Type:        string(w.Kind()),
		Description: w.Description,
		Icon:        Icon(w.Kind()),
		Distance:    num(w.Distance),
		Duration:    num(w.Duration),
		Metric:      strconv.FormatFloat(metric, 'f', 1, 64),
		MetricUnit:  unit,
	}
	switch d := w.Detail.(type) {
	case workout.RunningDetail:
		v.ExtraIcon, v.Extra, v.ExtraUnit = "🦶🏼", num(d.Cadence), "spm"
	case workout.CyclingDetail:
		v.ExtraIcon, v.Extra, v.ExtraUnit = "⛰", num(d.ElevationGain), "m"
	}

	var buf bytes.Buffer
	if err := itemTmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("rendering workout %s: %w", w.ID, err)
	}
	return buf.String(), nil
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// List keeps the rendered entries of the session in insertion order.
type List struct {
	mu    sync.Mutex
	items []string
}

func NewList() *List {
	return &List{}
}

// Append renders w and adds it to the end of the list. A workout that fails
// to render is not added.
func (l *List) Append(w workout.Workout) error {
	html, err := Item(w)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.items = append(l.items, html)
	l.mu.Unlock()
	return nil
}

// Reset empties the list.
func (l *List) Reset() {
	l.mu.Lock()
	l.items = nil
	l.mu.Unlock()
}

// Len reports the number of entries.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// HTML returns all entries concatenated.
func (l *List) HTML() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.items, "")
}
