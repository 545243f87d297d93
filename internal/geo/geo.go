package geo

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/claude/trailog/internal/workout"
)

// ErrAlreadyResolved is returned when a one-shot request gets a second outcome.
var ErrAlreadyResolved = errors.New("location request already resolved")

// Locator yields the device position once.
type Locator interface {
	Locate(ctx context.Context) (workout.Coords, error)
}

// Static always reports the same position, typically a configured home.
type Static workout.Coords

func (s Static) Locate(context.Context) (workout.Coords, error) {
	return workout.Coords(s), nil
}

type outcome struct {
	pos workout.Coords
	err error
}

// Pending is a Locator whose answer arrives from outside, e.g. posted by the
// browser after it asked the device. The first Deliver or Fail wins.
type Pending struct {
	mu   sync.Mutex
	ch   chan outcome
	done bool
}

// NewPending creates an unresolved Pending locator.
func NewPending() *Pending {
	return &Pending{ch: make(chan outcome, 1)}
}

// Deliver resolves the request with a position.
func (p *Pending) Deliver(pos workout.Coords) error {
	return p.resolve(outcome{pos: pos})
}

// Fail resolves the request with an error.
func (p *Pending) Fail(err error) error {
	if err == nil {
		err = errors.New("location unavailable")
	}
	return p.resolve(outcome{err: err})
}

// Resolved reports whether an outcome has been delivered.
func (p *Pending) Resolved() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *Pending) resolve(o outcome) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return ErrAlreadyResolved
	}
	p.done = true
	p.ch <- o
	return nil
}

// Locate blocks until an outcome is delivered or ctx ends.
func (p *Pending) Locate(ctx context.Context) (workout.Coords, error) {
	select {
	case o := <-p.ch:
		return o.pos, o.err
	case <-ctx.Done():
		return workout.Coords{}, ctx.Err()
	}
}

// Request runs a single asynchronous location request. Exactly one of
// onFound or onFailed is called, from a separate goroutine. The returned
// channel is closed after the callback returns.
func Request(ctx context.Context, loc Locator, onFound func(workout.Coords), onFailed func(error)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		pos, err := loc.Locate(ctx)
		if err != nil {
			onFailed(err)
			return
		}
		onFound(pos)
	}()
	return done
}

// Bounds returns the south-west and north-east corners enclosing points.
// ok is false for an empty slice.
func Bounds(points []workout.Coords) (sw, ne workout.Coords, ok bool) {
	if len(points) == 0 {
		return sw, ne, false
	}
	sw, ne = points[0], points[0]
	for _, p := range points[1:] {
		sw.Lat = math.Min(sw.Lat, p.Lat)
		sw.Lng = math.Min(sw.Lng, p.Lng)
		ne.Lat = math.Max(ne.Lat, p.Lat)
		ne.Lng = math.Max(ne.Lng, p.Lng)
	}
	return sw, ne, true
}

const earthRadiusKm = 6371.0

// HaversineKm is the great-circle distance between a and b.
func HaversineKm(a, b workout.Coords) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
