package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRecordStorageWrite verifies results are split by outcome.
func TestRecordStorageWrite(t *testing.T) {
	okBefore := testutil.ToFloat64(storageWrites.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(storageWrites.WithLabelValues("error"))

	RecordStorageWrite(nil)
	RecordStorageWrite(errors.New("disk full"))
	RecordStorageWrite(nil)

	if got := testutil.ToFloat64(storageWrites.WithLabelValues("ok")) - okBefore; got != 2 {
		t.Errorf("ok writes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(storageWrites.WithLabelValues("error")) - errBefore; got != 1 {
		t.Errorf("error writes = %v, want 1", got)
	}
}

// TestSessionGauge verifies the gauge tracks the last value set.
func TestSessionGauge(t *testing.T) {
	SetSessionWorkouts(7)
	if got := testutil.ToFloat64(sessionWorkouts); got != 7 {
		t.Errorf("gauge = %v, want 7", got)
	}
}

// TestRecordWorkoutCreated verifies counters are labelled by type.
func TestRecordWorkoutCreated(t *testing.T) {
	before := testutil.ToFloat64(workoutsCreated.WithLabelValues("cycling"))
	RecordWorkoutCreated("cycling")
	if got := testutil.ToFloat64(workoutsCreated.WithLabelValues("cycling")) - before; got != 1 {
		t.Errorf("cycling created = %v, want 1", got)
	}
}
