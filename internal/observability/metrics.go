package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	workoutsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trailog",
		Name:      "workouts_created_total",
		Help:      "Workouts recorded, by type.",
	}, []string{"type"})
	validationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trailog",
		Name:      "validation_failures_total",
		Help:      "Rejected workout submissions, by offending field.",
	}, []string{"field"})
	storageWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trailog",
		Name:      "storage_writes_total",
		Help:      "Writes of the workout list to durable storage, by result.",
	}, []string{"result"})
	sessionWorkouts = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "trailog",
		Name:      "session_workouts",
		Help:      "Number of workouts held by the session.",
	})
)

func init() {
	prometheus.MustRegister(workoutsCreated, validationFailures, storageWrites, sessionWorkouts)
}

// RecordWorkoutCreated counts a new workout of the given type.
func RecordWorkoutCreated(kind string) {
	workoutsCreated.WithLabelValues(kind).Inc()
}

// RecordValidationFailure counts a rejected submission.
func RecordValidationFailure(field string) {
	validationFailures.WithLabelValues(field).Inc()
}

// RecordStorageWrite counts a persist attempt.
func RecordStorageWrite(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storageWrites.WithLabelValues(result).Inc()
}

// SetSessionWorkouts reports the current collection size.
func SetSessionWorkouts(n int) {
	sessionWorkouts.Set(float64(n))
}
