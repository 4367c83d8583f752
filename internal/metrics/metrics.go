// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from load pipelines.
//
//   - It exposes a narrow interface (Backend) focused on counters and timing
//     data (histograms).
//   - It provides a global, pluggable backend that defaults to a no-op
//     implementation, so metrics are always safe to call even when no real
//     backend is configured.
//   - Concrete metric systems live in subpackages (prompush, datadog) so the
//     rest of the codebase depends only on this package.
//
// Pipelines record one step observation per executed step and object counts
// (listed, pending) for every manifest they compute.
package metrics

import "time"

// Metric names emitted by this package.
const (
	StepTotal           = "load_step_total"
	StepDurationSeconds = "load_step_duration_seconds"
	ObjectsTotal        = "load_objects_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep records latency and success/failure for one pipeline step.
// mode is "run" or "validate".
func RecordStep(job, step, mode string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"mode":   mode,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordObjects counts source objects seen by a manifest computation.
//
// Kinds are:
//   - "listed": every object under the source prefix
//   - "pending": objects not yet recorded in the journal
func RecordObjects(job, kind string, n int) {
	if n <= 0 {
		return
	}
	backend.IncCounter(ObjectsTotal, float64(n), Labels{
		"job":  job,
		"kind": kind,
	})
}
