// Package metrics records pipeline counters and step timings through a
// pluggable Backend. The default backend is a no-op, so instrumented code
// never needs to check whether metrics are configured. Concrete systems live
// in subpackages (prompush, datadog) and are installed with SetBackend.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
// It is intentionally generic so we can plug in Prometheus, Datadog, etc.
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

// RecordStep counts one operator step execution and observes its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter("etl_step_total", 1, lbls)
	backend.ObserveHistogram("etl_step_duration_seconds", d.Seconds(), lbls)
}

// RecordRow increments a row-level counter for the given job and kind.
//
// Kinds used by the pipeline:
//   - "read"             rows decoded from an input
//   - "csv_skipped"      malformed CSV lines skipped by the reader
//   - "typecast_failed"  cells that failed conversion
//   - "typecast_dropped" rows removed by the drop policy
//   - "written"          rows accepted by the sink
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("etl_records_total", float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordBatches counts record batches written to the sink.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("etl_batches_total", float64(delta), Labels{
		"job": job,
	})
}

// RecordCache counts trained-state lookups for a step by outcome ("hit" or
// "miss").
func RecordCache(job, step string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	backend.IncCounter("etl_trained_state_total", 1, Labels{
		"job":     job,
		"step":    step,
		"outcome": outcome,
	})
}
