// Package prompush pushes pipeline metrics to a Prometheus Pushgateway.
// The pipeline job is the Pushgateway grouping key, so it is not repeated as
// a label on the collectors.
package prompush

import (
	"fmt"

	"etlops/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec // etl_step_total
	stepDuration *prometheus.SummaryVec // etl_step_duration_seconds

	recordCounter *prometheus.CounterVec // etl_records_total
	batchCounter  prometheus.Counter     // etl_batches_total
	cacheCounter  *prometheus.CounterVec // etl_trained_state_total
}

// NewBackend constructs a Pushgateway backend. An empty jobName becomes "etl".
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "etl"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_step_total",
			Help: "Operator step executions by step key and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "etl_step_duration_seconds",
			Help:       "Operator step duration in seconds by step key and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	recordCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_records_total",
			Help: "Row counts by kind (read, typecast_failed, typecast_dropped, written).",
		},
		[]string{"kind"},
	)
	batchCounter := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "etl_batches_total",
			Help: "Record batches written to the sink.",
		},
	)
	cacheCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_trained_state_total",
			Help: "Trained-state lookups by step key and outcome (hit, miss).",
		},
		[]string{"step", "outcome"},
	)

	for name, c := range map[string]prometheus.Collector{
		"step counter":   stepCounter,
		"step summary":   stepDuration,
		"record counter": recordCounter,
		"batch counter":  batchCounter,
		"cache counter":  cacheCounter,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:    gatewayURL,
		jobName:       jobName,
		reg:           reg,
		stepCounter:   stepCounter,
		stepDuration:  stepDuration,
		recordCounter: recordCounter,
		batchCounter:  batchCounter,
		cacheCounter:  cacheCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "etl_step_total":
		if b.stepCounter == nil {
			return
		}
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)

	case "etl_records_total":
		if b.recordCounter == nil {
			return
		}
		b.recordCounter.WithLabelValues(labels["kind"]).Add(delta)

	case "etl_batches_total":
		if b.batchCounter == nil {
			return
		}
		b.batchCounter.Add(delta)

	case "etl_trained_state_total":
		if b.cacheCounter == nil {
			return
		}
		b.cacheCounter.WithLabelValues(labels["step"], labels["outcome"]).Add(delta)
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "etl_step_duration_seconds" || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
