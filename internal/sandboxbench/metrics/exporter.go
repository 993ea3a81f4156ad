// Package metrics exposes phase timings as Prometheus metrics.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/utils/clock"

	"github.com/armadaproject/sandboxbench/internal/common/sandboxerrors"
	"github.com/armadaproject/sandboxbench/internal/sandboxbench/timing"
)

// MetricType selects how phase durations are exported.
type MetricType string

const (
	// Gauge keeps the latest duration of each phase.
	Gauge MetricType = "gauge"
	// Histogram accumulates durations across cycles into DurationBuckets.
	Histogram MetricType = "histogram"
)

func (t *MetricType) UnmarshalText(text []byte) error {
	switch v := MetricType(strings.ToLower(string(text))); v {
	case Gauge, Histogram:
		*t = v
		return nil
	}
	return &sandboxerrors.ErrInvalidArgument{
		Name:    "metricType",
		Value:   string(text),
		Message: "must be one of gauge, histogram",
	}
}

// Exporter publishes phase measurements and cycle outcomes.
// It is a prometheus.Collector and must be registered before it is scraped.
type Exporter struct {
	clock             clock.PassiveClock
	durationGauge     *prometheus.GaugeVec
	durationHistogram *prometheus.HistogramVec
	cycles            *prometheus.CounterVec
	lastCycle         *prometheus.GaugeVec
	allMetrics        []prometheus.Collector
}

func NewExporter(metricType MetricType, c clock.PassiveClock) *Exporter {
	durationName := prefix + "operation_duration_seconds"
	durationHelp := "Duration of sandbox operations in seconds"
	durationLabels := []string{operationLabel, categoryLabel, regionLabel}

	cycles := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "cycles_total",
			Help: "Number of completed measurement cycles",
		},
		[]string{regionLabel, resultLabel, reasonLabel},
	)
	lastCycle := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "last_cycle_timestamp_seconds",
			Help: "Unix time at which the last measurement cycle completed",
		},
		[]string{regionLabel},
	)
	e := &Exporter{
		clock:      c,
		cycles:     cycles,
		lastCycle:  lastCycle,
		allMetrics: []prometheus.Collector{cycles, lastCycle},
	}

	if metricType == Histogram {
		e.durationHistogram = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    durationName,
				Help:    durationHelp,
				Buckets: DurationBuckets,
			},
			durationLabels,
		)
		e.allMetrics = append(e.allMetrics, e.durationHistogram)
	} else {
		e.durationGauge = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: durationName,
				Help: durationHelp,
			},
			durationLabels,
		)
		e.allMetrics = append(e.allMetrics, e.durationGauge)
	}
	return e
}

func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	for _, metric := range e.allMetrics {
		metric.Describe(ch)
	}
}

func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	for _, metric := range e.allMetrics {
		metric.Collect(ch)
	}
}

// Publish exports a single measurement. Safe to call concurrently with scrapes.
func (e *Exporter) Publish(m timing.PhaseMeasurement) {
	labels := []string{m.Name, string(m.Category), m.Region}
	if e.durationHistogram != nil {
		e.durationHistogram.WithLabelValues(labels...).Observe(m.Duration.Seconds())
	} else {
		e.durationGauge.WithLabelValues(labels...).Set(m.Duration.Seconds())
	}
}

// CycleCompleted counts a finished cycle, labelling failures with the kind of err.
func (e *Exporter) CycleCompleted(region string, err error) {
	if err != nil {
		e.cycles.WithLabelValues(region, failure, string(sandboxerrors.KindFromError(err))).Inc()
	} else {
		e.cycles.WithLabelValues(region, success, "").Inc()
	}
	e.lastCycle.WithLabelValues(region).Set(float64(e.clock.Now().UnixNano()) / 1e9)
}
