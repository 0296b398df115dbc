package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	changeSets        prometheus.Counter
	changeSetKeys     prometheus.Histogram
	listeners         prometheus.Gauge
	errors            *prometheus.CounterVec

	// Relay metrics
	relayed           *prometheus.CounterVec
	workerPoolIdle    prometheus.Gauge
	workerPoolBusy    prometheus.Gauge
	workerPoolStopped prometheus.Gauge
}

// NewCollector creates a new Prometheus metrics collector registered on reg.
// A nil reg registers on the default registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kvarea_operations_total",
				Help: "Total number of storage area operations",
			},
			[]string{"op", "status"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kvarea_operation_duration_seconds",
				Help:    "Storage area operation duration in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"op"},
		),
		changeSets: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "kvarea_changesets_published_total",
				Help: "Total number of published change sets",
			},
		),
		changeSetKeys: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kvarea_changeset_keys",
				Help:    "Number of keys per published change set",
				Buckets: []float64{0, 1, 2, 5, 10, 50, 100, 500, 1000},
			},
		),
		listeners: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "kvarea_listeners",
				Help: "Number of registered change listeners",
			},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kvarea_errors_total",
				Help: "Total number of reported errors by kind",
			},
			[]string{"kind"},
		),
		relayed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kvarea_relay_changesets_total",
				Help: "Total number of change sets handled by the relay",
			},
			[]string{"status"},
		),
		workerPoolIdle: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "kvarea_relay_workers_idle",
				Help: "Number of idle relay workers",
			},
		),
		workerPoolBusy: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "kvarea_relay_workers_busy",
				Help: "Number of busy relay workers",
			},
		),
		workerPoolStopped: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "kvarea_relay_workers_stopped",
				Help: "Number of stopped relay workers",
			},
		),
	}
}

// ObserveOperation records one storage area operation
func (c *Collector) ObserveOperation(op string, duration time.Duration, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	c.operations.WithLabelValues(op, status).Inc()
	c.operationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordChangeSetPublished records a published change set
func (c *Collector) RecordChangeSetPublished(keys int) {
	c.changeSets.Inc()
	c.changeSetKeys.Observe(float64(keys))
}

// SetListeners sets the number of registered listeners
func (c *Collector) SetListeners(count int) {
	c.listeners.Set(float64(count))
}

// IncErrors increments the count of reported errors
func (c *Collector) IncErrors(kind string) {
	c.errors.WithLabelValues(kind).Inc()
}

// RecordRelayed records a change set handled by the relay
func (c *Collector) RecordRelayed(status string) {
	c.relayed.WithLabelValues(status).Inc()
}

// RecordWorkerPoolStatus records relay worker pool status
func (c *Collector) RecordWorkerPoolStatus(idle, busy, stopped int) {
	c.workerPoolIdle.Set(float64(idle))
	c.workerPoolBusy.Set(float64(busy))
	c.workerPoolStopped.Set(float64(stopped))
}
