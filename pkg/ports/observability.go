package ports

import "time"

// ErrorSink receives recoverable failures. Reporting never halts the
// operation that produced the error.
type ErrorSink interface {
	ReportError(err error)
}

// ErrorSinkFunc adapts a function to ErrorSink.
type ErrorSinkFunc func(err error)

// ReportError calls f(err).
func (f ErrorSinkFunc) ReportError(err error) {
	f(err)
}

// MetricsCollector records storage facade metrics.
type MetricsCollector interface {
	// ObserveOperation records one area operation and its outcome.
	ObserveOperation(op string, duration time.Duration, ok bool)
	// RecordChangeSetPublished records a published ChangeSet and its size.
	RecordChangeSetPublished(keys int)
	// SetListeners sets the number of registered change listeners.
	SetListeners(count int)
	// IncErrors counts a reported error by kind.
	IncErrors(kind string)
	// RecordRelayed counts ChangeSets handed to the relay by outcome.
	RecordRelayed(status string)
	// RecordWorkerPoolStatus records relay worker pool status.
	RecordWorkerPoolStatus(idle, busy, stopped int)
}

// NoopMetrics discards every measurement.
type NoopMetrics struct{}

func (NoopMetrics) ObserveOperation(string, time.Duration, bool) {}
func (NoopMetrics) RecordChangeSetPublished(int) {}
func (NoopMetrics) SetListeners(int) {}
func (NoopMetrics) IncErrors(string) {}
func (NoopMetrics) RecordRelayed(string) {}
func (NoopMetrics) RecordWorkerPoolStatus(int, int, int) {}
