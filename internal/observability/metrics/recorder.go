// Package metrics provides Prometheus collectors for the corrbuf pipeline.
package metrics

// Recorder defines a minimal interface for recording metrics.
// Components depend on this abstraction rather than on concrete
// collectors, which keeps them testable without a registry.
type Recorder interface {
	// RecordOperation records an operation with its outcome, for example
	// ("publish", "accepted") or ("write_record", "success").
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence with its type.
	RecordError(operation, errorType string)
}

// NoOpRecorder discards everything. Used when metrics are disabled.
type NoOpRecorder struct{}

func (NoOpRecorder) RecordOperation(operation, status string)         {}
func (NoOpRecorder) RecordDuration(operation string, seconds float64) {}
func (NoOpRecorder) RecordError(operation, errorType string)          {}
