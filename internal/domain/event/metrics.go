package event

// Metrics records registry activity. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// RecordDispatch records one dispatch and how many listeners it reached
	RecordDispatch(eventClass string, listeners int)

	// RecordDropped records an event that reached no listener
	RecordDropped(eventClass, reason string)

	// RecordListenerPanic records a recovered listener panic
	RecordListenerPanic(eventClass string)
}

// NoopMetrics discards everything
type NoopMetrics struct{}

// RecordDispatch does nothing
func (NoopMetrics) RecordDispatch(string, int) {}

// RecordDropped does nothing
func (NoopMetrics) RecordDropped(string, string) {}

// RecordListenerPanic does nothing
func (NoopMetrics) RecordListenerPanic(string) {}
