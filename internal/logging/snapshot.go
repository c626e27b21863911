package logging

import "time"

// Snapshot is the immutable, publishable form of a LogRecord. Structurally
// equal to the MutableRecord it was produced from, but owns independent
// copies of Message and ContextData so consumers on other goroutines can
// hold it safely.
type Snapshot struct {
	Timestamp     time.Time
	Level         Level
	LoggerName    string
	Message       string
	CorrelationID string
	ContextData   map[string]string
	Exception     error
	Source        Source
}

// PopulateRecordFrom stages a MutableRecord from a Snapshot's fields — used
// by tests to exercise the round-trip invariant: toImmutable(populate(defaults, X)) == X.
func PopulateRecordFrom(r *MutableRecord, s Snapshot) {
	r.Populate(s.Timestamp, s.Level, s.LoggerName, s.Message, s.CorrelationID, s.ContextData, s.Exception, s.Source)
}
