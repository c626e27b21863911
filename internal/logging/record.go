// Package logging implements a push-based logging core: pooled mutable
// log records handed off to an immutable snapshot before fan-out to
// consumers, a lock-minimizing MPSC intake queue, a single distributor
// task, and a batching console consumer.
package logging

import (
	"strings"
	"time"
)

// Level is the severity of a LogRecord.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Source identifies where a record originated.
type Source int

const (
	SourceLogger Source = iota
	SourceStdout
	SourceStderr
)

// MutableRecord is a pooled, in-place-populated log record. Producers
// acquire one from the pool, populate it, hand it to the queue, and never
// touch it again — ownership moves to the distributor, which converts it to
// an immutable Snapshot before any consumer sees it.
type MutableRecord struct {
	Timestamp     time.Time
	Level         Level
	LoggerName    string
	message       strings.Builder
	CorrelationID string
	ContextData   map[string]string
	Exception     error
	Source        Source
}

// Populate assigns every field, copying contextData so the caller's map is
// not aliased. The context map's storage is reused; the message buffer is
// rewritten from empty and does not reuse earlier storage.
func (r *MutableRecord) Populate(
	ts time.Time,
	level Level,
	loggerName, message string,
	correlationID string,
	contextData map[string]string,
	exception error,
	source Source,
) {
	r.Timestamp = ts
	r.Level = level
	r.LoggerName = loggerName
	r.message.Reset()
	r.message.WriteString(message)
	r.CorrelationID = correlationID
	r.Exception = exception
	r.Source = source

	if r.ContextData == nil {
		r.ContextData = make(map[string]string, len(contextData))
	}
	for k := range r.ContextData {
		delete(r.ContextData, k)
	}
	for k, v := range contextData {
		r.ContextData[k] = v
	}
}

// Message returns the currently staged message text.
func (r *MutableRecord) Message() string {
	return r.message.String()
}

// Reset clears scalar fields to defaults and empties the context map while
// preserving its underlying capacity. The message buffer is emptied with
// strings.Builder.Reset, which releases its storage, so the message
// capacity is not kept across reuse.
func (r *MutableRecord) Reset() {
	r.Timestamp = time.Time{}
	r.Level = LevelDebug
	r.LoggerName = ""
	r.message.Reset()
	r.CorrelationID = ""
	for k := range r.ContextData {
		delete(r.ContextData, k)
	}
	r.Exception = nil
	r.Source = SourceLogger
}

// ToImmutable produces a Snapshot whose message and context map are
// independent deep copies, safe to hand to consumers running on other
// goroutines.
func (r *MutableRecord) ToImmutable() Snapshot {
	ctx := make(map[string]string, len(r.ContextData))
	for k, v := range r.ContextData {
		ctx[k] = v
	}
	return Snapshot{
		Timestamp:     r.Timestamp,
		Level:         r.Level,
		LoggerName:    r.LoggerName,
		Message:       r.message.String(),
		CorrelationID: r.CorrelationID,
		ContextData:   ctx,
		Exception:     r.Exception,
		Source:        r.Source,
	}
}

// NewMutableRecord constructs a zero-value record; used as the object pool
// factory.
func NewMutableRecord() *MutableRecord {
	return &MutableRecord{ContextData: make(map[string]string)}
}

// ResetRecord is the object pool reset function for *MutableRecord.
func ResetRecord(r *MutableRecord) error {
	r.Reset()
	return nil
}
