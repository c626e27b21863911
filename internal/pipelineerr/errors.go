// Package pipelineerr implements an error taxonomy: one error kind per
// failure class, carrying enough context (stage/step, location,
// suggestion) for a caller to present a single top-level error.
package pipelineerr

import "fmt"

// Kind is the closed set of failure classes the engine can report.
type Kind string

const (
	KindValidation        Kind = "ValidationError"
	KindSecurityViolation  Kind = "SecurityViolation"
	KindMemoryLimit        Kind = "LimitExceeded.Memory"
	KindCpuLimit           Kind = "LimitExceeded.Cpu"
	KindWallLimit          Kind = "LimitExceeded.Wall"
	KindThreadLimit        Kind = "LimitExceeded.Thread"
	KindFileHandleLimit    Kind = "LimitExceeded.FileHandle"
	KindPlugin             Kind = "PluginError"
	KindDslEngine          Kind = "DslEngineError"
	KindPipelineRuntime    Kind = "PipelineRuntimeError"
	KindCancelled          Kind = "Cancelled"
	KindInternal           Kind = "InternalError"
)

// Location identifies a point inside a script, when the Validator or an
// engine compile step can derive one.
type Location struct {
	File   string
	Line   int
	Column int
}

// Error is the single top-level error type every engine failure is
// normalized to before it reaches a caller.
type Error struct {
	Kind       Kind
	Message    string
	Location   *Location
	Stage      string
	Step       string
	Suggestion string
	Cause      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Stage != "" {
		msg = fmt.Sprintf("%s (stage=%s)", msg, e.Stage)
	}
	if e.Step != "" {
		msg = fmt.Sprintf("%s (step=%s)", msg, e.Step)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a bare Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind around an existing cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithStage annotates the failing stage name and returns the receiver.
func (e *Error) WithStage(stage string) *Error {
	e.Stage = stage
	return e
}

// WithStep annotates the failing step name and returns the receiver.
func (e *Error) WithStep(step string) *Error {
	e.Step = step
	return e
}

// WithLocation annotates a source location and returns the receiver.
func (e *Error) WithLocation(loc Location) *Error {
	e.Location = &loc
	return e
}

// WithSuggestion attaches a human-actionable suggestion and returns the receiver.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// Validation builds a KindValidation error.
func Validation(message string) *Error { return New(KindValidation, message) }

// SecurityViolation builds a KindSecurityViolation error.
func SecurityViolation(message string) *Error { return New(KindSecurityViolation, message) }

// LimitExceeded builds the appropriate LimitExceeded.* error for a resource kind.
func LimitExceeded(kind Kind, message string) *Error {
	switch kind {
	case KindMemoryLimit, KindCpuLimit, KindWallLimit, KindThreadLimit, KindFileHandleLimit:
		return New(kind, message)
	default:
		return New(KindInternal, "invalid limit kind: "+string(kind))
	}
}

// Plugin builds a KindPlugin error.
func Plugin(message string, cause error) *Error { return Wrap(KindPlugin, message, cause) }

// DslEngine builds a KindDslEngine error.
func DslEngine(message string, cause error) *Error { return Wrap(KindDslEngine, message, cause) }

// Runtime builds a KindPipelineRuntime error for a failing step.
func Runtime(stage, step string, cause error) *Error {
	return Wrap(KindPipelineRuntime, "step execution failed", cause).WithStage(stage).WithStep(step)
}

// Cancelled builds a KindCancelled error.
func Cancelled(message string) *Error { return New(KindCancelled, message) }

// Internal builds a KindInternal error — always expected to be logged with full context.
func Internal(message string, cause error) *Error { return Wrap(KindInternal, message, cause) }
