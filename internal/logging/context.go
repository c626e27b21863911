package logging

import "context"

// LoggingContext carries correlation and identity data that propagates
// through cooperatively-spawned child tasks.
type LoggingContext struct {
	CorrelationID string
	UserID        string
	SessionID     string
	CustomData    map[string]string
}

type loggingContextKey struct{}

// WithContext installs ctx for the duration of the returned context — any
// Logger call performed against it (or a context derived from it via Go)
// carries ctx.CorrelationID and ctx.CustomData. A LoggingContext already
// installed on the parent is fully replaced, never merged, per the
// specification's chosen answer to the nested-withContext open question.
func WithContext(parent context.Context, lc LoggingContext) context.Context {
	return context.WithValue(parent, loggingContextKey{}, lc)
}

// FromContext retrieves the installed LoggingContext, if any.
func FromContext(ctx context.Context) (LoggingContext, bool) {
	lc, ok := ctx.Value(loggingContextKey{}).(LoggingContext)
	return lc, ok
}

// Go runs fn in a new goroutine with ctx as its active context — the
// cooperative-concurrency equivalent of a structured child task that
// inherits the parent's LoggingContext by value at spawn time.
func Go(ctx context.Context, fn func(context.Context)) {
	go fn(ctx)
}

func contextData(ctx context.Context) (correlationID string, data map[string]string) {
	lc, ok := FromContext(ctx)
	if !ok {
		return "", nil
	}
	merged := make(map[string]string, len(lc.CustomData)+2)
	for k, v := range lc.CustomData {
		merged[k] = v
	}
	if lc.UserID != "" {
		merged["userId"] = lc.UserID
	}
	if lc.SessionID != "" {
		merged["sessionId"] = lc.SessionID
	}
	return lc.CorrelationID, merged
}
