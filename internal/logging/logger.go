package logging

import (
	"context"
	"time"
)

// Logger is a named, cached handle producers use to emit LogRecords. It
// carries no state of its own beyond its name and a reference to the
// Manager that owns the pool and distributor.
type Logger struct {
	name    string
	manager *Manager
}

// Name returns the logger's registered name.
func (l *Logger) Name() string {
	return l.name
}

func (l *Logger) log(ctx context.Context, level Level, message string, exception error) {
	correlationID, data := contextData(ctx)

	rec := l.manager.acquireRecord()
	rec.Populate(time.Now(), level, l.name, message, correlationID, data, exception, SourceLogger)
	l.manager.emit(rec)
}

// Debug emits a debug-level record.
func (l *Logger) Debug(ctx context.Context, message string) { l.log(ctx, LevelDebug, message, nil) }

// Info emits an info-level record.
func (l *Logger) Info(ctx context.Context, message string) { l.log(ctx, LevelInfo, message, nil) }

// Warn emits a warn-level record.
func (l *Logger) Warn(ctx context.Context, message string) { l.log(ctx, LevelWarn, message, nil) }

// Error emits an error-level record, optionally carrying the causing error.
func (l *Logger) Error(ctx context.Context, message string, err error) {
	l.log(ctx, LevelError, message, err)
}

// Critical emits a critical-level record, optionally carrying the causing error.
func (l *Logger) Critical(ctx context.Context, message string, err error) {
	l.log(ctx, LevelCritical, message, err)
}
