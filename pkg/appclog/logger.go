// Package appclog provides the engine's own diagnostic logging — startup,
// shutdown, plugin load failures and similar framework-level events. It is
// deliberately separate from the push-based logging core in internal/logging,
// which is the pipeline's event pipeline, not the framework's own trail.
package appclog

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger with the engine's field conventions.
type Logger struct {
	*logrus.Logger
	component string
}

// Config controls format and destination of framework logs.
type Config struct {
	Level  string
	Format string
	Output io.Writer
}

// New builds a Logger for the named component.
func New(component string, cfg Config) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	l.SetOutput(out)

	return &Logger{Logger: l, component: component}
}

// NewDefault builds a Logger with sane defaults, for tests and examples.
func NewDefault(component string) *Logger {
	return New(component, Config{Level: "info", Format: "text"})
}

// WithField returns an entry tagged with the component name plus key.
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.Logger.WithField("component", l.component).WithField(key, value)
}

// WithFields returns an entry tagged with the component name plus fields.
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	fields["component"] = l.component
	return l.Logger.WithFields(fields)
}
