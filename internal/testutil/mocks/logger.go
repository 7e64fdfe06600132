// Package mocks provides hand-written fakes of the ports interfaces.
package mocks

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/forge/internal/ports"
)

// Entry is one recorded log call.
type Entry struct {
	Level   ports.Level
	Message string
	Fields  map[string]interface{}
}

// Logger records every log call for assertions.
type Logger struct {
	mu      *sync.Mutex
	entries *[]Entry
	fields  []ports.Field
	level   ports.Level
}

// NewLogger creates a recording logger that accepts every level.
func NewLogger() *Logger {
	return &Logger{
		mu:      &sync.Mutex{},
		entries: &[]Entry{},
		level:   ports.LevelDebug,
	}
}

// Debug records a debug message.
func (l *Logger) Debug(_ context.Context, msg string, fields ...ports.Field) {
	l.record(ports.LevelDebug, msg, fields)
}

// Info records an informational message.
func (l *Logger) Info(_ context.Context, msg string, fields ...ports.Field) {
	l.record(ports.LevelInfo, msg, fields)
}

// Warn records a warning.
func (l *Logger) Warn(_ context.Context, msg string, fields ...ports.Field) {
	l.record(ports.LevelWarn, msg, fields)
}

// Error records an error.
func (l *Logger) Error(_ context.Context, msg string, fields ...ports.Field) {
	l.record(ports.LevelError, msg, fields)
}

// With returns a logger sharing the same record with extra fields.
func (l *Logger) With(fields ...ports.Field) ports.Logger {
	merged := append(append([]ports.Field(nil), l.fields...), fields...)
	return &Logger{mu: l.mu, entries: l.entries, fields: merged, level: l.level}
}

// Level returns the minimum level recorded.
func (l *Logger) Level() ports.Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetLevel sets the minimum level recorded.
func (l *Logger) SetLevel(level ports.Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) record(level ports.Level, msg string, fields []ports.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}
	entry := Entry{Level: level, Message: msg, Fields: make(map[string]interface{}, len(l.fields)+len(fields))}
	for _, f := range l.fields {
		entry.Fields[f.Key] = f.Value
	}
	for _, f := range fields {
		entry.Fields[f.Key] = f.Value
	}
	*l.entries = append(*l.entries, entry)
}

// Entries returns a copy of the recorded entries.
func (l *Logger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), *l.entries...)
}

// Messages returns the recorded messages at level or above.
func (l *Logger) Messages(level ports.Level) []string {
	var out []string
	for _, e := range l.Entries() {
		if e.Level >= level {
			out = append(out, e.Message)
		}
	}
	return out
}

var _ ports.Logger = (*Logger)(nil)
