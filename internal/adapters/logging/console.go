package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/forge/internal/ports"
)

// ConsoleLogger logs structured messages to the console.
// Loggers derived with With share the writer, the lock and the level.
type ConsoleLogger struct {
	core   *consoleCore
	fields []ports.Field
}

type consoleCore struct {
	mu           sync.Mutex
	out          io.Writer
	level        ports.Level
	jsonFormat   bool
	includeTime  bool
	includeLevel bool
	now          func() time.Time
}

// ConsoleLoggerOption configures the console logger.
type ConsoleLoggerOption func(*consoleCore)

// WithOutput sets the output writer (default: os.Stderr).
func WithOutput(w io.Writer) ConsoleLoggerOption {
	return func(c *consoleCore) {
		c.out = w
	}
}

// WithLevel sets the minimum log level (default: Info).
func WithLevel(level ports.Level) ConsoleLoggerOption {
	return func(c *consoleCore) {
		c.level = level
	}
}

// WithJSONFormat enables JSON output format.
func WithJSONFormat(enabled bool) ConsoleLoggerOption {
	return func(c *consoleCore) {
		c.jsonFormat = enabled
	}
}

// WithTimestamp includes timestamp in log entries.
func WithTimestamp(enabled bool) ConsoleLoggerOption {
	return func(c *consoleCore) {
		c.includeTime = enabled
	}
}

// WithLevelLabel includes level label in log entries.
func WithLevelLabel(enabled bool) ConsoleLoggerOption {
	return func(c *consoleCore) {
		c.includeLevel = enabled
	}
}

// WithClock sets the time source for timestamps.
func WithClock(now func() time.Time) ConsoleLoggerOption {
	return func(c *consoleCore) {
		c.now = now
	}
}

// NewConsoleLogger creates a new console logger.
func NewConsoleLogger(opts ...ConsoleLoggerOption) *ConsoleLogger {
	core := &consoleCore{
		out:          os.Stderr,
		level:        ports.LevelInfo,
		includeTime:  true,
		includeLevel: true,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(core)
	}
	return &ConsoleLogger{core: core}
}

// New builds the host logger from configured level and format names.
func New(level, format string, out io.Writer) (*ConsoleLogger, error) {
	lvl, err := ports.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	switch format {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return NewConsoleLogger(
		WithOutput(out),
		WithLevel(lvl),
		WithJSONFormat(format == "json"),
	), nil
}

// Debug logs a debug message.
func (l *ConsoleLogger) Debug(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, ports.LevelDebug, msg, fields)
}

// Info logs an informational message.
func (l *ConsoleLogger) Info(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, ports.LevelInfo, msg, fields)
}

// Warn logs a warning message.
func (l *ConsoleLogger) Warn(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, ports.LevelWarn, msg, fields)
}

// Error logs an error message.
func (l *ConsoleLogger) Error(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, ports.LevelError, msg, fields)
}

// With returns a new logger with additional fields.
func (l *ConsoleLogger) With(fields ...ports.Field) ports.Logger {
	merged := make([]ports.Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &ConsoleLogger{core: l.core, fields: merged}
}

// Level returns the minimum log level.
func (l *ConsoleLogger) Level() ports.Level {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	return l.core.level
}

// SetLevel sets the minimum log level.
func (l *ConsoleLogger) SetLevel(level ports.Level) {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	l.core.level = level
}

func (l *ConsoleLogger) log(_ context.Context, level ports.Level, msg string, fields []ports.Field) {
	c := l.core
	c.mu.Lock()
	defer c.mu.Unlock()

	if level < c.level {
		return
	}

	all := make([]ports.Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)

	if c.jsonFormat {
		c.writeJSON(level, msg, all)
	} else {
		c.writeText(level, msg, all)
	}
}

func (c *consoleCore) writeJSON(level ports.Level, msg string, fields []ports.Field) {
	entry := make(map[string]interface{}, len(fields)+3)

	if c.includeTime {
		entry["time"] = c.now().UTC().Format(time.RFC3339)
	}
	if c.includeLevel {
		entry["level"] = level.String()
	}
	entry["msg"] = msg

	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			entry[f.Key] = err.Error()
			continue
		}
		entry[f.Key] = f.Value
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintln(c.out, string(data))
}

func (c *consoleCore) writeText(level ports.Level, msg string, fields []ports.Field) {
	var b strings.Builder

	if c.includeTime {
		b.WriteString(c.now().Format("15:04:05"))
		b.WriteByte(' ')
	}
	if c.includeLevel {
		fmt.Fprintf(&b, "[%s] ", level.String())
	}
	b.WriteString(msg)

	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(textValue(f.Value))
	}

	_, _ = fmt.Fprintln(c.out, b.String())
}

// textValue renders a field value, quoting it when it contains spaces.
func textValue(v interface{}) string {
	var s string
	switch val := v.(type) {
	case error:
		s = val.Error()
	case []string:
		s = strings.Join(val, ",")
	default:
		s = fmt.Sprintf("%v", val)
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

var _ ports.Logger = (*ConsoleLogger)(nil)
