package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Logger defines the interface for audit logging.
type Logger interface {
	// Log records an audit event
	Log(ctx context.Context, event Event) error

	// Query retrieves events matching the filter, oldest first
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Close releases any resources
	Close() error
}

// FileLogger appends events as JSON lines to a single file and chains
// each event to the previous one by hash.
type FileLogger struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	lastHash string
}

// NewFileLogger opens path for appending, creating it and its directory if
// needed. The hash chain continues from the last event already in the file.
func NewFileLogger(path string) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	existing, err := readLogFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	logger := &FileLogger{path: path, file: file}
	if n := len(existing); n > 0 {
		logger.lastHash = existing[n-1].EventHash
	}
	return logger, nil
}

// Path returns the log file path.
func (l *FileLogger) Path() string {
	return l.path
}

// Log records an audit event.
func (l *FileLogger) Log(_ context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid audit event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return errors.New("audit log is closed")
	}

	event.PreviousHash = l.lastHash
	event.EventHash = event.ComputeHash()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	data = append(data, '\n')
	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	l.lastHash = event.EventHash
	return nil
}

// Query retrieves events matching the filter.
func (l *FileLogger) Query(_ context.Context, filter QueryFilter) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := readLogFile(l.path)
	if err != nil {
		return nil, err
	}
	return filter.Apply(events), nil
}

// Verify checks every event hash and the chain between them. It returns the
// id of the first event that fails.
func (l *FileLogger) Verify() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := readLogFile(l.path)
	if err != nil {
		return "", err
	}

	prev := ""
	for _, event := range events {
		if !event.VerifyHash() || event.PreviousHash != prev {
			return event.ID, fmt.Errorf("audit chain broken at event %s", event.ID)
		}
		prev = event.EventHash
	}
	return "", nil
}

// Close releases resources.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// readLogFile reads all events from a log file.
func readLogFile(path string) ([]Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	var events []Event
	decoder := json.NewDecoder(file)

	for {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			if err == io.EOF {
				break
			}
			return events, nil // Stop at a truncated tail
		}
		events = append(events, event)
	}

	return events, nil
}

// MemoryLogger implements Logger with in-memory storage.
type MemoryLogger struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryLogger creates a new in-memory logger.
func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{
		events: make([]Event, 0),
	}
}

// Log records an audit event.
func (l *MemoryLogger) Log(_ context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid audit event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

// Query retrieves events matching the filter.
func (l *MemoryLogger) Query(_ context.Context, filter QueryFilter) ([]Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return filter.Apply(l.events), nil
}

// Close is a no-op for memory logger.
func (l *MemoryLogger) Close() error {
	return nil
}

// Events returns all logged events.
func (l *MemoryLogger) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	result := make([]Event, len(l.events))
	copy(result, l.events)
	return result
}

// Ensure implementations satisfy Logger interface.
var (
	_ Logger = (*FileLogger)(nil)
	_ Logger = (*MemoryLogger)(nil)
)
