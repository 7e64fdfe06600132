// Package audit records plugin lifecycle events of the Forge host.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of audit event.
type EventType string

// Event types for plugin registration.
const (
	EventPluginRegistered   EventType = "plugin_registered"
	EventPluginReplaced     EventType = "plugin_replaced"
	EventPluginUnregistered EventType = "plugin_unregistered"
)

// Event types for plugin lifecycle.
const (
	EventPluginLoaded        EventType = "plugin_loaded"
	EventPluginLoadFailed    EventType = "plugin_load_failed"
	EventPluginUnloaded      EventType = "plugin_unloaded"
	EventPluginCleanupFailed EventType = "plugin_cleanup_failed"
)

// Event types for plugin administration.
const (
	EventPluginEnabled  EventType = "plugin_enabled"
	EventPluginDisabled EventType = "plugin_disabled"
)

// Severity represents the importance level of an event.
type Severity string

// Severity levels.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Event represents a single audit log entry.
type Event struct {
	// ID is the unique event identifier
	ID string `json:"id"`

	// Timestamp when the event occurred
	Timestamp time.Time `json:"timestamp"`

	// Type of the event
	Type EventType `json:"event"`

	// Severity level
	Severity Severity `json:"severity"`

	// User who operated the host (if known)
	User string `json:"user,omitempty"`

	// Tenant the host was operated for (if known)
	Tenant string `json:"tenant,omitempty"`

	// Plugin id
	Plugin string `json:"plugin,omitempty"`

	// Version of the plugin
	Version string `json:"version,omitempty"`

	// Success indicates if the operation succeeded
	Success bool `json:"success"`

	// Error message if operation failed
	Error string `json:"error,omitempty"`

	// Details contains additional event-specific data
	Details map[string]interface{} `json:"details,omitempty"`

	// PreviousHash is the hash of the previous event (for integrity chain)
	PreviousHash string `json:"previous_hash,omitempty"`

	// EventHash is the SHA256 hash of this event (computed before writing)
	EventHash string `json:"event_hash,omitempty"`
}

// Validate checks that the event has all required fields.
func (e Event) Validate() error {
	if e.ID == "" {
		return errors.New("event ID is required")
	}
	if e.Type == "" {
		return errors.New("event type is required")
	}
	if e.Timestamp.IsZero() {
		return errors.New("event timestamp is required")
	}
	if e.Severity == "" {
		return errors.New("event severity is required")
	}
	return nil
}

// ComputeHash calculates the SHA256 hash of the event content.
// The hash is computed over all fields except EventHash itself.
func (e *Event) ComputeHash() string {
	eventCopy := *e
	eventCopy.EventHash = ""

	data, err := json.Marshal(eventCopy)
	if err != nil {
		return ""
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// VerifyHash checks if the event's hash matches its content.
func (e Event) VerifyHash() bool {
	if e.EventHash == "" {
		return true // No hash to verify
	}
	return e.ComputeHash() == e.EventHash
}

// EventBuilder provides a fluent API for building events.
type EventBuilder struct {
	event Event
}

// NewEvent creates a new event builder with required fields.
func NewEvent(eventType EventType) *EventBuilder {
	return &EventBuilder{
		event: Event{
			ID:        uuid.NewString(),
			Timestamp: time.Now().UTC(),
			Type:      eventType,
			Severity:  SeverityInfo,
			Success:   true,
		},
	}
}

// At sets the event time.
func (b *EventBuilder) At(t time.Time) *EventBuilder {
	if !t.IsZero() {
		b.event.Timestamp = t.UTC()
	}
	return b
}

// WithSeverity sets the severity level.
func (b *EventBuilder) WithSeverity(severity Severity) *EventBuilder {
	b.event.Severity = severity
	return b
}

// WithUser sets the user who operated the host.
func (b *EventBuilder) WithUser(user string) *EventBuilder {
	b.event.User = user
	return b
}

// WithTenant sets the tenant.
func (b *EventBuilder) WithTenant(tenant string) *EventBuilder {
	b.event.Tenant = tenant
	return b
}

// WithPlugin sets the plugin id and version.
func (b *EventBuilder) WithPlugin(id, version string) *EventBuilder {
	b.event.Plugin = id
	b.event.Version = version
	return b
}

// WithError sets the error message and marks as failed.
func (b *EventBuilder) WithError(err error) *EventBuilder {
	if err != nil {
		b.event.Success = false
		b.event.Error = err.Error()
	}
	return b
}

// AddDetail adds a single detail.
func (b *EventBuilder) AddDetail(key string, value interface{}) *EventBuilder {
	if b.event.Details == nil {
		b.event.Details = make(map[string]interface{})
	}
	b.event.Details[key] = value
	return b
}

// Build creates the final Event.
func (b *EventBuilder) Build() Event {
	return b.event
}
