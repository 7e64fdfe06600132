package audit_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/forge/internal/domain/audit"
)

func TestNewEvent(t *testing.T) {
	t.Parallel()

	event := audit.NewEvent(audit.EventPluginLoaded).Build()

	_, err := uuid.Parse(event.ID)
	require.NoError(t, err, "event ids are UUIDs")
	assert.Equal(t, audit.EventPluginLoaded, event.Type)
	assert.Equal(t, audit.SeverityInfo, event.Severity)
	assert.True(t, event.Success)
	assert.WithinDuration(t, time.Now(), event.Timestamp, time.Minute)
	assert.NoError(t, event.Validate())
}

func TestEventBuilder(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 5, 1, 8, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	event := audit.NewEvent(audit.EventPluginLoadFailed).
		At(at).
		WithSeverity(audit.SeverityError).
		WithUser("alice").
		WithTenant("t1").
		WithPlugin("work-orders", "1.0.0").
		WithError(errors.New("database unavailable")).
		AddDetail("attempt", 2).
		Build()

	assert.Equal(t, at.UTC(), event.Timestamp)
	assert.Equal(t, "alice", event.User)
	assert.Equal(t, "t1", event.Tenant)
	assert.Equal(t, "work-orders", event.Plugin)
	assert.Equal(t, "1.0.0", event.Version)
	assert.False(t, event.Success)
	assert.Equal(t, "database unavailable", event.Error)
	assert.Equal(t, 2, event.Details["attempt"])
}

func TestEventBuilder_NilErrorKeepsSuccess(t *testing.T) {
	t.Parallel()

	event := audit.NewEvent(audit.EventPluginUnloaded).WithError(nil).Build()
	assert.True(t, event.Success)
	assert.Empty(t, event.Error)
}

func TestEvent_Validate(t *testing.T) {
	t.Parallel()

	valid := audit.NewEvent(audit.EventPluginRegistered).Build()

	tests := []struct {
		name    string
		mutate  func(*audit.Event)
		wantErr string
	}{
		{"missing id", func(e *audit.Event) { e.ID = "" }, "event ID is required"},
		{"missing type", func(e *audit.Event) { e.Type = "" }, "event type is required"},
		{"missing timestamp", func(e *audit.Event) { e.Timestamp = time.Time{} }, "event timestamp is required"},
		{"missing severity", func(e *audit.Event) { e.Severity = "" }, "event severity is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			event := valid
			tt.mutate(&event)
			assert.EqualError(t, event.Validate(), tt.wantErr)
		})
	}
}

func TestEvent_Hash(t *testing.T) {
	t.Parallel()

	event := audit.NewEvent(audit.EventPluginLoaded).WithPlugin("assets", "1.0.0").Build()
	assert.True(t, event.VerifyHash(), "unhashed events verify")

	event.EventHash = event.ComputeHash()
	assert.Len(t, event.EventHash, 64)
	assert.True(t, event.VerifyHash())

	event.Plugin = "tampered"
	assert.False(t, event.VerifyHash())
}
