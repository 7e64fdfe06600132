package audit_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/forge/internal/domain/audit"
	"github.com/felixgeelhaar/forge/internal/domain/plugin"
	"github.com/felixgeelhaar/forge/internal/ports"
)

func TestService_Observe(t *testing.T) {
	t.Parallel()

	store := audit.NewMemoryLogger()
	svc := audit.NewService(store, audit.WithIdentity("alice", "t1"))
	ctx := context.Background()
	at := time.Date(2024, 2, 2, 9, 0, 0, 0, time.UTC)

	svc.Observe(ctx, plugin.Change{Kind: plugin.ChangeLoaded, PluginID: "assets", Version: "1.0.0", At: at})
	svc.Observe(ctx, plugin.Change{Kind: plugin.ChangeLoadFailed, PluginID: "work-orders", Version: "1.0.0", Err: errors.New("boom"), At: at})
	svc.Observe(ctx, plugin.Change{Kind: plugin.ChangeKind("unknown"), PluginID: "x"})

	events := store.Events()
	require.Len(t, events, 2)

	assert.Equal(t, audit.EventPluginLoaded, events[0].Type)
	assert.Equal(t, "alice", events[0].User)
	assert.Equal(t, "t1", events[0].Tenant)
	assert.Equal(t, at, events[0].Timestamp)
	assert.True(t, events[0].Success)

	assert.Equal(t, audit.EventPluginLoadFailed, events[1].Type)
	assert.Equal(t, audit.SeverityError, events[1].Severity)
	assert.False(t, events[1].Success)
	assert.Equal(t, "boom", events[1].Error)
}

func TestService_RecordsRegistryChanges(t *testing.T) {
	t.Parallel()

	store := audit.NewMemoryLogger()
	svc := audit.NewService(store, audit.WithIdentity("ops", "t1"))
	registry := plugin.NewRegistry(plugin.WithObserver(svc))
	ctx := context.Background()

	require.NoError(t, registry.Register(&plugin.Descriptor{ID: "assets", Name: "Assets", Version: "1.0.0"}))
	require.NoError(t, registry.Register(&plugin.Descriptor{
		ID:         "broken",
		Name:       "Broken",
		Initialize: func(context.Context) error { return errors.New("no database") },
		Cleanup:    func(context.Context) error { return nil },
	}))
	require.NoError(t, registry.Load(ctx, "assets"))
	require.Error(t, registry.Load(ctx, "broken"))
	require.NoError(t, registry.SetEnabled("assets", false))

	failures, err := svc.Failures(ctx, "")
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "broken", failures[0].Plugin)
	assert.Contains(t, failures[0].Error, "no database")

	recent, err := svc.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, audit.EventPluginDisabled, recent[0].Type)

	summary, err := svc.Summary(ctx, audit.QueryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 5, summary.TotalEvents)
	assert.Equal(t, 1, summary.FailureCount)

	all, err := svc.Query(ctx, audit.NewQuery().WithPlugin("assets").Build())
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.NoError(t, svc.Close())
}

// failingLogger rejects every event.
type failingLogger struct{ *audit.MemoryLogger }

func (failingLogger) Log(context.Context, audit.Event) error { return errors.New("disk full") }

// errorRecorder captures Error calls.
type errorRecorder struct {
	ports.Logger
	messages []string
}

func (r *errorRecorder) Error(_ context.Context, msg string, _ ...ports.Field) {
	r.messages = append(r.messages, msg)
}

func TestService_ObserveReportsWriteFailures(t *testing.T) {
	t.Parallel()

	rec := &errorRecorder{}
	svc := audit.NewService(failingLogger{audit.NewMemoryLogger()}, audit.WithErrorLogger(rec))
	svc.Observe(context.Background(), plugin.Change{Kind: plugin.ChangeLoaded, PluginID: "assets"})

	assert.Equal(t, []string{"failed to record audit event"}, rec.messages)
}

func TestService_Verify(t *testing.T) {
	t.Parallel()

	t.Run("file log with intact chain", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "forge.jsonl")
		store, err := audit.NewFileLogger(path)
		require.NoError(t, err)
		svc := audit.NewService(store)
		defer func() { _ = svc.Close() }()

		svc.Observe(context.Background(), plugin.Change{Kind: plugin.ChangeLoaded, PluginID: "assets", Version: "1.0.0"})
		svc.Observe(context.Background(), plugin.Change{Kind: plugin.ChangeUnloaded, PluginID: "assets", Version: "1.0.0"})

		id, err := svc.Verify()
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("file log with broken chain", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "forge.jsonl")
		store, err := audit.NewFileLogger(path)
		require.NoError(t, err)
		svc := audit.NewService(store)
		defer func() { _ = svc.Close() }()

		svc.Observe(context.Background(), plugin.Change{Kind: plugin.ChangeLoaded, PluginID: "assets"})
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, []byte(strings.Replace(string(data), `"assets"`, `"intruder"`, 1)), 0o600))

		events, err := svc.Query(context.Background(), audit.QueryFilter{})
		require.NoError(t, err)
		require.Len(t, events, 1)

		id, err := svc.Verify()
		require.Error(t, err)
		assert.Equal(t, events[0].ID, id)
	})

	t.Run("memory log cannot be verified", func(t *testing.T) {
		t.Parallel()
		svc := audit.NewService(audit.NewMemoryLogger())
		_, err := svc.Verify()
		assert.ErrorIs(t, err, audit.ErrNotVerifiable)
	})
}
