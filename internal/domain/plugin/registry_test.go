package plugin

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/forge/internal/ports"
)

// recordingLogger captures warnings.
type recordingLogger struct {
	discard
	mu       sync.Mutex
	warnings []string
}

func (l *recordingLogger) Warn(_ context.Context, msg string, _ ...ports.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, msg)
}

func (l *recordingLogger) With(...ports.Field) ports.Logger { return l }

func TestRegistry_Register(t *testing.T) {
	t.Parallel()

	t.Run("rejects invalid descriptor", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		err := r.Register(&Descriptor{ID: "a"})
		assert.True(t, IsValidationError(err))
		assert.Zero(t, r.Len())
	})

	t.Run("rejects nil descriptor", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, NewRegistry().Register(nil), ErrNilDescriptor)
	})

	t.Run("new plugin is enabled and unloaded", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		mustRegister(t, r, desc("assets"))

		state, ok := r.PluginState("assets")
		require.True(t, ok)
		assert.Equal(t, RuntimeState{Phase: PhaseUnloaded, Enabled: true}, state)
	})

	t.Run("stores a copy", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		d := desc("assets")
		mustRegister(t, r, d)
		d.Name = "mutated"

		got, ok := r.Plugin("assets")
		require.True(t, ok)
		assert.Equal(t, "assets", got.Name)
	})

	t.Run("replace keeps position and resets state", func(t *testing.T) {
		t.Parallel()
		log := &callLog{}
		r := NewRegistry()
		first := desc("a")
		first.Cleanup = log.hook("cleanup-a")
		mustRegister(t, r, first, desc("b"))
		require.NoError(t, r.Load(context.Background(), "a"))
		require.NoError(t, r.SetEnabled("a", false))

		second := desc("a")
		second.Version = "2.0.0"
		mustRegister(t, r, second)

		assert.Equal(t, []string{"a", "b"}, ids(r.AllPlugins()))
		state, _ := r.PluginState("a")
		assert.Equal(t, RuntimeState{Phase: PhaseUnloaded, Enabled: true}, state)
		got, _ := r.Plugin("a")
		assert.Equal(t, "2.0.0", got.Version)
		assert.Empty(t, r.LoadedPlugins())
		assert.Empty(t, log.list(), "replacing does not clean up the old descriptor")
	})
}

func TestRegistry_Unregister(t *testing.T) {
	t.Parallel()

	t.Run("loaded plugin is cleaned up and removed", func(t *testing.T) {
		t.Parallel()
		log := &callLog{}
		assets := desc("assets")
		assets.Tabs = []Tab{{ID: "assets", Label: "Assets"}}
		assets.Cleanup = log.hook("cleanup")

		r := NewRegistry()
		mustRegister(t, r, assets, desc("dashboard"))
		require.NoError(t, r.Load(context.Background(), "assets"))
		require.Len(t, r.Tabs(nil), 1)

		require.NoError(t, r.Unregister(context.Background(), "assets"))

		assert.Equal(t, []string{"cleanup"}, log.list())
		assert.Equal(t, []string{"dashboard"}, ids(r.AllPlugins()))
		assert.Empty(t, r.Tabs(nil))
		_, ok := r.PluginState("assets")
		assert.False(t, ok)
		_, ok = r.Plugin("assets")
		assert.False(t, ok)
	})

	t.Run("never loaded plugin is still cleaned up", func(t *testing.T) {
		t.Parallel()
		log := &callLog{}
		d := desc("a")
		d.Cleanup = log.hook("cleanup")

		r := NewRegistry()
		mustRegister(t, r, d)
		require.NoError(t, r.Unregister(context.Background(), "a"))
		assert.Equal(t, []string{"cleanup"}, log.list())
	})

	t.Run("failed plugin is cleaned up", func(t *testing.T) {
		t.Parallel()
		log := &callLog{}
		d := desc("a")
		d.Initialize = log.failing("init", errBoom)
		d.Cleanup = log.hook("cleanup")

		r := NewRegistry()
		mustRegister(t, r, d)
		require.Error(t, r.Load(context.Background(), "a"))
		require.NoError(t, r.Unregister(context.Background(), "a"))

		assert.Equal(t, []string{"init", "cleanup"}, log.list())
		assert.Zero(t, r.Len())
	})

	t.Run("cleanup failure is logged not returned", func(t *testing.T) {
		t.Parallel()
		logger := &recordingLogger{}
		changes := &changeRecorder{}
		d := desc("a")
		d.Cleanup = func(context.Context) error { return errBoom }

		r := NewRegistry(WithLogger(logger), WithObserver(changes))
		mustRegister(t, r, d)
		require.NoError(t, r.Load(context.Background(), "a"))

		require.NoError(t, r.Unregister(context.Background(), "a"))
		assert.Equal(t, 0, r.Len())
		assert.Contains(t, logger.warnings, "plugin cleanup failed")
		assert.Equal(t, []ChangeKind{ChangeRegistered, ChangeLoaded, ChangeCleanupFailed, ChangeUnregistered}, changes.kinds())
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()
		err := NewRegistry().Unregister(context.Background(), "ghost")
		assert.True(t, IsNotFound(err))
	})
}

func TestRegistry_Unload(t *testing.T) {
	t.Parallel()

	t.Run("shallow by default", func(t *testing.T) {
		t.Parallel()
		log := &callLog{}
		assets, wo := desc("assets"), desc("work-orders", "assets")
		assets.Cleanup, wo.Cleanup = log.hook("assets"), log.hook("work-orders")

		r := NewRegistry()
		mustRegister(t, r, assets, wo)
		require.NoError(t, r.Load(context.Background(), "work-orders"))
		require.NoError(t, r.Unload(context.Background(), "assets"))

		assert.Equal(t, []string{"assets"}, log.list())
		sa, _ := r.PluginState("assets")
		sw, _ := r.PluginState("work-orders")
		assert.False(t, sa.Loaded)
		assert.True(t, sw.Loaded, "dependents stay loaded")
		assert.True(t, sa.LoadedAt.IsZero())
		assert.Equal(t, []string{"work-orders"}, ids(r.LoadedPlugins()))
	})

	t.Run("cascade unloads dependents first", func(t *testing.T) {
		t.Parallel()
		log := &callLog{}
		assets, wo, inv, dash := desc("assets"), desc("work-orders", "assets"), desc("inventory", "work-orders"), desc("dashboard")
		assets.Cleanup = log.hook("assets")
		wo.Cleanup = log.hook("work-orders")
		inv.Cleanup = log.hook("inventory")
		dash.Cleanup = log.hook("dashboard")

		r := NewRegistry(WithCascadingUnload())
		mustRegister(t, r, dash, assets, wo, inv)
		require.NoError(t, r.Load(context.Background(), "dashboard"))
		require.NoError(t, r.Load(context.Background(), "inventory"))

		require.NoError(t, r.Unload(context.Background(), "assets"))

		assert.Equal(t, []string{"inventory", "work-orders", "assets"}, log.list())
		assert.Equal(t, []string{"dashboard"}, ids(r.LoadedPlugins()))
	})

	t.Run("unloaded plugin runs cleanup without notifying", func(t *testing.T) {
		t.Parallel()
		log := &callLog{}
		changes := &changeRecorder{}
		d := desc("a")
		d.Cleanup = log.hook("a")

		r := NewRegistry(WithObserver(changes))
		mustRegister(t, r, d)

		var calls atomic.Int32
		defer r.Subscribe(func([]Plugin) { calls.Add(1) })()
		require.NoError(t, r.Unload(context.Background(), "a"))

		assert.Equal(t, []string{"a"}, log.list())
		assert.Zero(t, calls.Load(), "nothing changed")
		assert.Equal(t, []ChangeKind{ChangeRegistered}, changes.kinds())
	})

	t.Run("failed plugin is cleaned up and returns to unloaded", func(t *testing.T) {
		t.Parallel()
		log := &callLog{}
		d := desc("a")
		d.Initialize = log.failing("init", errBoom)
		d.Cleanup = log.hook("cleanup")

		r := NewRegistry()
		mustRegister(t, r, d)
		require.Error(t, r.Load(context.Background(), "a"))

		var calls atomic.Int32
		defer r.Subscribe(func([]Plugin) { calls.Add(1) })()
		require.NoError(t, r.Unload(context.Background(), "a"))

		assert.Equal(t, []string{"init", "cleanup"}, log.list())
		assert.Equal(t, int32(1), calls.Load())
		state, _ := r.PluginState("a")
		assert.Equal(t, PhaseUnloaded, state.Phase)
		assert.ErrorIs(t, state.LastError, errBoom, "last error survives unload")

		require.NoError(t, r.Unregister(context.Background(), "a"))
		assert.Equal(t, []string{"init", "cleanup", "cleanup"}, log.list())
	})

	t.Run("unload during load is refused", func(t *testing.T) {
		t.Parallel()
		started := make(chan struct{})
		release := make(chan struct{})
		d := desc("a")
		d.Initialize = func(context.Context) error {
			close(started)
			<-release
			return nil
		}

		r := NewRegistry()
		mustRegister(t, r, d)
		done := make(chan error, 1)
		go func() { done <- r.Load(context.Background(), "a") }()
		<-started

		err := r.Unload(context.Background(), "a")
		assert.ErrorIs(t, err, ErrLoadInProgress)

		close(release)
		require.NoError(t, <-done)
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()
		assert.True(t, IsNotFound(NewRegistry().Unload(context.Background(), "ghost")))
	})
}

func TestRegistry_UnregisterDuringLoad(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	started := make(chan struct{})
	release := make(chan struct{})
	d := desc("a")
	d.Initialize = func(context.Context) error {
		close(started)
		<-release
		return nil
	}
	d.Cleanup = log.hook("cleanup")

	r := NewRegistry()
	mustRegister(t, r, d)
	done := make(chan error, 1)
	go func() { done <- r.Load(context.Background(), "a") }()
	<-started

	require.NoError(t, r.Unregister(context.Background(), "a"))
	close(release)

	assert.ErrorIs(t, <-done, ErrStaleLoad)
	assert.Equal(t, []string{"cleanup"}, log.list(), "a discarded successful load is cleaned up")
	assert.Zero(t, r.Len())
}

func TestRegistry_SetEnabled(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	d := desc("a")
	d.Initialize, d.Cleanup = log.hook("init"), log.hook("cleanup")

	r := NewRegistry()
	mustRegister(t, r, d)
	require.NoError(t, r.Load(context.Background(), "a"))
	require.Equal(t, []string{"a"}, ids(r.EnabledPlugins()))

	require.NoError(t, r.SetEnabled("a", false))
	state, _ := r.PluginState("a")
	assert.False(t, state.Enabled)
	assert.True(t, state.Loaded, "disabling keeps the plugin loaded")
	assert.Empty(t, r.EnabledPlugins())

	require.NoError(t, r.SetEnabled("a", true))
	assert.Equal(t, []string{"a"}, ids(r.EnabledPlugins()))
	assert.Equal(t, []string{"init"}, log.list(), "no hooks run")

	var calls atomic.Int32
	defer r.Subscribe(func([]Plugin) { calls.Add(1) })()
	require.NoError(t, r.SetEnabled("a", true))
	assert.Zero(t, calls.Load(), "enabling an enabled plugin changes nothing")

	assert.True(t, IsNotFound(r.SetEnabled("ghost", true)))
}

func TestRegistry_EnabledPluginsRequiresLoaded(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	mustRegister(t, r, desc("a"), desc("b"))
	require.NoError(t, r.Load(context.Background(), "b"))

	assert.Equal(t, []string{"b"}, ids(r.EnabledPlugins()))
}

func TestRegistry_Dependents(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	mustRegister(t, r, desc("assets"), desc("work-orders", "assets"), desc("inventory", "assets"), desc("dashboard"))

	assert.Equal(t, []string{"work-orders", "inventory"}, r.Dependents("assets"))
	assert.Empty(t, r.Dependents("dashboard"))
}

func TestRegistry_Subscribe(t *testing.T) {
	t.Parallel()

	t.Run("receives snapshot after every mutation", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		var snapshots [][]Plugin
		unsubscribe := r.Subscribe(func(plugins []Plugin) {
			snapshots = append(snapshots, plugins)
		})
		defer unsubscribe()

		ctx := context.Background()
		mustRegister(t, r, desc("a"))
		require.NoError(t, r.Load(ctx, "a"))
		require.NoError(t, r.SetEnabled("a", false))
		require.NoError(t, r.Unload(ctx, "a"))
		require.NoError(t, r.Unregister(ctx, "a"))

		require.Len(t, snapshots, 5)
		assert.Equal(t, PhaseUnloaded, snapshots[0][0].State.Phase)
		assert.True(t, snapshots[1][0].State.Loaded)
		assert.False(t, snapshots[2][0].State.Enabled)
		assert.False(t, snapshots[3][0].State.Loaded)
		assert.Empty(t, snapshots[4])
	})

	t.Run("unsubscribe twice is safe", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		var calls atomic.Int32
		unsubscribe := r.Subscribe(func([]Plugin) { calls.Add(1) })
		other := r.Subscribe(func([]Plugin) {})
		defer other()

		mustRegister(t, r, desc("a"))
		unsubscribe()
		unsubscribe()
		mustRegister(t, r, desc("b"))

		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("listeners run in subscription order", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		var order []int
		for i := range 3 {
			r.Subscribe(func([]Plugin) { order = append(order, i) })
		}
		mustRegister(t, r, desc("a"))
		assert.Equal(t, []int{0, 1, 2}, order)
	})

	t.Run("panicking listener does not stop others", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		r.Subscribe(func([]Plugin) { panic("listener") })
		var called bool
		r.Subscribe(func([]Plugin) { called = true })

		require.NoError(t, r.Register(desc("a")))
		assert.True(t, called)
	})

	t.Run("listener snapshot is a copy", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		r.Subscribe(func(plugins []Plugin) { plugins[0].State.Enabled = false })
		mustRegister(t, r, desc("a"))

		state, _ := r.PluginState("a")
		assert.True(t, state.Enabled)
	})
}

func TestRegistry_Observer(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	changes := &changeRecorder{}
	r := NewRegistry(WithObserver(changes), WithClock(func() time.Time { return now }))

	bad := desc("bad")
	bad.Initialize = func(context.Context) error { return errBoom }
	mustRegister(t, r, desc("a"), bad, desc("a"))
	ctx := context.Background()
	require.NoError(t, r.Load(ctx, "a"))
	require.Error(t, r.Load(ctx, "bad"))
	require.NoError(t, r.SetEnabled("a", false))
	require.NoError(t, r.SetEnabled("a", true))
	require.NoError(t, r.Unload(ctx, "a"))

	assert.Equal(t, []ChangeKind{
		ChangeRegistered, ChangeRegistered, ChangeReplaced,
		ChangeLoaded, ChangeLoadFailed,
		ChangeDisabled, ChangeEnabled, ChangeUnloaded,
	}, changes.kinds())

	state, _ := r.PluginState("bad")
	assert.Equal(t, now, changes.changes[4].At)
	assert.ErrorIs(t, changes.changes[4].Err, errBoom)
	assert.Equal(t, state.LastError, changes.changes[4].Err)
}

func TestRegistry_ObserverFunc(t *testing.T) {
	t.Parallel()

	var got []string
	r := NewRegistry(WithObserver(ObserverFunc(func(_ context.Context, c Change) {
		got = append(got, c.PluginID+":"+string(c.Kind))
	})))
	mustRegister(t, r, desc("a"))

	assert.Equal(t, []string{"a:registered"}, got)
}

func TestRegistry_ContextLoggerTakesPrecedence(t *testing.T) {
	t.Parallel()

	configured := &recordingLogger{}
	scoped := &recordingLogger{}
	d := desc("a")
	d.Initialize = func(context.Context) error { return errBoom }

	r := NewRegistry(WithLogger(configured))
	mustRegister(t, r, d)
	ctx := ports.ContextWithLogger(context.Background(), scoped)
	require.Error(t, r.Load(ctx, "a"))

	assert.Empty(t, configured.warnings)
	assert.Equal(t, []string{"plugin load failed"}, scoped.warnings)
}
