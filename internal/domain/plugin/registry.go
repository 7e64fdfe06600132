package plugin

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/felixgeelhaar/forge/internal/domain/permission"
	"github.com/felixgeelhaar/forge/internal/ports"
)

// Listener receives the full plugin list after a mutation.
// Listeners run synchronously and must not call registry mutators.
type Listener func(plugins []Plugin)

// entry is the registry's record of one plugin.
type entry struct {
	desc     *Descriptor
	life     *lifecycle
	enabled  bool
	lastErr  error
	loadedAt time.Time
	gen      uint64
}

func (e *entry) snapshot() Plugin {
	phase := e.life.phase()
	return Plugin{
		Descriptor: e.desc.clone(),
		State: RuntimeState{
			Phase:     phase,
			Loaded:    phase == PhaseLoaded,
			Enabled:   e.enabled,
			LastError: e.lastErr,
			LoadedAt:  e.loadedAt,
		},
	}
}

// Registry stores plugin descriptors and their runtime state.
// It is safe for concurrent use. Hooks and listeners run outside its lock.
type Registry struct {
	mu        sync.RWMutex
	entries   map[string]*entry
	order     []string
	loadOrder []string
	gen       uint64

	subMu   sync.Mutex
	subs    map[uint64]Listener
	nextSub uint64

	// notifyMu keeps deliveries in mutation order.
	notifyMu sync.Mutex
	flights  singleflight.Group

	logger    ports.Logger
	evaluator *permission.Evaluator
	cascade   bool
	observers []Observer
	now       func() time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger for hook failures and lifecycle messages.
// A logger carried by the operation's context takes precedence.
func WithLogger(logger ports.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithEvaluator sets the permission evaluator used by the views.
func WithEvaluator(e *permission.Evaluator) RegistryOption {
	return func(r *Registry) {
		r.evaluator = e
	}
}

// WithCascadingUnload makes Unload unload loaded dependents first.
func WithCascadingUnload() RegistryOption {
	return func(r *Registry) {
		r.cascade = true
	}
}

// WithObserver adds an observer of individual lifecycle changes.
func WithObserver(o Observer) RegistryOption {
	return func(r *Registry) {
		r.observers = append(r.observers, o)
	}
}

// WithClock overrides the time source for LoadedAt and change timestamps.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		entries:   make(map[string]*entry),
		subs:      make(map[uint64]Listener),
		evaluator: permission.NewEvaluator(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register validates d and inserts a copy of it. Registering an existing id
// replaces the descriptor in place, keeping its registration position, and
// resets its state to unloaded and enabled. The replaced descriptor's Cleanup
// is not called.
func (r *Registry) Register(d *Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	desc := d.clone()

	life, err := newLifecycle(desc.ID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.gen++
	next := &entry{desc: desc, life: life, enabled: true, gen: r.gen}
	kind := ChangeRegistered
	if prev, ok := r.entries[desc.ID]; ok {
		prev.life.stop()
		r.loadOrder = remove(r.loadOrder, desc.ID)
		kind = ChangeReplaced
	} else {
		r.order = append(r.order, desc.ID)
	}
	r.entries[desc.ID] = next
	r.mu.Unlock()

	r.emit(Change{Kind: kind, PluginID: desc.ID, Version: desc.Version})
	r.notify()
	return nil
}

// Unregister removes a plugin's descriptor and state together, then runs its
// Cleanup best-effort whatever phase it was in; a cleanup failure is logged
// and never returned. A plugin removed mid-load is cleaned up by that load
// when it finishes instead.
func (r *Registry) Unregister(ctx context.Context, id string) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return notFound(id)
	}
	loading := e.life.phase() == PhaseLoading
	delete(r.entries, id)
	r.order = remove(r.order, id)
	r.loadOrder = remove(r.loadOrder, id)
	e.life.stop()
	r.mu.Unlock()

	if !loading {
		r.cleanup(ctx, e.desc)
	}
	r.emit(Change{Kind: ChangeUnregistered, PluginID: id, Version: e.desc.Version})
	r.notify()
	return nil
}

// Unload runs the plugin's Cleanup best-effort and marks it unloaded. Cleanup
// runs in every phase, so hooks must tolerate being called for a plugin that
// never finished loading. By default the unload is shallow: dependents stay
// loaded but their dependency's contributions disappear from the views. With
// WithCascadingUnload, loaded dependents are unloaded first, most dependent
// first. Listeners are notified only when a phase changed.
func (r *Registry) Unload(ctx context.Context, id string) error {
	r.mu.Lock()
	if _, ok := r.entries[id]; !ok {
		r.mu.Unlock()
		return notFound(id)
	}

	targets := []string{id}
	if r.cascade {
		targets = r.cascadeLocked(id)
	}
	for _, t := range targets {
		if r.entries[t].life.phase() == PhaseLoading {
			r.mu.Unlock()
			return fmt.Errorf("unloading plugin %q: %w", t, ErrLoadInProgress)
		}
	}

	type unloadStep struct {
		desc      *Descriptor
		wasLoaded bool
	}
	steps := make([]unloadStep, 0, len(targets))
	changed := false
	for _, t := range targets {
		e := r.entries[t]
		step := unloadStep{desc: e.desc}
		switch e.life.phase() {
		case PhaseLoaded:
			step.wasLoaded = true
			r.loadOrder = remove(r.loadOrder, t)
		case PhaseFailed:
		default:
			steps = append(steps, step)
			continue
		}
		if err := e.life.fire(eventUnload); err != nil {
			r.mu.Unlock()
			return err
		}
		e.loadedAt = time.Time{}
		changed = true
		steps = append(steps, step)
	}
	r.mu.Unlock()

	for _, step := range steps {
		r.cleanup(ctx, step.desc)
		if step.wasLoaded {
			r.emit(Change{Kind: ChangeUnloaded, PluginID: step.desc.ID, Version: step.desc.Version})
		}
	}
	if changed {
		r.notify()
	}
	return nil
}

// cascadeLocked returns id and every loaded plugin depending on it,
// transitively, ordered dependents first.
func (r *Registry) cascadeLocked(id string) []string {
	affected := map[string]bool{id: true}
	for changed := true; changed; {
		changed = false
		for _, other := range r.order {
			if affected[other] {
				continue
			}
			if slices.ContainsFunc(r.entries[other].desc.DependencyIDs(), func(dep string) bool { return affected[dep] }) {
				affected[other] = true
				changed = true
			}
		}
	}

	targets := make([]string, 0, len(affected))
	for i := len(r.loadOrder) - 1; i >= 0; i-- {
		if t := r.loadOrder[i]; affected[t] && t != id {
			targets = append(targets, t)
		}
	}
	return append(targets, id)
}

// SetEnabled flips the enabled flag without running any hook.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return notFound(id)
	}
	if e.enabled == enabled {
		r.mu.Unlock()
		return nil
	}
	e.enabled = enabled
	version := e.desc.Version
	r.mu.Unlock()

	kind := ChangeDisabled
	if enabled {
		kind = ChangeEnabled
	}
	r.emit(Change{Kind: kind, PluginID: id, Version: version})
	r.notify()
	return nil
}

// AllPlugins returns every registered plugin in registration order.
func (r *Registry) AllPlugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Plugin, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].snapshot())
	}
	return out
}

// LoadedPlugins returns loaded plugins in the order their loads completed.
func (r *Registry) LoadedPlugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Plugin, 0, len(r.loadOrder))
	for _, id := range r.loadOrder {
		out = append(out, r.entries[id].snapshot())
	}
	return out
}

// EnabledPlugins returns plugins that are both enabled and loaded, in
// registration order.
func (r *Registry) EnabledPlugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabledLocked()
}

func (r *Registry) enabledLocked() []Plugin {
	out := make([]Plugin, 0, len(r.order))
	for _, id := range r.order {
		if p := r.entries[id].snapshot(); p.State.Visible() {
			out = append(out, p)
		}
	}
	return out
}

// Plugin returns the descriptor registered under id.
// The result is a copy; changing it does not affect the registry.
func (r *Registry) Plugin(id string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.desc.clone(), true
}

// PluginState returns a copy of the runtime state of id.
func (r *Registry) PluginState(id string) (RuntimeState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return RuntimeState{}, false
	}
	return e.snapshot().State, true
}

// Dependents returns the ids of plugins that directly depend on id, in
// registration order.
func (r *Registry) Dependents(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, other := range r.order {
		if r.entries[other].desc.DependsOn(id) {
			out = append(out, other)
		}
	}
	return out
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Plan returns the order in which Load would initialize id and its
// dependencies, dependencies first. No hook runs.
func (r *Registry) Plan(id string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.graphLocked().plan(id, nil)
}

// Validate checks the whole registered graph for missing dependencies,
// version mismatches and cycles. All problems are joined.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.graphLocked().validate(r.order)
}

func (r *Registry) graphLocked() graph {
	g := make(graph, len(r.entries))
	for id, e := range r.entries {
		g[id] = e.desc
	}
	return g
}

// Subscribe registers fn for change notifications. The returned function
// removes it and is safe to call more than once.
func (r *Registry) Subscribe(fn Listener) (unsubscribe func()) {
	r.subMu.Lock()
	r.nextSub++
	key := r.nextSub
	r.subs[key] = fn
	r.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.subMu.Lock()
			delete(r.subs, key)
			r.subMu.Unlock()
		})
	}
}

// notify delivers a post-mutation snapshot to every listener in
// subscription order.
func (r *Registry) notify() {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.subMu.Lock()
	keys := make([]uint64, 0, len(r.subs))
	for k := range r.subs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	listeners := make([]Listener, 0, len(keys))
	for _, k := range keys {
		listeners = append(listeners, r.subs[k])
	}
	r.subMu.Unlock()

	if len(listeners) == 0 {
		return
	}

	snapshot := r.AllPlugins()
	for _, fn := range listeners {
		r.deliver(fn, snapshot)
	}
}

func (r *Registry) deliver(fn Listener, snapshot []Plugin) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log(context.Background()).Error(context.Background(), "plugin listener panicked",
				ports.F("panic", rec))
		}
	}()
	fn(slices.Clone(snapshot))
}

// cleanup runs d.Cleanup best-effort.
func (r *Registry) cleanup(ctx context.Context, d *Descriptor) {
	if d.Cleanup == nil {
		return
	}
	if err := runHook(ctx, d.Cleanup); err != nil {
		cerr := &CleanupError{PluginID: d.ID, Err: err}
		r.log(ctx).Warn(ctx, "plugin cleanup failed",
			ports.F("plugin", d.ID),
			ports.F("error", err.Error()))
		r.emit(Change{Kind: ChangeCleanupFailed, PluginID: d.ID, Version: d.Version, Err: cerr})
	}
}

// runHook invokes a hook and converts a panic into an error.
func runHook(ctx context.Context, hook Hook) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("hook panicked: %v", rec)
		}
	}()
	return hook(ctx)
}

func (r *Registry) log(ctx context.Context) ports.Logger {
	if l := ports.LoggerFromContext(ctx); l != nil {
		return l
	}
	if r.logger != nil {
		return r.logger
	}
	return discard{}
}

func remove(ids []string, id string) []string {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(ids, i, i+1)
	}
	return ids
}

// discard is the logger used when none is configured.
type discard struct{}

func (discard) Debug(context.Context, string, ...ports.Field) {}
func (discard) Info(context.Context, string, ...ports.Field)  {}
func (discard) Warn(context.Context, string, ...ports.Field)  {}
func (discard) Error(context.Context, string, ...ports.Field) {}
func (d discard) With(...ports.Field) ports.Logger            { return d }
func (discard) Level() ports.Level                            { return ports.LevelError }
func (discard) SetLevel(ports.Level)                          {}
