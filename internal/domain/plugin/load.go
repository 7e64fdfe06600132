package plugin

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/felixgeelhaar/forge/internal/ports"
)

// ErrStaleLoad indicates the plugin was replaced or removed while its load
// was in flight. The result of that load is discarded.
var ErrStaleLoad = errors.New("plugin changed during load")

// loadCall is the per-call traversal state of one top-level Load.
type loadCall struct {
	visiting map[string]bool
	path     []string
	changed  bool
}

// Load loads id after loading, depth-first, every dependency that is not
// loaded yet. It is idempotent: loading a loaded plugin does nothing.
// Concurrent calls for the same plugin share one in-flight load and its
// result; the first caller's context is passed to the hooks.
//
// Before any hook runs the dependency plan is checked, so a cycle, a missing
// dependency or a version mismatch fails without side effects other than
// recording the error on id. A failing dependency aborts the load of every
// plugin depending on it; each records an error wrapping the root cause.
// Listeners are notified once when the call changed any state.
func (r *Registry) Load(ctx context.Context, id string) error {
	r.mu.RLock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.RUnlock()
		return notFound(id)
	}
	if e.life.phase() == PhaseLoaded {
		r.mu.RUnlock()
		return nil
	}
	key := flightKey(id, e.gen)
	r.mu.RUnlock()

	changed := false
	_, err, _ := r.flights.Do(key, func() (any, error) {
		var err error
		changed, err = r.loadRoot(ctx, id)
		return nil, err
	})
	if changed {
		r.notify()
	}
	return err
}

func flightKey(id string, gen uint64) string {
	return id + "#" + strconv.FormatUint(gen, 10)
}

// loadRoot plans, then loads, a top-level target.
func (r *Registry) loadRoot(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return false, notFound(id)
	}
	if e.life.phase() == PhaseLoaded {
		r.mu.Unlock()
		return false, nil
	}

	if _, err := r.graphLocked().plan(id, r.loadedLocked); err != nil {
		ferr := r.failLocked(e, err)
		r.mu.Unlock()
		if ferr != nil {
			return true, errors.Join(err, ferr)
		}
		r.log(ctx).Warn(ctx, "plugin load rejected",
			ports.F("plugin", id),
			ports.F("error", err.Error()))
		r.emit(Change{Kind: ChangeLoadFailed, PluginID: id, Version: e.desc.Version, Err: err})
		return true, err
	}
	r.mu.Unlock()

	call := &loadCall{visiting: make(map[string]bool)}
	err := r.loadTree(ctx, id, call)
	return call.changed, err
}

// failLocked records err on e and moves it to the failed phase.
func (r *Registry) failLocked(e *entry, err error) error {
	e.lastErr = err
	if e.life.phase() != PhaseLoading {
		if ferr := e.life.fire(eventLoad); ferr != nil {
			return ferr
		}
	}
	return e.life.fire(eventFail)
}

func (r *Registry) loadedLocked(id string) bool {
	e, ok := r.entries[id]
	return ok && e.life.phase() == PhaseLoaded
}

// loadDependency loads dep on behalf of a plugin being loaded by call,
// joining any in-flight load of dep started elsewhere.
func (r *Registry) loadDependency(ctx context.Context, dep string, call *loadCall) error {
	if call.visiting[dep] {
		return &CyclicDependencyError{Cycle: cycleFrom(call.path, dep)}
	}

	r.mu.RLock()
	e, ok := r.entries[dep]
	if !ok {
		r.mu.RUnlock()
		return notFound(dep)
	}
	if e.life.phase() == PhaseLoaded {
		r.mu.RUnlock()
		return nil
	}
	key := flightKey(dep, e.gen)
	r.mu.RUnlock()

	_, err, _ := r.flights.Do(key, func() (any, error) {
		return nil, r.loadTree(ctx, dep, call)
	})
	return err
}

// loadTree loads the dependencies of id, then id itself.
func (r *Registry) loadTree(ctx context.Context, id string, call *loadCall) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return notFound(id)
	}
	if e.life.phase() == PhaseLoaded {
		r.mu.Unlock()
		return nil
	}
	if err := e.life.fire(eventLoad); err != nil {
		r.mu.Unlock()
		return err
	}
	desc := e.desc
	r.mu.Unlock()

	call.changed = true
	call.visiting[id] = true
	call.path = append(call.path, id)
	defer func() {
		delete(call.visiting, id)
		call.path = call.path[:len(call.path)-1]
	}()

	for _, dep := range desc.Dependencies {
		if err := r.loadDependency(ctx, dep.ID, call); err != nil {
			return r.finish(ctx, e, fmt.Errorf("loading dependency %q of plugin %q: %w", dep.ID, id, err))
		}
	}

	r.log(ctx).Debug(ctx, "initializing plugin", ports.F("plugin", id))
	var err error
	if desc.Initialize != nil {
		if herr := runHook(ctx, desc.Initialize); herr != nil {
			err = &InitializationError{PluginID: id, Err: herr}
		}
	}
	return r.finish(ctx, e, err)
}

// finish publishes the outcome of a load of e. A load whose entry was
// replaced or removed meanwhile is discarded; if its Initialize succeeded the
// descriptor's Cleanup runs.
func (r *Registry) finish(ctx context.Context, e *entry, loadErr error) error {
	id := e.desc.ID

	r.mu.Lock()
	if r.entries[id] != e {
		r.mu.Unlock()
		if loadErr == nil {
			r.cleanup(ctx, e.desc)
		}
		return fmt.Errorf("loading plugin %q: %w", id, ErrStaleLoad)
	}

	if loadErr != nil {
		if ferr := r.failLocked(e, loadErr); ferr != nil {
			loadErr = errors.Join(loadErr, ferr)
		}
		r.mu.Unlock()
		r.log(ctx).Warn(ctx, "plugin load failed",
			ports.F("plugin", id),
			ports.F("error", loadErr.Error()))
		r.emit(Change{Kind: ChangeLoadFailed, PluginID: id, Version: e.desc.Version, Err: loadErr})
		return loadErr
	}

	if err := e.life.fire(eventLoaded); err != nil {
		r.mu.Unlock()
		return err
	}
	e.lastErr = nil
	e.loadedAt = r.now()
	r.loadOrder = append(r.loadOrder, id)
	r.mu.Unlock()

	r.log(ctx).Info(ctx, "plugin loaded",
		ports.F("plugin", id),
		ports.F("version", e.desc.Version))
	r.emit(Change{Kind: ChangeLoaded, PluginID: id, Version: e.desc.Version})
	return nil
}
