package plugin

import (
	"context"
	"time"

	"github.com/felixgeelhaar/forge/internal/ports"
)

// ChangeKind identifies a single lifecycle change.
type ChangeKind string

// Change kinds.
const (
	ChangeRegistered    ChangeKind = "registered"
	ChangeReplaced      ChangeKind = "replaced"
	ChangeUnregistered  ChangeKind = "unregistered"
	ChangeLoaded        ChangeKind = "loaded"
	ChangeLoadFailed    ChangeKind = "load_failed"
	ChangeUnloaded      ChangeKind = "unloaded"
	ChangeCleanupFailed ChangeKind = "cleanup_failed"
	ChangeEnabled       ChangeKind = "enabled"
	ChangeDisabled      ChangeKind = "disabled"
)

// Change describes one lifecycle change of one plugin. Unlike listeners,
// which see whole snapshots, observers see each change as it happens,
// including cleanup failures that never reach a caller.
type Change struct {
	Kind     ChangeKind
	PluginID string
	Version  string
	Err      error
	At       time.Time
}

// Observer receives individual lifecycle changes.
type Observer interface {
	Observe(ctx context.Context, change Change)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, change Change)

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, change Change) {
	f(ctx, change)
}

func (r *Registry) emit(c Change) {
	if len(r.observers) == 0 {
		return
	}
	c.At = r.now()
	ctx := context.Background()
	for _, o := range r.observers {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.log(ctx).Error(ctx, "plugin observer panicked",
						ports.F("change", string(c.Kind)),
						ports.F("panic", rec))
				}
			}()
			o.Observe(ctx, c)
		}()
	}
}
