package plugin

import "time"

// Phase is the lifecycle position of a registered plugin.
type Phase string

// Lifecycle phases.
const (
	PhaseUnloaded Phase = "unloaded"
	PhaseLoading  Phase = "loading"
	PhaseLoaded   Phase = "loaded"
	PhaseFailed   Phase = "failed"
)

// RuntimeState is the mutable status the registry tracks per plugin.
// It is returned by value; mutating it has no effect on the registry.
type RuntimeState struct {
	Phase Phase `json:"phase"`
	// Loaded is true only after Initialize completed without error and all
	// dependencies were loaded.
	Loaded bool `json:"loaded"`
	// Enabled is independent of Loaded. Contributions are visible only when
	// both are true.
	Enabled bool `json:"enabled"`
	// LastError is the failure of the most recent load attempt, cleared on
	// success.
	LastError error     `json:"-"`
	LoadedAt  time.Time `json:"loadedAt,omitzero"`
}

// Visible reports whether the plugin's contributions may be shown.
func (s RuntimeState) Visible() bool {
	return s.Loaded && s.Enabled
}

// Plugin pairs a descriptor with a snapshot of its runtime state.
type Plugin struct {
	Descriptor *Descriptor
	State      RuntimeState
}

// ID returns the descriptor id.
func (p Plugin) ID() string {
	return p.Descriptor.ID
}
