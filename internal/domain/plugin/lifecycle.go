package plugin

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Event types for the plugin lifecycle machine.
const (
	eventLoad   = "LOAD"
	eventLoaded = "LOADED"
	eventFail   = "FAIL"
	eventUnload = "UNLOAD"
)

// lifecycleContext is the statekit context of one plugin's machine.
type lifecycleContext struct {
	PluginID string
}

// lifecycle drives the phase of one registered plugin. Callers hold the
// registry lock around every method.
type lifecycle struct {
	id     string
	interp *statekit.Interpreter[lifecycleContext]
}

// newLifecycle builds and starts a machine in the unloaded phase.
//
//	unloaded --LOAD--> loading --LOADED--> loaded --UNLOAD--> unloaded
//	                      |
//	                      +--FAIL--> failed --LOAD--> loading
//	                                   |
//	                                   +--UNLOAD--> unloaded
func newLifecycle(id string) (*lifecycle, error) {
	machine, err := statekit.NewMachine[lifecycleContext]("plugin-" + id).
		WithInitial("unloaded").
		WithContext(lifecycleContext{PluginID: id}).
		State("unloaded").
		On(eventLoad).Target("loading").Done().
		State("loading").
		On(eventLoaded).Target("loaded").
		On(eventFail).Target("failed").Done().
		State("loaded").
		On(eventUnload).Target("unloaded").Done().
		State("failed").
		On(eventLoad).Target("loading").
		On(eventUnload).Target("unloaded").Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("building lifecycle for plugin %q: %w", id, err)
	}

	interp := statekit.NewInterpreter(machine)
	interp.Start()
	return &lifecycle{id: id, interp: interp}, nil
}

// phase returns the current phase.
func (l *lifecycle) phase() Phase {
	return Phase(l.interp.State().Value)
}

// fire sends an event and reports ErrInvalidTransition if the machine did
// not move. No transition in the machine is a self-transition.
func (l *lifecycle) fire(event string) error {
	before := l.phase()
	l.interp.Send(statekit.Event{Type: statekit.EventType(event)})
	if after := l.phase(); after == before {
		return fmt.Errorf("plugin %q: %s in phase %s: %w", l.id, event, before, ErrInvalidTransition)
	}
	return nil
}

func (l *lifecycle) stop() {
	l.interp.Stop()
}
