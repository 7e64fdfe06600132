package plugin

import (
	"errors"
	"fmt"
)

// graph is a read-only view of registered descriptors used for static
// dependency planning.
type graph map[string]*Descriptor

// plan returns the load order for root with dependencies first. Subtrees
// rooted at ids for which settled returns true are skipped, matching
// Load's "only dependencies not yet loaded" traversal. It fails on a missing
// dependency, a version mismatch or a cycle, before any hook runs.
func (g graph) plan(root string, settled func(id string) bool) ([]string, error) {
	if _, ok := g[root]; !ok {
		return nil, notFound(root)
	}

	// State: 0 = unvisited, 1 = visiting, 2 = visited
	state := make(map[string]int)
	order := make([]string, 0, len(g))
	var path []string

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case 1:
			return &CyclicDependencyError{Cycle: cycleFrom(path, id)}
		case 2:
			return nil
		}

		d := g[id]
		state[id] = 1
		path = append(path, id)

		for _, dep := range d.Dependencies {
			target, ok := g[dep.ID]
			if !ok {
				return fmt.Errorf("plugin %q depends on %q: %w", id, dep.ID, ErrPluginNotFound)
			}
			if !satisfiesVersionConstraint(target.Version, dep.Version) {
				return &VersionMismatchError{
					PluginID:   id,
					Dependency: dep.ID,
					Constraint: dep.Version,
					Version:    target.Version,
				}
			}
			if settled != nil && settled(dep.ID) {
				continue
			}
			if err := visit(dep.ID); err != nil {
				return err
			}
		}

		state[id] = 2
		path = path[:len(path)-1]
		order = append(order, id)
		return nil
	}

	if err := visit(root); err != nil {
		return nil, err
	}
	return order, nil
}

// validate checks every descriptor in ids order and joins all problems.
// Each cycle is reported once.
func (g graph) validate(ids []string) error {
	var errs []error
	for _, id := range ids {
		for _, dep := range g[id].Dependencies {
			target, ok := g[dep.ID]
			if !ok {
				errs = append(errs, fmt.Errorf("plugin %q depends on %q: %w", id, dep.ID, ErrPluginNotFound))
				continue
			}
			if !satisfiesVersionConstraint(target.Version, dep.Version) {
				errs = append(errs, &VersionMismatchError{
					PluginID:   id,
					Dependency: dep.ID,
					Constraint: dep.Version,
					Version:    target.Version,
				})
			}
		}
	}

	state := make(map[string]int)
	var path []string
	var visit func(id string)
	visit = func(id string) {
		state[id] = 1
		path = append(path, id)
		for _, dep := range g[id].Dependencies {
			if _, ok := g[dep.ID]; !ok {
				continue
			}
			switch state[dep.ID] {
			case 0:
				visit(dep.ID)
			case 1:
				errs = append(errs, &CyclicDependencyError{Cycle: cycleFrom(path, dep.ID)})
			}
		}
		state[id] = 2
		path = path[:len(path)-1]
	}
	for _, id := range ids {
		if state[id] == 0 {
			visit(id)
		}
	}

	return errors.Join(errs...)
}

// cycleFrom extracts the cycle closing at id from the current path.
func cycleFrom(path []string, id string) []string {
	for i, n := range path {
		if n == id {
			cycle := make([]string, len(path[i:])+1)
			copy(cycle, path[i:])
			cycle[len(cycle)-1] = id
			return cycle
		}
	}
	return []string{id, id}
}
