// Package plugin provides the plugin registry of the Forge shell.
//
// A plugin is described once by a Descriptor: its identity, the plugins it
// depends on, the UI contributions it offers (tabs, sidebar panels,
// navigation items, routed content) and optional Initialize/Cleanup hooks
// linked into the host process. The Registry tracks registration and
// lifecycle state, loads plugins depth-first in dependency order, filters
// contributions by the caller's credential and notifies subscribers of every
// change.
package plugin

import (
	"context"
	"fmt"
	"strings"
)

// Hook is a plugin lifecycle callback. The registry treats hooks as black
// boxes that may block or fail.
type Hook func(ctx context.Context) error

// Dependency names a plugin that must be loaded first.
type Dependency struct {
	// ID is the required plugin id.
	ID string `json:"id"`
	// Version is an optional semver constraint (e.g. ">=1.0.0", "^1.2.0").
	Version string `json:"version,omitempty"`
}

// String returns "id" or "id@constraint".
func (d Dependency) String() string {
	if d.Version == "" {
		return d.ID
	}
	return d.ID + "@" + d.Version
}

// Requires builds dependencies without version constraints.
func Requires(ids ...string) []Dependency {
	deps := make([]Dependency, len(ids))
	for i, id := range ids {
		deps[i] = Dependency{ID: id}
	}
	return deps
}

// Descriptor is the registration record of one plugin.
// The registry keeps its own copy; descriptors it returns must be treated as
// read-only.
type Descriptor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`

	// Dependencies are loaded, in order, before this plugin.
	Dependencies []Dependency `json:"dependencies,omitempty"`

	Tabs            []Tab     `json:"tabs,omitempty"`
	SidebarPanels   []Panel   `json:"sidebarPanels,omitempty"`
	NavigationItems []NavItem `json:"navigationItems,omitempty"`
	MainContent     []Content `json:"mainContent,omitempty"`

	// Initialize runs on load after all dependencies are loaded.
	Initialize Hook `json:"-"`
	// Cleanup runs on unload and unregister. Failures are logged only.
	Cleanup Hook `json:"-"`
}

// String returns "id@version".
func (d *Descriptor) String() string {
	return fmt.Sprintf("%s@%s", d.ID, d.Version)
}

// DependencyIDs returns the ids of the descriptor's dependencies in order.
func (d *Descriptor) DependencyIDs() []string {
	ids := make([]string, len(d.Dependencies))
	for i, dep := range d.Dependencies {
		ids[i] = dep.ID
	}
	return ids
}

// DependsOn reports whether id is a direct dependency.
func (d *Descriptor) DependsOn(id string) bool {
	for _, dep := range d.Dependencies {
		if dep.ID == id {
			return true
		}
	}
	return false
}

// Contributions returns every contribution in kind order: tabs, panels,
// navigation, content.
func (d *Descriptor) Contributions() []Contribution {
	out := make([]Contribution, 0, len(d.Tabs)+len(d.SidebarPanels)+len(d.NavigationItems)+len(d.MainContent))
	for _, t := range d.Tabs {
		out = append(out, t)
	}
	for _, p := range d.SidebarPanels {
		out = append(out, p)
	}
	for _, n := range d.NavigationItems {
		out = append(out, n)
	}
	for _, c := range d.MainContent {
		out = append(out, c)
	}
	return out
}

// Validate checks the descriptor for structural errors.
func (d *Descriptor) Validate() error {
	if d == nil {
		return ErrNilDescriptor
	}

	verr := &ValidationError{PluginID: d.ID}
	if strings.TrimSpace(d.ID) == "" {
		verr.Add("id is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		verr.Add("name is required")
	}
	if d.Version != "" && !isValidVersion(d.Version) {
		verr.Addf("version %q is not a semantic version", d.Version)
	}

	seenDeps := make(map[string]bool, len(d.Dependencies))
	for _, dep := range d.Dependencies {
		switch {
		case dep.ID == "":
			verr.Add("dependency id is required")
		case dep.ID == d.ID:
			verr.Addf("plugin cannot depend on itself")
		case seenDeps[dep.ID]:
			verr.Addf("duplicate dependency %q", dep.ID)
		}
		seenDeps[dep.ID] = true
		if dep.Version != "" && !isValidConstraint(dep.Version) {
			verr.Addf("dependency %q has invalid version constraint %q", dep.ID, dep.Version)
		}
	}

	checkIDs(verr, KindTab, d.Tabs)
	checkIDs(verr, KindPanel, d.SidebarPanels)
	checkIDs(verr, KindNav, d.NavigationItems)
	checkIDs(verr, KindContent, d.MainContent)

	if verr.HasErrors() {
		return verr
	}
	return nil
}

func checkIDs[T Contribution](verr *ValidationError, kind Kind, items []T) {
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		id := it.ContributionID()
		if id == "" {
			verr.Addf("%s contribution id is required", kind)
			continue
		}
		if seen[id] {
			verr.Addf("duplicate %s contribution %q", kind, id)
		}
		seen[id] = true
	}
}

// clone returns a deep copy so the registry's record cannot be changed
// through the caller's value.
func (d *Descriptor) clone() *Descriptor {
	cp := *d
	cp.Dependencies = append([]Dependency(nil), d.Dependencies...)
	cp.Tabs = cloneEach(d.Tabs)
	cp.SidebarPanels = cloneEach(d.SidebarPanels)
	cp.NavigationItems = cloneNav(d.NavigationItems)
	cp.MainContent = cloneEach(d.MainContent)
	return &cp
}

func cloneEach[T viewEntry[T]](items []T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	for i, it := range items {
		out[i] = it.cloned()
	}
	return out
}
