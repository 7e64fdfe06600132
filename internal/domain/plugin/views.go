package plugin

import "github.com/felixgeelhaar/forge/internal/domain/permission"

// Tabs returns the tabs of every enabled and loaded plugin that cred may
// see, in plugin registration order. A nil credential sees only
// unrestricted tabs.
func (r *Registry) Tabs(cred *permission.Credential) []Tab {
	return collect(r, cred, func(d *Descriptor) []Tab { return d.Tabs })
}

// SidebarPanels returns the visible sidebar panels.
func (r *Registry) SidebarPanels(cred *permission.Credential) []Panel {
	return collect(r, cred, func(d *Descriptor) []Panel { return d.SidebarPanels })
}

// NavigationItems returns the visible navigation entries. Nested items are
// filtered with the same rule; a hidden parent hides its children.
func (r *Registry) NavigationItems(cred *permission.Credential) []NavItem {
	items := collect(r, cred, func(d *Descriptor) []NavItem { return d.NavigationItems })
	for i := range items {
		items[i].Items = r.filterNav(cred, items[i].Items)
	}
	return items
}

// MainContent returns the visible routed content.
func (r *Registry) MainContent(cred *permission.Credential) []Content {
	return collect(r, cred, func(d *Descriptor) []Content { return d.MainContent })
}

// Contributions returns every visible contribution of the given kind.
func (r *Registry) Contributions(cred *permission.Credential, kind Kind) []Contribution {
	var out []Contribution
	switch kind {
	case KindTab:
		for _, t := range r.Tabs(cred) {
			out = append(out, t)
		}
	case KindPanel:
		for _, p := range r.SidebarPanels(cred) {
			out = append(out, p)
		}
	case KindNav:
		for _, n := range r.NavigationItems(cred) {
			out = append(out, n)
		}
	case KindContent:
		for _, c := range r.MainContent(cred) {
			out = append(out, c)
		}
	}
	return out
}

// viewEntry is a contribution that can copy itself out of the registry.
type viewEntry[T any] interface {
	Contribution
	cloned() T
}

// collect returns copies, so callers cannot reach the stored descriptors.
func collect[T viewEntry[T]](r *Registry, cred *permission.Credential, pick func(*Descriptor) []T) []T {
	r.mu.RLock()
	plugins := r.enabledLocked()
	r.mu.RUnlock()

	out := make([]T, 0)
	for _, p := range plugins {
		for _, c := range pick(p.Descriptor) {
			if r.evaluator.Allows(cred, c.RequiredPermissions()) {
				out = append(out, c.cloned())
			}
		}
	}
	return out
}

func (r *Registry) filterNav(cred *permission.Credential, items []NavItem) []NavItem {
	if len(items) == 0 {
		return items
	}
	out := make([]NavItem, 0, len(items))
	for _, it := range items {
		if !r.evaluator.Allows(cred, it.Permissions) {
			continue
		}
		it.Items = r.filterNav(cred, it.Items)
		out = append(out, it)
	}
	return out
}
