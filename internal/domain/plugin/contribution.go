package plugin

// Kind tags the UI surface a contribution targets.
type Kind string

// Contribution kinds.
const (
	KindTab     Kind = "tab"
	KindPanel   Kind = "panel"
	KindNav     Kind = "nav"
	KindContent Kind = "content"
)

// RenderTarget is an opaque handle to whatever renders a contribution.
// The registry never interprets it; the presentation layer resolves it
// according to the contribution's Kind.
type RenderTarget string

// Contribution is implemented by every UI entry a plugin offers.
type Contribution interface {
	// ContributionID returns the entry's id, unique per kind within a plugin.
	ContributionID() string
	// Kind returns the surface the entry targets.
	Kind() Kind
	// RequiredPermissions returns the permissions gating the entry.
	// An empty list means unrestricted.
	RequiredPermissions() []string
}

// Tab is a top-level tab in the shell.
type Tab struct {
	ID          string       `json:"id"`
	Label       string       `json:"label"`
	Icon        string       `json:"icon,omitempty"`
	Target      RenderTarget `json:"target"`
	Permissions []string     `json:"permissions,omitempty"`
}

func (t Tab) ContributionID() string        { return t.ID }
func (t Tab) Kind() Kind                    { return KindTab }
func (t Tab) RequiredPermissions() []string { return t.Permissions }

func (t Tab) cloned() Tab {
	t.Permissions = cloneStrings(t.Permissions)
	return t
}

// Panel is a sidebar panel.
type Panel struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	Icon             string       `json:"icon,omitempty"`
	Target           RenderTarget `json:"target"`
	Collapsible      bool         `json:"collapsible,omitempty"`
	DefaultCollapsed bool         `json:"defaultCollapsed,omitempty"`
	Permissions      []string     `json:"permissions,omitempty"`
}

func (p Panel) ContributionID() string        { return p.ID }
func (p Panel) Kind() Kind                    { return KindPanel }
func (p Panel) RequiredPermissions() []string { return p.Permissions }

func (p Panel) cloned() Panel {
	p.Permissions = cloneStrings(p.Permissions)
	return p
}

// NavItem is a navigation entry. Items nest to form sub-menus.
type NavItem struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Icon        string    `json:"icon,omitempty"`
	URL         string    `json:"url,omitempty"`
	Items       []NavItem `json:"items,omitempty"`
	Permissions []string  `json:"permissions,omitempty"`
}

func (n NavItem) ContributionID() string        { return n.ID }
func (n NavItem) Kind() Kind                    { return KindNav }
func (n NavItem) RequiredPermissions() []string { return n.Permissions }

func (n NavItem) cloned() NavItem {
	n.Permissions = cloneStrings(n.Permissions)
	n.Items = cloneNav(n.Items)
	return n
}

// Content is routed main-area content.
type Content struct {
	ID          string       `json:"id"`
	Path        string       `json:"path"`
	Target      RenderTarget `json:"target"`
	Permissions []string     `json:"permissions,omitempty"`
}

func (c Content) ContributionID() string        { return c.ID }
func (c Content) Kind() Kind                    { return KindContent }
func (c Content) RequiredPermissions() []string { return c.Permissions }

func (c Content) cloned() Content {
	c.Permissions = cloneStrings(c.Permissions)
	return c
}

// Ensure contribution types implement Contribution.
var (
	_ Contribution = Tab{}
	_ Contribution = Panel{}
	_ Contribution = NavItem{}
	_ Contribution = Content{}
)

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneNav(items []NavItem) []NavItem {
	if items == nil {
		return nil
	}
	out := make([]NavItem, len(items))
	for i, it := range items {
		it.Permissions = cloneStrings(it.Permissions)
		it.Items = cloneNav(it.Items)
		out[i] = it
	}
	return out
}
