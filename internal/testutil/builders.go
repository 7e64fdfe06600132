package testutil

import (
	"context"

	"github.com/felixgeelhaar/forge/internal/domain/config"
	"github.com/felixgeelhaar/forge/internal/domain/permission"
	"github.com/felixgeelhaar/forge/internal/domain/plugin"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DescriptorBuilder builds plugin descriptors for tests.
type DescriptorBuilder struct {
	d plugin.Descriptor
}

// NewDescriptor starts a descriptor with the given id, name=id and version 1.0.0.
func NewDescriptor(id string) *DescriptorBuilder {
	return &DescriptorBuilder{
		d: plugin.Descriptor{ID: id, Name: id, Version: "1.0.0"},
	}
}

// WithName sets the display name.
func (b *DescriptorBuilder) WithName(name string) *DescriptorBuilder {
	b.d.Name = name
	return b
}

// WithVersion sets the version.
func (b *DescriptorBuilder) WithVersion(version string) *DescriptorBuilder {
	b.d.Version = version
	return b
}

// DependsOn adds dependencies without version constraints.
func (b *DescriptorBuilder) DependsOn(ids ...string) *DescriptorBuilder {
	b.d.Dependencies = append(b.d.Dependencies, plugin.Requires(ids...)...)
	return b
}

// DependsOnVersion adds a dependency with a version constraint.
func (b *DescriptorBuilder) DependsOnVersion(id, constraint string) *DescriptorBuilder {
	b.d.Dependencies = append(b.d.Dependencies, plugin.Dependency{ID: id, Version: constraint})
	return b
}

// WithTab adds a tab guarded by perms.
func (b *DescriptorBuilder) WithTab(id string, perms ...string) *DescriptorBuilder {
	b.d.Tabs = append(b.d.Tabs, plugin.Tab{ID: id, Label: id, Target: plugin.RenderTarget(id), Permissions: perms})
	return b
}

// WithPanel adds a sidebar panel guarded by perms.
func (b *DescriptorBuilder) WithPanel(id string, perms ...string) *DescriptorBuilder {
	b.d.SidebarPanels = append(b.d.SidebarPanels, plugin.Panel{ID: id, Title: id, Target: plugin.RenderTarget(id), Permissions: perms})
	return b
}

// WithNav adds a navigation item guarded by perms.
func (b *DescriptorBuilder) WithNav(id, url string, perms ...string) *DescriptorBuilder {
	b.d.NavigationItems = append(b.d.NavigationItems, plugin.NavItem{ID: id, Label: id, URL: url, Permissions: perms})
	return b
}

// WithContent adds a main content entry guarded by perms.
func (b *DescriptorBuilder) WithContent(id, path string, perms ...string) *DescriptorBuilder {
	b.d.MainContent = append(b.d.MainContent, plugin.Content{ID: id, Path: path, Target: plugin.RenderTarget(id), Permissions: perms})
	return b
}

// OnInitialize sets the initialize hook.
func (b *DescriptorBuilder) OnInitialize(hook func(context.Context) error) *DescriptorBuilder {
	b.d.Initialize = hook
	return b
}

// OnCleanup sets the cleanup hook.
func (b *DescriptorBuilder) OnCleanup(hook func(context.Context) error) *DescriptorBuilder {
	b.d.Cleanup = hook
	return b
}

// Build returns a fresh copy of the descriptor.
func (b *DescriptorBuilder) Build() *plugin.Descriptor {
	d := b.d
	d.Dependencies = append([]plugin.Dependency(nil), b.d.Dependencies...)
	d.Tabs = append([]plugin.Tab(nil), b.d.Tabs...)
	d.SidebarPanels = append([]plugin.Panel(nil), b.d.SidebarPanels...)
	d.NavigationItems = append([]plugin.NavItem(nil), b.d.NavigationItems...)
	d.MainContent = append([]plugin.Content(nil), b.d.MainContent...)
	return &d
}

// ConfigBuilder builds host configurations for tests.
type ConfigBuilder struct {
	cfg config.Config
}

// NewConfigBuilder starts from the default configuration.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{cfg: *config.Default()}
}

// WithLog sets the log level and format.
func (b *ConfigBuilder) WithLog(level, format string) *ConfigBuilder {
	b.cfg.Log = config.LogConfig{Level: level, Format: format}
	return b
}

// WithCredential sets the operator credential.
func (b *ConfigBuilder) WithCredential(user, tenant string, roles ...string) *ConfigBuilder {
	b.cfg.Credential = config.CredentialConfig{User: user, Tenant: tenant, Roles: roles}
	return b
}

// WithPermissions adds direct permissions to the operator credential.
func (b *ConfigBuilder) WithPermissions(perms ...string) *ConfigBuilder {
	b.cfg.Credential.Permissions = append(b.cfg.Credential.Permissions, perms...)
	return b
}

// WithRole adds a tenant role definition.
func (b *ConfigBuilder) WithRole(tenant, id string, perms ...string) *ConfigBuilder {
	b.cfg.Roles = append(b.cfg.Roles, permission.Role{ID: id, TenantID: tenant, Permissions: perms})
	return b
}

// WithAutoload sets the plugins loaded at startup.
func (b *ConfigBuilder) WithAutoload(ids ...string) *ConfigBuilder {
	b.cfg.Plugins.Autoload = ids
	return b
}

// WithDisabled sets the plugins registered disabled.
func (b *ConfigBuilder) WithDisabled(ids ...string) *ConfigBuilder {
	b.cfg.Plugins.Disabled = ids
	return b
}

// WithCascadeUnload toggles cascading unload.
func (b *ConfigBuilder) WithCascadeUnload(enabled bool) *ConfigBuilder {
	b.cfg.Plugins.CascadeUnload = enabled
	return b
}

// WithAuditFile sets the audit log file.
func (b *ConfigBuilder) WithAuditFile(path string) *ConfigBuilder {
	b.cfg.Audit.File = path
	return b
}

// Build returns the constructed configuration.
func (b *ConfigBuilder) Build() *config.Config {
	cfg := b.cfg
	return &cfg
}

// ToYAML renders the configuration as forge.yaml content.
func (b *ConfigBuilder) ToYAML() (string, error) {
	data, err := yaml.Marshal(b.cfg)
	return string(data), err
}

// ToTOML renders the configuration as forge.toml content.
func (b *ConfigBuilder) ToTOML() (string, error) {
	data, err := toml.Marshal(b.cfg)
	return string(data), err
}
