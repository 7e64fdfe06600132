// Package config loads the Forge host configuration from forge.yaml or
// forge.toml.
package config

import (
	"fmt"
	"slices"

	"github.com/felixgeelhaar/forge/internal/domain/permission"
)

// Config is the host configuration.
type Config struct {
	Log        LogConfig         `yaml:"log" toml:"log"`
	Credential CredentialConfig  `yaml:"credential" toml:"credential"`
	Roles      []permission.Role `yaml:"roles" toml:"roles"`
	Plugins    PluginsConfig     `yaml:"plugins" toml:"plugins"`
	Audit      AuditConfig       `yaml:"audit" toml:"audit"`

	// Source is the file the configuration was read from, if any.
	Source string `yaml:"-" toml:"-"`
}

// LogConfig selects the console logger level and output format.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// CredentialConfig is the operator identity used when none is given on the
// command line.
type CredentialConfig struct {
	User        string   `yaml:"user" toml:"user"`
	Tenant      string   `yaml:"tenant" toml:"tenant"`
	Roles       []string `yaml:"roles" toml:"roles"`
	Permissions []string `yaml:"permissions" toml:"permissions"`
}

// PluginsConfig controls which plugins are loaded and enabled at startup.
type PluginsConfig struct {
	// Autoload lists plugins to load at startup. Empty loads every plugin.
	Autoload []string `yaml:"autoload" toml:"autoload"`
	// Disabled lists plugins registered with enabled=false.
	Disabled []string `yaml:"disabled" toml:"disabled"`
	// CascadeUnload unloads loaded dependents before a plugin.
	CascadeUnload bool `yaml:"cascade_unload" toml:"cascade_unload"`
}

// AuditConfig selects where lifecycle events are recorded. An empty File
// keeps events in memory for the lifetime of the process.
type AuditConfig struct {
	File string `yaml:"file" toml:"file"`
}

// Log levels and formats accepted in LogConfig.
var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"text", "json"}
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "warn", Format: "text"},
	}
}

// applyDefaults fills in fields a file may leave out.
func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	errs := NewErrorList()

	if !slices.Contains(validLevels, c.Log.Level) {
		errs.AddValidation("log.level", fmt.Sprintf("unknown level %q", c.Log.Level),
			"Use one of debug, info, warn or error.")
	}
	if !slices.Contains(validFormats, c.Log.Format) {
		errs.AddValidation("log.format", fmt.Sprintf("unknown format %q", c.Log.Format),
			"Use text or json.")
	}

	cred := c.Credential
	if cred.Tenant == "" && (len(cred.Roles) > 0 || len(cred.Permissions) > 0 || cred.User != "") {
		errs.AddValidation("credential.tenant", "tenant is required when a credential is configured",
			"Set credential.tenant to the tenant the operator acts for.")
	}

	if _, err := permission.NewStaticRoles(c.Roles...); err != nil {
		errs.AddValidation("roles", err.Error(),
			"Each role needs an id and a tenant, and (tenant, id) pairs must be unique.")
	}

	for i, id := range c.Plugins.Autoload {
		if id == "" {
			errs.AddValidation(fmt.Sprintf("plugins.autoload[%d]", i), "plugin id is empty", "")
		}
	}
	for i, id := range c.Plugins.Disabled {
		if id == "" {
			errs.AddValidation(fmt.Sprintf("plugins.disabled[%d]", i), "plugin id is empty", "")
		}
	}

	return errs.AsError()
}

// HasCredential reports whether an operator credential is configured.
func (c *Config) HasCredential() bool {
	return c.Credential.Tenant != ""
}

// OperatorCredential builds the configured credential, or nil when none is set.
func (c *Config) OperatorCredential() *permission.Credential {
	if !c.HasCredential() {
		return nil
	}
	cred := permission.NewCredential(c.Credential.Tenant, c.Credential.Roles, c.Credential.Permissions)
	if c.Credential.User != "" {
		cred = cred.WithUser(c.Credential.User)
	}
	return cred
}

// RoleTable builds the tenant role table for permission expansion.
func (c *Config) RoleTable() (*permission.StaticRoles, error) {
	return permission.NewStaticRoles(c.Roles...)
}
