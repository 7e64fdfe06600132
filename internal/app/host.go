// Package app wires the Forge host: configuration, logging, the permission
// evaluator, the audit trail and the plugin registry.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/felixgeelhaar/forge/internal/adapters/logging"
	"github.com/felixgeelhaar/forge/internal/domain/audit"
	"github.com/felixgeelhaar/forge/internal/domain/config"
	"github.com/felixgeelhaar/forge/internal/domain/permission"
	"github.com/felixgeelhaar/forge/internal/domain/plugin"
	"github.com/felixgeelhaar/forge/internal/modules"
	"github.com/felixgeelhaar/forge/internal/ports"
)

// Host owns the process's plugin registry and the services around it.
type Host struct {
	cfg       *config.Config
	logger    ports.Logger
	evaluator *permission.Evaluator
	registry  *plugin.Registry
	audit     *audit.Service

	closeOnce sync.Once
}

type hostOptions struct {
	logger   ports.Logger
	auditLog audit.Logger
	plugins  []*plugin.Descriptor
	now      func() time.Time
}

// HostOption configures a Host.
type HostOption func(*hostOptions)

// WithHostLogger sets the logger used by the host and the registry.
func WithHostLogger(logger ports.Logger) HostOption {
	return func(o *hostOptions) {
		o.logger = logger
	}
}

// WithAuditLogger overrides the audit log selected by the configuration.
func WithAuditLogger(l audit.Logger) HostOption {
	return func(o *hostOptions) {
		o.auditLog = l
	}
}

// WithPlugins registers the given descriptors instead of the built-in modules.
func WithPlugins(descriptors ...*plugin.Descriptor) HostOption {
	return func(o *hostOptions) {
		o.plugins = descriptors
	}
}

// WithHostClock sets the registry clock.
func WithHostClock(now func() time.Time) HostOption {
	return func(o *hostOptions) {
		o.now = now
	}
}

// NewHost builds a host from cfg, registers its plugins and applies the
// configured enablement. Nothing is loaded until LoadAll or Load is called.
func NewHost(cfg *config.Config, opts ...HostOption) (*Host, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	o := hostOptions{
		logger:  logging.NewNopLogger(),
		plugins: modules.Builtins(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	roles, err := cfg.RoleTable()
	if err != nil {
		return nil, fmt.Errorf("building role table: %w", err)
	}
	evaluator := permission.NewEvaluator(permission.WithRoleExpander(roles))

	auditLog := o.auditLog
	if auditLog == nil {
		auditLog, err = openAuditLog(cfg.Audit)
		if err != nil {
			return nil, err
		}
	}
	auditSvc := audit.NewService(auditLog,
		audit.WithIdentity(cfg.Credential.User, cfg.Credential.Tenant),
		audit.WithErrorLogger(o.logger))

	regOpts := []plugin.RegistryOption{
		plugin.WithLogger(o.logger),
		plugin.WithEvaluator(evaluator),
		plugin.WithObserver(auditSvc),
	}
	if cfg.Plugins.CascadeUnload {
		regOpts = append(regOpts, plugin.WithCascadingUnload())
	}
	if o.now != nil {
		regOpts = append(regOpts, plugin.WithClock(o.now))
	}

	h := &Host{
		cfg:       cfg,
		logger:    o.logger,
		evaluator: evaluator,
		registry:  plugin.NewRegistry(regOpts...),
		audit:     auditSvc,
	}

	for _, d := range o.plugins {
		if err := h.registry.Register(d); err != nil {
			_ = auditSvc.Close()
			return nil, fmt.Errorf("registering plugin %q: %w", d.ID, err)
		}
	}

	ctx := context.Background()
	for _, id := range cfg.Plugins.Disabled {
		if err := h.registry.SetEnabled(id, false); err != nil {
			h.logger.Warn(ctx, "disabled plugin is not registered", ports.F("plugin", id))
		}
	}

	return h, nil
}

func openAuditLog(cfg config.AuditConfig) (audit.Logger, error) {
	if cfg.File == "" {
		return audit.NewMemoryLogger(), nil
	}
	l, err := audit.NewFileLogger(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return l, nil
}

// Registry returns the host's plugin registry.
func (h *Host) Registry() *plugin.Registry {
	return h.registry
}

// Config returns the configuration the host was built from.
func (h *Host) Config() *config.Config {
	return h.cfg
}

// Evaluator returns the permission evaluator shared with the registry.
func (h *Host) Evaluator() *permission.Evaluator {
	return h.evaluator
}

// Audit returns the audit service recording registry changes.
func (h *Host) Audit() *audit.Service {
	return h.audit
}

// Logger returns the host logger.
func (h *Host) Logger() ports.Logger {
	return h.logger
}

// Credential returns the operator credential from the configuration, or nil.
func (h *Host) Credential() *permission.Credential {
	return h.cfg.OperatorCredential()
}

// LoadFailure is one plugin that did not load.
type LoadFailure struct {
	PluginID string
	Err      error
}

// LoadReport summarizes a bulk load.
type LoadReport struct {
	// Requested lists the ids LoadAll attempted, in order.
	Requested []string
	// Loaded lists every loaded plugin afterwards, in load order.
	Loaded []string
	// Failed lists the requested ids whose load returned an error.
	Failed   []LoadFailure
	Duration time.Duration
}

// OK reports whether every requested plugin loaded.
func (r *LoadReport) OK() bool {
	return len(r.Failed) == 0
}

// Err joins the failures, or returns nil.
func (r *LoadReport) Err() error {
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}

// LoadAll loads the configured autoload list, or every registered plugin
// when the list is empty. One failing plugin never stops the others; the
// returned error joins all failures.
func (h *Host) LoadAll(ctx context.Context) (*LoadReport, error) {
	start := time.Now()
	ctx = h.withLogger(ctx)

	ids := slices.Clone(h.cfg.Plugins.Autoload)
	if len(ids) == 0 {
		for _, p := range h.registry.AllPlugins() {
			ids = append(ids, p.ID())
		}
	}

	report := &LoadReport{Requested: ids}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			report.Failed = append(report.Failed, LoadFailure{PluginID: id, Err: err})
			continue
		}
		if err := h.registry.Load(ctx, id); err != nil {
			report.Failed = append(report.Failed, LoadFailure{PluginID: id, Err: err})
		}
	}

	for _, p := range h.registry.LoadedPlugins() {
		report.Loaded = append(report.Loaded, p.ID())
	}
	report.Duration = time.Since(start)

	h.logger.Info(ctx, "plugins loaded",
		ports.F("loaded", len(report.Loaded)),
		ports.F("failed", len(report.Failed)),
		ports.F("duration", report.Duration.String()))

	return report, report.Err()
}

// Load loads a single plugin and its dependencies.
func (h *Host) Load(ctx context.Context, id string) error {
	return h.registry.Load(h.withLogger(ctx), id)
}

// Shutdown unloads every loaded plugin in reverse load order, then closes
// the audit log. Errors are joined; later plugins are still unloaded.
func (h *Host) Shutdown(ctx context.Context) error {
	ctx = h.withLogger(ctx)

	var errs []error
	loaded := h.registry.LoadedPlugins()
	for i := len(loaded) - 1; i >= 0; i-- {
		id := loaded[i].ID()
		if state, ok := h.registry.PluginState(id); !ok || !state.Loaded {
			continue
		}
		if err := h.registry.Unload(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("unloading plugin %q: %w", id, err))
		}
	}

	h.closeOnce.Do(func() {
		if err := h.audit.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing audit log: %w", err))
		}
	})

	if len(errs) == 0 {
		h.logger.Debug(ctx, "host shut down", ports.F("unloaded", len(loaded)))
	}
	return errors.Join(errs...)
}

// withLogger attaches the host logger unless ctx already carries one.
func (h *Host) withLogger(ctx context.Context) context.Context {
	if ports.LoggerFromContext(ctx) != nil {
		return ctx
	}
	return ports.ContextWithLogger(ctx, h.logger)
}
