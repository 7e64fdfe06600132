package audit

import (
	"context"
	"errors"
	"os/user"

	"github.com/felixgeelhaar/forge/internal/domain/plugin"
	"github.com/felixgeelhaar/forge/internal/ports"
)

// Service turns registry changes into audit events.
type Service struct {
	logger Logger
	user   string
	tenant string
	log    ports.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithIdentity sets the user and tenant recorded on every event.
// Without it the current system user is recorded.
func WithIdentity(user, tenant string) ServiceOption {
	return func(s *Service) {
		if user != "" {
			s.user = user
		}
		s.tenant = tenant
	}
}

// WithErrorLogger sets where failures to write events are reported.
func WithErrorLogger(log ports.Logger) ServiceOption {
	return func(s *Service) {
		s.log = log
	}
}

// NewService creates a new audit service with the given logger.
func NewService(logger Logger, opts ...ServiceOption) *Service {
	s := &Service{
		logger: logger,
		user:   getCurrentUser(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getCurrentUser returns the current system user.
func getCurrentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

// changeEvents maps registry change kinds to event types and severities.
var changeEvents = map[plugin.ChangeKind]struct {
	eventType EventType
	severity  Severity
}{
	plugin.ChangeRegistered:    {EventPluginRegistered, SeverityInfo},
	plugin.ChangeReplaced:      {EventPluginReplaced, SeverityWarning},
	plugin.ChangeUnregistered:  {EventPluginUnregistered, SeverityInfo},
	plugin.ChangeLoaded:        {EventPluginLoaded, SeverityInfo},
	plugin.ChangeLoadFailed:    {EventPluginLoadFailed, SeverityError},
	plugin.ChangeUnloaded:      {EventPluginUnloaded, SeverityInfo},
	plugin.ChangeCleanupFailed: {EventPluginCleanupFailed, SeverityWarning},
	plugin.ChangeEnabled:       {EventPluginEnabled, SeverityInfo},
	plugin.ChangeDisabled:      {EventPluginDisabled, SeverityInfo},
}

// Observe records a registry change. Write failures are reported to the
// error logger since observers cannot fail the operation they observe.
func (s *Service) Observe(ctx context.Context, change plugin.Change) {
	mapping, ok := changeEvents[change.Kind]
	if !ok {
		return
	}

	event := NewEvent(mapping.eventType).
		At(change.At).
		WithSeverity(mapping.severity).
		WithUser(s.user).
		WithTenant(s.tenant).
		WithPlugin(change.PluginID, change.Version).
		WithError(change.Err).
		Build()

	if err := s.logger.Log(ctx, event); err != nil && s.log != nil {
		s.log.Error(ctx, "failed to record audit event",
			ports.F("event", string(event.Type)),
			ports.F("plugin", change.PluginID),
			ports.F("error", err.Error()))
	}
}

// Query retrieves events matching the filter.
func (s *Service) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return s.logger.Query(ctx, filter)
}

// Recent returns the most recent N events.
func (s *Service) Recent(ctx context.Context, limit int) ([]Event, error) {
	return s.logger.Query(ctx, NewQuery().Limit(limit).Build())
}

// Failures returns failed load and cleanup events for a plugin, or for all
// plugins when id is empty.
func (s *Service) Failures(ctx context.Context, id string) ([]Event, error) {
	filter := NewQuery().
		WithEventTypes(EventPluginLoadFailed, EventPluginCleanupFailed).
		WithPlugin(id).
		Build()
	return s.logger.Query(ctx, filter)
}

// Summary returns a summary of events matching the filter.
func (s *Service) Summary(ctx context.Context, filter QueryFilter) (Summary, error) {
	events, err := s.logger.Query(ctx, filter)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(events), nil
}

// ErrNotVerifiable is returned by Verify when the log keeps no hash chain.
var ErrNotVerifiable = errors.New("audit log does not support verification")

// Verify checks the hash chain of a file-backed log. It returns the id of the
// first event that fails.
func (s *Service) Verify() (string, error) {
	v, ok := s.logger.(interface{ Verify() (string, error) })
	if !ok {
		return "", ErrNotVerifiable
	}
	return v.Verify()
}

// Close releases resources.
func (s *Service) Close() error {
	return s.logger.Close()
}

var _ plugin.Observer = (*Service)(nil)
