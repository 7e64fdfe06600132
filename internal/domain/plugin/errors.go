package plugin

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic error handling.
var (
	// ErrNilDescriptor indicates a nil descriptor was registered.
	ErrNilDescriptor = errors.New("descriptor cannot be nil")
	// ErrPluginNotFound indicates an operation referenced an unregistered id.
	ErrPluginNotFound = errors.New("plugin not found")
	// ErrCyclicDependency matches every *CyclicDependencyError.
	ErrCyclicDependency = errors.New("cyclic plugin dependency")
	// ErrInitialization matches every *InitializationError.
	ErrInitialization = errors.New("plugin initialization failed")
	// ErrCleanup matches every *CleanupError.
	ErrCleanup = errors.New("plugin cleanup failed")
	// ErrVersionMismatch matches every *VersionMismatchError.
	ErrVersionMismatch = errors.New("plugin dependency version mismatch")
	// ErrLoadInProgress indicates an unload raced an in-flight load.
	ErrLoadInProgress = errors.New("plugin load in progress")
	// ErrInvalidTransition indicates the lifecycle machine rejected an event.
	ErrInvalidTransition = errors.New("invalid plugin lifecycle transition")
)

func notFound(id string) error {
	return fmt.Errorf("plugin %q: %w", id, ErrPluginNotFound)
}

// ValidationError collects multiple descriptor validation failures.
type ValidationError struct {
	PluginID string
	Errors   []string
}

func (e *ValidationError) Error() string {
	prefix := "invalid plugin"
	if e.PluginID != "" {
		prefix = fmt.Sprintf("invalid plugin %q", e.PluginID)
	}
	if len(e.Errors) == 1 {
		return prefix + ": " + e.Errors[0]
	}
	return fmt.Sprintf("%s: %s", prefix, strings.Join(e.Errors, "; "))
}

// Add adds an error message to the collection.
func (e *ValidationError) Add(msg string) {
	e.Errors = append(e.Errors, msg)
}

// Addf adds a formatted error message to the collection.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are validation errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// CyclicDependencyError reports a dependency chain that returns to a plugin
// already being resolved.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency detected: %s", strings.Join(e.Cycle, " -> "))
}

// Is lets errors.Is match ErrCyclicDependency.
func (e *CyclicDependencyError) Is(target error) bool {
	return target == ErrCyclicDependency
}

// InitializationError wraps the failure of a plugin's Initialize hook.
type InitializationError struct {
	PluginID string
	Err      error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initializing plugin %q: %v", e.PluginID, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrInitialization.
func (e *InitializationError) Is(target error) bool {
	return target == ErrInitialization
}

// CleanupError wraps the failure of a plugin's Cleanup hook.
// The registry logs it and never returns it from Unload or Unregister.
type CleanupError struct {
	PluginID string
	Err      error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("cleaning up plugin %q: %v", e.PluginID, e.Err)
}

func (e *CleanupError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrCleanup.
func (e *CleanupError) Is(target error) bool {
	return target == ErrCleanup
}

// VersionMismatchError indicates a registered dependency does not satisfy
// the dependent's version constraint.
type VersionMismatchError struct {
	PluginID   string
	Dependency string
	Constraint string
	Version    string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("plugin %q requires %s %s, found %s",
		e.PluginID, e.Dependency, e.Constraint, e.Version)
}

// Is lets errors.Is match ErrVersionMismatch.
func (e *VersionMismatchError) Is(target error) bool {
	return target == ErrVersionMismatch
}

// IsNotFound returns true if the error indicates an unregistered plugin.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPluginNotFound)
}

// IsCyclicDependency returns true if the error is a cyclic dependency error.
func IsCyclicDependency(err error) bool {
	var cyclicErr *CyclicDependencyError
	return errors.As(err, &cyclicErr)
}

// IsInitializationFailure returns true if a plugin's Initialize failed
// anywhere in the error chain.
func IsInitializationFailure(err error) bool {
	var initErr *InitializationError
	return errors.As(err, &initErr)
}

// IsValidationError returns true if the error is a validation error.
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsVersionMismatch returns true if the error is a version mismatch.
func IsVersionMismatch(err error) bool {
	var mismatchErr *VersionMismatchError
	return errors.As(err, &mismatchErr)
}
