package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Error codes for categorization.
const (
	ErrCodeConfigNotFound    = "CONFIG_NOT_FOUND"
	ErrCodeConfigParse       = "CONFIG_PARSE"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
	ErrCodePluginNotFound    = "PLUGIN_NOT_FOUND"
	ErrCodeAuditNotPersisted = "AUDIT_NOT_PERSISTED"
)

// UserError represents a user-friendly error with actionable suggestions.
type UserError struct {
	Code       string // Error code for categorization (e.g., "CONFIG_NOT_FOUND")
	Message    string // User-friendly error message
	Context    string // File path, line number, or other location context
	Suggestion string // Actionable suggestion to fix the error
	Underlying error  // Wrapped error for error chain
}

// Error returns the formatted error message.
func (e *UserError) Error() string {
	if e.Context == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (at %s)", e.Message, e.Context)
}

// Unwrap returns the underlying error for error chain support.
func (e *UserError) Unwrap() error {
	return e.Underlying
}

// Is supports errors.Is() for comparing error codes.
func (e *UserError) Is(target error) bool {
	if t, ok := target.(*UserError); ok {
		return e.Code == t.Code
	}
	return false
}

// Format returns a fully formatted error with all details.
func (e *UserError) Format() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, "\n  Location: %s", e.Context)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  Suggestion: %s", e.Suggestion)
	}

	return b.String()
}

// NewUserError creates a new UserError with the given code and message.
func NewUserError(code, message string) *UserError {
	return &UserError{
		Code:    code,
		Message: message,
	}
}

// WithContext returns a copy with context set.
func (e *UserError) WithContext(ctx string) *UserError {
	cp := *e
	cp.Context = ctx
	return &cp
}

// WithSuggestion returns a copy with suggestion set.
func (e *UserError) WithSuggestion(suggestion string) *UserError {
	cp := *e
	cp.Suggestion = suggestion
	return &cp
}

// WithUnderlying returns a copy wrapping another error.
func (e *UserError) WithUnderlying(err error) *UserError {
	cp := *e
	cp.Underlying = err
	return &cp
}

// ErrorList accumulates multiple errors for comprehensive reporting.
type ErrorList struct {
	errors []*UserError
}

// NewErrorList creates an empty ErrorList.
func NewErrorList() *ErrorList {
	return &ErrorList{
		errors: make([]*UserError, 0),
	}
}

// Add adds an error to the list.
func (l *ErrorList) Add(err *UserError) {
	if err != nil {
		l.errors = append(l.errors, err)
	}
}

// AddValidation adds a validation error to the list.
func (l *ErrorList) AddValidation(field, message, suggestion string) {
	l.Add(&UserError{
		Code:       ErrCodeValidationFailed,
		Message:    fmt.Sprintf("%s: %s", field, message),
		Context:    field,
		Suggestion: suggestion,
	})
}

// HasErrors returns true if there are any errors.
func (l *ErrorList) HasErrors() bool {
	return len(l.errors) > 0
}

// Len returns the number of errors.
func (l *ErrorList) Len() int {
	return len(l.errors)
}

// Errors returns the list of errors.
func (l *ErrorList) Errors() []*UserError {
	result := make([]*UserError, len(l.errors))
	copy(result, l.errors)
	return result
}

// Error implements the error interface for ErrorList.
func (l *ErrorList) Error() string {
	switch len(l.errors) {
	case 0:
		return ""
	case 1:
		return l.errors[0].Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d errors occurred:\n", len(l.errors))
	for i, err := range l.errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

// Format returns a detailed formatted output of all errors.
func (l *ErrorList) Format() string {
	if len(l.errors) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d error(s):\n", len(l.errors))
	for i, err := range l.errors {
		fmt.Fprintf(&b, "\n--- Error %d ---\n", i+1)
		b.WriteString(err.Format())
		b.WriteString("\n")
	}
	return b.String()
}

// AsError returns the ErrorList as an error, or nil if empty.
func (l *ErrorList) AsError() error {
	if !l.HasErrors() {
		return nil
	}
	return l
}

// Common user-friendly error constructors.

// NewConfigNotFoundError creates an error for a missing config file.
func NewConfigNotFoundError(path string) *UserError {
	return &UserError{
		Code:       ErrCodeConfigNotFound,
		Message:    fmt.Sprintf("configuration file not found: %s", path),
		Context:    path,
		Suggestion: "Create forge.yaml or forge.toml in the working directory, or pass --config.",
	}
}

// NewConfigParseError creates an error for a config file that could not be decoded.
func NewConfigParseError(path string, err error) *UserError {
	return &UserError{
		Code:       ErrCodeConfigParse,
		Message:    "failed to parse configuration file",
		Context:    path,
		Suggestion: "Check the file syntax against the documented forge.yaml layout.",
		Underlying: err,
	}
}

// NewUnsupportedFormatError creates an error for an unknown config file extension.
func NewUnsupportedFormatError(path string) *UserError {
	return &UserError{
		Code:       ErrCodeUnsupportedFormat,
		Message:    "unsupported configuration format",
		Context:    path,
		Suggestion: "Use a .yaml, .yml or .toml file.",
	}
}

// NewValidationFailedError creates a validation error.
func NewValidationFailedError(field, message string) *UserError {
	return &UserError{
		Code:    ErrCodeValidationFailed,
		Message: fmt.Sprintf("validation failed for '%s': %s", field, message),
		Context: field,
	}
}

// NewPluginNotFoundError creates an error for a plugin id the host does not know.
func NewPluginNotFoundError(id string, available []string) *UserError {
	suggestion := "Run 'forge plugins list' to see registered plugins."
	if len(available) > 0 {
		suggestion = fmt.Sprintf("Available plugins: %s", strings.Join(available, ", "))
	}
	return &UserError{
		Code:       ErrCodePluginNotFound,
		Message:    fmt.Sprintf("plugin '%s' not found", id),
		Suggestion: suggestion,
	}
}

// NewAuditNotPersistedError creates an error for an operation that needs the
// audit log on disk.
func NewAuditNotPersistedError() *UserError {
	return &UserError{
		Code:       ErrCodeAuditNotPersisted,
		Message:    "audit log is kept in memory and has no file to verify",
		Suggestion: "Set audit.file in the configuration.",
	}
}

// GetUserError extracts a UserError from an error chain, if present.
func GetUserError(err error) *UserError {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue
	}
	return nil
}

// NewYAMLParseError translates technical YAML errors into user-friendly messages.
func NewYAMLParseError(path string, err error) *UserError {
	errStr := err.Error()
	var message, suggestion string

	switch {
	case strings.Contains(errStr, "not found in type"):
		message = "unknown configuration key"
		suggestion = "Valid top-level keys are log, credential, roles, plugins and audit."

	case strings.Contains(errStr, "cannot unmarshal !!str") && strings.Contains(errStr, "into []string"):
		message = "expected a list but found a string"
		suggestion = `Roles, permissions and plugin lists are YAML sequences.

Correct format:
  credential:
    roles:
      - technician

Incorrect format:
  credential:
    roles: technician`

	case strings.Contains(errStr, "cannot unmarshal !!seq into map"):
		message = "expected an object but found a list"
		suggestion = "Check that you're using 'key: value' format instead of '- item' list format."

	case strings.Contains(errStr, "cannot unmarshal !!str") && strings.Contains(errStr, "into bool"):
		message = "expected true or false"
		suggestion = "Boolean settings such as plugins.cascade_unload take true or false."

	case strings.Contains(errStr, "did not find expected key"):
		message = "missing required field or incorrect indentation"
		suggestion = "YAML is sensitive to indentation. Use 2 spaces (not tabs) for each level."

	case strings.Contains(errStr, "mapping values are not allowed"):
		message = "invalid YAML structure"
		suggestion = "Check for missing colons after keys, or incorrect indentation."

	case strings.Contains(errStr, "found character that cannot start"):
		message = "invalid character in YAML"
		suggestion = "Quote string values that contain special characters like ':', '#', or '{'."

	default:
		message = "invalid YAML syntax"
		suggestion = "Check your YAML syntax. Common issues: incorrect indentation, missing colons, or unquoted special characters."
	}

	context := path
	if _, rest, ok := strings.Cut(errStr, "line "); ok {
		line, _, _ := strings.Cut(rest, ":")
		context = fmt.Sprintf("%s (line %s)", path, line)
	}

	return &UserError{
		Code:       ErrCodeConfigParse,
		Message:    message,
		Context:    context,
		Suggestion: suggestion,
		Underlying: err,
	}
}

// NewTOMLParseError translates go-toml decode errors into user-friendly messages.
func NewTOMLParseError(path string, err error) *UserError {
	ue := &UserError{
		Code:       ErrCodeConfigParse,
		Message:    "invalid TOML syntax",
		Context:    path,
		Suggestion: "Check your TOML syntax. Strings must be quoted and tables are declared as [name].",
		Underlying: err,
	}

	var strict *toml.StrictMissingError
	if errors.As(err, &strict) {
		ue.Message = "unknown configuration key"
		ue.Suggestion = "Valid top-level keys are log, credential, roles, plugins and audit."
		if len(strict.Errors) > 0 {
			row, col := strict.Errors[0].Position()
			ue.Context = fmt.Sprintf("%s (line %d, column %d)", path, row, col)
		}
		return ue
	}

	var decodeErr *toml.DecodeError
	if errors.As(err, &decodeErr) {
		row, col := decodeErr.Position()
		ue.Context = fmt.Sprintf("%s (line %d, column %d)", path, row, col)
	}
	return ue
}
