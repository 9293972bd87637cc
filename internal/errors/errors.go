// Package errors provides structured error types for aa.
package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Code represents a unique error code.
type Code string

// Error codes for aa.
const (
	// Config errors
	CodeConfigInvalid  Code = "CONFIG_INVALID"
	CodeConfigMissing  Code = "CONFIG_MISSING"
	CodeProjectUnknown Code = "PROJECT_UNKNOWN"

	// Cache errors
	CodeCacheInvalid Code = "CACHE_INVALID"
	CodeCacheWrite   Code = "CACHE_WRITE"

	// Conflict errors
	CodeConflictStale     Code = "CONFLICT_STALE_CACHE"
	CodeConflictDuplicate Code = "CONFLICT_DUPLICATE"

	// Remote service errors
	CodeRemoteUnauthorized Code = "REMOTE_UNAUTHORIZED"
	CodeRemoteFailed       Code = "REMOTE_FAILED"

	// Run errors
	CodeAlreadyRunning Code = "ALREADY_RUNNING"
	CodeBranchFailures Code = "BRANCH_FAILURES"
)

// Category groups error codes by the class of failure.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryConfiguration
	CategoryCache
	CategoryConflict
	CategoryRemote
	CategoryRun
)

// String returns the category name used in verbose output.
func (c Category) String() string {
	switch c {
	case CategoryConfiguration:
		return "configuration"
	case CategoryCache:
		return "cache"
	case CategoryConflict:
		return "conflict"
	case CategoryRemote:
		return "remote"
	case CategoryRun:
		return "run"
	default:
		return "unknown"
	}
}

// codeCategories maps error codes to their categories.
var codeCategories = map[Code]Category{
	CodeConfigInvalid:      CategoryConfiguration,
	CodeConfigMissing:      CategoryConfiguration,
	CodeProjectUnknown:     CategoryConfiguration,
	CodeCacheInvalid:       CategoryCache,
	CodeCacheWrite:         CategoryCache,
	CodeConflictStale:      CategoryConflict,
	CodeConflictDuplicate:  CategoryConflict,
	CodeRemoteUnauthorized: CategoryRemote,
	CodeRemoteFailed:       CategoryRemote,
	CodeAlreadyRunning:     CategoryRun,
	CodeBranchFailures:     CategoryRun,
}

// AaError is the structured error type for aa.
type AaError struct {
	Code  Code   `json:"code"`
	What  string `json:"what"`
	Why   string `json:"why,omitempty"`
	Fix   string `json:"fix,omitempty"`
	Cause error  `json:"-"`
}

// Error implements the error interface.
func (e *AaError) Error() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString(": ")
		b.WriteString(e.Why)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *AaError) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly message for CLI output.
func (e *AaError) UserMessage() string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString("\n\nWhy: ")
		b.WriteString(e.Why)
	}
	if e.Fix != "" {
		b.WriteString("\n\nFix: ")
		b.WriteString(e.Fix)
	}
	return b.String()
}

// Category returns the error category.
func (e *AaError) Category() Category {
	if cat, ok := codeCategories[e.Code]; ok {
		return cat
	}
	return CategoryUnknown
}

// MarshalJSON implements json.Marshaler.
func (e *AaError) MarshalJSON() ([]byte, error) {
	type alias AaError
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{
		alias: (*alias)(e),
	}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// Is reports whether target is an AaError with the same code.
func (e *AaError) Is(target error) bool {
	t, ok := target.(*AaError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause.
func (e *AaError) WithCause(err error) *AaError {
	return &AaError{
		Code:  e.Code,
		What:  e.What,
		Why:   e.Why,
		Fix:   e.Fix,
		Cause: err,
	}
}

// --- Error constructors ---

// ErrConfigInvalid returns an error for invalid configuration.
func ErrConfigInvalid(path, reason string) *AaError {
	return &AaError{
		Code: CodeConfigInvalid,
		What: fmt.Sprintf("invalid configuration: %s", path),
		Why:  reason,
		Fix:  fmt.Sprintf("Fix the listed fields in %s, then run 'aa validate'", path),
	}
}

// ErrConfigMissing returns an error when the configuration file does not exist.
func ErrConfigMissing(path string) *AaError {
	return &AaError{
		Code: CodeConfigMissing,
		What: fmt.Sprintf("configuration file not found: %s", path),
		Why:  "aa needs a token and at least one project to run",
		Fix:  fmt.Sprintf("Create %s or pass --config <path>", path),
	}
}

// ErrProjectUnknown returns an error when a requested project code is not configured.
func ErrProjectUnknown(code string) *AaError {
	return &AaError{
		Code: CodeProjectUnknown,
		What: fmt.Sprintf("project '%s' not found in configuration", code),
		Fix:  "Run 'aa validate' to list configured projects",
	}
}

// ErrCacheInvalid returns an error for a malformed counter cache.
func ErrCacheInvalid(path, reason string) *AaError {
	return &AaError{
		Code: CodeCacheInvalid,
		What: fmt.Sprintf("invalid counter cache: %s", path),
		Why:  reason,
		Fix:  "Repair the file by hand, or delete it and run 'aa scan' to rebuild it",
	}
}

// ErrCacheWrite returns an error when counters could not be persisted.
func ErrCacheWrite(path string) *AaError {
	return &AaError{
		Code: CodeCacheWrite,
		What: fmt.Sprintf("failed to save counter cache: %s", path),
		Fix:  "Check file permissions, then run 'aa scan' to resynchronize counters",
	}
}

// ErrStaleCache returns an error when remote identifiers exceed cached counters.
func ErrStaleCache(project string, details []string) *AaError {
	return &AaError{
		Code: CodeConflictStale,
		What: fmt.Sprintf("counter cache is behind remote state for project %s", project),
		Why:  strings.Join(details, "; "),
		Fix:  "Run 'aa scan --ignore-conflicts' to raise the counters to the observed values",
	}
}

// ErrDuplicateIdentifier returns an error when two tasks share one identifier.
func ErrDuplicateIdentifier(project string, details []string) *AaError {
	return &AaError{
		Code: CodeConflictDuplicate,
		What: fmt.Sprintf("duplicate identifiers in project %s", project),
		Why:  strings.Join(details, "; "),
		Fix:  "Rename one of the tasks in each pair by hand; duplicates are never resolved automatically",
	}
}

// ErrRemoteUnauthorized returns an error when the remote service rejects the credential.
func ErrRemoteUnauthorized(provider string) *AaError {
	return &AaError{
		Code: CodeRemoteUnauthorized,
		What: fmt.Sprintf("%s rejected the access token", provider),
		Fix:  "Check the token in your configuration or the AA_TOKEN environment variable",
	}
}

// ErrRemoteFailed returns an error for a remote failure that aborted a project.
func ErrRemoteFailed(project string) *AaError {
	return &AaError{
		Code: CodeRemoteFailed,
		What: fmt.Sprintf("remote request failed for project %s", project),
	}
}

// ErrAlreadyRunning returns an error when another aa process holds the run guard.
func ErrAlreadyRunning(pid int) *AaError {
	return &AaError{
		Code: CodeAlreadyRunning,
		What: fmt.Sprintf("another aa run is in progress (pid %d)", pid),
		Why:  "Two concurrent runs would race on the counter cache",
		Fix:  "Wait for the other run to finish",
	}
}

// ErrBranchFailures returns an error summarizing per-task failures of a run.
func ErrBranchFailures(count int) *AaError {
	return &AaError{
		Code: CodeBranchFailures,
		What: fmt.Sprintf("%d task(s) could not be renamed", count),
		Why:  "Their subtasks were not visited; counters were saved for everything else",
		Fix:  "Re-run 'aa update' to retry the failed branches",
	}
}

// AsAaError attempts to convert an error to an AaError.
// Returns nil if the error is not an AaError.
func AsAaError(err error) *AaError {
	var aaErr *AaError
	if As(err, &aaErr) {
		return aaErr
	}
	return nil
}

// As is a convenience wrapper for errors.As.
func As(err error, target any) bool {
	return asError(err, target)
}

// asError implements errors.As behavior for AaError targets.
func asError(err error, target any) bool {
	if err == nil {
		return false
	}
	if aaErr, ok := err.(*AaError); ok {
		if t, ok := target.(**AaError); ok {
			*t = aaErr
			return true
		}
	}
	if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
		return asError(unwrapper.Unwrap(), target)
	}
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range multi.Unwrap() {
			if asError(e, target) {
				return true
			}
		}
	}
	return false
}

// Wrap wraps a generic error into an AaError with unknown code.
func Wrap(err error, what string) *AaError {
	return &AaError{
		Code:  Code("UNKNOWN"),
		What:  what,
		Cause: err,
	}
}
