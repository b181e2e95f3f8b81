// Package errors provides the structured error type (PacksmithError) shared by
// all packsmith subsystems, classifying failures by category and severity.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory classifies a packsmith error for reporting and tests.
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig   ErrorCategory = "config"
	CategoryArgument ErrorCategory = "argument"
	CategoryFormat   ErrorCategory = "format"

	// Pack content and generation errors
	CategoryPack     ErrorCategory = "pack"
	CategoryPipeline ErrorCategory = "pipeline"
	CategoryBuild    ErrorCategory = "build"

	// Persistence and environment errors
	CategoryCache      ErrorCategory = "cache"
	CategoryLink       ErrorCategory = "link"
	CategoryWatch      ErrorCategory = "watch"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryInternal   ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Fails the current build attempt
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// PacksmithError is a structured error with category, severity, and context
type PacksmithError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for PacksmithError
type ContextFields map[string]any

// Error implements the error interface
func (e *PacksmithError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *PacksmithError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *PacksmithError) WithContext(key string, value any) *PacksmithError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new PacksmithError
func New(category ErrorCategory, severity ErrorSeverity, message string) *PacksmithError {
	return &PacksmithError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Newf creates a new PacksmithError with a formatted message
func Newf(category ErrorCategory, severity ErrorSeverity, format string, args ...any) *PacksmithError {
	return &PacksmithError{
		Category: category,
		Severity: severity,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new PacksmithError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *PacksmithError {
	return &PacksmithError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// WrapError wraps an existing error at SeverityError
func WrapError(err error, category ErrorCategory, message string) *PacksmithError {
	return &PacksmithError{
		Category: category,
		Severity: SeverityError,
		Message:  message,
		Cause:    err,
	}
}

// IsCategory checks if an error (or anything it wraps) belongs to a category
func IsCategory(err error, category ErrorCategory) bool {
	var pe *PacksmithError
	if stderrors.As(err, &pe) {
		return pe.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or CategoryInternal if the
// chain contains no PacksmithError
func GetCategory(err error) ErrorCategory {
	var pe *PacksmithError
	if stderrors.As(err, &pe) {
		return pe.Category
	}
	return CategoryInternal
}
