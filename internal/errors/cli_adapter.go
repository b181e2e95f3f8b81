package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
)

// CLIErrorAdapter handles error presentation and exit code determination for
// the packsmith CLI.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	var pe *PacksmithError
	if stderrors.As(err, &pe) {
		return a.exitCodeFromPacksmith(pe)
	}

	return 1
}

// exitCodeFromPacksmith maps PacksmithError categories to exit codes.
func (a *CLIErrorAdapter) exitCodeFromPacksmith(err *PacksmithError) int {
	switch err.Category {
	case CategoryArgument:
		return 2 // Invalid usage
	case CategoryConfig:
		return 7 // Configuration error
	case CategoryLink:
		return 8 // External directory error
	case CategoryCache:
		return 9 // Cache persistence error
	case CategoryFormat, CategoryPack, CategoryPipeline, CategoryBuild, CategoryFileSystem:
		return 11 // Build error
	case CategoryWatch:
		return 12 // Watch runtime error
	case CategoryInternal:
		return 10 // Internal error
	default:
		return 1 // General error
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	var pe *PacksmithError
	if stderrors.As(err, &pe) {
		return a.formatPacksmith(pe)
	}

	return fmt.Sprintf("Error: %v", err)
}

// formatPacksmith formats a PacksmithError for display.
func (a *CLIErrorAdapter) formatPacksmith(err *PacksmithError) string {
	if a.verbose {
		return err.Error()
	}

	switch err.Category {
	case CategoryConfig, CategoryArgument:
		return err.Message
	default:
		return fmt.Sprintf("%s: %s", err.Category, err.Message)
	}
}

// HandleError processes an error and exits the program with appropriate code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}

	exitCode := a.ExitCodeFor(err)
	message := a.FormatError(err)

	if a.shouldLog(err) {
		a.logError(err)
	}

	fmt.Fprintf(os.Stderr, "%s\n", message)
	os.Exit(exitCode)
}

// shouldLog determines if an error should be logged.
func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}

	var pe *PacksmithError
	if stderrors.As(err, &pe) {
		return pe.Category == CategoryInternal || pe.Severity == SeverityFatal
	}

	return true
}

// logError logs an error with appropriate level and context.
func (a *CLIErrorAdapter) logError(err error) {
	var pe *PacksmithError
	if stderrors.As(err, &pe) {
		level := a.slogLevelFromSeverity(pe.Severity)
		attrs := []slog.Attr{
			slog.String("category", string(pe.Category)),
		}
		a.logger.LogAttrs(nil, level, pe.Message, attrs...)
		return
	}

	a.logger.Error("Unclassified error", "error", err)
}

// slogLevelFromSeverity converts PacksmithError severity to slog level.
func (a *CLIErrorAdapter) slogLevelFromSeverity(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityFatal:
		return slog.LevelError
	default:
		return slog.LevelError
	}
}
