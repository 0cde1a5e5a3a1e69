package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/clausegraph/internal/types"
)

// Exit code constants for the CLI
const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitError indicates a general error
	ExitError = 1
	// ExitCriticalFindings indicates the analyzed contract has critical findings
	ExitCriticalFindings = 2
	// ExitTimeout indicates the operation timed out
	ExitTimeout = 3
	// ExitCancelled indicates the operation was cancelled
	ExitCancelled = 4
	// ExitConfigError indicates a configuration error
	ExitConfigError = 10
	// ExitGraphError indicates the graph database could not be used
	ExitGraphError = 11
	// ExitDatabaseError indicates a run history error
	ExitDatabaseError = 12
)

// CLIError represents a CLI-specific error with an exit code
type CLIError struct {
	Code    int
	Message string
	Cause   error
}

// Error implements the error interface
func (e *CLIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// WrapError creates a new CLIError wrapping an existing error
func WrapError(code int, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Cause: err}
}

// NewCLIError creates a new CLIError with the given code and message
func NewCLIError(code int, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// ErrCriticalFindings signals a successful analysis that found critical
// issues. It prints nothing and exits with ExitCriticalFindings.
var ErrCriticalFindings = NewCLIError(ExitCriticalFindings, "")

// HandleError prints err to the command's error output and returns the
// exit code for it.
func HandleError(cmd *cobra.Command, err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, context.Canceled) {
		cmd.PrintErrln("Operation cancelled")
		return ExitCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		cmd.PrintErrln("Operation timed out")
		return ExitTimeout
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		if cliErr.Message != "" {
			cmd.PrintErrln("Error:", cliErr.Message)
		}
		if cliErr.Cause != nil {
			if IsVerboseFlag(cmd) {
				cmd.PrintErrln("Cause:", cliErr.Cause)
			}
			// a typed cause decides the exit code unless one was chosen
			if cliErr.Code == ExitError {
				return exitCodeFor(cliErr.Cause)
			}
		}
		return cliErr.Code
	}

	var typedErr *types.Error
	if errors.As(err, &typedErr) {
		cmd.PrintErrln("Error:", typedErr.Error())
		if IsVerboseFlag(cmd) && len(typedErr.Details) > 0 {
			keys := make([]string, 0, len(typedErr.Details))
			for k := range typedErr.Details {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			cmd.PrintErrln("Context:")
			for _, k := range keys {
				cmd.PrintErrf("  %s: %v\n", k, typedErr.Details[k])
			}
		}
		return exitCodeFor(typedErr)
	}

	cmd.PrintErrln("Error:", err)
	return ExitError
}

// exitCodeFor maps error codes to CLI exit codes.
func exitCodeFor(err error) int {
	var e *types.Error
	if !errors.As(err, &e) {
		return ExitError
	}
	switch e.Code {
	case types.CONFIG_LOAD_FAILED, types.CONFIG_PARSE_FAILED, types.CONFIG_VALIDATION_FAILED:
		return ExitConfigError
	case types.CONNECTION_FAILED, types.CONNECTION_CLOSED, types.TRANSIENT_FAILURE,
		types.BUILD_FAILED, types.COMPLIANCE_CHECK_FAILED:
		return ExitGraphError
	case types.DB_OPEN_FAILED, types.DB_MIGRATION_FAILED, types.DB_QUERY_FAILED, types.DB_NOT_FOUND:
		return ExitDatabaseError
	default:
		return ExitError
	}
}

// IsVerboseFlag reports whether --verbose was set on cmd.
func IsVerboseFlag(cmd *cobra.Command) bool {
	f := cmd.Flag("verbose")
	return f != nil && f.Changed
}

// IsVerbose checks the environment and raw arguments for verbose mode. It is
// used during panic recovery, before flags are reliable.
func IsVerbose() bool {
	if os.Getenv("CLAUSEGRAPH_VERBOSE") != "" {
		return true
	}
	for _, arg := range os.Args {
		if arg == "-v" || arg == "--verbose" {
			return true
		}
	}
	return false
}
