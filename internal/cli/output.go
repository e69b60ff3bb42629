package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/acctql/internal/config"
	"github.com/roach88/acctql/internal/loader"
	"github.com/roach88/acctql/internal/mutation"
	"github.com/roach88/acctql/internal/pager"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected mutation, missing record, failed fetch
	ExitCommandError = 2 // Command error (bad config, database not found, bad flags, etc.)
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric  = "E001" // Generic/unknown error
	ErrCodeConfig   = "E002" // Config file missing or invalid
	ErrCodeDatabase = "E003" // Database could not be opened
	ErrCodeNotFound = "E004" // Record not found
	ErrCodeBadArgs  = "E005" // Invalid arguments or flags
	ErrCodeRejected = "E006" // Mutation rejected by validation
	ErrCodeFetch    = "E007" // Batch fetch failed
	ErrCodeStream   = "E008" // Event stream failed
	ErrCodeSeedFile = "E009" // Seed file missing or invalid
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitFailure (1) if the error is not an
// ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
	RequestID string // set once a service request exists; echoed in JSON output
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status    string    `json:"status"`               // "ok" or "error"
	Data      any       `json:"data,omitempty"`       // success payload
	Error     *CLIError `json:"error,omitempty"`      // error details
	RequestID string    `json:"request_id,omitempty"` // optional request correlation
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status:    "ok",
			Data:      data,
			RequestID: f.RequestID,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
			RequestID: f.RequestID,
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Report writes err in the configured format and returns an ExitError
// carrying the exit code for its category.
func (f *OutputFormatter) Report(err error) error {
	code, exit, details := classify(err)
	message := err.Error()

	var ve *mutation.ValidationError
	if errors.As(err, &ve) {
		message = ve.Message
	}

	if outErr := f.Error(code, message, details); outErr != nil {
		return WrapExitError(ExitCommandError, "failed to write output", outErr)
	}
	return WrapExitError(exit, message, err)
}

// classify maps an error to its CLI error code, exit code and details.
func classify(err error) (code string, exit int, details any) {
	var (
		ve  *mutation.ValidationError
		ae  *pager.ArgsError
		le  *config.LoadError
		be  *loader.BatchFetchError
		dbe *dbError
		ee  *ExitError
	)
	switch {
	case errors.As(err, &ve):
		d := map[string]string{"reason": string(ve.Reason)}
		if ve.AccountID != "" {
			d["account"] = ve.AccountID
		}
		return ErrCodeRejected, ExitFailure, d
	case errors.As(err, &ae):
		return ErrCodeBadArgs, ExitCommandError, nil
	case errors.As(err, &le):
		return ErrCodeConfig, ExitCommandError, map[string]string{"config_code": le.Code}
	case errors.As(err, &dbe):
		return ErrCodeDatabase, ExitCommandError, nil
	case errors.As(err, &be):
		return ErrCodeFetch, ExitFailure, map[string]any{"batch_size": be.Size}
	case errors.As(err, &ee):
		return ErrCodeGeneric, ee.Code, nil
	}
	return ErrCodeGeneric, ExitFailure, nil
}
