package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/slotgrid/internal/access"
	"github.com/roach88/slotgrid/internal/filter"
	"github.com/roach88/slotgrid/internal/fixture"
	"github.com/roach88/slotgrid/internal/layout"
	"github.com/roach88/slotgrid/internal/model"
	"github.com/roach88/slotgrid/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation refused or failed (denied, conflict, invalid data)
	ExitCommandError = 2 // Command error (bad flags, unreadable files, database not found)
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeReadFailed   = "E002" // Input file unreadable
	ErrCodeSchema       = "E003" // Fixture fails its schema
	ErrCodeNotFound     = "E005" // Referenced entity not found
	ErrCodeInvalidInput = "E010" // Invalid field, filter or interval
	ErrCodeDenied       = "E011" // Permission denied
	ErrCodeConflict     = "E012" // Entity already exists
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
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
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
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E001", "E002", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err in the configured format and returns it as an
// ExitError carrying the matching exit code.
func (f *OutputFormatter) Fail(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code == ExitCommandError {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return err
	}

	code, details := classify(err)
	_ = f.Error(code, err.Error(), details)
	return WrapExitError(ExitFailure, code, err)
}

// classify maps a domain error to an error code and optional details.
func classify(err error) (string, interface{}) {
	var (
		denied    *access.DeniedError
		invalid   *model.ValidationError
		paramErr  *filter.ParamError
		valueErr  *filter.ValueError
		layoutErr *layout.Error
		schemaErr *fixture.SchemaError
	)

	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrCodeNotFound, nil
	case errors.Is(err, store.ErrConflict):
		return ErrCodeConflict, nil
	case errors.Is(err, access.ErrUnauthenticated):
		return ErrCodeDenied, nil
	case errors.As(err, &denied):
		return ErrCodeDenied, map[string]string{"reason": denied.Reason, "reservable": denied.Reservable}
	case errors.As(err, &schemaErr):
		return ErrCodeSchema, schemaErr.Details
	case errors.As(err, &paramErr):
		return ErrCodeInvalidInput, map[string][]string{"wrong": paramErr.Wrong, "available": paramErr.Available}
	case errors.As(err, &invalid), errors.As(err, &valueErr), errors.As(err, &layoutErr):
		return ErrCodeInvalidInput, nil
	}
	return ErrCodeGeneric, nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
