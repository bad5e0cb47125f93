package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes returned to the shell.
const (
	ExitSuccess      = 0 // command completed
	ExitFailure      = 1 // runtime failure: query failed, stream aborted
	ExitCommandError = 2 // command error: bad flags, unreadable config, store won't open
)

// Stable error codes carried in JSON error envelopes so scripts can
// branch on the failure class instead of parsing messages.
const (
	ErrCodeConfig = "E001" // configuration file invalid or unreadable
	ErrCodeStore  = "E002" // storage backend could not be opened or written
	ErrCodeQuery  = "E003" // window or latest query failed
	ErrCodeServe  = "E004" // dashboard server or one of its loops failed
)

// ExitError carries the exit code a failed command maps to. Commands
// return it from RunE; main translates it with GetExitCode.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError with no underlying cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code and context to err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to a process exit code. Anything that is not an
// ExitError counts as a runtime failure.
func GetExitCode(err error) int {
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or JSON. JSON goes to
// Writer only; diagnostics use ErrWriter so machine output stays clean.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope for command output.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error half of the envelope.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success writes a success result. Text mode prints the value as-is;
// commands that want richer text output format it themselves instead
// of going through the formatter.
func (f *OutputFormatter) Success(data any) error {
	if f.Format != "json" {
		_, err := fmt.Fprintln(f.Writer, data)
		return err
	}
	return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
}

// Error writes a coded error result.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog prints a diagnostic line when --verbose is set, preferring
// ErrWriter so JSON on stdout is never interleaved with diagnostics.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
