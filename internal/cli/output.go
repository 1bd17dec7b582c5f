package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/givemewater/internal/engine"
	"github.com/roach88/givemewater/internal/model"
	"github.com/roach88/givemewater/internal/remote"
)

// Exit codes for gmw.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the operation ran and failed (cloud reset, remote retention)
	ExitCommandError = 2 // bad arguments, config or local files
)

// Error codes carried in the JSON error envelope.
const (
	CodeInvalidInput  = "invalid_input"
	CodeRemoteFailure = "remote_failure"
	CodeUnauthorized  = "unauthorized"
	CodeFailure       = "failure"
)

// ExitError is a command error with the process exit code it maps to.
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

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError wrapping err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to a process exit code. Errors that are not
// ExitErrors exit with ExitFailure.
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

// ErrorCode classifies err for the JSON error envelope.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, model.ErrUnknownDrink),
		errors.Is(err, model.ErrInvalidAmount),
		errors.Is(err, model.ErrInvalidGoal),
		errors.Is(err, model.ErrInvalidSettings),
		errors.Is(err, engine.ErrInvalidSession):
		return CodeInvalidInput
	case errors.Is(err, remote.ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, remote.ErrTransient), errors.Is(err, remote.ErrNotConfigured):
		return CodeRemoteFailure
	case GetExitCode(err) == ExitCommandError:
		return CodeInvalidInput
	}
	return CodeFailure
}

// CLIResponse is the JSON envelope every command prints with --format json.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error half of CLIResponse.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OutputFormatter writes command results as text or as the JSON envelope.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // text errors; defaults to Writer
	Verbose   bool
}

// Render writes data inside the envelope for json, else calls text.
func (f *OutputFormatter) Render(data any, text func(w io.Writer)) error {
	if f.Format != "json" {
		text(f.Writer)
		return nil
	}
	return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
}

// Error writes a failure. JSON goes to Writer so scripts read one stream;
// text goes to ErrWriter. Details are printed in text mode only when verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(w, "Details: %v\n", details)
	}
	return nil
}

// RenderError reports a command error. The cause chain goes into details.
func (f *OutputFormatter) RenderError(err error) error {
	message := err.Error()
	var details any
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		message = exitErr.Message
		if exitErr.Err != nil {
			details = exitErr.Err.Error()
		}
	}
	return f.Error(ErrorCode(err), message, details)
}
