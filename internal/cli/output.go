package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Exit codes. A command error means the command could not do its work at
// all (bad paths, unreadable settings, database errors); a failure means
// it ran and the outcome was negative (a job did not succeed, an invalid
// topology, a drain timeout, a failing scenario).
const (
	ExitFailure      = 1
	ExitCommandError = 2
)

// Error codes reported in the JSON envelope and in text errors.
const (
	ErrCodeGeneric     = "E001"
	ErrCodeSettings    = "E002"
	ErrCodeTopology    = "E003"
	ErrCodeDatabase    = "E004"
	ErrCodeNotFound    = "E005"
	ErrCodeWriteFailed = "E007"

	ErrCodePlan     = "E201"
	ErrCodeDrain    = "E203"
	ErrCodeScenario = "E301"
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// GetExitCode returns the exit code carried by err, or ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the JSON envelope every command writes with --format json.
type CLIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error part of the envelope.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OutputFormatter writes command results as text or as the JSON envelope.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func (f *OutputFormatter) json() bool { return f.Format == "json" }

// Render writes data in an "ok" envelope, or calls text for text output.
func (f *OutputFormatter) Render(data any, text func(w io.Writer)) error {
	if f.json() {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	text(f.Writer)
	return nil
}

// Error writes an error line, or an "error" envelope.
func (f *OutputFormatter) Error(code, message string) error {
	if f.json() {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message},
		})
	}
	_, err := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return err
}

// Reject writes an indented "error" envelope that still carries data, for
// commands whose failure report is itself the result.
func (f *OutputFormatter) Reject(code, message string, data any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(CLIResponse{
		Status: "error",
		Data:   data,
		Error:  &CLIError{Code: code, Message: message},
	})
}

// VerboseLog writes to ErrWriter when --verbose is set, keeping JSON on
// Writer intact.
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

// fail reports err through f and returns it as an ExitError.
func fail(f *OutputFormatter, exitCode int, code, message string, err error) error {
	_ = f.Error(code, fmt.Sprintf("%s: %v", message, err))
	return &ExitError{Code: exitCode, Message: message, Err: err}
}
