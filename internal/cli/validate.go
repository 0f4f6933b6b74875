package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/replicate/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid        bool              `json:"valid"`
	Sites        int               `json:"sites"`
	Filters      int               `json:"filters"`
	Replications int               `json:"replications"`
	Errors       []ValidationIssue `json:"errors,omitempty"`
}

// ValidationIssue is one topology problem.
type ValidationIssue struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [topology-dir]",
		Short: "Validate a topology without running anything",
		Long: `Load the CUE topology, check it against the schema and check that every
filter and replication refers to a declared site.

Without an argument, the topology directory from the settings is used.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := rootOpts.Topology
			if len(args) == 1 {
				dir = args[0]
			}
			return runValidate(rootOpts, dir, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	if dir == "" {
		settings, err := config.LoadSettings(opts.Config)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeSettings, "failed to load settings", err)
		}
		dir = settings.Topology
	}
	formatter.VerboseLog("Validating topology in %s", dir)

	topo, err := config.LoadTopology(dir)
	if err != nil {
		issues := validationIssues(err)
		if len(issues) == 0 {
			// Not a topology problem: missing directory or no files.
			return fail(formatter, ExitCommandError, ErrCodeTopology, "cannot load topology", err)
		}
		return outputValidationErrors(formatter, issues)
	}

	result := ValidationResult{
		Valid:        true,
		Sites:        len(topo.Sites),
		Filters:      len(topo.Filters),
		Replications: len(topo.Replications),
	}
	return formatter.Render(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Topology valid (%d sites, %d filters, %d replications)\n",
			result.Sites, result.Filters, result.Replications)
	})
}

// validationIssues flattens joined LoadErrors. Errors that are not
// LoadErrors yield no issues.
func validationIssues(err error) []ValidationIssue {
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}

	var issues []ValidationIssue
	for _, e := range errs {
		var le *config.LoadError
		if !errors.As(e, &le) {
			continue
		}
		issue := ValidationIssue{Path: le.Path, Message: le.Message}
		if le.Pos.IsValid() {
			issue.File = le.Pos.Filename()
			issue.Line = le.Pos.Line()
		}
		issues = append(issues, issue)
	}
	return issues
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, issues []ValidationIssue) error {
	if formatter.json() {
		result := ValidationResult{Valid: false, Errors: issues}
		if err := formatter.Reject(ErrCodeTopology, issues[0].Message, result); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, issue := range issues {
		if issue.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", issue.File, issue.Line)
		}
		if issue.Path != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", ErrCodeTopology, issue.Path, issue.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", ErrCodeTopology, issue.Message)
		}
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}
