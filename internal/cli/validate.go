package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/rotorhq/rotor/internal/config"
)

// ValidationResult holds validation results for one definition file.
type ValidationResult struct {
	File   string     `json:"file"`
	Valid  bool       `json:"valid"`
	Errors []CLIError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <definitions.yaml>...",
		Short: "Validate rotation definition files",
		Long: `Validate rotation definition files without importing them.

Documents are checked against the embedded CUE schema first, then the
domain validators: type-specific field pairing, override intervals,
participant order contiguity, cron syntax, timezone names.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	var results []ValidationResult
	failed := false

	for _, path := range paths {
		doc, errs := config.LoadFile(path)
		result := ValidationResult{File: path, Valid: len(errs) == 0}
		for _, err := range errs {
			var le *config.LoadError
			if errors.As(err, &le) {
				result.Errors = append(result.Errors, CLIError{Code: le.Code, Message: le.Message})
			} else {
				result.Errors = append(result.Errors, CLIError{Code: "E000", Message: err.Error()})
			}
		}
		if doc != nil {
			formatter.VerboseLog("%s: %d rotation(s), %d group(s)", path, len(doc.Rotations), len(doc.Groups))
		}
		if !result.Valid {
			failed = true
		}
		results = append(results, result)
	}

	if failed {
		if err := formatter.Error("VALIDATION_FAILED", "one or more definition files are invalid", results); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "validation failed")
	}
	return formatter.Success(results)
}
