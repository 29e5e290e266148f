package cli

import (
	"github.com/spf13/cobra"

	"github.com/rotorhq/rotor/internal/config"
	"github.com/rotorhq/rotor/internal/oncall"
	"github.com/rotorhq/rotor/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <definitions.yaml>...",
		Short: "Import rotation definitions into the database",
		Long: `Validate and import rotation definition files.

Rows are upserted by id, so re-importing an edited document updates in
place. Invalid documents are rejected before anything is written.

Example:
  rotor import --db ./rotor.db ./rotations.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runImport(opts *ImportOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	// Validate everything up front; nothing is written if any file fails.
	docs := make([]*config.Document, 0, len(paths))
	for _, path := range paths {
		doc, errs := config.LoadFile(path)
		if len(errs) > 0 {
			if err := formatter.Error("VALIDATION_FAILED", "definition file "+path+" is invalid", errMessages(errs)); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "validation failed")
		}
		docs = append(docs, doc)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer st.Close()

	var total config.ImportStats
	for i, doc := range docs {
		stats, err := config.Import(cmd.Context(), st, doc, oncall.UUIDv7Generator{})
		if err != nil {
			return WrapExitError(ExitCommandError, "importing "+paths[i], err)
		}
		total.Rotations += stats.Rotations
		total.Participants += stats.Participants
		total.Overrides += stats.Overrides
		total.Policies += stats.Policies
		total.GroupMembers += stats.GroupMembers
	}

	return formatter.Success(total)
}

func errMessages(errs []error) []string {
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}
