package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rotorhq/rotor/internal/store"
)

// ShiftsOptions holds flags for the shifts command.
type ShiftsOptions struct {
	*RootOptions
	Database string
	Rotation string
	Limit    int
}

// NewShiftsCommand creates the shifts command.
func NewShiftsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShiftsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "shifts",
		Short: "List materialized shift history for a rotation",
		Long: `List a rotation's materialized shift history, newest first.

Only shifts recorded via record-shift (or an external materializer)
appear here; computed schedules are not materialized implicitly.

Example:
  rotor shifts --db ./rotor.db --rotation payments-primary --limit 10`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShifts(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Rotation, "rotation", "", "rotation id (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of shifts to list")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("rotation")

	return cmd
}

func runShifts(opts *ShiftsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer st.Close()

	shifts, err := st.Shifts(cmd.Context(), opts.Rotation, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading shift history", err)
	}

	if opts.Format == "json" {
		return formatter.Success(shifts)
	}

	if len(shifts) == 0 {
		return formatter.Success("no shifts recorded")
	}
	var b strings.Builder
	for _, sh := range shifts {
		fmt.Fprintf(&b, "%s  %s .. %s",
			sh.IdentityID,
			sh.ShiftStart.Format(time.RFC3339),
			sh.ShiftEnd.Format(time.RFC3339))
		if sh.IsOverride {
			b.WriteString("  [override]")
		}
		b.WriteString("\n")
	}
	return formatter.Success(strings.TrimRight(b.String(), "\n"))
}
