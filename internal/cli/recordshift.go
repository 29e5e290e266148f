package cli

import (
	"github.com/spf13/cobra"

	"github.com/rotorhq/rotor/internal/oncall"
	"github.com/rotorhq/rotor/internal/resolve"
	"github.com/rotorhq/rotor/internal/store"
)

// RecordShiftOptions holds flags for the record-shift command.
type RecordShiftOptions struct {
	*RootOptions
	Database string
	Rotation string
	At       string
}

// RecordShiftResult reports what was materialized.
type RecordShiftResult struct {
	Recorded bool                 `json:"recorded"`
	Shift    oncall.CurrentOnCall `json:"shift"`
}

// NewRecordShiftCommand creates the record-shift command.
//
// This is the materialization entry point: it resolves the current
// shift and appends it to shift history. The UNIQUE constraint on
// (rotation_id, shift_start) makes concurrent invocations idempotent,
// so it is safe to run from overlapping cron jobs.
func NewRecordShiftCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordShiftOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "record-shift",
		Short: "Materialize the current computed shift into history",
		Args:  cobra.NoArgs,
		Long: `Resolve the shift covering an instant and append it to the
shift history table. Re-running for the same shift is a no-op.

Example:
  rotor record-shift --db ./rotor.db --rotation payments-primary`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecordShift(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Rotation, "rotation", "", "rotation id (required)")
	cmd.Flags().StringVar(&opts.At, "at", "", "RFC 3339 instant (default: now)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("rotation")

	return cmd
}

func runRecordShift(opts *RecordShiftOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer st.Close()

	at, err := parseAt(opts.At)
	if err != nil {
		return WrapExitError(ExitCommandError, "parsing --at", err)
	}

	r := resolve.New(st,
		resolve.WithGroupDirectory(st),
		resolve.WithAnchorCache(st),
	)

	cur, rerr := r.CurrentOnCall(cmd.Context(), opts.Rotation, at)
	if rerr != nil {
		if code := resolve.CodeOf(rerr); code != "" {
			if err := formatter.Error(string(code), rerr.Error(), nil); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "resolution failed")
		}
		return WrapExitError(ExitCommandError, "resolving", rerr)
	}
	if cur == nil {
		if err := formatter.Error("NOBODY_ON_CALL", "manual rotation computes no shift to record", nil); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "nothing to record")
	}

	gen := oncall.UUIDv7Generator{}
	inserted, err := st.RecordShift(cmd.Context(), gen.NewID(), oncall.Shift{
		RotationID: opts.Rotation,
		IdentityID: cur.IdentityID,
		ShiftStart: cur.ShiftStart,
		ShiftEnd:   cur.ShiftEnd,
		IsOverride: cur.IsOverride,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "recording shift", err)
	}

	return formatter.Success(RecordShiftResult{Recorded: inserted, Shift: *cur})
}
