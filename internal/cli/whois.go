package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rotorhq/rotor/internal/oncall"
	"github.com/rotorhq/rotor/internal/resolve"
	"github.com/rotorhq/rotor/internal/store"
)

// WhoisOptions holds flags for the whois command.
type WhoisOptions struct {
	*RootOptions
	Database string
	Rotation string
	At       string
}

// NewWhoisCommand creates the whois command.
func NewWhoisCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WhoisOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "whois",
		Short: "Resolve who is on call for a rotation",
		Long: `Resolve who is on call for a rotation at an instant.

An active override wins over the computed schedule. Manual rotations
report the latest materialized shift covering the instant, if any.

Example:
  rotor whois --db ./rotor.db --rotation payments-primary
  rotor whois --db ./rotor.db --rotation payments-primary --at 2024-01-08T00:00:00Z`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhois(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Rotation, "rotation", "", "rotation id (required)")
	cmd.Flags().StringVar(&opts.At, "at", "", "RFC 3339 instant (default: now)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("rotation")

	return cmd
}

func runWhois(opts *WhoisOptions, cmd *cobra.Command) error {
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

	// Manual rotations compute nothing; fall back to materialized
	// shift history.
	if cur == nil {
		cur = currentFromHistory(cmd, st, opts.Rotation, at)
	}
	if cur == nil {
		if err := formatter.Error("NOBODY_ON_CALL", "no shift covers the queried instant", nil); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "nobody on call")
	}

	if opts.Format == "json" {
		return formatter.Success(cur)
	}
	return formatter.Success(formatWhois(cur, at))
}

func currentFromHistory(cmd *cobra.Command, st *store.Store, rotationID string, at time.Time) *oncall.CurrentOnCall {
	shifts, err := st.Shifts(cmd.Context(), rotationID, 50)
	if err != nil {
		return nil
	}
	for _, sh := range shifts {
		if !at.Before(sh.ShiftStart) && at.Before(sh.ShiftEnd) {
			return &oncall.CurrentOnCall{
				IdentityID: sh.IdentityID,
				ShiftStart: sh.ShiftStart,
				ShiftEnd:   sh.ShiftEnd,
				IsOverride: sh.IsOverride,
			}
		}
	}
	return nil
}

func formatWhois(cur *oncall.CurrentOnCall, at time.Time) string {
	s := fmt.Sprintf("%s is on call at %s (shift %s .. %s)",
		cur.IdentityID,
		at.Format(time.RFC3339),
		cur.ShiftStart.Format(time.RFC3339),
		cur.ShiftEnd.Format(time.RFC3339))
	if cur.IsOverride {
		s += " [override"
		if cur.OverrideReason != "" {
			s += ": " + cur.OverrideReason
		}
		s += "]"
	}
	return s
}

// parseAt parses the --at flag, defaulting to the current instant.
func parseAt(s string) (time.Time, error) {
	if s == "" {
		return resolve.WallClock{}.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("want RFC 3339, got %q", s)
	}
	return t.UTC(), nil
}
