package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rotorhq/rotor/internal/resolve"
	"github.com/rotorhq/rotor/internal/store"
)

// ChainOptions holds flags for the chain command.
type ChainOptions struct {
	*RootOptions
	Database string
	Rotation string
	At       string
}

// NewChainCommand creates the chain command.
func NewChainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Expand a rotation's escalation chain",
		Long: `Expand a rotation's escalation policy into concrete notifiable
targets at an instant, ordered by level. Group membership is looked up
live; rotation_participant steps resolve through the full pipeline.

Example:
  rotor chain --db ./rotor.db --rotation payments-primary`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChain(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Rotation, "rotation", "", "rotation id (required)")
	cmd.Flags().StringVar(&opts.At, "at", "", "RFC 3339 instant (default: now)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("rotation")

	return cmd
}

func runChain(opts *ChainOptions, cmd *cobra.Command) error {
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

	steps, rerr := r.EscalationChain(cmd.Context(), opts.Rotation, at)
	if rerr != nil {
		if code := resolve.CodeOf(rerr); code != "" {
			if err := formatter.Error(string(code), rerr.Error(), nil); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "chain expansion failed")
		}
		return WrapExitError(ExitCommandError, "expanding chain", rerr)
	}

	if opts.Format == "json" {
		return formatter.Success(steps)
	}

	var b strings.Builder
	for _, s := range steps {
		fmt.Fprintf(&b, "level %d (+%dm, %s %s): %s",
			s.Level, s.DelayMinutes, s.EscalationType, s.TargetID,
			strings.Join(s.Identities, ", "))
		if len(s.Identities) == 0 {
			b.WriteString("(nobody)")
		}
		if len(s.Channels) > 0 {
			fmt.Fprintf(&b, " via %s", strings.Join(s.Channels, ","))
		}
		b.WriteString("\n")
	}
	return formatter.Success(strings.TrimRight(b.String(), "\n"))
}
