package resolve

import (
	"context"
	"time"

	"github.com/rotorhq/rotor/internal/oncall"
)

// activeOverride selects the override in effect at instant at, if any.
//
// The data model permits overlapping overrides. Precedence is
// deterministic: earliest start_datetime wins, ties broken by lowest
// id. Overlap is surfaced as a data-quality warning, never a failure;
// somebody explicitly asked to be on call, and they are.
func (r *Resolver) activeOverride(ctx context.Context, rotationID string, at time.Time) (*oncall.CurrentOnCall, error) {
	overrides, err := r.src.ActiveOverrides(ctx, rotationID, at)
	if err != nil {
		return nil, err
	}
	if len(overrides) == 0 {
		return nil, nil
	}

	// Pick the minimum explicitly rather than trusting Source ordering;
	// precedence must hold for any implementation of the interface.
	winner := overrides[0]
	for _, o := range overrides[1:] {
		if o.StartDatetime.Before(winner.StartDatetime) ||
			(o.StartDatetime.Equal(winner.StartDatetime) && o.ID < winner.ID) {
			winner = o
		}
	}

	if len(overrides) > 1 {
		ids := make([]string, len(overrides))
		for i, o := range overrides {
			ids[i] = o.ID
		}
		r.log.Warn("multiple overrides active at instant",
			"rotation", rotationID,
			"at", at,
			"override_ids", ids,
			"winner", winner.ID)
	}

	return &oncall.CurrentOnCall{
		IdentityID:     winner.OverrideIdentityID,
		ShiftStart:     winner.StartDatetime,
		ShiftEnd:       winner.EndDatetime,
		IsOverride:     true,
		OverrideReason: winner.Reason,
	}, nil
}
