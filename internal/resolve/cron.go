package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rotorhq/rotor/internal/oncall"
)

// maxCronIterations bounds a single resolution's occurrence walk.
// A year of minutely handoffs is ~525600 occurrences; anything past
// this is a pathological expression/epoch combination, reported as
// broken configuration instead of spinning.
const maxCronIterations = 1_000_000

// CronStrategy hands off at each occurrence of the rotation's 5-field
// cron expression, anchored at rotation_start_date midnight UTC.
//
// The participant index is handoff_count mod participant_count, where
// handoff_count is the number of occurrences o with epoch < o <= T.
// The shift covering T runs from the last occurrence at or before T
// (or the epoch when none has fired yet) to the next occurrence.
//
// A naive replay from the epoch is O(occurrences-since-epoch) and
// degrades for long-lived, frequent rotations. When an AnchorCache is
// wired, iteration resumes from the last persisted (count, time)
// checkpoint and the walk is amortized O(new-occurrences-since-last-
// call). The strategy itself stays stateless; the anchor lives in the
// cache keyed per rotation.
type CronStrategy struct {
	// Anchors is the optional checkpoint cache. Nil means full replay.
	Anchors AnchorCache

	// Log receives anchor read/write problems, which are downgraded to
	// warnings: the anchor is an optimization, never a correctness
	// dependency.
	Log *slog.Logger
}

// Resolve computes the cron shift covering instant at.
func (s CronStrategy) Resolve(ctx context.Context, rot *oncall.Rotation, participants []oncall.Participant, at time.Time) (*oncall.CurrentOnCall, error) {
	if rot.RotationStartDate.IsZero() {
		return nil, configInvalid(rot.ID, "cron rotation requires rotation_start_date", nil)
	}

	sched, err := oncall.ParseCron(rot.ScheduleCron)
	if err != nil {
		return nil, configInvalid(rot.ID, fmt.Sprintf("malformed cron expression %q", rot.ScheduleCron), err)
	}

	active := oncall.ActiveParticipants(participants, at)
	if len(active) == 0 {
		return nil, noActiveParticipants(rot.ID)
	}

	epoch := rot.Epoch()
	if at.Before(epoch) {
		return nil, notYetStarted(rot.ID)
	}

	// Resume from the anchor when it is usable: same expression, not
	// ahead of the query, not older than the epoch.
	count := int64(0)
	cursor := epoch
	if s.Anchors != nil {
		anchor, aerr := s.Anchors.Anchor(ctx, rot.ID)
		switch {
		case aerr != nil:
			s.logger().Warn("cron anchor read failed, replaying from epoch",
				"rotation", rot.ID, "error", aerr)
		case anchor == nil:
		case anchor.Expression != rot.ScheduleCron:
			// Expression changed since the anchor was written; the
			// occurrence numbering no longer lines up.
		case anchor.HandoffTime.After(at) || anchor.HandoffTime.Before(epoch):
		default:
			count = anchor.HandoffCount
			cursor = anchor.HandoffTime
		}
	}

	// Walk occurrences up to and including at. Occurrences are strictly
	// increasing, so the loop advances every iteration.
	advanced := false
	for i := 0; ; i++ {
		if i >= maxCronIterations {
			return nil, configInvalid(rot.ID,
				fmt.Sprintf("cron expression %q produced more than %d occurrences in one resolution", rot.ScheduleCron, maxCronIterations), nil)
		}
		next := sched.Next(cursor)
		if next.IsZero() || next.After(at) {
			break
		}
		count++
		cursor = next
		advanced = true
	}

	shiftStart := epoch
	if count > 0 {
		shiftStart = cursor
	}
	shiftEnd := sched.Next(shiftStart)
	if shiftEnd.IsZero() {
		return nil, configInvalid(rot.ID,
			fmt.Sprintf("cron expression %q has no occurrence after %s", rot.ScheduleCron, shiftStart.Format(time.RFC3339)), nil)
	}

	if s.Anchors != nil && advanced {
		anchor := oncall.ShiftAnchor{
			RotationID:   rot.ID,
			Expression:   rot.ScheduleCron,
			HandoffCount: count,
			HandoffTime:  cursor,
		}
		if aerr := s.Anchors.SaveAnchor(ctx, anchor); aerr != nil {
			s.logger().Warn("cron anchor write failed",
				"rotation", rot.ID, "error", aerr)
		}
	}

	index := count % int64(len(active))

	return &oncall.CurrentOnCall{
		IdentityID: active[index].IdentityID,
		ShiftStart: shiftStart,
		ShiftEnd:   shiftEnd,
	}, nil
}

func (s CronStrategy) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
