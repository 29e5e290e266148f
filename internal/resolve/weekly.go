package resolve

import (
	"context"
	"time"

	"github.com/rotorhq/rotor/internal/oncall"
)

const secondsPerDay = 24 * 60 * 60

// WeeklyStrategy rotates participants every rotation_length_days days,
// anchored at rotation_start_date midnight UTC.
//
// The arithmetic:
//
//	cycle_length_days = active_participants * rotation_length_days
//	elapsed_days      = floor_days(T - epoch)
//	position          = floor_mod(elapsed_days, cycle_length_days)
//	participant_index = position / rotation_length_days
//	shift_start       = epoch + (elapsed_days - floor_mod(elapsed_days, rotation_length_days)) days
//	shift_end         = shift_start + rotation_length_days days
//
// Floor-mod keeps position non-negative for any dividend sign, so the
// math stays total even for instants before the epoch. Queries before
// the epoch are still rejected with NOT_YET_STARTED: a typed error is
// distinguishable, a silently extrapolated participant is not.
type WeeklyStrategy struct{}

// Resolve computes the weekly shift covering instant at.
func (WeeklyStrategy) Resolve(ctx context.Context, rot *oncall.Rotation, participants []oncall.Participant, at time.Time) (*oncall.CurrentOnCall, error) {
	if rot.RotationStartDate.IsZero() || rot.RotationLengthDays < 1 {
		return nil, configInvalid(rot.ID, "weekly rotation requires rotation_start_date and rotation_length_days >= 1", nil)
	}

	active := oncall.ActiveParticipants(participants, at)
	if len(active) == 0 {
		return nil, noActiveParticipants(rot.ID)
	}

	epoch := rot.Epoch()
	if at.Before(epoch) {
		return nil, notYetStarted(rot.ID)
	}

	length := int64(rot.RotationLengthDays)
	cycle := int64(len(active)) * length

	elapsed := floorDiv(at.Unix()-epoch.Unix(), secondsPerDay)
	position := floorMod(elapsed, cycle)
	index := position / length

	startOffset := elapsed - floorMod(elapsed, length)
	shiftStart := epoch.AddDate(0, 0, int(startOffset))
	shiftEnd := shiftStart.AddDate(0, 0, rot.RotationLengthDays)

	return &oncall.CurrentOnCall{
		IdentityID: active[index].IdentityID,
		ShiftStart: shiftStart,
		ShiftEnd:   shiftEnd,
	}, nil
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// floorMod returns a modulo that is non-negative for positive b,
// regardless of a's sign.
func floorMod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
