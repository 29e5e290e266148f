package resolve

import (
	"context"
	"fmt"
	"time"

	"github.com/rotorhq/rotor/internal/oncall"
)

// FollowTheSunStrategy assigns coverage by local daytime windows
// across an ordered list of timezones.
//
// Windows are evaluated in configured order and the first window whose
// local-hour range contains T wins; that ordering is the precedence
// rule for overlapping windows, e.g. around DST transitions. Window
// hours are half-open [start, end) in integer local hours; end == 24
// means local midnight.
//
// Shift boundaries are computed on T's local calendar date in the
// window's zone and converted back to UTC. The UTC offsets of the
// boundaries may differ by an hour across a DST transition; that is
// the schedule behaving as configured, not a bug.
type FollowTheSunStrategy struct{}

// Resolve computes the follow-the-sun shift covering instant at.
func (FollowTheSunStrategy) Resolve(ctx context.Context, rot *oncall.Rotation, participants []oncall.Participant, at time.Time) (*oncall.CurrentOnCall, error) {
	if len(rot.ShiftConfig) == 0 {
		return nil, configInvalid(rot.ID, "follow_the_sun rotation requires shift_config windows", nil)
	}

	active := oncall.ActiveParticipants(participants, at)
	if len(active) == 0 {
		return nil, noActiveParticipants(rot.ID)
	}
	byIdentity := make(map[string]bool, len(active))
	for _, p := range active {
		byIdentity[p.IdentityID] = true
	}

	matchedWindow := false
	for _, w := range rot.ShiftConfig {
		loc, err := time.LoadLocation(w.Timezone)
		if err != nil {
			return nil, configInvalid(rot.ID, fmt.Sprintf("unknown timezone %q in shift_config", w.Timezone), err)
		}

		local := at.In(loc)
		hour := local.Hour()
		if hour < w.ShiftStartHour || hour >= w.ShiftEndHour {
			continue
		}
		matchedWindow = true

		identity := firstActive(w.ParticipantIDs, byIdentity)
		if identity == "" {
			// The window matched but none of its listed identities are
			// eligible right now; a later window may still cover T.
			continue
		}

		y, m, d := local.Date()
		shiftStart := time.Date(y, m, d, w.ShiftStartHour, 0, 0, 0, loc)
		// end == 24 normalizes to midnight of the next local day.
		shiftEnd := time.Date(y, m, d, w.ShiftEndHour, 0, 0, 0, loc)

		return &oncall.CurrentOnCall{
			IdentityID: identity,
			ShiftStart: shiftStart.UTC(),
			ShiftEnd:   shiftEnd.UTC(),
		}, nil
	}

	if matchedWindow {
		return nil, noActiveParticipants(rot.ID)
	}
	// A legitimate coverage gap: no window spans this instant.
	return nil, noCoverageWindow(rot.ID)
}

// firstActive returns the first id in order that is an eligible
// participant identity, or "".
func firstActive(ids []string, eligible map[string]bool) string {
	for _, id := range ids {
		if eligible[id] {
			return id
		}
	}
	return ""
}
