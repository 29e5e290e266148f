package oncall

import (
	"sort"
	"time"
)

// ScheduleType selects the strategy used to compute the current shift.
type ScheduleType string

const (
	// ScheduleWeekly rotates participants every RotationLengthDays days,
	// anchored at RotationStartDate midnight UTC.
	ScheduleWeekly ScheduleType = "weekly"

	// ScheduleCron hands off at each occurrence of ScheduleCron's
	// 5-field cron expression, anchored at RotationStartDate.
	ScheduleCron ScheduleType = "cron"

	// ScheduleManual has no computed schedule. Shifts are recorded by an
	// external pipeline and read back from shift history.
	ScheduleManual ScheduleType = "manual"

	// ScheduleFollowTheSun assigns coverage by local daytime windows
	// across an ordered list of timezones.
	ScheduleFollowTheSun ScheduleType = "follow_the_sun"
)

// ScopeKind identifies what a rotation is attached to.
type ScopeKind string

const (
	ScopeOrganization ScopeKind = "organization"
	ScopeService      ScopeKind = "service"
)

// Scope attaches a rotation to an organization or a service.
type Scope struct {
	Kind ScopeKind `json:"kind" yaml:"kind"`
	ID   string    `json:"id" yaml:"id"`
}

// TimezoneWindow is one entry of a follow-the-sun shift configuration.
//
// The local-hour window is half-open [ShiftStartHour, ShiftEndHour);
// ShiftEndHour == 24 means the window runs to local midnight. Entries
// are evaluated in configured order and the first matching window wins,
// which is the precedence rule for overlapping windows (e.g. around DST
// transitions).
type TimezoneWindow struct {
	Timezone       string   `json:"timezone" yaml:"timezone"`
	ShiftStartHour int      `json:"shift_start_hour" yaml:"start_hour"`
	ShiftEndHour   int      `json:"shift_end_hour" yaml:"end_hour"`
	ParticipantIDs []string `json:"participant_ids" yaml:"participants"`
}

// Rotation is an on-call schedule configuration.
//
// Which type-specific fields are populated must match ScheduleType;
// Validate enforces this. Rotations are never hard-deleted, only
// deactivated via IsActive.
type Rotation struct {
	ID           string       `json:"id"`
	Scope        Scope        `json:"scope"`
	ScheduleType ScheduleType `json:"schedule_type"`

	// Weekly and cron rotations. RotationStartDate is interpreted as
	// midnight UTC of that date.
	RotationLengthDays int       `json:"rotation_length_days,omitempty"`
	RotationStartDate  time.Time `json:"rotation_start_date,omitempty"`

	// Cron rotations only: a standard 5-field cron expression.
	ScheduleCron string `json:"schedule_cron,omitempty"`

	// Follow-the-sun rotations only: ordered timezone windows.
	ShiftConfig []TimezoneWindow `json:"shift_config,omitempty"`

	IsActive bool `json:"is_active"`
}

// Participant holds a numbered slot in a rotation's sequence.
//
// OrderIndex defines the handoff order for weekly and cron rotations.
// The optional StartDate/EndDate window bounds when the participant is
// eligible; EndDate is exclusive.
type Participant struct {
	ID         string     `json:"id"`
	RotationID string     `json:"rotation_id"`
	IdentityID string     `json:"identity_id"`
	OrderIndex int        `json:"order_index"`
	IsActive   bool       `json:"is_active"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
}

// Override is a manually created, time-bounded substitution. The
// interval is half-open: [StartDatetime, EndDatetime). An active
// override always takes precedence over the computed schedule.
type Override struct {
	ID                 string    `json:"id"`
	RotationID         string    `json:"rotation_id"`
	OriginalIdentityID string    `json:"original_identity_id,omitempty"`
	OverrideIdentityID string    `json:"override_identity_id"`
	StartDatetime      time.Time `json:"start_datetime"`
	EndDatetime        time.Time `json:"end_datetime"`
	Reason             string    `json:"reason,omitempty"`
}

// Covers reports whether the override is active at instant t.
func (o Override) Covers(t time.Time) bool {
	return !t.Before(o.StartDatetime) && t.Before(o.EndDatetime)
}

// EscalationType identifies what an escalation step targets.
type EscalationType string

const (
	// EscalateIdentity targets a single identity directly.
	EscalateIdentity EscalationType = "identity"

	// EscalateGroup expands to all currently-active members of an
	// identity group, looked up live at resolution time.
	EscalateGroup EscalationType = "group"

	// EscalateRotationParticipant targets whoever is currently on call
	// for another rotation, resolved through the full pipeline.
	EscalateRotationParticipant EscalationType = "rotation_participant"
)

// EscalationPolicy is one step of a rotation's ordered fallback chain.
// Levels are unique and ascending within a rotation.
type EscalationPolicy struct {
	ID                     string         `json:"id"`
	RotationID             string         `json:"rotation_id"`
	Level                  int            `json:"level"`
	EscalationType         EscalationType `json:"escalation_type"`
	TargetID               string         `json:"target_id"`
	EscalationDelayMinutes int            `json:"escalation_delay_minutes"`
	NotificationChannels   []string       `json:"notification_channels,omitempty"`
}

// Shift is a concrete materialized assignment. Rows are written once by
// the shift-recording pipeline and never mutated after close.
type Shift struct {
	RotationID       string    `json:"rotation_id"`
	IdentityID       string    `json:"identity_id"`
	ShiftStart       time.Time `json:"shift_start"`
	ShiftEnd         time.Time `json:"shift_end"`
	IsOverride       bool      `json:"is_override"`
	OverrideID       string    `json:"override_id,omitempty"`
	AlertsReceived   int       `json:"alerts_received"`
	IncidentsCreated int       `json:"incidents_created"`
}

// CurrentOnCall is the ephemeral answer to "who is on call at T".
// It is computed, never persisted.
type CurrentOnCall struct {
	IdentityID     string    `json:"identity_id"`
	ShiftStart     time.Time `json:"shift_start"`
	ShiftEnd       time.Time `json:"shift_end"`
	IsOverride     bool      `json:"is_override"`
	OverrideReason string    `json:"override_reason,omitempty"`
}

// ShiftAnchor is the persisted cron iteration checkpoint for one
// rotation: the HandoffCount-th occurrence of Expression after the
// rotation epoch happened at HandoffTime. The next resolution resumes
// iterating from here instead of replaying from the epoch.
//
// The anchor is a pure optimization. Resolution is correct without it;
// a missing or stale anchor only costs extra iteration.
type ShiftAnchor struct {
	RotationID   string    `json:"rotation_id"`
	Expression   string    `json:"expression"`
	HandoffCount int64     `json:"handoff_count"`
	HandoffTime  time.Time `json:"handoff_time"`
}

// Epoch returns the rotation's schedule epoch: midnight UTC on
// RotationStartDate's calendar date.
func (r *Rotation) Epoch() time.Time {
	d := r.RotationStartDate.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// ActiveParticipants filters participants eligible at instant t and
// returns them sorted by OrderIndex. A participant is eligible when it
// is active and t falls inside its optional [StartDate, EndDate) window.
func ActiveParticipants(ps []Participant, t time.Time) []Participant {
	var out []Participant
	for _, p := range ps {
		if !p.IsActive {
			continue
		}
		if p.StartDate != nil && t.Before(*p.StartDate) {
			continue
		}
		if p.EndDate != nil && !t.Before(*p.EndDate) {
			continue
		}
		out = append(out, p)
	}
	// Order by OrderIndex, then ID as a deterministic tie-break for
	// malformed data with duplicate indexes.
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}
