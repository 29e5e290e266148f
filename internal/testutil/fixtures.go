package testutil

import (
	"context"
	"time"

	"github.com/rotorhq/rotor/internal/oncall"
)

// Fixture implements the resolve source interfaces over in-memory
// slices, so strategy and resolver tests need no database.
type Fixture struct {
	Rotations map[string]*oncall.Rotation
	Parts     map[string][]oncall.Participant
	Ovrs      map[string][]oncall.Override
	Policies  map[string][]oncall.EscalationPolicy
	Members   map[string][]string
	Anchors   map[string]*oncall.ShiftAnchor

	// AnchorSaves counts SaveAnchor calls, for asserting that anchored
	// resolution actually checkpoints.
	AnchorSaves int
}

// NewFixture creates an empty fixture.
func NewFixture() *Fixture {
	return &Fixture{
		Rotations: make(map[string]*oncall.Rotation),
		Parts:     make(map[string][]oncall.Participant),
		Ovrs:      make(map[string][]oncall.Override),
		Policies:  make(map[string][]oncall.EscalationPolicy),
		Members:   make(map[string][]string),
		Anchors:   make(map[string]*oncall.ShiftAnchor),
	}
}

// AddRotation registers a rotation with its participants.
func (f *Fixture) AddRotation(rot oncall.Rotation, identities ...string) *Fixture {
	f.Rotations[rot.ID] = &rot
	for i, id := range identities {
		f.Parts[rot.ID] = append(f.Parts[rot.ID], oncall.Participant{
			ID:         rot.ID + "/" + id,
			RotationID: rot.ID,
			IdentityID: id,
			OrderIndex: i,
			IsActive:   true,
		})
	}
	return f
}

// AddOverride registers an override.
func (f *Fixture) AddOverride(o oncall.Override) *Fixture {
	f.Ovrs[o.RotationID] = append(f.Ovrs[o.RotationID], o)
	return f
}

// AddPolicy registers an escalation step.
func (f *Fixture) AddPolicy(p oncall.EscalationPolicy) *Fixture {
	f.Policies[p.RotationID] = append(f.Policies[p.RotationID], p)
	return f
}

// Rotation implements resolve.Source.
func (f *Fixture) Rotation(ctx context.Context, id string) (*oncall.Rotation, error) {
	return f.Rotations[id], nil
}

// Participants implements resolve.Source.
func (f *Fixture) Participants(ctx context.Context, rotationID string) ([]oncall.Participant, error) {
	return f.Parts[rotationID], nil
}

// ActiveOverrides implements resolve.Source.
func (f *Fixture) ActiveOverrides(ctx context.Context, rotationID string, at time.Time) ([]oncall.Override, error) {
	var out []oncall.Override
	for _, o := range f.Ovrs[rotationID] {
		if o.Covers(at) {
			out = append(out, o)
		}
	}
	return out, nil
}

// EscalationPolicies implements resolve.Source.
func (f *Fixture) EscalationPolicies(ctx context.Context, rotationID string) ([]oncall.EscalationPolicy, error) {
	return f.Policies[rotationID], nil
}

// ActiveMembers implements resolve.GroupDirectory.
func (f *Fixture) ActiveMembers(ctx context.Context, groupID string) ([]string, error) {
	return f.Members[groupID], nil
}

// Anchor implements resolve.AnchorCache.
func (f *Fixture) Anchor(ctx context.Context, rotationID string) (*oncall.ShiftAnchor, error) {
	return f.Anchors[rotationID], nil
}

// SaveAnchor implements resolve.AnchorCache.
func (f *Fixture) SaveAnchor(ctx context.Context, a oncall.ShiftAnchor) error {
	f.Anchors[a.RotationID] = &a
	f.AnchorSaves++
	return nil
}

// Weekly builds a weekly rotation fixture row.
func Weekly(id string, start time.Time, lengthDays int) oncall.Rotation {
	return oncall.Rotation{
		ID:                 id,
		Scope:              oncall.Scope{Kind: oncall.ScopeService, ID: id},
		ScheduleType:       oncall.ScheduleWeekly,
		RotationLengthDays: lengthDays,
		RotationStartDate:  start,
		IsActive:           true,
	}
}

// Cron builds a cron rotation fixture row.
func Cron(id, expr string, start time.Time) oncall.Rotation {
	return oncall.Rotation{
		ID:                id,
		Scope:             oncall.Scope{Kind: oncall.ScopeService, ID: id},
		ScheduleType:      oncall.ScheduleCron,
		ScheduleCron:      expr,
		RotationStartDate: start,
		IsActive:          true,
	}
}

// FollowTheSun builds a follow-the-sun rotation fixture row.
func FollowTheSun(id string, windows ...oncall.TimezoneWindow) oncall.Rotation {
	return oncall.Rotation{
		ID:           id,
		Scope:        oncall.Scope{Kind: oncall.ScopeService, ID: id},
		ScheduleType: oncall.ScheduleFollowTheSun,
		ShiftConfig:  windows,
		IsActive:     true,
	}
}

// Manual builds a manual rotation fixture row.
func Manual(id string) oncall.Rotation {
	return oncall.Rotation{
		ID:           id,
		Scope:        oncall.Scope{Kind: oncall.ScopeService, ID: id},
		ScheduleType: oncall.ScheduleManual,
		IsActive:     true,
	}
}
