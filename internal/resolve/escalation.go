package resolve

import (
	"context"
	"time"

	"github.com/rotorhq/rotor/internal/oncall"
)

// EscalationStep is one expanded level of a rotation's fallback chain:
// the concrete identities to notify, plus the delay and channels the
// external notifier uses to schedule the next level.
type EscalationStep struct {
	Level          int                   `json:"level"`
	EscalationType oncall.EscalationType `json:"escalation_type"`
	TargetID       string                `json:"target_id"`
	DelayMinutes   int                   `json:"delay_minutes"`
	Channels       []string              `json:"channels,omitempty"`

	// Identities are the notifiable targets this step resolved to.
	// Empty when the target produced nobody (e.g. an empty group).
	Identities []string `json:"identities"`
}

// EscalationChain expands rotationID's escalation policy into concrete
// notifiable targets at instant at, ordered ascending by level.
//
// Step targets resolve per type: identity directly, group via live
// membership lookup, rotation_participant through the full resolution
// pipeline of the referenced rotation. Delegation is bounded by the
// resolver's max depth; exceeding it returns RECURSION_LIMIT_EXCEEDED,
// since nothing in the data model forbids cyclic references.
func (r *Resolver) EscalationChain(ctx context.Context, rotationID string, at time.Time) ([]EscalationStep, error) {
	return r.expandChain(ctx, rotationID, at.UTC(), 0)
}

func (r *Resolver) expandChain(ctx context.Context, rotationID string, at time.Time, depth int) ([]EscalationStep, error) {
	policies, err := r.src.EscalationPolicies(ctx, rotationID)
	if err != nil {
		return nil, err
	}

	steps := make([]EscalationStep, 0, len(policies))
	for _, p := range policies {
		identities, err := r.resolveTarget(ctx, p, at, depth)
		if err != nil {
			return nil, err
		}
		steps = append(steps, EscalationStep{
			Level:          p.Level,
			EscalationType: p.EscalationType,
			TargetID:       p.TargetID,
			DelayMinutes:   p.EscalationDelayMinutes,
			Channels:       p.NotificationChannels,
			Identities:     identities,
		})
	}
	return steps, nil
}

func (r *Resolver) resolveTarget(ctx context.Context, p oncall.EscalationPolicy, at time.Time, depth int) ([]string, error) {
	switch p.EscalationType {
	case oncall.EscalateIdentity:
		return []string{p.TargetID}, nil

	case oncall.EscalateGroup:
		if r.groups == nil {
			return nil, configInvalid(p.RotationID, "group escalation configured but no group directory wired", nil)
		}
		// Live lookup: membership edits take effect on the next
		// resolution, nothing is cached.
		return r.groups.ActiveMembers(ctx, p.TargetID)

	case oncall.EscalateRotationParticipant:
		return r.resolveDelegate(ctx, p.RotationID, p.TargetID, at, depth)

	default:
		return nil, configInvalid(p.RotationID, "unknown escalation type "+string(p.EscalationType), nil)
	}
}

// resolveDelegate resolves a rotation_participant step: whoever the
// full pipeline currently reports as on call for the referenced
// rotation. When that rotation has nobody scheduled (manual rotations,
// coverage gaps, not yet started), delegation falls through to the
// referenced rotation's own escalation chain, which is where cycles
// arise; depth bounds the hops.
func (r *Resolver) resolveDelegate(ctx context.Context, fromRotation, targetRotation string, at time.Time, depth int) ([]string, error) {
	if depth >= r.maxDepth {
		return nil, recursionLimit(fromRotation, r.maxDepth)
	}

	cur, err := r.CurrentOnCall(ctx, targetRotation, at)
	if err != nil {
		switch CodeOf(err) {
		case ErrCodeNoCoverageWindow, ErrCodeNotYetStarted, ErrCodeNoActiveParticipants:
			// Nobody computed for the delegate; fall through to its
			// own chain below.
		default:
			return nil, err
		}
	}
	if cur != nil {
		return []string{cur.IdentityID}, nil
	}

	steps, err := r.expandChain(ctx, targetRotation, at, depth+1)
	if err != nil {
		return nil, err
	}
	for _, s := range steps {
		if len(s.Identities) > 0 {
			return s.Identities, nil
		}
	}
	return nil, nil
}
