package config

import (
	"context"
	"fmt"

	"github.com/rotorhq/rotor/internal/oncall"
	"github.com/rotorhq/rotor/internal/store"
)

// ImportStats summarizes what an import wrote.
type ImportStats struct {
	Rotations    int `json:"rotations"`
	Participants int `json:"participants"`
	Overrides    int `json:"overrides"`
	Policies     int `json:"policies"`
	GroupMembers int `json:"group_members"`
}

// Import writes a validated document into the store. Writes are
// upserts, so importing the same document twice is a no-op apart from
// overrides without pinned ids, which get fresh generated ids.
func Import(ctx context.Context, st *store.Store, doc *Document, ids oncall.IDGenerator) (ImportStats, error) {
	var stats ImportStats

	for _, rd := range doc.Rotations {
		rot, ps, ovs, policies, errs := rd.Model(ids)
		if len(errs) > 0 {
			return stats, fmt.Errorf("rotation %s: %w", rd.ID, errs[0])
		}

		if err := st.PutRotation(ctx, rot); err != nil {
			return stats, err
		}
		stats.Rotations++

		for _, p := range ps {
			if err := st.PutParticipant(ctx, p); err != nil {
				return stats, err
			}
			stats.Participants++
		}
		for _, o := range ovs {
			if err := st.PutOverride(ctx, o); err != nil {
				return stats, err
			}
			stats.Overrides++
		}
		for _, pol := range policies {
			if err := st.PutEscalationPolicy(ctx, pol); err != nil {
				return stats, err
			}
			stats.Policies++
		}
	}

	for group, members := range doc.Groups {
		for _, identity := range members {
			if err := st.PutGroupMember(ctx, group, identity, true); err != nil {
				return stats, err
			}
			stats.GroupMembers++
		}
	}

	return stats, nil
}
