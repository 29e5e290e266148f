package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotorhq/rotor/internal/oncall"
	"github.com/rotorhq/rotor/internal/store"
)

func newImportStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestImport_WritesDocument(t *testing.T) {
	ctx := context.Background()
	st := newImportStore(t)

	doc, errs := Load("test.yaml", []byte(validDoc))
	require.Empty(t, errs)

	stats, err := Import(ctx, st, doc, oncall.UUIDv7Generator{})
	require.NoError(t, err)
	assert.Equal(t, ImportStats{
		Rotations:    1,
		Participants: 2,
		Overrides:    1,
		Policies:     1,
		GroupMembers: 2,
	}, stats)

	rot, err := st.Rotation(ctx, "payments")
	require.NoError(t, err)
	require.NotNil(t, rot)
	assert.Equal(t, oncall.ScheduleWeekly, rot.ScheduleType)
	assert.Equal(t, 7, rot.RotationLengthDays)

	ps, err := st.Participants(ctx, "payments")
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, "alice", ps[0].IdentityID)
	assert.Equal(t, "bob", ps[1].IdentityID)

	ovs, err := st.ActiveOverrides(ctx, "payments", time.Date(2024, 1, 9, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, ovs, 1)
	assert.Equal(t, "ovr-1", ovs[0].ID)
	assert.Equal(t, "dana", ovs[0].OverrideIdentityID)

	policies, err := st.EscalationPolicies(ctx, "payments")
	require.NoError(t, err)
	require.Len(t, policies, 1)
	assert.Equal(t, "payments/level-1", policies[0].ID)

	members, err := st.ActiveMembers(ctx, "sre-leads")
	require.NoError(t, err)
	assert.Equal(t, []string{"erin", "frank"}, members)
}

func TestImport_ReImportIsUpsert(t *testing.T) {
	ctx := context.Background()
	st := newImportStore(t)

	doc, errs := Load("test.yaml", []byte(validDoc))
	require.Empty(t, errs)

	first, err := Import(ctx, st, doc, oncall.UUIDv7Generator{})
	require.NoError(t, err)
	second, err := Import(ctx, st, doc, oncall.UUIDv7Generator{})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	ids, err := st.RotationIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"payments"}, ids)

	ps, err := st.Participants(ctx, "payments")
	require.NoError(t, err)
	assert.Len(t, ps, 2)
}

func TestImport_ConversionErrorAborts(t *testing.T) {
	ctx := context.Background()
	st := newImportStore(t)

	doc := &Document{
		Rotations: []RotationDef{{
			ID:                "broken",
			ScheduleType:      "weekly",
			RotationStartDate: "not a date",
		}},
	}

	_, err := Import(ctx, st, doc, oncall.UUIDv7Generator{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	ids, err := st.RotationIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
