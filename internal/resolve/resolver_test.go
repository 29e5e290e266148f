package resolve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotorhq/rotor/internal/oncall"
	"github.com/rotorhq/rotor/internal/testutil"
)

func TestResolver_UnknownRotation(t *testing.T) {
	r := New(testutil.NewFixture())

	cur, err := r.CurrentOnCall(context.Background(), "nope", testutil.MustParse("2024-01-01T00:00:00Z"))
	assert.Nil(t, cur)
	require.Error(t, err)
	assert.Equal(t, ErrCodeRotationNotFound, CodeOf(err))
}

func TestResolver_DeactivatedRotation(t *testing.T) {
	f := testutil.NewFixture()
	rot := testutil.Weekly("payments", testutil.MustParse("2024-01-01T00:00:00Z"), 7)
	rot.IsActive = false
	f.AddRotation(rot, "alice")
	r := New(f)

	_, err := r.CurrentOnCall(context.Background(), "payments", testutil.MustParse("2024-01-02T00:00:00Z"))
	require.Error(t, err)
	assert.Equal(t, ErrCodeRotationNotFound, CodeOf(err))
}

func TestResolver_UnknownScheduleType(t *testing.T) {
	f := testutil.NewFixture()
	f.AddRotation(oncall.Rotation{
		ID:           "weird",
		Scope:        oncall.Scope{Kind: oncall.ScopeService, ID: "weird"},
		ScheduleType: "quantum",
		IsActive:     true,
	}, "alice")
	r := New(f)

	_, err := r.CurrentOnCall(context.Background(), "weird", testutil.MustParse("2024-01-02T00:00:00Z"))
	require.Error(t, err)
	assert.True(t, IsConfigurationInvalid(err))
}

func TestResolver_ManualComputesNothing(t *testing.T) {
	f := testutil.NewFixture()
	f.AddRotation(testutil.Manual("ic"), "iris")
	r := New(f)

	cur, err := r.CurrentOnCall(context.Background(), "ic", testutil.MustParse("2024-01-02T00:00:00Z"))
	require.NoError(t, err)
	assert.Nil(t, cur)
}

func TestResolver_CurrentOnCallNowUsesClock(t *testing.T) {
	f := testutil.NewFixture()
	f.AddRotation(
		testutil.Weekly("payments", testutil.MustParse("2024-01-01T00:00:00Z"), 7),
		"alice", "bob",
	)
	clock := testutil.NewFixedClock(testutil.MustParse("2024-01-08T12:00:00Z"))
	r := New(f, WithClock(clock))
	ctx := context.Background()

	cur, err := r.CurrentOnCallNow(ctx, "payments")
	require.NoError(t, err)
	assert.Equal(t, "bob", cur.IdentityID)

	clock.Advance(7 * 24 * time.Hour)
	cur, err = r.CurrentOnCallNow(ctx, "payments")
	require.NoError(t, err)
	assert.Equal(t, "alice", cur.IdentityID)
}

func TestResolver_QueryInstantNormalizedToUTC(t *testing.T) {
	f := testutil.NewFixture()
	f.AddRotation(
		testutil.Weekly("payments", testutil.MustParse("2024-01-01T00:00:00Z"), 7),
		"alice", "bob",
	)
	r := New(f)

	// 2024-01-08T09:00+09:00 is 2024-01-08T00:00Z, the handoff instant.
	at := testutil.MustParse("2024-01-08T09:00:00+09:00")
	cur, err := r.CurrentOnCall(context.Background(), "payments", at)
	require.NoError(t, err)
	assert.Equal(t, "bob", cur.IdentityID)
}
