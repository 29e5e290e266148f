package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotorhq/rotor/internal/oncall"
)

const validDoc = `
rotations:
  - id: payments
    scope:
      kind: service
      id: payments-api
    schedule_type: weekly
    rotation_length_days: 7
    rotation_start_date: "2024-01-01"
    participants:
      - identity: alice
        order: 0
      - identity: bob
        order: 1
    overrides:
      - id: ovr-1
        substitute: dana
        start: "2024-01-09T00:00:00Z"
        end: "2024-01-10T00:00:00Z"
        reason: swap
    escalation:
      - level: 1
        type: identity
        target: mallory
groups:
  sre-leads: [erin, frank]
`

func loadErrCodes(t *testing.T, errs []error) []string {
	t.Helper()
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		var le *LoadError
		require.True(t, errors.As(err, &le), "unexpected error type: %v", err)
		out = append(out, le.Code)
	}
	return out
}

func TestLoad_ValidDocument(t *testing.T) {
	doc, errs := Load("test.yaml", []byte(validDoc))
	require.Empty(t, errs)
	require.NotNil(t, doc)

	require.Len(t, doc.Rotations, 1)
	rd := doc.Rotations[0]
	assert.Equal(t, "payments", rd.ID)
	assert.Len(t, rd.Participants, 2)
	assert.Len(t, rd.Overrides, 1)
	assert.Len(t, rd.Escalation, 1)
	assert.Equal(t, []string{"erin", "frank"}, doc.Groups["sre-leads"])
}

func TestLoad_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "unknown rotation field",
			doc: `
rotations:
  - id: r
    scope: {kind: service, id: s}
    schedule_type: manual
    frobnicate: true
`,
		},
		{
			name: "bad schedule type",
			doc: `
rotations:
  - id: r
    scope: {kind: service, id: s}
    schedule_type: quantum
`,
		},
		{
			name: "window hour out of range",
			doc: `
rotations:
  - id: r
    scope: {kind: service, id: s}
    schedule_type: follow_the_sun
    windows:
      - timezone: UTC
        start_hour: 9
        end_hour: 25
        participants: [a]
`,
		},
		{
			name: "escalation level zero",
			doc: `
rotations:
  - id: r
    scope: {kind: service, id: s}
    schedule_type: manual
    escalation:
      - level: 0
        type: identity
        target: a
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := Load("test.yaml", []byte(tt.doc))
			require.NotEmpty(t, errs)
			assert.Contains(t, loadErrCodes(t, errs), ErrCodeSchemaFailed)
		})
	}
}

func TestLoad_NotYAML(t *testing.T) {
	doc, errs := Load("test.yaml", []byte("{{{not yaml"))
	assert.Nil(t, doc)
	require.NotEmpty(t, errs)
	assert.Contains(t, loadErrCodes(t, errs), ErrCodeDecodeFailed)
}

func TestLoad_BadTimestamp(t *testing.T) {
	doc := `
rotations:
  - id: r
    scope: {kind: service, id: s}
    schedule_type: weekly
    rotation_length_days: 7
    rotation_start_date: "January 1st"
`
	_, errs := Load("test.yaml", []byte(doc))
	require.NotEmpty(t, errs)
	assert.Contains(t, loadErrCodes(t, errs), ErrCodeBadTimestamp)
}

func TestLoad_DomainErrorsPassThrough(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		wantCode string
	}{
		{
			name: "malformed cron",
			doc: `
rotations:
  - id: r
    scope: {kind: service, id: s}
    schedule_type: cron
    schedule_cron: "61 9 * * 1"
    rotation_start_date: "2024-01-01"
`,
			wantCode: oncall.ErrMalformedCron,
		},
		{
			name: "duplicate order index",
			doc: `
rotations:
  - id: r
    scope: {kind: service, id: s}
    schedule_type: weekly
    rotation_length_days: 7
    rotation_start_date: "2024-01-01"
    participants:
      - {identity: a, order: 0}
      - {identity: b, order: 0}
`,
			wantCode: oncall.ErrDuplicateOrderIndex,
		},
		{
			name: "inverted override interval",
			doc: `
rotations:
  - id: r
    scope: {kind: service, id: s}
    schedule_type: manual
    overrides:
      - substitute: dana
        start: "2024-01-10T00:00:00Z"
        end: "2024-01-09T00:00:00Z"
`,
			wantCode: oncall.ErrOverrideInterval,
		},
		{
			name: "cron forbids length days",
			doc: `
rotations:
  - id: r
    scope: {kind: service, id: s}
    schedule_type: cron
    schedule_cron: "0 9 * * 1"
    rotation_start_date: "2024-01-01"
    rotation_length_days: 7
`,
			wantCode: oncall.ErrFieldForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := Load("test.yaml", []byte(tt.doc))
			require.NotEmpty(t, errs)
			assert.Contains(t, loadErrCodes(t, errs), tt.wantCode)
		})
	}
}

func TestLoadFile_NotFound(t *testing.T) {
	_, errs := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NotEmpty(t, errs)
	assert.Contains(t, loadErrCodes(t, errs), ErrCodeNotFound)
}

func TestLoadFile_Valid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validDoc), 0o644))

	doc, errs := LoadFile(path)
	require.Empty(t, errs)
	require.NotNil(t, doc)
	assert.Len(t, doc.Rotations, 1)
}

func TestRotationDefModel_IDDerivation(t *testing.T) {
	doc, errs := Load("test.yaml", []byte(validDoc))
	require.Empty(t, errs)

	rot, ps, ovs, policies, convErrs := doc.Rotations[0].Model(oncall.NewFixedIDGenerator("gen-1"))
	require.Empty(t, convErrs)

	assert.Equal(t, "payments", rot.ID)
	assert.Equal(t, oncall.ScheduleWeekly, rot.ScheduleType)
	assert.True(t, rot.IsActive)

	// Participant and policy ids derive from the rotation id so
	// re-imports update in place.
	require.Len(t, ps, 2)
	assert.Equal(t, "payments/alice", ps[0].ID)
	assert.Equal(t, 0, ps[0].OrderIndex)
	require.Len(t, policies, 1)
	assert.Equal(t, "payments/level-1", policies[0].ID)

	// Pinned override ids are kept; the generator is untouched.
	require.Len(t, ovs, 1)
	assert.Equal(t, "ovr-1", ovs[0].ID)
	assert.Equal(t, "gen-1", oncall.NewFixedIDGenerator("gen-1").NewID())
}

func TestRotationDefModel_GeneratedOverrideID(t *testing.T) {
	doc := `
rotations:
  - id: r
    scope: {kind: service, id: s}
    schedule_type: manual
    overrides:
      - substitute: dana
        start: "2024-01-09T00:00:00Z"
        end: "2024-01-10T00:00:00Z"
`
	d, errs := Load("test.yaml", []byte(doc))
	require.Empty(t, errs)

	_, _, ovs, _, convErrs := d.Rotations[0].Model(oncall.NewFixedIDGenerator("gen-1"))
	require.Empty(t, convErrs)
	require.Len(t, ovs, 1)
	assert.Equal(t, "gen-1", ovs[0].ID)
}

func TestParseTimestamp(t *testing.T) {
	date, err := parseTimestamp("2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T00:00:00Z", date.Format("2006-01-02T15:04:05Z07:00"))

	dt, err := parseTimestamp("2024-01-09T15:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-09T13:30:00Z", dt.Format("2006-01-02T15:04:05Z07:00"))

	_, err = parseTimestamp("nope")
	assert.Error(t, err)
}
