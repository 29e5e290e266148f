package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotorhq/rotor/internal/oncall"
	"github.com/rotorhq/rotor/internal/store"
)

const cliDefs = `
rotations:
  - id: payments
    scope:
      kind: service
      id: payments-api
    schedule_type: weekly
    rotation_length_days: 7
    rotation_start_date: "2024-01-01"
    participants:
      - {identity: alice, order: 0}
      - {identity: bob, order: 1}
    overrides:
      - id: ovr-1
        original: bob
        substitute: dana
        start: "2024-01-09T00:00:00Z"
        end: "2024-01-10T00:00:00Z"
        reason: swap
    escalation:
      - level: 1
        type: identity
        target: mallory
      - level: 2
        type: group
        target: sre-leads
        delay_minutes: 15
        channels: [page, slack]
  - id: incident
    scope:
      kind: organization
      id: acme
    schedule_type: manual
groups:
  sre-leads: [erin, frank]
`

// runCLI executes the root command with args and captures stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeDefs(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "defs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// importedDB imports cliDefs into a fresh database and returns its path.
func importedDB(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "rotor.db")
	_, err := runCLI(t, "import", "--db", db, writeDefs(t, cliDefs))
	require.NoError(t, err)
	return db
}

func TestValidate_ValidFile(t *testing.T) {
	out, err := runCLI(t, "validate", writeDefs(t, cliDefs))
	require.NoError(t, err)
	assert.Contains(t, out, "defs.yaml")
}

func TestValidate_InvalidFile(t *testing.T) {
	bad := `
rotations:
  - id: r
    scope: {kind: service, id: s}
    schedule_type: cron
    schedule_cron: "not a cron"
    rotation_start_date: "2024-01-01"
`
	out, err := runCLI(t, "validate", writeDefs(t, bad))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "VALIDATION_FAILED")
}

func TestValidate_MissingFile(t *testing.T) {
	_, err := runCLI(t, "validate", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestValidate_JSONOutput(t *testing.T) {
	out, err := runCLI(t, "--format", "json", "validate", writeDefs(t, cliDefs))
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestImport_RejectsInvalidBeforeWriting(t *testing.T) {
	db := filepath.Join(t.TempDir(), "rotor.db")
	bad := writeDefs(t, "rotations:\n  - id: r\n    scope: {kind: service, id: s}\n    schedule_type: quantum\n")

	out, err := runCLI(t, "import", "--db", db, bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "VALIDATION_FAILED")
}

func TestImport_JSONStats(t *testing.T) {
	db := filepath.Join(t.TempDir(), "rotor.db")
	out, err := runCLI(t, "--format", "json", "import", "--db", db, writeDefs(t, cliDefs))
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), data["rotations"])
	assert.Equal(t, float64(2), data["participants"])
	assert.Equal(t, float64(2), data["group_members"])
}

func TestWhois_ComputedShift(t *testing.T) {
	db := importedDB(t)

	out, err := runCLI(t, "whois", "--db", db, "--rotation", "payments", "--at", "2024-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "alice is on call")

	out, err = runCLI(t, "whois", "--db", db, "--rotation", "payments", "--at", "2024-01-08T12:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "bob is on call")
}

func TestWhois_OverrideWins(t *testing.T) {
	db := importedDB(t)

	out, err := runCLI(t, "whois", "--db", db, "--rotation", "payments", "--at", "2024-01-09T12:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "dana is on call")
	assert.Contains(t, out, "[override: swap]")
}

func TestWhois_JSONOutput(t *testing.T) {
	db := importedDB(t)

	out, err := runCLI(t, "--format", "json", "whois", "--db", db, "--rotation", "payments", "--at", "2024-01-01T00:00:00Z")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "alice", data["identity_id"])
	assert.Equal(t, "2024-01-01T00:00:00Z", data["shift_start"])
}

func TestWhois_NotYetStarted(t *testing.T) {
	db := importedDB(t)

	out, err := runCLI(t, "whois", "--db", db, "--rotation", "payments", "--at", "2023-12-25T00:00:00Z")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "NOT_YET_STARTED")
}

func TestWhois_UnknownRotation(t *testing.T) {
	db := importedDB(t)

	out, err := runCLI(t, "whois", "--db", db, "--rotation", "nope", "--at", "2024-01-01T00:00:00Z")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "ROTATION_NOT_FOUND")
}

func TestWhois_BadAtFlag(t *testing.T) {
	db := importedDB(t)

	_, err := runCLI(t, "whois", "--db", db, "--rotation", "payments", "--at", "yesterday")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestWhois_ManualFallsBackToHistory(t *testing.T) {
	db := importedDB(t)

	// Nothing materialized yet.
	out, err := runCLI(t, "whois", "--db", db, "--rotation", "incident", "--at", "2024-03-01T12:00:00Z")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "NOBODY_ON_CALL")

	st, err := store.Open(db)
	require.NoError(t, err)
	_, err = st.RecordShift(context.Background(), "shift-1", oncall.Shift{
		RotationID: "incident",
		IdentityID: "iris",
		ShiftStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		ShiftEnd:   time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err = runCLI(t, "whois", "--db", db, "--rotation", "incident", "--at", "2024-03-01T12:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "iris is on call")
}

func TestChain_TextOutput(t *testing.T) {
	db := importedDB(t)

	out, err := runCLI(t, "chain", "--db", db, "--rotation", "payments", "--at", "2024-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "level 1 (+0m, identity mallory): mallory")
	assert.Contains(t, out, "level 2 (+15m, group sre-leads): erin, frank via page,slack")
}

func TestChain_JSONOutput(t *testing.T) {
	db := importedDB(t)

	out, err := runCLI(t, "--format", "json", "chain", "--db", db, "--rotation", "payments", "--at", "2024-01-01T00:00:00Z")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	steps, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, steps, 2)
}

func TestRecordShift_MaterializesAndIsIdempotent(t *testing.T) {
	db := importedDB(t)

	out, err := runCLI(t, "--format", "json", "record-shift", "--db", db, "--rotation", "payments", "--at", "2024-01-03T00:00:00Z")
	require.NoError(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, true, data["recorded"])

	// Same shift again: the unique (rotation_id, shift_start) row wins.
	out, err = runCLI(t, "--format", "json", "record-shift", "--db", db, "--rotation", "payments", "--at", "2024-01-05T00:00:00Z")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data = resp.Data.(map[string]interface{})
	assert.Equal(t, false, data["recorded"])

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	shifts, err := st.Shifts(context.Background(), "payments", 10)
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, "alice", shifts[0].IdentityID)
}

func TestRecordShift_ManualHasNothingToRecord(t *testing.T) {
	db := importedDB(t)

	out, err := runCLI(t, "record-shift", "--db", db, "--rotation", "incident", "--at", "2024-03-01T12:00:00Z")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "NOBODY_ON_CALL")
}

func TestShifts_ListsNewestFirst(t *testing.T) {
	db := importedDB(t)

	out, err := runCLI(t, "shifts", "--db", db, "--rotation", "payments")
	require.NoError(t, err)
	assert.Contains(t, out, "no shifts recorded")

	_, err = runCLI(t, "record-shift", "--db", db, "--rotation", "payments", "--at", "2024-01-03T00:00:00Z")
	require.NoError(t, err)
	_, err = runCLI(t, "record-shift", "--db", db, "--rotation", "payments", "--at", "2024-01-10T00:00:00Z")
	require.NoError(t, err)

	out, err = runCLI(t, "shifts", "--db", db, "--rotation", "payments")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "bob")
	assert.Contains(t, lines[1], "alice")

	out, err = runCLI(t, "shifts", "--db", db, "--rotation", "payments", "--limit", "1")
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "bob")
}

func TestRoot_RejectsUnknownFormat(t *testing.T) {
	_, err := runCLI(t, "--format", "xml", "validate", "whatever.yaml")
	require.Error(t, err)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "x")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "x")))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError), "plain errors default to failure")
}
