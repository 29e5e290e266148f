package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenarioFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ResolvesDefinitionPaths(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "weekly_handoff.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "weekly_handoff", scenario.Name)
	require.Len(t, scenario.Definitions, 1)
	// ../definitions/payments.yaml resolved relative to the scenario dir.
	assert.Equal(t, filepath.Join("testdata", "definitions", "payments.yaml"), scenario.Definitions[0])
}

func TestLoadScenario_UnknownFieldRejected(t *testing.T) {
	path := writeScenarioFile(t, `
name: typo
description: a typo in a field name
definitions: [defs.yaml]
querys:
  - rotation: r
    at: "2024-01-01T00:00:00Z"
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: d
definitions: [x.yaml]
queries:
  - rotation: r
    at: "2024-01-01T00:00:00Z"
`,
			wantErr: "name is required",
		},
		{
			name: "missing queries",
			content: `
name: n
description: d
definitions: [x.yaml]
`,
			wantErr: "queries list is required",
		},
		{
			name: "bad timestamp",
			content: `
name: n
description: d
definitions: [x.yaml]
queries:
  - rotation: r
    at: "not-a-time"
`,
			wantErr: "at must be RFC 3339",
		},
		{
			name: "unknown op",
			content: `
name: n
description: d
definitions: [x.yaml]
queries:
  - op: frobnicate
    rotation: r
    at: "2024-01-01T00:00:00Z"
`,
			wantErr: `unknown op "frobnicate"`,
		},
		{
			name: "conflicting expect",
			content: `
name: n
description: d
definitions: [x.yaml]
queries:
  - rotation: r
    at: "2024-01-01T00:00:00Z"
    expect:
      identity: alice
      error: NOT_YET_STARTED
`,
			wantErr: "mutually exclusive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			// Satisfy the definition-existence check so later validation
			// rules are actually reached.
			require.NoError(t, os.WriteFile(filepath.Join(dir, "x.yaml"), []byte("rotations: []\n"), 0o644))
			path := filepath.Join(dir, "scenario.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_DefinitionNotFound(t *testing.T) {
	path := writeScenarioFile(t, `
name: n
description: d
definitions: [missing.yaml]
queries:
  - rotation: r
    at: "2024-01-01T00:00:00Z"
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "definition file not found")
}
