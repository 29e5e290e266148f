package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: rotation definitions to
// import plus a sequence of resolution queries with expected outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario. It doubles as the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Definitions lists rotation definition YAML files to import before
	// querying. Paths are relative to the scenario file location.
	Definitions []string `yaml:"definitions"`

	// Queries is the ordered list of resolution queries to execute.
	Queries []QueryStep `yaml:"queries"`
}

// Query operations.
const (
	OpWhois = "whois" // who is on call at an instant
	OpChain = "chain" // expand the escalation chain at an instant
)

// QueryStep is one resolution query.
type QueryStep struct {
	// Op selects the operation; defaults to "whois" when empty.
	Op string `yaml:"op,omitempty"`

	// Rotation is the rotation id to query.
	Rotation string `yaml:"rotation"`

	// At is the query instant as an RFC 3339 timestamp.
	At string `yaml:"at"`

	// Expect pins the expected outcome. If nil, only the golden file
	// constrains the result.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of one query. Exactly one
// of Identity, Error, or Nobody should be set for whois queries; chain
// queries support Error only (the golden file pins the expanded steps).
type ExpectClause struct {
	// Identity is the expected on-call identity.
	Identity string `yaml:"identity,omitempty"`

	// Error is the expected resolution error code
	// (e.g. "NO_COVERAGE_WINDOW").
	Error string `yaml:"error,omitempty"`

	// Nobody expects a query that computes no shift and no error
	// (manual rotations).
	Nobody bool `yaml:"nobody,omitempty"`

	// Override, if set, additionally checks whether the answer came
	// from an override.
	Override *bool `yaml:"override,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Returns an error
// if the file doesn't exist, is malformed, contains unknown fields
// (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving definition paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "querys:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, defPath := range scenario.Definitions {
		if !filepath.IsAbs(defPath) && basePath != "" {
			scenario.Definitions[i] = filepath.Join(basePath, defPath)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Definitions) == 0 {
		return fmt.Errorf("definitions list is required and must be non-empty")
	}
	if len(s.Queries) == 0 {
		return fmt.Errorf("queries list is required and must be non-empty")
	}

	for _, defPath := range s.Definitions {
		if _, err := os.Stat(defPath); os.IsNotExist(err) {
			return fmt.Errorf("definition file not found: %s", defPath)
		}
	}

	for i, q := range s.Queries {
		if err := validateQuery(i, &q); err != nil {
			return err
		}
	}
	return nil
}

// validateQuery validates a single query step.
func validateQuery(index int, q *QueryStep) error {
	switch q.Op {
	case "", OpWhois, OpChain:
	default:
		return fmt.Errorf("queries[%d]: unknown op %q", index, q.Op)
	}
	if q.Rotation == "" {
		return fmt.Errorf("queries[%d]: rotation is required", index)
	}
	if q.At == "" {
		return fmt.Errorf("queries[%d]: at is required", index)
	}
	if _, err := time.Parse(time.RFC3339, q.At); err != nil {
		return fmt.Errorf("queries[%d]: at must be RFC 3339: %v", index, err)
	}

	if e := q.Expect; e != nil {
		set := 0
		if e.Identity != "" {
			set++
		}
		if e.Error != "" {
			set++
		}
		if e.Nobody {
			set++
		}
		if set > 1 {
			return fmt.Errorf("queries[%d].expect: identity, error, and nobody are mutually exclusive", index)
		}
		if q.Op == OpChain && (e.Identity != "" || e.Nobody) {
			return fmt.Errorf("queries[%d].expect: chain queries support error only", index)
		}
	}
	return nil
}
