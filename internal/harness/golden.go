package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/rotorhq/rotor/internal/oncall"
	"github.com/rotorhq/rotor/internal/resolve"
)

// TraceSnapshot captures the complete query trace for a scenario
// execution. It serializes through canonical JSON so two runs of the
// same scenario compare byte-equal.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []QueryEvent `json:"trace"`
}

// toCanonicalMap converts the snapshot to the map form accepted by
// oncall.MarshalCanonical.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"seq":      event.Seq,
			"op":       event.Op,
			"rotation": event.Rotation,
			"at":       event.At,
		}
		if event.OnCall != nil {
			eventMap["on_call"] = event.OnCall.CanonicalMap()
		}
		if event.Chain != nil {
			steps := make([]any, len(event.Chain))
			for j, st := range event.Chain {
				steps[j] = stepCanonicalMap(st)
			}
			eventMap["chain"] = steps
		}
		if event.ErrorCode != "" {
			eventMap["error"] = event.ErrorCode
		}
		traceList[i] = eventMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
}

func stepCanonicalMap(st resolve.EscalationStep) map[string]any {
	m := map[string]any{
		"level":         st.Level,
		"type":          string(st.EscalationType),
		"target":        st.TargetID,
		"delay_minutes": st.DelayMinutes,
		"identities":    append([]string{}, st.Identities...),
	}
	if len(st.Channels) > 0 {
		m["channels"] = st.Channels
	}
	return m
}

// RunWithGolden executes a scenario and compares the trace against a
// golden file at testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Expect-clause failures are returned as an error before the golden
// comparison; a stale golden file fails the test via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	if !result.Passed() {
		return fmt.Errorf("expectations failed:\n  %s", strings.Join(result.Failures, "\n  "))
	}

	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		Trace:        result.Trace,
	}
	traceJSON, err := oncall.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)
	return nil
}
