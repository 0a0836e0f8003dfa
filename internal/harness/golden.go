package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/macromover/internal/ir"
)

// Snapshot captures everything observable about a scenario execution.
// It is serialized with canonical JSON for deterministic comparison.
type Snapshot struct {
	ScenarioName string
	Result       *Result
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical
// JSON serialization. Every target collection appears, empty or not.
func (s *Snapshot) toCanonicalMap() (map[string]any, error) {
	traceList := make([]any, len(s.Result.Trace))
	for i, event := range s.Result.Trace {
		traceList[i] = map[string]any{
			"type":       event.Type,
			"collection": event.Collection,
			"rows":       event.Rows,
			"seq":        event.Seq,
		}
	}

	counts, err := summaryCounts(s.Result.Summary)
	if err != nil {
		return nil, err
	}
	summary := make(map[string]any, len(counts))
	for k, v := range counts {
		summary[k] = v
	}

	state := make(map[string]any, len(ir.Tiers))
	for _, tier := range ir.Tiers {
		rows := s.Result.State[tier.Collection()]
		arr := make(ir.Array, len(rows))
		for i, r := range rows {
			arr[i] = r.Object()
		}
		state[tier.Collection()] = arr
	}

	m := map[string]any{
		"scenario_name": s.ScenarioName,
		"summary":       summary,
		"trace":         traceList,
		"state":         state,
	}
	if s.Result.ErrorCode != "" {
		m["error"] = string(s.Result.ErrorCode)
	}
	return m, nil
}

// MarshalCanonical renders the snapshot as canonical JSON.
func (s *Snapshot) MarshalCanonical() ([]byte, error) {
	m, err := s.toCanonicalMap()
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(m)
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{ScenarioName: scenarioName, Result: result}
	data, err := snapshot.MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
