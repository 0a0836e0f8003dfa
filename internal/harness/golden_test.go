package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/macromover/internal/ir"
)

func TestRunWithGolden_SharedFolder(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/shared_folder.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunWithGolden_MissingDeveloperName(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/missing_developer_name.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestSnapshot_Deterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/shared_folder.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := (&Snapshot{ScenarioName: s.Name, Result: first}).MarshalCanonical()
	require.NoError(t, err)
	b, err := (&Snapshot{ScenarioName: s.Name, Result: second}).MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestSnapshot_EmptyStateAndError(t *testing.T) {
	result := NewResult()
	result.ErrorCode = "REMOTE_QUERY"
	result.AddTrace(EventQuery, "Folder", 0)

	data, err := (&Snapshot{ScenarioName: "x", Result: result}).MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t,
		`{"error":"REMOTE_QUERY","scenario_name":"x","state":{"Folder":[],"Macro":[],"MacroInstruction":[]},"summary":{},"trace":[{"collection":"Folder","rows":0,"seq":1,"type":"query"}]}`,
		string(data))
}

func TestSnapshot_RejectsNullState(t *testing.T) {
	result := NewResult()
	result.State["Macro"] = []ir.Record{ir.NewRecord(ir.F("Description", ir.Null{}))}

	_, err := (&Snapshot{ScenarioName: "x", Result: result}).MarshalCanonical()
	require.Error(t, err)
}
