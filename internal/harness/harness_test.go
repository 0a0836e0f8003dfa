package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/macromover/internal/engine"
)

func mustParse(t *testing.T, yaml string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(yaml))
	require.NoError(t, err)
	return s
}

func TestRun_MinimalScenario(t *testing.T) {
	result, err := Run(mustParse(t, minimalScenario))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)

	// macro lookup, insert, refresh; no folder, no instructions
	require.Len(t, result.Trace, 3)
	assert.Equal(t, TraceEvent{Type: EventQuery, Collection: "Macro", Rows: 0, Seq: 1}, result.Trace[0])
	assert.Equal(t, TraceEvent{Type: EventInsert, Collection: "Macro", Rows: 1, Seq: 2}, result.Trace[1])
	assert.Equal(t, TraceEvent{Type: EventQuery, Collection: "Macro", Rows: 1, Seq: 3}, result.Trace[2])

	require.NotNil(t, result.Summary.AttemptedMacroInserts)
	assert.Equal(t, 1, *result.Summary.AttemptedMacroInserts)
	assert.Nil(t, result.Summary.AttemptedFolderInserts)

	require.Len(t, result.State["Macro"], 1)
	assert.Equal(t, "row-0001", result.State["Macro"][0].ID())
	assert.Empty(t, result.State["Folder"])
}

func TestRun_SummaryMismatchFails(t *testing.T) {
	s := mustParse(t, minimalScenario+`
expect:
  summary:
    attemptedMacroInserts: 2
    successfulMacroInserts: 2
`)

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "summary mismatch")
}

func TestRun_UnexpectedDeployError(t *testing.T) {
	s := mustParse(t, `
name: broken
description: "Folder without developer name"
document:
  Macros:
    - Name: Greet
      Folder: { Name: Sales Macros }
assertions:
  - type: row_count
    table: Folder
    count: 0
`)

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Equal(t, engine.ErrCodeMissingField, result.ErrorCode)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "deploy failed")
}

func TestRun_ExpectedErrorNotRaised(t *testing.T) {
	s := mustParse(t, minimalScenario+`
expect:
  error: NO_RECORDS_FOUND
`)

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected deploy to fail with NO_RECORDS_FOUND")
}

func TestRun_EmptyDocument(t *testing.T) {
	s := mustParse(t, `
name: empty
description: "No macros"
document: { Macros: [] }
expect:
  error: NO_RECORDS_FOUND
assertions:
  - type: row_count
    table: Macro
    count: 0
`)

	result, err := Run(s)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Trace)
}

func TestRun_SkippedCounts(t *testing.T) {
	// The seeded folder resolves, so nothing is skipped.
	s := mustParse(t, `
name: skipped
description: "Skip counts default to zero"
seed:
  Macros:
    - Name: Other
      Folder: { Name: Sales Macros, DeveloperName: Sales }
document:
  Macros:
    - Name: Greet
      Folder: { Name: Sales Macros, DeveloperName: Sales }
expect:
  skipped_macros: 1
assertions:
  - type: row_count
    table: Folder
    count: 1
`)

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "expected 1 skipped macros, got 0", result.Errors[0])
}

func TestRun_BadSeed(t *testing.T) {
	s := mustParse(t, minimalScenario+`
seed:
  Macros:
    - Name: ""
`)

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to seed target")
}

func TestRun_BadSelector(t *testing.T) {
	s := mustParse(t, minimalScenario+`
select: "$.Macros[?("
`)

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load document")
}

func TestRun_TestdataScenarios(t *testing.T) {
	paths, err := DiscoverScenarios("testdata/scenarios")
	require.NoError(t, err)

	for _, path := range paths {
		s, err := LoadScenario(path)
		require.NoError(t, err)

		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}
