package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverScenarios(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.yaml"), 0o755))

	paths, err := DiscoverScenarios(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yml"), filepath.Join(dir, "b.yaml")}, paths)

	single, err := DiscoverScenarios(filepath.Join(dir, "b.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b.yaml")}, single)

	_, err = DiscoverScenarios(filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestRunSuite_Testdata(t *testing.T) {
	suite, err := RunSuite("testdata/scenarios", SuiteOptions{GoldenDir: "testdata/golden"})
	require.NoError(t, err)

	assert.Equal(t, 5, suite.Total)
	assert.Equal(t, 5, suite.Passed)
	assert.Equal(t, 0, suite.Failed)

	golden := map[string]string{}
	for _, s := range suite.Scenarios {
		golden[s.Name] = s.Golden
	}
	assert.Equal(t, GoldenMatch, golden["shared_folder"])
	assert.Equal(t, GoldenMatch, golden["missing_developer_name"])
	assert.Equal(t, GoldenMissing, golden["no_folder"])
}

func TestRunSuite_Filter(t *testing.T) {
	suite, err := RunSuite("testdata/scenarios", SuiteOptions{Filter: "s*"})
	require.NoError(t, err)

	require.Equal(t, 2, suite.Total)
	assert.Equal(t, "select_subset", suite.Scenarios[0].Name)
	assert.Equal(t, "shared_folder", suite.Scenarios[1].Name)
	assert.Equal(t, GoldenSkipped, suite.Scenarios[0].Golden)

	_, err = RunSuite("testdata/scenarios", SuiteOptions{Filter: "["})
	require.Error(t, err)
}

func TestRunSuite_UpdateThenMatch(t *testing.T) {
	goldenDir := filepath.Join(t.TempDir(), "golden")

	suite, err := RunSuite("testdata/scenarios", SuiteOptions{Filter: "no_folder", GoldenDir: goldenDir, Update: true})
	require.NoError(t, err)
	require.Len(t, suite.Scenarios, 1)
	assert.Equal(t, GoldenUpdated, suite.Scenarios[0].Golden)

	suite, err = RunSuite("testdata/scenarios", SuiteOptions{Filter: "no_folder", GoldenDir: goldenDir})
	require.NoError(t, err)
	assert.Equal(t, GoldenMatch, suite.Scenarios[0].Golden)
	assert.True(t, suite.Scenarios[0].Pass)

	require.NoError(t, os.WriteFile(filepath.Join(goldenDir, "no_folder.golden"), []byte("{}"), 0o644))
	suite, err = RunSuite("testdata/scenarios", SuiteOptions{Filter: "no_folder", GoldenDir: goldenDir})
	require.NoError(t, err)
	assert.Equal(t, GoldenMismatch, suite.Scenarios[0].Golden)
	assert.False(t, suite.Scenarios[0].Pass)
	assert.Equal(t, 1, suite.Failed)
}

func TestRunSuite_ReportsFailures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(minimalScenario+`
expect:
  summary: {}
`), 0o644))

	suite, err := RunSuite(dir, SuiteOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, suite.Total)
	assert.Equal(t, 0, suite.Passed)
	require.Len(t, suite.Scenarios, 2)
	assert.Equal(t, "broken", suite.Scenarios[0].Name)
	assert.Equal(t, "minimal", suite.Scenarios[1].Name)
	assert.Contains(t, suite.Scenarios[1].Errors[0], "summary mismatch")
}
