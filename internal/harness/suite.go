package harness

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Golden comparison outcomes.
const (
	GoldenSkipped  = ""         // no golden dir configured
	GoldenMissing  = "missing"  // no golden file; assertions decide
	GoldenMatch    = "match"    // snapshot equals golden file
	GoldenMismatch = "mismatch" // snapshot differs from golden file
	GoldenUpdated  = "updated"  // golden file rewritten
)

// SuiteOptions configures RunSuite.
type SuiteOptions struct {
	// Filter is a glob matched against each scenario file name without
	// its extension. Empty runs everything.
	Filter string

	// GoldenDir holds {scenario.Name}.golden snapshots. Empty disables
	// golden comparison.
	GoldenDir string

	// Update rewrites golden files instead of comparing against them.
	Update bool

	Logger *slog.Logger
}

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	Scenarios []ScenarioOutcome `json:"scenarios"`
	Total     int               `json:"total"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
}

// ScenarioOutcome is the result of one scenario file.
type ScenarioOutcome struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// DiscoverScenarios returns the scenario files under dir (*.yaml and
// *.yml, not recursive), sorted by path. A path naming a single file is
// returned as is.
func DiscoverScenarios(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("scenario path: %w", err)
	}
	if !info.IsDir() {
		return []string{dir}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// RunSuite loads and runs every scenario under dir.
//
// A scenario that fails to load or run counts as failed; the suite keeps
// going. The returned error is reserved for an unreadable dir or a bad
// filter pattern.
func RunSuite(dir string, opts SuiteOptions) (*SuiteResult, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	paths, err := DiscoverScenarios(dir)
	if err != nil {
		return nil, err
	}

	suite := &SuiteResult{Scenarios: []ScenarioOutcome{}}
	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if opts.Filter != "" {
			matched, err := filepath.Match(opts.Filter, name)
			if err != nil {
				return nil, fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				continue
			}
		}

		outcome := runOne(path, name, opts)
		suite.Scenarios = append(suite.Scenarios, outcome)
		suite.Total++
		if outcome.Pass {
			suite.Passed++
		} else {
			suite.Failed++
		}
	}
	return suite, nil
}

// runOne runs the scenario at path. name is used until the scenario's
// declared name is known.
func runOne(path, name string, opts SuiteOptions) ScenarioOutcome {
	out := ScenarioOutcome{Name: name, Path: path}

	scenario, err := LoadScenario(path)
	if err != nil {
		out.Errors = []string{err.Error()}
		return out
	}
	out.Name = scenario.Name

	result, err := RunWithLogger(scenario, opts.Logger)
	if err != nil {
		out.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return out
	}
	out.Errors = result.Errors

	if opts.GoldenDir != "" {
		golden, err := checkGolden(opts.GoldenDir, scenario.Name, result, opts.Update)
		out.Golden = golden
		if err != nil {
			out.Errors = append(out.Errors, err.Error())
		}
	}

	out.Pass = len(out.Errors) == 0
	return out
}

// checkGolden compares (or rewrites) the golden snapshot for one result.
func checkGolden(dir, name string, result *Result, update bool) (string, error) {
	snapshot := Snapshot{ScenarioName: name, Result: result}
	data, err := snapshot.MarshalCanonical()
	if err != nil {
		return GoldenMismatch, fmt.Errorf("marshal snapshot: %w", err)
	}

	path := filepath.Join(dir, name+".golden")
	if update {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return GoldenMismatch, fmt.Errorf("create golden dir: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return GoldenMismatch, fmt.Errorf("write golden file: %w", err)
		}
		return GoldenUpdated, nil
	}

	want, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return GoldenMissing, nil
	}
	if err != nil {
		return GoldenMismatch, fmt.Errorf("read golden file: %w", err)
	}
	if !bytes.Equal(want, data) {
		return GoldenMismatch, fmt.Errorf("snapshot does not match %s (run with --update to regenerate)", path)
	}
	return GoldenMatch, nil
}
