package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/macromover/internal/engine"
	"github.com/roach88/macromover/internal/ir"
)

// Scenario defines a conformance test scenario.
// A scenario seeds a target, deploys a document into it and asserts on
// the resulting summary, call trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed is a portable document deployed before the traced run to
	// establish existing target rows. Optional.
	Seed map[string]any `yaml:"seed,omitempty"`

	// Document is the portable document under test, inline.
	// Exactly one of Document and DocumentFile must be set.
	Document map[string]any `yaml:"document,omitempty"`

	// DocumentFile is a path to a JSON document under test.
	// Relative paths are resolved against the scenario file's directory.
	DocumentFile string `yaml:"document_file,omitempty"`

	// Select narrows the document with a JSONPath selector before deploy.
	Select string `yaml:"select,omitempty"`

	// Expect specifies the expected deploy outcome.
	// If nil, the deploy is only required to succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// ExpectClause specifies the expected deploy outcome.
type ExpectClause struct {
	// Error is the expected engine error code (e.g., "MISSING_FIELD").
	// Empty means the deploy must succeed.
	Error string `yaml:"error,omitempty"`

	// Summary is the expected deploy summary, keyed by its JSON field
	// names. Exact match: pairs absent here must be absent in the
	// summary. If nil, the summary is not checked.
	Summary map[string]int `yaml:"summary,omitempty"`

	SkippedMacros       int `yaml:"skipped_macros,omitempty"`
	SkippedInstructions int `yaml:"skipped_instructions,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "row_count": Check table holds exactly Count rows
	// - "final_state": Query table and verify expected values
	// - "insert_count": Check Count inserts against Collection
	// - "query_count": Check Count queries against Collection
	// - "trace_order": Check inserts hit Collections in order
	Type string `yaml:"type"`

	// Table is the target collection (used by row_count, final_state).
	Table string `yaml:"table,omitempty"`

	// Where selects exactly one row (used by final_state).
	// Keys may be relationship fields such as "Folder.DeveloperName".
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected field values (used by final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Collection is the collection name (used by insert_count, query_count).
	Collection string `yaml:"collection,omitempty"`

	// Count is the expected number (used by row_count, insert_count, query_count).
	Count int `yaml:"count,omitempty"`

	// Collections is the expected insert order (used by trace_order).
	Collections []string `yaml:"collections,omitempty"`
}

// Assertion type constants.
const (
	AssertRowCount    = "row_count"
	AssertFinalState  = "final_state"
	AssertInsertCount = "insert_count"
	AssertQueryCount  = "query_count"
	AssertTraceOrder  = "trace_order"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
//
// A relative document_file is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving document_file relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.DocumentFile != "" && !filepath.IsAbs(scenario.DocumentFile) && basePath != "" {
		scenario.DocumentFile = filepath.Join(basePath, scenario.DocumentFile)
	}
	if scenario.DocumentFile != "" {
		if _, err := os.Stat(scenario.DocumentFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: document file not found: %s", scenario.DocumentFile)
		}
	}

	return scenario, nil
}

// ParseScenario decodes scenario YAML and validates it.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
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

	switch {
	case s.Document == nil && s.DocumentFile == "":
		return fmt.Errorf("document or document_file is required")
	case s.Document != nil && s.DocumentFile != "":
		return fmt.Errorf("document and document_file are mutually exclusive")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Expect != nil && s.Expect.Error != "" && !knownErrorCode(s.Expect.Error) {
		return fmt.Errorf("expect.error: unknown error code %q", s.Expect.Error)
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func knownErrorCode(code string) bool {
	switch engine.ErrorCode(code) {
	case engine.ErrCodeEmptyValueSet, engine.ErrCodeRemoteQuery, engine.ErrCodeRemoteInsert,
		engine.ErrCodeFileRead, engine.ErrCodeFileWrite, engine.ErrCodeNoRecordsFound,
		engine.ErrCodeMissingField:
		return true
	}
	return false
}

func knownTable(name string) bool {
	for _, t := range ir.Tiers {
		if t.Collection() == name {
			return true
		}
	}
	return false
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRowCount:
		if !knownTable(a.Table) {
			return fmt.Errorf("assertions[%d]: unknown table %q for row_count", index, a.Table)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	case AssertFinalState:
		if !knownTable(a.Table) {
			return fmt.Errorf("assertions[%d]: unknown table %q for final_state", index, a.Table)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertInsertCount, AssertQueryCount:
		if a.Collection == "" {
			return fmt.Errorf("assertions[%d]: collection is required for %s", index, a.Type)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertTraceOrder:
		if len(a.Collections) == 0 {
			return fmt.Errorf("assertions[%d]: collections list is required for trace_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// documentBytes returns the JSON bytes of the document under test.
func (s *Scenario) documentBytes() ([]byte, error) {
	if s.DocumentFile != "" {
		data, err := os.ReadFile(s.DocumentFile)
		if err != nil {
			return nil, fmt.Errorf("read document file: %w", err)
		}
		return data, nil
	}
	return toJSON(s.Document)
}

// toJSON converts a YAML-decoded document into JSON bytes.
func toJSON(doc map[string]any) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert document to JSON: %w", err)
	}
	return data, nil
}
