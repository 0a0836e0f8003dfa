// Package harness provides conformance testing for macro deploys.
//
// A scenario seeds a fresh target, deploys a portable document into it,
// and asserts on the deploy summary, the collaborator calls the engine
// made, and the final target state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	seed:                      # optional, deployed untraced before the run
//	  Macros: [ ... ]
//	document:                  # or document_file: path/to/doc.json
//	  Macros: [ ... ]
//	select: "$.Macros[?(@.Name == 'Greet')]"   # optional JSONPath
//	expect:
//	  summary: { attemptedFolderInserts: 1, successfulFolderInserts: 1 }
//	  skipped_macros: 0
//	  error: MISSING_FIELD     # optional engine error code
//	assertions:
//	  - type: insert_count
//	    collection: Folder
//	    count: 1
//	  - type: final_state
//	    table: Macro
//	    where: { Name: "Greet" }
//	    expect: { Description: "Greets the customer" }
//
// # Assertion Types
//
//   - row_count: the table holds exactly count rows
//   - final_state: exactly one row matches where, and its fields match expect
//   - insert_count: count bulk inserts were issued against collection
//   - query_count: count lookup queries were issued against collection
//   - trace_order: bulk inserts hit the listed collections in that order
//
// # Deterministic Testing
//
// Every scenario runs against a private in-memory SQLite store whose row
// ids come from testutil.SequenceIDs ("row-0001", "row-0002", ...), so
// traces and final state are identical across runs and can be compared
// against golden files.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/shared_folder.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
