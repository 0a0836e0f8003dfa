package harness

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/macromover/internal/ir"
	"github.com/roach88/macromover/internal/queryir"
	"github.com/roach88/macromover/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s rows=%d\n", event.Seq, event.Type, event.Collection, event.Rows)
		}
	}

	return buf.String()
}

// assertRowCount checks the number of rows captured for a table.
func assertRowCount(result *Result, assertion Assertion) error {
	got := len(result.State[assertion.Table])
	if got != assertion.Count {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("%d rows in %s", assertion.Count, assertion.Table),
			Actual:   fmt.Sprintf("%d rows", got),
		}
	}
	return nil
}

// assertCallCount checks how many calls of eventType hit a collection.
func assertCallCount(trace []TraceEvent, eventType string, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == eventType && event.Collection == assertion.Collection {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("%d %ss against %s", assertion.Count, eventType, assertion.Collection),
			Actual:   fmt.Sprintf("%d %ss", count, eventType),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks that the first insert into each listed
// collection happens in the listed order. Other calls may intervene.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int64)
	for _, event := range trace {
		if event.Type != EventInsert {
			continue
		}
		if _, seen := positions[event.Collection]; !seen {
			positions[event.Collection] = event.Seq
		}
	}

	for _, c := range assertion.Collections {
		if _, ok := positions[c]; !ok {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("inserts into all of: %v", assertion.Collections),
				Actual:   fmt.Sprintf("no insert into %s", c),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Collections); i++ {
		prev, curr := assertion.Collections[i-1], assertion.Collections[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("inserts in order: %v", assertion.Collections),
				Actual: fmt.Sprintf("%s (seq %d) should be before %s (seq %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertFinalState queries the store for the single row matching Where
// and checks the Expect fields with subset semantics. The query goes
// through the store's parameterized compiler, so relationship fields
// ("Folder.DeveloperName") work in both Where and Expect.
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	filter, err := buildWhere(assertion.Where)
	if err != nil {
		return err
	}

	fields := []string{ir.FieldID}
	for _, k := range sortedKeys(assertion.Expect) {
		if k != ir.FieldID {
			fields = append(fields, k)
		}
	}

	rows, err := st.Query(ctx, queryir.Select{From: assertion.Table, Fields: fields, Filter: filter})
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	whereDesc := formatWhere(assertion.Where)
	switch len(rows) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, whereDesc),
			Actual:   "row not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, whereDesc),
			Actual:   fmt.Sprintf("%d rows matched (assertion is ambiguous)", len(rows)),
		}
	}

	row := rows[0]
	for _, key := range sortedKeys(assertion.Expect) {
		want, err := ir.FromNative(assertion.Expect[key])
		if err != nil {
			return fmt.Errorf("final_state expect %q: %w", key, err)
		}
		got, _ := row.Get(key)
		if !stateValuesEqual(want, got) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, want, want),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, got, got),
			}
		}
	}
	return nil
}

// buildWhere converts a where map into an equality conjunction.
// Keys are sorted for determinism. YAML null matches NULL.
func buildWhere(where map[string]any) (queryir.Predicate, error) {
	if len(where) == 0 {
		return nil, nil
	}
	preds := make([]queryir.Predicate, 0, len(where))
	for _, key := range sortedKeys(where) {
		v, err := ir.FromNative(where[key])
		if err != nil {
			return nil, fmt.Errorf("final_state where %q: %w", key, err)
		}
		preds = append(preds, queryir.Equals{Field: key, Value: v})
	}
	return queryir.And{Predicates: preds}, nil
}

// formatWhere creates a human-readable description of where conditions.
func formatWhere(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	parts := make([]string, 0, len(where))
	for _, k := range sortedKeys(where) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stateValuesEqual compares an expected value with a stored one.
// Null and the empty string are equal, as the target treats them alike.
func stateValuesEqual(want, got ir.Value) bool {
	if isBlank(want) && isBlank(got) {
		return true
	}
	return reflect.DeepEqual(want, got)
}

func isBlank(v ir.Value) bool {
	if ir.IsNull(v) {
		return true
	}
	s, ok := v.(ir.String)
	return ok && s == ""
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for final_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertRowCount:
			err = assertRowCount(result, assertion)
		case AssertInsertCount:
			err = assertCallCount(result.Trace, EventInsert, assertion)
		case AssertQueryCount:
			err = assertCallCount(result.Trace, EventQuery, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires database context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
