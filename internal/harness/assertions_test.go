package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/macromover/internal/ir"
	"github.com/roach88/macromover/internal/store"
)

func traceOf(events ...[3]any) []TraceEvent {
	out := make([]TraceEvent, len(events))
	for i, e := range events {
		out[i] = TraceEvent{Type: e[0].(string), Collection: e[1].(string), Rows: e[2].(int), Seq: int64(i + 1)}
	}
	return out
}

var sampleTrace = traceOf(
	[3]any{EventQuery, "Folder", 0},
	[3]any{EventInsert, "Folder", 2},
	[3]any{EventQuery, "Macro", 0},
	[3]any{EventInsert, "Macro", 3},
	[3]any{EventQuery, "Macro", 3},
)

func TestAssertCallCount(t *testing.T) {
	assert.NoError(t, assertCallCount(sampleTrace, EventQuery, Assertion{Type: AssertQueryCount, Collection: "Macro", Count: 2}))
	assert.NoError(t, assertCallCount(sampleTrace, EventInsert, Assertion{Type: AssertInsertCount, Collection: "MacroInstruction", Count: 0}))

	err := assertCallCount(sampleTrace, EventInsert, Assertion{Type: AssertInsertCount, Collection: "Folder", Count: 2})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "2 inserts against Folder", ae.Expected)
	assert.Equal(t, "1 inserts", ae.Actual)
	assert.Contains(t, err.Error(), "[2] insert Folder rows=2")
}

func TestAssertTraceOrder(t *testing.T) {
	assert.NoError(t, assertTraceOrder(sampleTrace, Assertion{Collections: []string{"Folder", "Macro"}}))

	err := assertTraceOrder(sampleTrace, Assertion{Collections: []string{"Macro", "Folder"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Macro (seq 4) should be before Folder (seq 2)")

	err = assertTraceOrder(sampleTrace, Assertion{Collections: []string{"Folder", "MacroInstruction"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no insert into MacroInstruction")
}

func TestAssertRowCount(t *testing.T) {
	result := NewResult()
	result.State["Folder"] = []ir.Record{ir.NewRecord(), ir.NewRecord()}

	assert.NoError(t, assertRowCount(result, Assertion{Table: "Folder", Count: 2}))
	assert.NoError(t, assertRowCount(result, Assertion{Table: "Macro", Count: 0}))
	assert.Error(t, assertRowCount(result, Assertion{Table: "Folder", Count: 1}))
}

func TestStateValuesEqual(t *testing.T) {
	assert.True(t, stateValuesEqual(ir.Null{}, ir.String("")))
	assert.True(t, stateValuesEqual(ir.String(""), nil))
	assert.True(t, stateValuesEqual(ir.Int(3), ir.Int(3)))
	assert.True(t, stateValuesEqual(ir.Bool(true), ir.Bool(true)))
	assert.False(t, stateValuesEqual(ir.Int(1), ir.Bool(true)))
	assert.False(t, stateValuesEqual(ir.String("a"), ir.Null{}))
}

func TestBuildWhere(t *testing.T) {
	p, err := buildWhere(nil)
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = buildWhere(map[string]any{"SortOrder": 1.5})
	require.Error(t, err)

	assert.Equal(t, "(no conditions)", formatWhere(nil))
	assert.Equal(t, "A=1 AND B=x", formatWhere(map[string]any{"B": "x", "A": 1}))
}

func TestAssertFinalState(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "t.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()

	res, err := st.BulkInsert(ctx, "Folder", []ir.Record{
		ir.NewRecord(ir.F("Name", ir.String("Sales Macros")), ir.F("DeveloperName", ir.String("Sales"))),
	})
	require.NoError(t, err)
	res, err = st.BulkInsert(ctx, "Macro", []ir.Record{
		ir.NewRecord(ir.F("Name", ir.String("Greet")), ir.F("FolderId", ir.String(res[0].ID))),
		ir.NewRecord(ir.F("Name", ir.String("Close")), ir.F("FolderId", ir.String(res[0].ID))),
	})
	require.NoError(t, err)

	t.Run("match through relationship", func(t *testing.T) {
		err := assertFinalState(ctx, st, Assertion{
			Table:  "Macro",
			Where:  map[string]any{"Name": "Greet"},
			Expect: map[string]any{"Folder.DeveloperName": "Sales", "IsAlohaSupported": false, "Description": nil},
		})
		assert.NoError(t, err)
	})

	t.Run("value mismatch", func(t *testing.T) {
		err := assertFinalState(ctx, st, Assertion{
			Table:  "Folder",
			Where:  map[string]any{"DeveloperName": "Sales"},
			Expect: map[string]any{"AccessType": "Public"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `field "AccessType"`)
	})

	t.Run("row not found", func(t *testing.T) {
		err := assertFinalState(ctx, st, Assertion{
			Table:  "Macro",
			Where:  map[string]any{"Name": "Nope"},
			Expect: map[string]any{"Name": "Nope"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "row not found")
	})

	t.Run("ambiguous", func(t *testing.T) {
		err := assertFinalState(ctx, st, Assertion{
			Table:  "Macro",
			Where:  map[string]any{"Folder.DeveloperName": "Sales"},
			Expect: map[string]any{"IsAlohaSupported": false},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2 rows matched")
	})
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertQueryCount, Collection: "Folder", Count: 1},
		{Type: AssertFinalState, Table: "Macro", Expect: map[string]any{"Name": "x"}},
		{Type: "bogus"},
	}, nil)

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "final_state requires database context")
	assert.Contains(t, errs[1], `unknown assertion type "bogus"`)
}
