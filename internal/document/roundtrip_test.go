package document

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/macromover/internal/engine"
	"github.com/roach88/macromover/internal/ir"
	"github.com/roach88/macromover/internal/store"
	"github.com/roach88/macromover/internal/testutil"
)

func openTestStore(t *testing.T, name string) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), name+".db"),
		store.WithIDGenerator(testutil.NewSequenceIDs(name)))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func mustInsert(t *testing.T, st *store.Store, collection string, payloads ...ir.Record) []string {
	t.Helper()
	res, err := st.BulkInsert(context.Background(), collection, payloads)
	require.NoError(t, err)
	ids := make([]string, len(res))
	for i, r := range res {
		require.True(t, r.Success, "%s row %d: %v", collection, i, r.Errors)
		ids[i] = r.ID
	}
	return ids
}

func TestRetrieveThenDeploy_EmptyTarget(t *testing.T) {
	ctx := context.Background()

	source := openTestStore(t, "source")
	folderIDs := mustInsert(t, source, "Folder",
		ir.Folder{Name: "Sales Macros", DeveloperName: "Sales"}.Record())
	macroIDs := mustInsert(t, source, "Macro",
		ir.NewRecord(
			ir.F(ir.FieldName, ir.String("Greet")),
			ir.F(ir.FieldDescription, ir.Null{}),
			ir.F(ir.FieldFolderID, ir.String(folderIDs[0])),
		),
		ir.NewRecord(ir.F(ir.FieldName, ir.String("Unrequested"))),
	)
	mustInsert(t, source, "MacroInstruction",
		ir.MacroInstruction{MacroID: macroIDs[0], Operation: "Set", SortOrder: 1, Target: "Case.Status", Value: "Working"}.Record(),
		ir.MacroInstruction{MacroID: macroIDs[0], Operation: "Select", SortOrder: 0, Target: "Case.Status"}.Record(),
	)

	retrieved, err := NewAssembler(source, nil).Retrieve(ctx, []string{"Greet"})
	require.NoError(t, err)
	data, err := Encode(retrieved)
	require.NoError(t, err)

	doc, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, doc.Macros, 1)
	assert.Equal(t, "", doc.Macros[0].Description)
	assert.Equal(t, 2, doc.InstructionCount())

	target := openTestStore(t, "target")
	cascade := engine.NewCascade(target)

	result, err := cascade.Run(ctx, doc.Graphs())
	require.NoError(t, err)
	one, two := 1, 2
	assert.Equal(t, engine.Summary{
		AttemptedFolderInserts:            &one,
		SuccessfulFolderInserts:           &one,
		AttemptedMacroInserts:             &one,
		SuccessfulMacroInserts:            &one,
		AttemptedMacroInstructionInserts:  &two,
		SuccessfulMacroInstructionInserts: &two,
	}, result.Summary())

	instructions, err := target.Dump(ctx, ir.TierMacroInstruction)
	require.NoError(t, err)
	require.Len(t, instructions, 2)
	macroID, ok := result.MacroIndex.Get("Greet")
	require.True(t, ok)
	for _, r := range instructions {
		assert.Equal(t, macroID, r.Text(ir.FieldMacroID))
	}

	again, err := cascade.Run(ctx, doc.Graphs())
	require.NoError(t, err)
	assert.Equal(t, engine.Summary{}, again.Summary())
}
