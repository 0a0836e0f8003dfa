package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/macromover/internal/ir"
	"github.com/roach88/macromover/internal/queryir"
)

func seedMacro(t *testing.T, s *Store) (folderID, macroID string) {
	t.Helper()
	ctx := context.Background()

	res, err := s.BulkInsert(ctx, "Folder", []ir.Record{folderPayload("Sales")})
	require.NoError(t, err)
	require.True(t, res[0].Success)
	folderID = res[0].ID

	res, err = s.BulkInsert(ctx, "Macro", []ir.Record{
		ir.Macro{Name: "Greet", Description: "Say hi", IsLightningSupported: true, FolderID: folderID}.Record(),
		ir.NewRecord(ir.F(ir.FieldName, ir.String("Loose"))),
	})
	require.NoError(t, err)
	require.True(t, res[0].Success)
	require.True(t, res[1].Success)
	macroID = res[0].ID

	res, err = s.BulkInsert(ctx, "MacroInstruction", []ir.Record{
		ir.MacroInstruction{MacroID: macroID, Operation: "Set", SortOrder: 1, Target: "Case.Status", Value: "Working"}.Record(),
		ir.MacroInstruction{MacroID: macroID, Operation: "Select", SortOrder: 0, Target: "Case.Status"}.Record(),
	})
	require.NoError(t, err)
	require.True(t, res[0].Success)
	require.True(t, res[1].Success)
	return folderID, macroID
}

func TestQuery_InFilterAndFieldOrder(t *testing.T) {
	s := createTestStore(t)
	folderID, _ := seedMacro(t, s)

	rows, err := s.Query(context.Background(), queryir.Select{
		From:   "Folder",
		Fields: []string{"DeveloperName", "Id", "IsReadonly"},
		Filter: queryir.In{Field: "DeveloperName", Values: []string{"Sales", "Nope"}},
	})
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, []string{"DeveloperName", "Id", "IsReadonly"}, rows[0].Names())
	assert.Equal(t, folderID, rows[0].ID())
	v, _ := rows[0].Get("IsReadonly")
	assert.Equal(t, ir.Bool(true), v)
}

func TestQuery_RelationshipFields(t *testing.T) {
	s := createTestStore(t)
	seedMacro(t, s)

	rows, err := s.Query(context.Background(), queryir.Select{
		From:   "Macro",
		Fields: []string{"Id", "Name", "Description", "Folder.DeveloperName", "Folder.Name", "IsLightningSupported"},
		Filter: queryir.In{Field: "Name", Values: []string{"Greet", "Loose"}},
	})
	require.NoError(t, err)

	require.Len(t, rows, 2)
	greet := ir.MacroFromRecord(rows[0])
	assert.Equal(t, "Greet", greet.Name)
	assert.Equal(t, "Sales", greet.Folder.DeveloperName)
	assert.Equal(t, "Sales Macros", greet.Folder.Name)
	assert.True(t, greet.IsLightningSupported)

	loose := rows[1]
	v, _ := loose.Get("Folder.DeveloperName")
	assert.True(t, ir.IsNull(v))
	v, _ = loose.Get("Description")
	assert.True(t, ir.IsNull(v))
	assert.Equal(t, "", loose.NormalizeNulls().Text("Description"))
}

func TestQuery_SortOrderIsInt(t *testing.T) {
	s := createTestStore(t)
	_, macroID := seedMacro(t, s)

	rows, err := s.Query(context.Background(), queryir.Select{
		From:   "MacroInstruction",
		Fields: []string{"Id", "MacroId", "SortOrder"},
		Filter: queryir.In{Field: "MacroId", Values: []string{macroID}},
	})
	require.NoError(t, err)

	require.Len(t, rows, 2)
	v, _ := rows[0].Get("SortOrder")
	assert.Equal(t, ir.Int(1), v)
	v, _ = rows[1].Get("SortOrder")
	assert.Equal(t, ir.Int(0), v)
}

func TestQuery_EmptyInRejected(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Query(context.Background(), queryir.Select{
		From:   "Macro",
		Fields: []string{"Id"},
		Filter: queryir.In{Field: "Name"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, queryir.ErrEmptyValueSet)
}

func TestDump(t *testing.T) {
	s := createTestStore(t)
	seedMacro(t, s)

	rows, err := s.Dump(context.Background(), ir.TierMacro)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, columns[ir.TierMacro], rows[0].Names())
}

func TestCoerce(t *testing.T) {
	assert.Equal(t, ir.Bool(true), coerce("IsReadonly", ir.Int(1)))
	assert.Equal(t, ir.Bool(false), coerce("Folder.IsReadonly", ir.Int(0)))
	assert.Equal(t, ir.Int(3), coerce("SortOrder", ir.String("3")))
	assert.Equal(t, ir.String("x"), coerce("Name", ir.String("x")))
}
