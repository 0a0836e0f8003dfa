package queryir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/macromover/internal/ir"
)

func TestValidate_ValidSelect(t *testing.T) {
	sel := Select{
		From:   "Macro",
		Fields: []string{"Id", "Name", "Folder.DeveloperName"},
		Filter: And{Predicates: []Predicate{
			In{Field: "Name", Values: []string{"Greet"}},
			Equals{Field: "IsAlohaSupported", Value: ir.Bool(true)},
		}},
	}

	require.NoError(t, Validate(sel))
}

func TestValidate_EmptyInIsEmptyValueSet(t *testing.T) {
	sel := Select{
		From:   "Folder",
		Fields: []string{"Id", "DeveloperName"},
		Filter: In{Field: "DeveloperName"},
	}

	err := Validate(sel)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyValueSet))
}

func TestValidate_NestedEmptyIn(t *testing.T) {
	sel := Select{
		From:   "MacroInstruction",
		Fields: []string{"Id"},
		Filter: &And{Predicates: []Predicate{&In{Field: "MacroId", Values: nil}}},
	}

	assert.ErrorIs(t, Validate(sel), ErrEmptyValueSet)
}

func TestValidate_RejectsInjectedIdentifiers(t *testing.T) {
	testCases := []struct {
		name string
		sel  Select
	}{
		{
			name: "collection with space",
			sel:  Select{From: "Macro; DROP", Fields: []string{"Id"}},
		},
		{
			name: "qualified collection",
			sel:  Select{From: "Folder.Macro", Fields: []string{"Id"}},
		},
		{
			name: "field with quote",
			sel:  Select{From: "Macro", Fields: []string{"Name'"}},
		},
		{
			name: "two-level relationship",
			sel:  Select{From: "Macro", Fields: []string{"Folder.Owner.Name"}},
		},
		{
			name: "predicate field",
			sel: Select{From: "Macro", Fields: []string{"Id"},
				Filter: In{Field: "Name) OR (1=1", Values: []string{"x"}}},
		},
		{
			name: "no fields",
			sel:  Select{From: "Macro"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.sel)
			require.Error(t, err)
			assert.False(t, errors.Is(err, ErrEmptyValueSet))
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	err := Validate(Select{From: "bad name", Fields: []string{"ok", "not ok"}})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 2)
}

func TestFields(t *testing.T) {
	p := And{Predicates: []Predicate{
		In{Field: "MacroId", Values: []string{"a"}},
		&Equals{Field: "SortOrder", Value: ir.Int(1)},
	}}
	assert.Equal(t, []string{"MacroId", "SortOrder"}, Fields(p))
}
