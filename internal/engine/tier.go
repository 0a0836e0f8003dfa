package engine

import (
	"fmt"

	"github.com/roach88/macromover/internal/ir"
)

// KeyFunc computes the natural key of each record, in order.
// It returns exactly one key per record; "" marks a record with no key.
type KeyFunc func(records []ir.Record) []string

// TierConfig describes how one tier is looked up and inserted.
type TierConfig struct {
	Tier ir.Tier

	// LookupField is filtered with IN when querying the target.
	LookupField string

	// Fields are the fields a lookup selects. Must include Id and
	// everything KeyOf reads.
	Fields []string

	// KeyOf computes natural keys for lookup rows and source records alike.
	KeyOf KeyFunc

	// Defaults are merged into every insert payload. They never overwrite
	// a field the source record already declares.
	Defaults ir.Record
}

// lookupValues returns the distinct, non-empty LookupField values of
// records in first-seen order.
func (c TierConfig) lookupValues(records []ir.Record) []string {
	seen := make(map[string]bool)
	var values []string
	for _, r := range records {
		v := r.Text(c.LookupField)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	return values
}

// FolderTier returns the Folder tier configuration.
// Folders are keyed by DeveloperName and inserted hidden and read-only.
func FolderTier() TierConfig {
	return TierConfig{
		Tier:        ir.TierFolder,
		LookupField: ir.FieldDeveloperName,
		Fields:      []string{ir.FieldID, ir.FieldDeveloperName, ir.FieldName},
		KeyOf:       fieldKeys(ir.FieldDeveloperName),
		Defaults: ir.NewRecord(
			ir.F(ir.FieldAccessType, ir.String("Hidden")),
			ir.F(ir.FieldIsReadonly, ir.Bool(true)),
			ir.F(ir.FieldType, ir.String("Macro")),
		),
	}
}

// MacroTier returns the Macro tier configuration. Macros are keyed by Name.
func MacroTier() TierConfig {
	return TierConfig{
		Tier:        ir.TierMacro,
		LookupField: ir.FieldName,
		Fields:      []string{ir.FieldID, ir.FieldName, ir.FieldFolderID},
		KeyOf:       fieldKeys(ir.FieldName),
	}
}

// InstructionTier returns the MacroInstruction tier configuration.
// Instructions are looked up by MacroId and keyed by position.
func InstructionTier() TierConfig {
	return TierConfig{
		Tier:        ir.TierMacroInstruction,
		LookupField: ir.FieldMacroID,
		Fields:      []string{ir.FieldID, ir.FieldMacroID, ir.FieldSortOrder},
		KeyOf:       instructionKeys,
	}
}

// fieldKeys keys each record by the text of one field.
func fieldKeys(field string) KeyFunc {
	return func(records []ir.Record) []string {
		keys := make([]string, len(records))
		for i, r := range records {
			keys[i] = r.Text(field)
		}
		return keys
	}
}

// instructionKeys keys each instruction as "<MacroId>#<SortOrder>".
//
// Instructions sharing a SortOrder under one macro are told apart by
// occurrence: the second becomes "<MacroId>#<SortOrder>#1", and so on.
// Lookup rows arrive ordered by Id, which is insertion order, so the
// same occurrence numbering applies on both sides.
func instructionKeys(records []ir.Record) []string {
	keys := make([]string, len(records))
	seen := make(map[string]int)
	for i, r := range records {
		mi := ir.MacroInstructionFromRecord(r)
		if mi.MacroID == "" {
			continue
		}
		base := mi.Key()
		n := seen[base]
		seen[base] = n + 1
		if n == 0 {
			keys[i] = base
		} else {
			keys[i] = fmt.Sprintf("%s#%d", base, n)
		}
	}
	return keys
}
