package ir

import "fmt"

// Tier names one level of the Folder → Macro → MacroInstruction hierarchy.
// The string value is the target collection name.
type Tier string

const (
	TierFolder           Tier = "Folder"
	TierMacro            Tier = "Macro"
	TierMacroInstruction Tier = "MacroInstruction"
)

// Tiers lists every tier in dependency order (parents first).
var Tiers = []Tier{TierFolder, TierMacro, TierMacroInstruction}

// Collection returns the target collection name for the tier.
func (t Tier) Collection() string {
	return string(t)
}

// Field names shared by the migrated collections.
const (
	FieldName                 = "Name"
	FieldDeveloperName        = "DeveloperName"
	FieldAccessType           = "AccessType"
	FieldIsReadonly           = "IsReadonly"
	FieldType                 = "Type"
	FieldDescription          = "Description"
	FieldStartingContext      = "StartingContext"
	FieldIsAlohaSupported     = "IsAlohaSupported"
	FieldIsLightningSupported = "IsLightningSupported"
	FieldFolderID             = "FolderId"
	FieldMacroID              = "MacroId"
	FieldOperation            = "Operation"
	FieldSortOrder            = "SortOrder"
	FieldTarget               = "Target"
	FieldValue                = "Value"
	FieldValueRecord          = "ValueRecord"

	// Relationship fields resolved through FolderId on Macro rows.
	FieldFolderDeveloperName = "Folder.DeveloperName"
	FieldFolderName          = "Folder.Name"
)

// Folder is the container tier. DeveloperName is its natural key.
type Folder struct {
	ID            string
	Name          string
	DeveloperName string
}

// Record returns the identifying fields of the folder.
func (f Folder) Record() Record {
	return NewRecord(
		F(FieldName, String(f.Name)),
		F(FieldDeveloperName, String(f.DeveloperName)),
	)
}

// FolderFromRecord reads a Folder out of a query row.
func FolderFromRecord(r Record) Folder {
	return Folder{
		ID:            r.ID(),
		Name:          r.Text(FieldName),
		DeveloperName: r.Text(FieldDeveloperName),
	}
}

// Macro is the parent entity tier. Name is its natural key.
type Macro struct {
	ID                   string
	Name                 string
	Description          string
	StartingContext      string
	IsAlohaSupported     bool
	IsLightningSupported bool
	FolderID             string
	Folder               Folder
}

// Record returns the insertable fields of the macro. FolderId is only
// present once the parent folder's assigned id is known.
func (m Macro) Record() Record {
	r := NewRecord(
		F(FieldName, String(m.Name)),
		F(FieldDescription, String(m.Description)),
		F(FieldStartingContext, String(m.StartingContext)),
		F(FieldIsAlohaSupported, Bool(m.IsAlohaSupported)),
		F(FieldIsLightningSupported, Bool(m.IsLightningSupported)),
	)
	if m.FolderID != "" {
		r.Set(FieldFolderID, String(m.FolderID))
	}
	return r
}

// MacroFromRecord reads a Macro out of a query row, including the
// Folder.* relationship fields when the query selected them.
func MacroFromRecord(r Record) Macro {
	return Macro{
		ID:                   r.ID(),
		Name:                 r.Text(FieldName),
		Description:          r.Text(FieldDescription),
		StartingContext:      r.Text(FieldStartingContext),
		IsAlohaSupported:     boolField(r, FieldIsAlohaSupported),
		IsLightningSupported: boolField(r, FieldIsLightningSupported),
		FolderID:             r.Text(FieldFolderID),
		Folder: Folder{
			ID:            r.Text(FieldFolderID),
			Name:          r.Text(FieldFolderName),
			DeveloperName: r.Text(FieldFolderDeveloperName),
		},
	}
}

// MacroInstruction is the leaf tier. It has no natural key of its own and
// is identified by its position (SortOrder) under its parent macro.
type MacroInstruction struct {
	ID          string
	MacroID     string
	Operation   string
	SortOrder   int64
	Target      string
	Value       string
	ValueRecord string
}

// Record returns the insertable fields of the instruction.
func (mi MacroInstruction) Record() Record {
	r := NewRecord(
		F(FieldOperation, String(mi.Operation)),
		F(FieldSortOrder, Int(mi.SortOrder)),
		F(FieldTarget, String(mi.Target)),
		F(FieldValue, String(mi.Value)),
		F(FieldValueRecord, String(mi.ValueRecord)),
	)
	if mi.MacroID != "" {
		r.Set(FieldMacroID, String(mi.MacroID))
	}
	return r
}

// Key returns the positional identity of the instruction under its macro.
func (mi MacroInstruction) Key() string {
	return InstructionKey(mi.MacroID, mi.SortOrder)
}

// InstructionKey builds the composite natural key "<macroId>#<sortOrder>".
func InstructionKey(macroID string, sortOrder int64) string {
	return fmt.Sprintf("%s#%d", macroID, sortOrder)
}

// MacroInstructionFromRecord reads a MacroInstruction out of a query row.
func MacroInstructionFromRecord(r Record) MacroInstruction {
	var sortOrder int64
	if v, ok := r.Get(FieldSortOrder); ok {
		if n, ok := v.(Int); ok {
			sortOrder = int64(n)
		}
	}
	return MacroInstruction{
		ID:          r.ID(),
		MacroID:     r.Text(FieldMacroID),
		Operation:   r.Text(FieldOperation),
		SortOrder:   sortOrder,
		Target:      r.Text(FieldTarget),
		Value:       r.Text(FieldValue),
		ValueRecord: r.Text(FieldValueRecord),
	}
}

func boolField(r Record, name string) bool {
	v, ok := r.Get(name)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case Bool:
		return bool(b)
	case Int:
		return b != 0
	case String:
		return b == "true"
	}
	return false
}
