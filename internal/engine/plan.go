package engine

import (
	"context"

	"github.com/roach88/macromover/internal/ir"
)

// Plan is what a Run would insert, computed from lookups only.
type Plan struct {
	Folders      []string `json:"folders"`
	Macros       []string `json:"macros"`
	Instructions int      `json:"instructions"`
	Queries      int      `json:"queries"`
}

// Plan reports the folders, macros and instruction count a Run of graphs
// would insert. It queries the target but never inserts.
//
// Instructions of a macro that does not exist yet are all counted as new.
// A repeated macro Name contributes only its first graph's instructions.
func (c *Cascade) Plan(ctx context.Context, graphs []MacroGraph) (*Plan, error) {
	if len(graphs) == 0 {
		return nil, NewNoRecordsError("document contains no macros")
	}
	plan := &Plan{Folders: []string{}, Macros: []string{}}

	folders, err := folderRecords(graphs)
	if err != nil {
		return nil, err
	}
	missingFolders, tr, err := c.reconciler.Diff(ctx, folders, NewIndex(), FolderTier())
	plan.Queries += tr.Queries
	if err != nil {
		return nil, err
	}
	for _, m := range missingFolders {
		plan.Folders = append(plan.Folders, m.Key)
	}

	macros := make([]ir.Record, 0, len(graphs))
	for _, g := range graphs {
		if g.Macro.Name == "" {
			return nil, NewMissingFieldError(ir.TierMacro, ir.FieldName, "macro")
		}
		macros = append(macros, g.Macro.Record())
	}
	macroIdx := NewIndex()
	missingMacros, tr, err := c.reconciler.Diff(ctx, macros, macroIdx, MacroTier())
	plan.Queries += tr.Queries
	if err != nil {
		return nil, err
	}
	for _, m := range missingMacros {
		plan.Macros = append(plan.Macros, m.Key)
	}

	var existing []ir.Record
	seen := make(map[string]bool, len(graphs))
	for _, g := range graphs {
		if seen[g.Macro.Name] {
			continue
		}
		seen[g.Macro.Name] = true
		macroID, ok := macroIdx.Get(g.Macro.Name)
		if !ok {
			// Placeholder parent id so positions still dedupe per macro.
			macroID = "new:" + g.Macro.Name
		}
		var records []ir.Record
		for _, mi := range g.Instructions {
			mi.MacroID = macroID
			records = append(records, mi.Record())
		}
		if ok {
			existing = append(existing, records...)
			continue
		}
		plan.Instructions += len(FindMissing(records, NewIndex(), instructionKeys))
	}
	missingInstructions, tr, err := c.reconciler.Diff(ctx, existing, NewIndex(), InstructionTier())
	plan.Queries += tr.Queries
	if err != nil {
		return nil, err
	}
	plan.Instructions += len(missingInstructions)
	return plan, nil
}
