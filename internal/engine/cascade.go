package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/macromover/internal/ir"
)

// MacroGraph is one macro of the portable document with its folder and
// its instructions. IDs are ignored on input; the target assigns them.
type MacroGraph struct {
	Macro        ir.Macro
	Instructions []ir.MacroInstruction
}

// State is a step of the cascade.
type State int

const (
	StateFolders State = iota
	StateMacros
	StateInstructions
	StateDone
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateFolders:
		return "folders"
	case StateMacros:
		return "macros"
	case StateInstructions:
		return "instructions"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Cascade migrates a document tier by tier: folders, then macros, then
// instructions.
//
// Thread-safety: a Cascade holds no per-run state and may be reused, but
// each Run executes entirely on the calling goroutine.
type Cascade struct {
	reconciler *Reconciler
	logger     *slog.Logger
}

// NewCascade creates a Cascade over client.
func NewCascade(client Client, opts ...Option) *Cascade {
	r := NewReconciler(client, opts...)
	return &Cascade{reconciler: r, logger: r.opts.logger}
}

// run is the mutable state of one Run. The indexes are owned here and
// lent to the reconciler by pointer.
type run struct {
	graphs       []MacroGraph
	folders      *Index
	macros       *Index
	instructions *Index
	result       *CascadeResult
}

// Run migrates graphs into the target.
//
// Any error aborts the run at the current tier; tiers already reconciled
// stay committed in the target. Rows the target refuses are counted in
// the result and do not abort.
func (c *Cascade) Run(ctx context.Context, graphs []MacroGraph) (*CascadeResult, error) {
	if len(graphs) == 0 {
		return nil, NewNoRecordsError("document contains no macros")
	}

	r := &run{
		graphs:       graphs,
		folders:      NewIndex(),
		macros:       NewIndex(),
		instructions: NewIndex(),
		result:       &CascadeResult{},
	}

	for state := StateFolders; state != StateDone; {
		c.logger.Debug("cascade step", "state", state)
		next, err := c.step(ctx, state, r)
		if err != nil {
			return nil, err
		}
		state = next
	}

	r.result.FolderIndex = r.folders
	r.result.MacroIndex = r.macros
	r.result.InstructionIndex = r.instructions
	return r.result, nil
}

func (c *Cascade) step(ctx context.Context, state State, r *run) (State, error) {
	switch state {
	case StateFolders:
		return StateMacros, c.reconcileFolders(ctx, r)
	case StateMacros:
		return StateInstructions, c.reconcileMacros(ctx, r)
	case StateInstructions:
		return StateDone, c.reconcileInstructions(ctx, r)
	default:
		return StateDone, fmt.Errorf("unexpected cascade state %s", state)
	}
}

func (c *Cascade) reconcileFolders(ctx context.Context, r *run) error {
	records, err := folderRecords(r.graphs)
	if err != nil {
		return err
	}
	tr, err := c.reconciler.Reconcile(ctx, records, r.folders, FolderTier())
	r.result.Folders = tr
	return err
}

func (c *Cascade) reconcileMacros(ctx context.Context, r *run) error {
	var records []ir.Record
	for _, g := range r.graphs {
		m := g.Macro
		if m.Name == "" {
			return NewMissingFieldError(ir.TierMacro, ir.FieldName, "macro")
		}
		if dev := m.Folder.DeveloperName; dev != "" {
			id, ok := r.folders.Get(dev)
			if !ok {
				c.logger.Warn("macro skipped, folder not in target", "macro", m.Name, "folder", dev)
				r.result.SkippedMacros++
				continue
			}
			m.FolderID = id
		} else {
			m.FolderID = ""
		}
		records = append(records, m.Record())
	}
	tr, err := c.reconciler.Reconcile(ctx, records, r.macros, MacroTier())
	r.result.Macros = tr
	if err != nil || tr.Succeeded == 0 {
		return err
	}

	// Instruction payloads embed macro ids as the target reports them.
	queries, err := c.reconciler.Refresh(ctx, records, r.macros, MacroTier())
	r.result.Macros.Queries += queries
	return err
}

func (c *Cascade) reconcileInstructions(ctx context.Context, r *run) error {
	var records []ir.Record
	seen := make(map[string]bool, len(r.graphs))
	for _, g := range r.graphs {
		// The macro tier keeps the first graph of a repeated Name; so do
		// its instructions.
		if seen[g.Macro.Name] {
			if len(g.Instructions) > 0 {
				c.logger.Warn("instructions skipped, duplicate macro in document",
					"macro", g.Macro.Name,
					"instructions", len(g.Instructions))
			}
			r.result.SkippedInstructions += len(g.Instructions)
			continue
		}
		seen[g.Macro.Name] = true

		macroID, ok := r.macros.Get(g.Macro.Name)
		if !ok {
			if len(g.Instructions) > 0 {
				c.logger.Warn("instructions skipped, macro not in target",
					"macro", g.Macro.Name,
					"instructions", len(g.Instructions))
			}
			r.result.SkippedInstructions += len(g.Instructions)
			continue
		}
		for _, mi := range g.Instructions {
			mi.MacroID = macroID
			records = append(records, mi.Record())
		}
	}
	tr, err := c.reconciler.Reconcile(ctx, records, r.instructions, InstructionTier())
	r.result.Instructions = tr
	return err
}

// folderRecords returns one record per macro that names a folder. A folder
// with a Name but no DeveloperName cannot be keyed and aborts the run.
func folderRecords(graphs []MacroGraph) ([]ir.Record, error) {
	var records []ir.Record
	for _, g := range graphs {
		f := g.Macro.Folder
		if f.DeveloperName == "" {
			if f.Name != "" {
				return nil, NewMissingFieldError(ir.TierFolder, ir.FieldDeveloperName,
					fmt.Sprintf("folder %q of macro %q", f.Name, g.Macro.Name))
			}
			continue
		}
		records = append(records, f.Record())
	}
	return records, nil
}
