package document

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/macromover/internal/engine"
	"github.com/roach88/macromover/internal/ir"
)

// Document is the portable form of a macro set.
type Document struct {
	Macros []Macro `json:"Macros"`
}

// Macro is one macro with its folder and ordered instructions.
type Macro struct {
	Description          string        `json:"Description"`
	Name                 string        `json:"Name"`
	StartingContext      string        `json:"StartingContext"`
	IsAlohaSupported     bool          `json:"IsAlohaSupported"`
	IsLightningSupported bool          `json:"IsLightningSupported"`
	Folder               Folder        `json:"Folder"`
	MacroInstructions    []Instruction `json:"MacroInstructions"`
}

// Folder identifies the macro's folder. An empty DeveloperName means the
// macro has no folder.
type Folder struct {
	Name          string `json:"Name"`
	DeveloperName string `json:"DeveloperName"`
}

// Instruction is one step of a macro.
type Instruction struct {
	Operation   string `json:"Operation"`
	SortOrder   int64  `json:"SortOrder"`
	Target      string `json:"Target"`
	Value       string `json:"Value"`
	ValueRecord string `json:"ValueRecord"`
}

// Graphs converts the document into the engine's per-macro input.
func (d *Document) Graphs() []engine.MacroGraph {
	graphs := make([]engine.MacroGraph, len(d.Macros))
	for i, m := range d.Macros {
		g := engine.MacroGraph{Macro: ir.Macro{
			Name:                 m.Name,
			Description:          m.Description,
			StartingContext:      m.StartingContext,
			IsAlohaSupported:     m.IsAlohaSupported,
			IsLightningSupported: m.IsLightningSupported,
			Folder: ir.Folder{
				Name:          m.Folder.Name,
				DeveloperName: m.Folder.DeveloperName,
			},
		}}
		for _, in := range m.MacroInstructions {
			g.Instructions = append(g.Instructions, ir.MacroInstruction{
				Operation:   in.Operation,
				SortOrder:   in.SortOrder,
				Target:      in.Target,
				Value:       in.Value,
				ValueRecord: in.ValueRecord,
			})
		}
		graphs[i] = g
	}
	return graphs
}

// InstructionCount returns the number of instructions across all macros.
func (d *Document) InstructionCount() int {
	n := 0
	for _, m := range d.Macros {
		n += len(m.MacroInstructions)
	}
	return n
}

// Snapshot returns the document as an ir.Object for canonical hashing.
func (d *Document) Snapshot() (ir.Object, error) {
	data, err := json.Marshal(d.normalized())
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var obj ir.Object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("snapshot document: %w", err)
	}
	return obj, nil
}

// Hash returns the content hash of the document.
func (d *Document) Hash() (string, error) {
	snap, err := d.Snapshot()
	if err != nil {
		return "", err
	}
	return ir.DocumentHash(snap)
}

// normalized returns a copy whose slices are never nil, so absent lists
// encode as [] rather than null.
func (d *Document) normalized() *Document {
	out := &Document{Macros: make([]Macro, len(d.Macros))}
	for i, m := range d.Macros {
		if m.MacroInstructions == nil {
			m.MacroInstructions = []Instruction{}
		}
		out.Macros[i] = m
	}
	return out
}
