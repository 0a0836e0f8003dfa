package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/macromover/internal/engine"
	"github.com/roach88/macromover/internal/ir"
	"github.com/roach88/macromover/internal/queryir"
	"github.com/roach88/macromover/internal/querysql"
)

// macroFields are the fields a retrieve reads for each macro.
var macroFields = []string{
	ir.FieldID,
	ir.FieldDescription,
	ir.FieldFolderDeveloperName,
	ir.FieldFolderName,
	ir.FieldName,
	ir.FieldStartingContext,
	ir.FieldIsAlohaSupported,
	ir.FieldIsLightningSupported,
}

// instructionFields are the fields a retrieve reads for each instruction.
var instructionFields = []string{
	ir.FieldID,
	ir.FieldMacroID,
	ir.FieldOperation,
	ir.FieldSortOrder,
	ir.FieldTarget,
	ir.FieldValue,
	ir.FieldValueRecord,
}

// Assembler builds a portable document from a source environment.
type Assembler struct {
	source engine.Querier
	limits querysql.Limits
	logger *slog.Logger
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithLimits sets the IN-clause limits used to chunk lookups. The zero
// Limits is ignored.
func WithLimits(l querysql.Limits) AssemblerOption {
	return func(a *Assembler) {
		if l.MaxValues > 0 {
			a.limits = l
		}
	}
}

// NewAssembler creates an Assembler reading from source. A nil logger
// discards output.
func NewAssembler(source engine.Querier, logger *slog.Logger, opts ...AssemblerOption) *Assembler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	a := &Assembler{source: source, limits: querysql.DefaultLimits, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Retrieve reads the named macros and their instructions and assembles
// them into a Document.
//
// Macros come back in the order their names were requested. Each macro's
// instructions are sorted by SortOrder, whatever order the rows arrived
// in, and the list is present (possibly empty) for every macro. Null
// scalars become "". No matching macro is a NO_RECORDS_FOUND error.
func (a *Assembler) Retrieve(ctx context.Context, names []string) (*Document, error) {
	names = distinct(names)
	if len(names) == 0 {
		return nil, engine.NewEmptyValueSetError(ir.TierMacro,
			fmt.Errorf("%s: %w", ir.FieldName, queryir.ErrEmptyValueSet))
	}

	a.logger.Info("querying macros", "names", len(names))
	macroRows, err := a.query(ctx, ir.TierMacro, macroFields, ir.FieldName, names)
	if err != nil {
		return nil, err
	}
	if len(macroRows) == 0 {
		return nil, engine.NewNoRecordsError(
			fmt.Sprintf("no macros found matching %s", strings.Join(names, ", ")))
	}
	a.logger.Info("macros retrieved", "count", len(macroRows))

	macros := make([]ir.Macro, len(macroRows))
	ids := make([]string, len(macroRows))
	for i, r := range macroRows {
		macros[i] = ir.MacroFromRecord(r.NormalizeNulls())
		ids[i] = macros[i].ID
	}
	order := make(map[string]int, len(names))
	for i, n := range names {
		order[n] = i
	}
	slices.SortStableFunc(macros, func(x, y ir.Macro) int {
		return order[x.Name] - order[y.Name]
	})

	a.logger.Info("querying macro instructions", "macros", len(ids))
	instructionRows, err := a.query(ctx, ir.TierMacroInstruction, instructionFields, ir.FieldMacroID, distinct(ids))
	if err != nil {
		return nil, err
	}
	a.logger.Info("macro instructions retrieved", "count", len(instructionRows))

	byMacro := make(map[string][]ir.MacroInstruction)
	for _, r := range instructionRows {
		mi := ir.MacroInstructionFromRecord(r.NormalizeNulls())
		byMacro[mi.MacroID] = append(byMacro[mi.MacroID], mi)
	}

	doc := &Document{Macros: make([]Macro, len(macros))}
	for i, m := range macros {
		instructions := byMacro[m.ID]
		slices.SortStableFunc(instructions, func(x, y ir.MacroInstruction) int {
			if x.SortOrder != y.SortOrder {
				if x.SortOrder < y.SortOrder {
					return -1
				}
				return 1
			}
			return strings.Compare(x.ID, y.ID)
		})
		doc.Macros[i] = fromMacro(m, instructions)
	}
	return doc, nil
}

// query reads collection rows whose field is in values, one query per
// chunk.
func (a *Assembler) query(ctx context.Context, tier ir.Tier, fields []string, field string, values []string) ([]ir.Record, error) {
	var rows []ir.Record
	for _, chunk := range querysql.ChunkValues(field, values, a.limits) {
		sel := queryir.Select{
			From:   tier.Collection(),
			Fields: fields,
			Filter: queryir.In{Field: field, Values: chunk},
		}
		got, err := a.source.Query(ctx, sel)
		if err != nil {
			if errors.Is(err, queryir.ErrEmptyValueSet) {
				return nil, engine.NewEmptyValueSetError(tier, err)
			}
			return nil, engine.NewQueryError(tier, err)
		}
		rows = append(rows, got...)
	}
	return rows, nil
}

func fromMacro(m ir.Macro, instructions []ir.MacroInstruction) Macro {
	out := Macro{
		Description:          m.Description,
		Name:                 m.Name,
		StartingContext:      m.StartingContext,
		IsAlohaSupported:     m.IsAlohaSupported,
		IsLightningSupported: m.IsLightningSupported,
		Folder: Folder{
			Name:          m.Folder.Name,
			DeveloperName: m.Folder.DeveloperName,
		},
		MacroInstructions: make([]Instruction, len(instructions)),
	}
	for i, mi := range instructions {
		out.MacroInstructions[i] = Instruction{
			Operation:   mi.Operation,
			SortOrder:   mi.SortOrder,
			Target:      mi.Target,
			Value:       mi.Value,
			ValueRecord: mi.ValueRecord,
		}
	}
	return out
}

// distinct drops empty and repeated values, keeping first-seen order.
func distinct(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
