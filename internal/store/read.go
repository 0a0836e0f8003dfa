package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/macromover/internal/ir"
	"github.com/roach88/macromover/internal/queryir"
)

// boolFields are stored as 0/1 and read back as ir.Bool.
var boolFields = map[string]bool{
	ir.FieldIsReadonly:           true,
	ir.FieldIsAlohaSupported:     true,
	ir.FieldIsLightningSupported: true,
}

// Query runs sel against the store and returns one record per row, with
// fields in the order sel declares them.
//
// Rows are ordered by Id (insertion order). NULL columns come back as
// ir.Null. The driver's decoded types are coerced so that boolean columns
// are always ir.Bool and SortOrder is always ir.Int.
func (s *Store) Query(ctx context.Context, sel queryir.Select) ([]ir.Record, error) {
	query, params, err := s.compiler.Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", sel.From, err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", sel.From, err)
	}
	defer rows.Close()

	var out []ir.Record
	for rows.Next() {
		values := make([]any, len(sel.Fields))
		ptrs := make([]any, len(values))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", sel.From, err)
		}

		rec := make(ir.Record, 0, len(sel.Fields))
		for i, field := range sel.Fields {
			v, err := ir.FromNative(values[i])
			if err != nil {
				return nil, fmt.Errorf("scan %s.%s: %w", sel.From, field, err)
			}
			rec = append(rec, ir.F(field, coerce(field, v)))
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", sel.From, err)
	}

	s.logger.Debug("store query", "collection", sel.From, "rows", len(out))
	return out, nil
}

// coerce fixes up driver types for fields with a known kind.
func coerce(field string, v ir.Value) ir.Value {
	name := field
	if _, after, ok := strings.Cut(field, "."); ok {
		name = after
	}
	switch {
	case boolFields[name]:
		if n, ok := v.(ir.Int); ok {
			return ir.Bool(n != 0)
		}
	case name == ir.FieldSortOrder:
		if str, ok := v.(ir.String); ok {
			var n int64
			if _, err := fmt.Sscanf(string(str), "%d", &n); err == nil {
				return ir.Int(n)
			}
		}
	}
	return v
}

// Count returns the number of rows in a collection.
func (s *Store) Count(ctx context.Context, tier ir.Tier) (int, error) {
	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, tier.Collection())
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", tier, err)
	}
	return n, nil
}

// Dump returns every row of a collection with all its columns, ordered
// by Id.
func (s *Store) Dump(ctx context.Context, tier ir.Tier) ([]ir.Record, error) {
	return s.Query(ctx, queryir.Select{From: tier.Collection(), Fields: columns[tier]})
}

// columns lists each collection's columns in declaration order.
var columns = map[ir.Tier][]string{
	ir.TierFolder: {
		ir.FieldID, ir.FieldName, ir.FieldDeveloperName,
		ir.FieldAccessType, ir.FieldIsReadonly, ir.FieldType,
	},
	ir.TierMacro: {
		ir.FieldID, ir.FieldName, ir.FieldDescription, ir.FieldStartingContext,
		ir.FieldIsAlohaSupported, ir.FieldIsLightningSupported, ir.FieldFolderID,
	},
	ir.TierMacroInstruction: {
		ir.FieldID, ir.FieldMacroID, ir.FieldOperation, ir.FieldSortOrder,
		ir.FieldTarget, ir.FieldValue, ir.FieldValueRecord,
	},
}
