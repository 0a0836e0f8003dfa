package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/macromover/internal/engine"
	"github.com/roach88/macromover/internal/ir"
	"github.com/roach88/macromover/internal/queryir"
)

// BulkInsert inserts payloads into collection and reports one result per
// payload, in order.
//
// All rows are written in a single transaction with a SAVEPOINT per
// payload. A row the database refuses (duplicate natural key, missing
// parent, unknown column) rolls back to its savepoint and is reported
// with Success=false; the remaining rows still commit.
//
// Payloads must not carry Id; the store assigns it.
func (s *Store) BulkInsert(ctx context.Context, collection string, payloads []ir.Record) ([]engine.InsertResult, error) {
	if !queryir.IsValidIdentifier(collection) || strings.Contains(collection, ".") {
		return nil, fmt.Errorf("bulk insert: invalid collection %q", collection)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("bulk insert %s: begin: %w", collection, err)
	}
	defer tx.Rollback()

	results := make([]engine.InsertResult, len(payloads))
	for i, p := range payloads {
		if _, err := tx.ExecContext(ctx, "SAVEPOINT row"); err != nil {
			return nil, fmt.Errorf("bulk insert %s: savepoint: %w", collection, err)
		}

		id := s.ids.Generate()
		query, args, err := insertStatement(collection, id, p)
		if err == nil {
			_, err = tx.ExecContext(ctx, query, args...)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("bulk insert %s: %w", collection, ctx.Err())
			}
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO row"); rbErr != nil {
				return nil, fmt.Errorf("bulk insert %s: rollback row %d: %w", collection, i, rbErr)
			}
			results[i] = engine.InsertResult{Success: false, Errors: []string{err.Error()}}
		} else {
			results[i] = engine.InsertResult{Success: true, ID: id}
		}

		if _, err := tx.ExecContext(ctx, "RELEASE row"); err != nil {
			return nil, fmt.Errorf("bulk insert %s: release: %w", collection, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("bulk insert %s: commit: %w", collection, err)
	}

	s.logger.Debug("store insert", "collection", collection, "rows", len(payloads))
	return results, nil
}

// insertStatement builds a parameterized INSERT for one payload.
func insertStatement(collection, id string, p ir.Record) (string, []any, error) {
	cols := []string{quoteIdent(ir.FieldID)}
	args := []any{id}
	for _, f := range p {
		if f.Name == ir.FieldID {
			return "", nil, fmt.Errorf("payload must not set %s", ir.FieldID)
		}
		if !queryir.IsValidIdentifier(f.Name) || strings.Contains(f.Name, ".") {
			return "", nil, fmt.Errorf("invalid field name %q", f.Name)
		}
		v, err := ir.ToNative(f.Value)
		if err != nil {
			return "", nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		cols = append(cols, quoteIdent(f.Name))
		args = append(args, v)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(collection), strings.Join(cols, ", "), placeholders)
	return query, args, nil
}

// quoteIdent double-quotes an identifier for SQLite.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
