package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/roach88/macromover/internal/ir"
	"github.com/roach88/macromover/internal/testutil"
)

// createTestStore creates a new temp-dir store with sequential ids.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(testutil.NewSequenceIDs("row")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// folderPayload creates a folder insert payload with the usual defaults.
func folderPayload(dev string) ir.Record {
	return ir.NewRecord(
		ir.F(ir.FieldName, ir.String(dev+" Macros")),
		ir.F(ir.FieldDeveloperName, ir.String(dev)),
		ir.F(ir.FieldAccessType, ir.String("Hidden")),
		ir.F(ir.FieldIsReadonly, ir.Bool(true)),
		ir.F(ir.FieldType, ir.String("Macro")),
	)
}

// verifyPragma checks that a pragma reports the expected value.
func verifyPragma(s *Store, name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
