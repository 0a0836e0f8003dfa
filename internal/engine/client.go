package engine

import (
	"context"

	"github.com/roach88/macromover/internal/ir"
	"github.com/roach88/macromover/internal/queryir"
)

// Querier runs a filtered select against a target collection.
// Rows come back as records keyed by the selected field names.
type Querier interface {
	Query(ctx context.Context, sel queryir.Select) ([]ir.Record, error)
}

// Inserter bulk-inserts payloads into a named collection.
//
// The returned slice is positionally aligned with payloads: results[i]
// describes payloads[i]. A non-nil error means the call failed as a
// whole; per-row failures are reported with Success=false.
type Inserter interface {
	BulkInsert(ctx context.Context, collection string, payloads []ir.Record) ([]InsertResult, error)
}

// Client is the target environment the engine reconciles against.
type Client interface {
	Querier
	Inserter
}

// InsertResult is the outcome of inserting one payload.
type InsertResult struct {
	Success bool     `json:"success"`
	ID      string   `json:"id,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}
