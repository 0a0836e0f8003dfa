package testutil

import (
	"context"
	"sync"

	"github.com/roach88/macromover/internal/engine"
	"github.com/roach88/macromover/internal/ir"
	"github.com/roach88/macromover/internal/queryir"
)

// RecordingClient wraps an engine.Client and records every call.
//
// Thread-safety: safe for concurrent use via internal mutex.
type RecordingClient struct {
	inner engine.Client

	mu      sync.Mutex
	queries []queryir.Select
	inserts []InsertCall
	calls   []Call
}

// CallKind distinguishes the two collaborator operations.
type CallKind string

const (
	CallQuery  CallKind = "query"
	CallInsert CallKind = "insert"
)

// Call is one recorded collaborator call, in global call order.
// Rows is the number of rows returned (query) or payloads sent (insert).
type Call struct {
	Kind       CallKind
	Collection string
	Rows       int
	Err        error
}

// InsertCall is one recorded BulkInsert.
type InsertCall struct {
	Collection string
	Payloads   []ir.Record
}

// NewRecordingClient wraps inner.
func NewRecordingClient(inner engine.Client) *RecordingClient {
	return &RecordingClient{inner: inner}
}

// Query records sel and delegates.
func (c *RecordingClient) Query(ctx context.Context, sel queryir.Select) ([]ir.Record, error) {
	c.mu.Lock()
	c.queries = append(c.queries, sel)
	c.mu.Unlock()

	rows, err := c.inner.Query(ctx, sel)
	c.record(Call{Kind: CallQuery, Collection: sel.From, Rows: len(rows), Err: err})
	return rows, err
}

// BulkInsert records the call and delegates.
func (c *RecordingClient) BulkInsert(ctx context.Context, collection string, payloads []ir.Record) ([]engine.InsertResult, error) {
	c.mu.Lock()
	c.inserts = append(c.inserts, InsertCall{Collection: collection, Payloads: payloads})
	c.mu.Unlock()

	results, err := c.inner.BulkInsert(ctx, collection, payloads)
	c.record(Call{Kind: CallInsert, Collection: collection, Rows: len(payloads), Err: err})
	return results, err
}

func (c *RecordingClient) record(call Call) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

// Calls returns queries and inserts interleaved in the order they
// completed.
func (c *RecordingClient) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// Queries returns the recorded selects in call order.
func (c *RecordingClient) Queries() []queryir.Select {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]queryir.Select(nil), c.queries...)
}

// Inserts returns the recorded inserts in call order.
func (c *RecordingClient) Inserts() []InsertCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]InsertCall(nil), c.inserts...)
}

// QueryCount returns the number of queries issued against collection.
func (c *RecordingClient) QueryCount(collection string) int {
	n := 0
	for _, q := range c.Queries() {
		if q.From == collection {
			n++
		}
	}
	return n
}

// InsertCount returns the number of BulkInsert calls against collection.
func (c *RecordingClient) InsertCount(collection string) int {
	n := 0
	for _, call := range c.Inserts() {
		if call.Collection == collection {
			n++
		}
	}
	return n
}

// Reset forgets all recorded calls.
func (c *RecordingClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = nil
	c.inserts = nil
	c.calls = nil
}
