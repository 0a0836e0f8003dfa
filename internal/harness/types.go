package harness

import (
	"github.com/roach88/macromover/internal/engine"
	"github.com/roach88/macromover/internal/ir"
)

// Trace event types.
const (
	EventQuery  = "query"
	EventInsert = "insert"
)

// TraceEvent is one collaborator call made during the deploy.
type TraceEvent struct {
	Type       string `json:"type"` // "query" or "insert"
	Collection string `json:"collection"`
	Rows       int    `json:"rows"` // rows returned (query) or payloads sent (insert)
	Seq        int64  `json:"seq"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the expect clause and every assertion matched.
	Pass bool `json:"pass"`

	// Trace contains every query and insert of the deploy, in call order.
	// Seeding is not traced.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Summary is the deploy summary. Zero when the deploy failed.
	Summary engine.Summary `json:"summary"`

	// ErrorCode is the code of the error that aborted the deploy, if any.
	ErrorCode engine.ErrorCode `json:"error_code,omitempty"`

	// State holds every row of every target collection after the deploy,
	// keyed by collection name.
	State map[string][]ir.Record `json:"state,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string][]ir.Record),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a call to the trace, numbering it from 1.
func (r *Result) AddTrace(eventType, collection string, rows int) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:       eventType,
		Collection: collection,
		Rows:       rows,
		Seq:        int64(len(r.Trace) + 1),
	})
}
