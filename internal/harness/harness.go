package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/roach88/macromover/internal/document"
	"github.com/roach88/macromover/internal/engine"
	"github.com/roach88/macromover/internal/ir"
	"github.com/roach88/macromover/internal/store"
	"github.com/roach88/macromover/internal/testutil"
)

// Harness is the test execution engine.
// It deploys scenario documents into a private store and records every
// collaborator call the engine makes.
type Harness struct {
	store  *store.Store
	client *testutil.RecordingClient
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with
// sequential row ids for reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Deploy the seed document, untraced
// 3. Load (and optionally select from) the document under test
// 4. Deploy it through a recording client
// 5. Check the expect clause, capture final state, evaluate assertions
//
// A returned error means the scenario itself could not run (bad seed,
// unparsable document). Deploy failures are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with engine logging sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	st, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewSequenceIDs("row")))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		client: testutil.NewRecordingClient(st),
		logger: logger,
	}

	ctx := context.Background()

	if err := h.seed(ctx, scenario.Seed); err != nil {
		return nil, fmt.Errorf("failed to seed target: %w", err)
	}

	doc, err := loadDocument(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	result := NewResult()

	cascade := engine.NewCascade(h.client, engine.WithLogger(h.logger))
	res, runErr := cascade.Run(ctx, doc.Graphs())
	if runErr != nil {
		result.ErrorCode = engine.CodeOf(runErr)
	} else {
		result.Summary = res.Summary()
	}

	for _, call := range h.client.Calls() {
		result.AddTrace(string(call.Kind), call.Collection, call.Rows)
	}

	checkExpect(scenario.Expect, res, runErr, result)

	if err := h.captureState(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to capture final state: %w", err)
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"calls", len(result.Trace),
	)

	return result, nil
}

// seed deploys doc straight into the store, bypassing the recorder.
func (h *Harness) seed(ctx context.Context, seed map[string]any) error {
	if seed == nil {
		return nil
	}
	data, err := toJSON(seed)
	if err != nil {
		return err
	}
	doc, err := document.Parse(data)
	if err != nil {
		return err
	}
	cascade := engine.NewCascade(h.store, engine.WithLogger(h.logger))
	res, err := cascade.Run(ctx, doc.Graphs())
	if err != nil {
		return err
	}
	if res.Failed() {
		return fmt.Errorf("seed document was not fully deployed")
	}
	return nil
}

// loadDocument reads the document under test and applies the selector.
func loadDocument(s *Scenario) (*document.Document, error) {
	data, err := s.documentBytes()
	if err != nil {
		return nil, err
	}
	if s.Select != "" {
		data, err = document.Select(data, s.Select)
		if err != nil {
			return nil, err
		}
	}
	return document.Parse(data)
}

// checkExpect compares the deploy outcome with the expect clause.
func checkExpect(exp *ExpectClause, res *engine.CascadeResult, runErr error, result *Result) {
	wantErr := ""
	if exp != nil {
		wantErr = exp.Error
	}

	switch {
	case runErr != nil && wantErr == "":
		result.AddError(fmt.Sprintf("deploy failed: %v", runErr))
		return
	case runErr == nil && wantErr != "":
		result.AddError(fmt.Sprintf("expected deploy to fail with %s, but it succeeded", wantErr))
		return
	case runErr != nil:
		if got := engine.CodeOf(runErr); string(got) != wantErr {
			result.AddError(fmt.Sprintf("expected error %s, got %s: %v", wantErr, got, runErr))
		}
		return
	}

	if exp == nil {
		return
	}

	if exp.Summary != nil {
		got, err := summaryCounts(result.Summary)
		if err != nil {
			result.AddError(err.Error())
		} else if !countsEqual(exp.Summary, got) {
			result.AddError(fmt.Sprintf("summary mismatch:\n  Expected: %v\n  Actual: %v", exp.Summary, got))
		}
	}
	if res.SkippedMacros != exp.SkippedMacros {
		result.AddError(fmt.Sprintf("expected %d skipped macros, got %d", exp.SkippedMacros, res.SkippedMacros))
	}
	if res.SkippedInstructions != exp.SkippedInstructions {
		result.AddError(fmt.Sprintf("expected %d skipped instructions, got %d", exp.SkippedInstructions, res.SkippedInstructions))
	}
}

// captureState dumps every target collection into result.State with
// nulls normalized.
func (h *Harness) captureState(ctx context.Context, result *Result) error {
	for _, tier := range ir.Tiers {
		rows, err := h.store.Dump(ctx, tier)
		if err != nil {
			return err
		}
		normalized := make([]ir.Record, len(rows))
		for i, r := range rows {
			normalized[i] = r.NormalizeNulls()
		}
		result.State[tier.Collection()] = normalized
	}
	return nil
}

// summaryCounts flattens a Summary into its present JSON pairs.
func summaryCounts(sum engine.Summary) (map[string]int, error) {
	data, err := json.Marshal(sum)
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	counts := map[string]int{}
	if err := json.Unmarshal(data, &counts); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	return counts, nil
}

func countsEqual(a, b map[string]int) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
