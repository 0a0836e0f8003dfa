package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/macromover/internal/engine"
	"github.com/roach88/macromover/internal/ir"
)

// Run is one deploy recorded in the deploy_runs ledger.
type Run struct {
	ID           string         `json:"id"`
	DocumentHash string         `json:"document_hash"`
	Summary      engine.Summary `json:"summary"`
	DryRun       bool           `json:"dry_run"`
	StartedAt    time.Time      `json:"started_at"`
}

// RecordRun appends run to the ledger. A run id that already exists is
// ignored (ON CONFLICT DO NOTHING), so recording is idempotent.
//
// The summary is stored as canonical JSON.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	summary, err := marshalSummary(run.Summary)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO deploy_runs (id, document_hash, summary, dry_run, started_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.DocumentHash,
		summary,
		run.DryRun,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// ListRuns returns every recorded run, oldest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_hash, summary, dry_run, started_at
		FROM deploy_runs
		ORDER BY started_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run       Run
			summary   string
			startedAt string
		)
		if err := rows.Scan(&run.ID, &run.DocumentHash, &summary, &run.DryRun, &startedAt); err != nil {
			return nil, fmt.Errorf("list runs: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(summary), &run.Summary); err != nil {
			return nil, fmt.Errorf("list runs: summary of %s: %w", run.ID, err)
		}
		run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("list runs: started_at of %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// marshalSummary converts a Summary to canonical JSON TEXT for storage.
// Omitted pairs stay omitted.
func marshalSummary(sum engine.Summary) (string, error) {
	obj := ir.Object{}
	put := func(key string, v *int) {
		if v != nil {
			obj[key] = ir.Int(int64(*v))
		}
	}
	put("attemptedFolderInserts", sum.AttemptedFolderInserts)
	put("successfulFolderInserts", sum.SuccessfulFolderInserts)
	put("attemptedMacroInserts", sum.AttemptedMacroInserts)
	put("successfulMacroInserts", sum.SuccessfulMacroInserts)
	put("attemptedMacroInstructionInserts", sum.AttemptedMacroInstructionInserts)
	put("successfulMacroInstructionInserts", sum.SuccessfulMacroInstructionInserts)

	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}
	return string(data), nil
}
