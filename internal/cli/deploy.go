package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/macromover/internal/document"
	"github.com/roach88/macromover/internal/engine"
	"github.com/roach88/macromover/internal/store"
)

// DeployOptions holds flags for the deploy command.
type DeployOptions struct {
	*RootOptions
	Select string // JSONPath selecting the macros to deploy
	DryRun bool   // report what would be inserted without inserting

	// Now and RunID are replaced in tests.
	Now   func() time.Time
	RunID func() (string, error)
}

// DeployResult is the data payload of a completed deploy.
type DeployResult struct {
	RunID               string              `json:"run_id"`
	DocumentHash        string              `json:"document_hash"`
	Summary             engine.Summary      `json:"summary"`
	Failures            []engine.RowFailure `json:"failures,omitempty"`
	SkippedMacros       int                 `json:"skipped_macros,omitempty"`
	SkippedInstructions int                 `json:"skipped_instructions,omitempty"`
}

// PlanResult is the data payload of a dry-run deploy.
type PlanResult struct {
	RunID        string       `json:"run_id"`
	DocumentHash string       `json:"document_hash"`
	Plan         *engine.Plan `json:"plan"`
}

// NewDeployCommand creates the deploy command.
func NewDeployCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeployOptions{
		RootOptions: rootOpts,
		Now:         time.Now,
		RunID:       newRunID,
	}

	cmd := &cobra.Command{
		Use:   "deploy <file>",
		Short: "Deploy a macro document into the target",
		Long: `Deploy a retrieved macro document into the target store.

Folders are matched by DeveloperName, macros by Name and instructions by
macro and SortOrder. Only records missing from the target are inserted;
existing records are never updated. Every deploy is recorded in the
runs ledger.

Exit codes:
  0 - Deploy completed and every insert succeeded
  1 - Some inserts were refused or records skipped, or nothing to deploy
  2 - Command error (unreadable document, query failure, etc.)

Examples:
  macromover deploy macros.json
  macromover deploy macros.json --dry-run
  macromover deploy macros.json --select "$.Macros[?(@.Folder.DeveloperName == 'Sales')]"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Select, "select", "", "JSONPath selecting the macros to deploy")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report missing records without inserting")

	return cmd
}

func runDeploy(ctx context.Context, opts *DeployOptions, path string, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)
	logger := opts.newLogger(formatter.GetErrWriter())

	doc, err := loadDeployDocument(path, opts.Select)
	if err != nil {
		return reportError(formatter, "failed to read document", err)
	}
	hash, err := doc.Hash()
	if err != nil {
		return reportError(formatter, "failed to hash document", err)
	}
	formatter.VerboseLog("Loaded %d macro(s), %d instruction(s) from %s",
		len(doc.Macros), doc.InstructionCount(), path)

	st, err := opts.openStore(logger)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return err
	}
	defer st.Close()

	runID, err := opts.RunID()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to generate run id", err)
	}
	formatter.RunID = runID
	cascade := engine.NewCascade(st, opts.engineOptions(logger)...)
	startedAt := opts.Now()

	if opts.DryRun {
		plan, err := cascade.Plan(ctx, doc.Graphs())
		if err != nil {
			return reportError(formatter, "dry run failed", err)
		}
		if err := recordRun(ctx, st, store.Run{
			ID: runID, DocumentHash: hash, DryRun: true, StartedAt: startedAt,
		}); err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return err
		}
		return outputPlan(formatter, PlanResult{RunID: runID, DocumentHash: hash, Plan: plan})
	}

	result, err := cascade.Run(ctx, doc.Graphs())
	if err != nil {
		return reportError(formatter, "deploy failed", err)
	}

	summary := result.Summary()
	if err := recordRun(ctx, st, store.Run{
		ID: runID, DocumentHash: hash, Summary: summary, StartedAt: startedAt,
	}); err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return err
	}

	out := DeployResult{
		RunID:               runID,
		DocumentHash:        hash,
		Summary:             summary,
		SkippedMacros:       result.SkippedMacros,
		SkippedInstructions: result.SkippedInstructions,
	}
	for _, t := range result.Tiers() {
		out.Failures = append(out.Failures, t.Failures...)
	}
	if err := outputDeploy(formatter, out); err != nil {
		return err
	}

	if result.Failed() {
		return NewExitError(ExitFailure, fmt.Sprintf(
			"deploy incomplete: %d refused, %d macro(s) and %d instruction(s) skipped",
			len(out.Failures), out.SkippedMacros, out.SkippedInstructions))
	}
	return nil
}

// loadDeployDocument reads path, narrows it with selector when one is
// given, and parses the result.
func loadDeployDocument(path, selector string) (*document.Document, error) {
	if selector == "" {
		return document.Read(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, engine.NewFileReadError(path, err)
	}
	data, err = document.Select(data, selector)
	if err != nil {
		return nil, engine.NewFileReadError(path, err)
	}
	doc, err := document.Parse(data)
	if err != nil {
		return nil, engine.NewFileReadError(path, err)
	}
	return doc, nil
}

func recordRun(ctx context.Context, st *store.Store, run store.Run) error {
	if err := st.RecordRun(ctx, run); err != nil {
		return WrapExitError(ExitCommandError, "failed to record run", err)
	}
	return nil
}

func newRunID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func outputDeploy(formatter *OutputFormatter, result DeployResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s\n", result.RunID)
	writeTierLine(formatter, "Folders", result.Summary.AttemptedFolderInserts, result.Summary.SuccessfulFolderInserts)
	writeTierLine(formatter, "Macros", result.Summary.AttemptedMacroInserts, result.Summary.SuccessfulMacroInserts)
	writeTierLine(formatter, "Instructions", result.Summary.AttemptedMacroInstructionInserts, result.Summary.SuccessfulMacroInstructionInserts)

	for _, f := range result.Failures {
		fmt.Fprintf(w, "✗ %s: %v\n", f.Key, f.Errors)
	}
	if result.SkippedMacros > 0 {
		fmt.Fprintf(w, "✗ %d macro(s) skipped: folder not in target\n", result.SkippedMacros)
	}
	if result.SkippedInstructions > 0 {
		fmt.Fprintf(w, "✗ %d instruction(s) skipped: macro not in target\n", result.SkippedInstructions)
	}

	if len(result.Failures) == 0 && result.SkippedMacros == 0 && result.SkippedInstructions == 0 {
		fmt.Fprintln(w, "✓ Deploy complete")
	}
	return nil
}

func writeTierLine(formatter *OutputFormatter, label string, attempted, succeeded *int) {
	if attempted == nil {
		fmt.Fprintf(formatter.Writer, "  %-13s nothing to insert\n", label+":")
		return
	}
	fmt.Fprintf(formatter.Writer, "  %-13s %d/%d inserted\n", label+":", deref(succeeded), *attempted)
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func outputPlan(formatter *OutputFormatter, result PlanResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	p := result.Plan
	fmt.Fprintf(w, "Dry run %s (%d lookup queries)\n", result.RunID, p.Queries)
	fmt.Fprintf(w, "  Folders to insert:      %d\n", len(p.Folders))
	for _, name := range p.Folders {
		fmt.Fprintf(w, "    + %s\n", name)
	}
	fmt.Fprintf(w, "  Macros to insert:       %d\n", len(p.Macros))
	for _, name := range p.Macros {
		fmt.Fprintf(w, "    + %s\n", name)
	}
	fmt.Fprintf(w, "  Instructions to insert: %d\n", p.Instructions)
	return nil
}
