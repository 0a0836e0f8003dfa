package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/macromover/internal/store"
)

// RunsResult is the data payload of the runs command.
type RunsResult struct {
	Runs []store.Run `json:"runs"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded deploys",
		Long: `List the deploys recorded in the target store, oldest first.

Each entry shows the run id, when it started, whether it was a dry run,
the hash of the deployed document and its insert summary.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd.Context(), rootOpts, cmd)
		},
	}

	return cmd
}

func runRuns(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)
	logger := opts.newLogger(formatter.GetErrWriter())

	st, err := opts.openStore(logger)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	if runs == nil {
		runs = []store.Run{}
	}

	if formatter.Format == "json" {
		return formatter.Success(RunsResult{Runs: runs})
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, run := range runs {
		kind := "deploy"
		if run.DryRun {
			kind = "dry-run"
		}
		fmt.Fprintf(w, "%s  %s  %-7s  %s\n",
			run.ID, run.StartedAt.UTC().Format(time.RFC3339), kind, shortHash(run.DocumentHash))
		if !run.DryRun {
			s := run.Summary
			fmt.Fprintf(w, "    folders %d/%d  macros %d/%d  instructions %d/%d\n",
				deref(s.SuccessfulFolderInserts), deref(s.AttemptedFolderInserts),
				deref(s.SuccessfulMacroInserts), deref(s.AttemptedMacroInserts),
				deref(s.SuccessfulMacroInstructionInserts), deref(s.AttemptedMacroInstructionInserts))
		}
	}
	return nil
}

// shortHash trims a document hash for display.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
