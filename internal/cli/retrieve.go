package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/macromover/internal/document"
)

// RetrieveOptions holds flags for the retrieve command.
type RetrieveOptions struct {
	*RootOptions
	Names []string // macro names to retrieve
	Dir   string   // output directory
	File  string   // output file name; defaults to a timestamped name

	// Now is replaced in tests.
	Now func() time.Time
}

// RetrieveResult is the data payload of a completed retrieve.
type RetrieveResult struct {
	Path         string `json:"path"`
	Macros       int    `json:"macros"`
	Instructions int    `json:"instructions"`
}

// NewRetrieveCommand creates the retrieve command.
func NewRetrieveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RetrieveOptions{RootOptions: rootOpts, Now: time.Now}

	cmd := &cobra.Command{
		Use:   "retrieve",
		Short: "Retrieve macros into a portable document",
		Long: `Retrieve the named macros, their folders and their instructions from
the source store and write them to a portable JSON document.

The output directory is created if missing. Without --file the document
is named macro-retrieve-<month>-<day>-<year>-<hour>-<minute>-<second>.json.

Examples:
  macromover retrieve --names Greet,Close --dir ./macros
  macromover retrieve --names Greet --dir ./macros --file greet`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRetrieve(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Names, "names", nil, "comma-separated macro names (required)")
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "output directory (default: config retrieve_dir or .)")
	cmd.Flags().StringVar(&opts.File, "file", "", "output file name")
	_ = cmd.MarkFlagRequired("names")

	return cmd
}

func runRetrieve(ctx context.Context, opts *RetrieveOptions, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)
	logger := opts.newLogger(formatter.GetErrWriter())

	dir := opts.Dir
	if dir == "" {
		dir = opts.Config.RetrieveDir
	}
	if dir == "" {
		dir = "."
	}

	names := make([]string, 0, len(opts.Names))
	for _, n := range opts.Names {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}

	st, err := opts.openStore(logger)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return err
	}
	defer st.Close()

	doc, err := document.NewAssembler(st, logger, document.WithLimits(opts.limits())).Retrieve(ctx, names)
	if err != nil {
		return reportError(formatter, "retrieve failed", err)
	}

	path := document.Destination(dir, opts.File, opts.Now())
	formatter.VerboseLog("Writing %d macro(s) to %s", len(doc.Macros), path)
	if err := document.Write(path, doc); err != nil {
		return reportError(formatter, "failed to write document", err)
	}

	return outputRetrieve(formatter, RetrieveResult{
		Path:         path,
		Macros:       len(doc.Macros),
		Instructions: doc.InstructionCount(),
	})
}

func outputRetrieve(formatter *OutputFormatter, result RetrieveResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Retrieved %d macro(s) with %d instruction(s) to %s\n",
		result.Macros, result.Instructions, result.Path)
	return nil
}
