package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/macromover/internal/engine"
	"github.com/roach88/macromover/internal/querysql"
	"github.com/roach88/macromover/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose      bool
	Format       string // "json" | "text"
	Database     string
	ConfigPath   string
	QueryRetries int
	MaxInValues  int

	// Config is the loaded --config file, or an empty Config.
	Config *Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// DefaultDatabase is the store path used when neither --db nor the
// config file names one.
const DefaultDatabase = "macromover.db"

// NewRootCommand creates the root command for the macromover CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Config: &Config{}}

	cmd := &cobra.Command{
		Use:   "macromover",
		Short: "macromover - move macros between environments",
		Long: `Retrieve macros with their folders and instructions into a portable
JSON document, and deploy such a document into a target environment,
creating only the folders, macros and instructions that are missing.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.ConfigPath != "" {
				cfg, err := LoadConfig(opts.ConfigPath)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to load config", err)
				}
				opts.Config = cfg
				opts.applyConfig(cmd)
			}

			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.QueryRetries < 0 {
				return fmt.Errorf("invalid --query-retries %d: must be non-negative", opts.QueryRetries)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", DefaultDatabase, "path to the SQLite target store")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML config file supplying flag defaults")
	cmd.PersistentFlags().IntVar(&opts.QueryRetries, "query-retries", 0, "retries for a failed lookup query")
	cmd.PersistentFlags().IntVar(&opts.MaxInValues, "max-in-values", querysql.DefaultLimits.MaxValues, "most values per lookup query")

	// Add subcommands
	cmd.AddCommand(NewDeployCommand(opts))
	cmd.AddCommand(NewRetrieveCommand(opts))
	cmd.AddCommand(NewRunsCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// newLogger builds the command logger: text on w, Debug with --verbose.
func (o *RootOptions) newLogger(w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	if o.Verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// newFormatter builds the output formatter for cmd.
func (o *RootOptions) newFormatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// engineOptions returns the reconciler options the flags select.
func (o *RootOptions) engineOptions(logger *slog.Logger) []engine.Option {
	return []engine.Option{
		engine.WithLogger(logger),
		engine.WithQueryRetries(o.QueryRetries),
		engine.WithLimits(o.limits()),
	}
}

// limits returns the IN-clause limits with --max-in-values applied.
func (o *RootOptions) limits() querysql.Limits {
	limits := querysql.DefaultLimits
	if o.MaxInValues > 0 {
		limits.MaxValues = o.MaxInValues
	}
	return limits
}

// openStore opens the --db store.
func (o *RootOptions) openStore(logger *slog.Logger) (*store.Store, error) {
	logger.Debug("opening database", "path", o.Database)
	st, err := store.Open(o.Database, store.WithLogger(logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}
