package cli

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config supplies defaults for global flags. Flags given on the command
// line always win.
//
//	db: ./target.db
//	retrieve_dir: ./macros
//	format: json
//	query_retries: 2
//	max_in_values: 100
type Config struct {
	DB           string `yaml:"db"`
	RetrieveDir  string `yaml:"retrieve_dir"`
	Format       string `yaml:"format"`
	QueryRetries *int   `yaml:"query_retries"`
	MaxInValues  int    `yaml:"max_in_values"`
}

// LoadConfig reads a YAML config file. Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.Format != "" && !isValidFormat(cfg.Format) {
		return nil, fmt.Errorf("config %s: invalid format %q", path, cfg.Format)
	}
	if cfg.QueryRetries != nil && *cfg.QueryRetries < 0 {
		return nil, fmt.Errorf("config %s: query_retries must be non-negative", path)
	}
	if cfg.MaxInValues < 0 {
		return nil, fmt.Errorf("config %s: max_in_values must be non-negative", path)
	}
	return &cfg, nil
}

// applyConfig copies config values into every global flag the user did
// not set explicitly.
func (o *RootOptions) applyConfig(cmd *cobra.Command) {
	cfg := o.Config
	set := func(name, value string) {
		if value == "" || cmd.Flags().Changed(name) {
			return
		}
		_ = cmd.Flags().Set(name, value)
	}

	set("db", cfg.DB)
	set("format", cfg.Format)
	if cfg.QueryRetries != nil {
		set("query-retries", strconv.Itoa(*cfg.QueryRetries))
	}
	if cfg.MaxInValues > 0 {
		set("max-in-values", strconv.Itoa(cfg.MaxInValues))
	}
}
