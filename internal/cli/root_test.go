package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/macromover/internal/querysql"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "macromover", cmd.Use)
	assert.Contains(t, cmd.Long, "missing")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"deploy", "retrieve", "runs", "validate", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	tests := []struct {
		name      string
		shorthand string
		def       string
	}{
		{"verbose", "v", "false"},
		{"format", "", "text"},
		{"db", "", DefaultDatabase},
		{"config", "", ""},
		{"query-retries", "", "0"},
		{"max-in-values", "", "200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := cmd.PersistentFlags().Lookup(tt.name)
			require.NotNil(t, flag)
			assert.Equal(t, tt.shorthand, flag.Shorthand)
			assert.Equal(t, tt.def, flag.DefValue)
		})
	}
}

func TestSubcommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flags   []string
	}{
		{"deploy", []string{"select", "dry-run"}},
		{"retrieve", []string{"names", "dir", "file"}},
		{"test", []string{"update", "filter", "golden"}},
	}

	cmd := NewRootCommand()
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{tt.command})
			require.NoError(t, err)
			for _, name := range tt.flags {
				assert.NotNil(t, sub.Flags().Lookup(name), "flag --%s", name)
			}
		})
	}
}

func TestFormatValidation(t *testing.T) {
	// Test valid formats
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	// Test invalid formats
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "invalid", "runs"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestNegativeRetriesRejected(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--query-retries", "-1", "runs"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--query-retries")
}

func TestConfigSuppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "from-config.db")
	cfg := writeFile(t, "macromover.yaml", "db: "+dbPath+"\nformat: json\n")

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfg, "runs"})

	require.NoError(t, cmd.Execute())
	resp := decodeResponse(t, buf.Bytes(), nil)
	assert.Equal(t, "ok", resp.Status)

	_, err := os.Stat(dbPath)
	assert.NoError(t, err, "store should be created at the configured path")
}

func TestFlagsOverrideConfig(t *testing.T) {
	cfg := writeFile(t, "macromover.yaml", "db: "+filepath.Join(t.TempDir(), "ignored.db")+"\nformat: json\n")
	dbPath := filepath.Join(t.TempDir(), "explicit.db")

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfg, "--format", "text", "--db", dbPath, "runs"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "No runs recorded.\n", buf.String())
	assert.FileExists(t, dbPath)
}

func TestBadConfigIsCommandError(t *testing.T) {
	cfg := writeFile(t, "macromover.yaml", "colour: blue\n")

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfg, "runs"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestLimitsFromMaxInValues(t *testing.T) {
	assert.Equal(t, querysql.DefaultLimits, (&RootOptions{}).limits())

	got := (&RootOptions{MaxInValues: 3}).limits()
	assert.Equal(t, 3, got.MaxValues)
	assert.Equal(t, querysql.DefaultLimits.MaxPredicateLength, got.MaxPredicateLength)
}
