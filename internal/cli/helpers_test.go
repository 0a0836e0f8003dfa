package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const greetDocument = `{
    "Macros": [
        {
            "Description": "Say hi",
            "Name": "Greet",
            "StartingContext": "Case",
            "IsAlohaSupported": false,
            "IsLightningSupported": true,
            "Folder": {"Name": "Sales Macros", "DeveloperName": "Sales"},
            "MacroInstructions": [
                {"Operation": "Set", "SortOrder": 0, "Target": "Case.Status", "Value": "Working", "ValueRecord": null}
            ]
        }
    ]
}`

var fixedNow = time.Date(2024, time.March, 5, 9, 7, 2, 0, time.UTC)

// writeFile writes content to name under a fresh temp dir.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// testRootOptions returns options pointing at a temp store.
func testRootOptions(t *testing.T, format string) *RootOptions {
	t.Helper()
	return &RootOptions{
		Format:   format,
		Database: filepath.Join(t.TempDir(), "target.db"),
		Config:   &Config{},
	}
}

// testCommand returns a bare command whose output lands in the returned
// buffer.
func testCommand() (*cobra.Command, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	return cmd, buf
}

func newTestDeployOptions(root *RootOptions, runID string) *DeployOptions {
	return &DeployOptions{
		RootOptions: root,
		Now:         func() time.Time { return fixedNow },
		RunID:       func() (string, error) { return runID, nil },
	}
}

// decodeResponse decodes a CLIResponse whose data is decoded into data.
func decodeResponse(t *testing.T, raw []byte, data any) CLIResponse {
	t.Helper()
	var resp struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))
	if data != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp.CLIResponse
}

func intPtr(n int) *int { return &n }
