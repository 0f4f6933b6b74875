package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validTopologyDir = filepath.Join("..", "config", "testdata", "topology")

func writeTopology(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "topology.cue"), []byte(src), 0o644))
	return dir
}

func TestValidateValidTopology(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{validTopologyDir})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "✓ Topology valid")
	assert.Contains(t, output, "2 sites, 2 filters, 2 replications")
}

func TestValidateValidTopologyJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{validTopologyDir})

	err := cmd.Execute()
	require.NoError(t, err)

	result := decodeData[ValidationResult](t, buf.String())
	assert.True(t, result.Valid)
	assert.Equal(t, 2, result.Sites)
	assert.Equal(t, 2, result.Replications)
}

func TestValidateUsesTopologyFlag(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Topology: validTopologyDir}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs(nil)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ Topology valid")
}

func TestValidateNonExistentDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/directory/path"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeTopology)
}

func TestValidateEmptyDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{tmpDir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "no topology files")
}

func TestValidateSchemaViolation(t *testing.T) {
	dir := filepath.Join("..", "config", "testdata", "invalid")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, buf.String(), "✗ Validation failed")
	assert.Contains(t, buf.String(), "bad.cue:")
}

func TestValidateUnknownSites(t *testing.T) {
	dir := writeTopology(t, `
package topology

site: "site-a": location: "a.db"

filter: orphan: {
	site:  "site-x"
	name:  "Orphan"
	query: "[ \"title\" like '*' ]"
}

replication: "a-c": {
	source:      "site-a"
	destination: "site-c"
}
`)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTopology, resp.Error.Code)
	assert.False(t, resp.Data.Valid)

	require.Len(t, resp.Data.Errors, 2, "all reference problems are reported together")
	assert.Equal(t, "filter.orphan", resp.Data.Errors[0].Path)
	assert.Contains(t, resp.Data.Errors[0].Message, `"site-x"`)
	assert.Equal(t, "replication.a-c", resp.Data.Errors[1].Path)
	assert.Contains(t, resp.Data.Errors[1].Message, `"site-c"`)
}

func TestValidateVerboseOutput(t *testing.T) {
	stdoutBuf := &bytes.Buffer{}
	stderrBuf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json", Verbose: true}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(stdoutBuf)
	cmd.SetErr(stderrBuf)
	cmd.SetArgs([]string{validTopologyDir})

	require.NoError(t, cmd.Execute())

	// Verbose logs go to stderr so stdout stays valid JSON.
	assert.Contains(t, stderrBuf.String(), "Validating topology")
	var resp CLIResponse
	require.NoError(t, json.Unmarshal(stdoutBuf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}
