package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_Render(t *testing.T) {
	data := map[string]int{"replicated": 3}

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "json", Writer: buf}
		require.NoError(t, f.Render(data, func(io.Writer) { t.Fatal("text renderer called for json") }))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Nil(t, resp.Error)
		assert.Equal(t, map[string]any{"replicated": float64(3)}, resp.Data)
	})

	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "text", Writer: buf}
		require.NoError(t, f.Render(data, func(w io.Writer) { fmt.Fprintln(w, "3 replicated") }))
		assert.Equal(t, "3 replicated\n", buf.String())
	})
}

func TestOutputFormatter_Error(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}
	require.NoError(t, f.Error(ErrCodeDatabase, "database locked"))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDatabase, resp.Error.Code)
	assert.Equal(t, "database locked", resp.Error.Message)

	buf.Reset()
	f.Format = "text"
	require.NoError(t, f.Error(ErrCodeDatabase, "database locked"))
	assert.Equal(t, "Error [E004]: database locked\n", buf.String())
}

func TestOutputFormatter_RejectKeepsData(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}
	require.NoError(t, f.Reject(ErrCodeScenario, "1 scenario(s) failed", map[string]int{"failed": 1}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeScenario, resp.Error.Code)
	assert.Equal(t, map[string]any{"failed": float64(1)}, resp.Data)
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, diag := &bytes.Buffer{}, &bytes.Buffer{}
			f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: tt.verbose}

			f.VerboseLog("loading %s", "topology.cue")

			assert.Empty(t, out.String(), "diagnostics never reach the result writer")
			if tt.wantLog {
				assert.Equal(t, "loading topology.cue\n", diag.String())
			} else {
				assert.Empty(t, diag.String())
			}
		})
	}
}

func TestFail(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}
	cause := errors.New("no such file")

	err := fail(f, ExitCommandError, ErrCodeSettings, "failed to load settings", cause)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load settings: no such file", err.Error())
	assert.Contains(t, buf.String(), "Error [E002]: failed to load settings: no such file")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitCommandError, "bad path"))))
}
