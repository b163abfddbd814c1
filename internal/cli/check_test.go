package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_Valid(t *testing.T) {
	out, _, err := execute(t, customersDDL, "check", "--repr", "sql")
	require.NoError(t, err)
	assert.Contains(t, out, "valid (fingerprint ")
}

func TestCheck_ValidJSON(t *testing.T) {
	out, _, err := execute(t, customersDDL, "--format", "json", "check", "--repr", "sql")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["valid"])
	assert.Len(t, data["fingerprint"], 64)
}

func TestCheck_SameFingerprintAcrossRepresentations(t *testing.T) {
	sqlOut, _, err := execute(t, customersDDL, "--format", "json", "check", "--repr", "sql")
	require.NoError(t, err)

	translated, _, err := execute(t, customersDDL, "translate", "--from", "sql", "--to", "set")
	require.NoError(t, err)
	setOut, _, err := execute(t, translated, "--format", "json", "check", "--repr", "set")
	require.NoError(t, err)

	fingerprint := func(raw string) string {
		var resp CLIResponse
		require.NoError(t, json.Unmarshal([]byte(raw), &resp))
		return resp.Data.(map[string]any)["fingerprint"].(string)
	}
	assert.Equal(t, fingerprint(sqlOut), fingerprint(setOut))
}

func TestCheck_InvalidDocument(t *testing.T) {
	out, _, err := execute(t,
		`CREATE TABLE t (id INTEGER PRIMARY KEY, UNIQUE (ghost));`,
		"check", "--repr", "sql")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E402")
	assert.Contains(t, out, "ghost")
}

func TestCheck_IncompatibleDefault(t *testing.T) {
	out, _, err := execute(t,
		`CREATE TABLE t (id INTEGER PRIMARY KEY, flag BOOLEAN DEFAULT 'yes');`,
		"check", "--repr", "sql")
	require.Error(t, err)
	assert.Contains(t, out, "E104")
}
