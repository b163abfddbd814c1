package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customersDDL = `CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT UNIQUE, created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP);`

func TestTranslate_StdinToStdout(t *testing.T) {
	out, _, err := execute(t, customersDDL, "translate", "--from", "sql", "--to", "set")
	require.NoError(t, err)
	assert.Contains(t, out, "relation customers")
	assert.Contains(t, out, "key customers (id)")
}

func TestTranslate_JSONOutput(t *testing.T) {
	out, _, err := execute(t, customersDDL,
		"--format", "json", "translate", "--from", "sql", "--to", "graph")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["verified"])
	assert.Len(t, data["fingerprint"], 64)
	assert.NotEmpty(t, data["request_id"])
	assert.Contains(t, data["output"], "table: customers")
}

func TestTranslate_FileToFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "customers.sql")
	outPath := filepath.Join(dir, "customers.set")
	require.NoError(t, os.WriteFile(in, []byte(customersDDL), 0o644))

	_, _, err := execute(t, "", "translate", "--from", "sql", "--to", "set", "-o", outPath, in)
	require.NoError(t, err)

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(written), "relation customers")
}

func TestTranslate_UnknownTypeFails(t *testing.T) {
	out, _, err := execute(t, `CREATE TABLE t (id INTEGER PRIMARY KEY, price MONEY);`,
		"translate", "--from", "sql", "--to", "set")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E100")
	assert.Contains(t, out, "MONEY")
}

func TestTranslate_BadRepresentation(t *testing.T) {
	_, _, err := execute(t, customersDDL, "translate", "--from", "prolog", "--to", "set")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTranslate_BadMode(t *testing.T) {
	out, _, err := execute(t, customersDDL,
		"translate", "--from", "sql", "--to", "set", "--mode", "thorough")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E403")
}

func TestTranslate_MissingInputFile(t *testing.T) {
	_, _, err := execute(t, "", "translate", "--from", "sql", "--to", "set", "/no/such/file.sql")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTranslate_TypeChoiceConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "format.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"type_choices:\n  declarative-query:\n    bytes: BLOB\n"), 0o644))

	setDoc := "relation blobs = {\n  id in int64 - {null},\n  payload in bytes,\n}\nkey blobs (id)\n"

	// Without the config the bytes mapping is ambiguous.
	out, _, err := execute(t, setDoc, "translate", "--from", "set", "--to", "sql")
	require.Error(t, err)
	assert.Contains(t, out, "E103")

	out, _, err = execute(t, setDoc, "--config", cfgPath, "translate", "--from", "set", "--to", "sql")
	require.NoError(t, err)
	assert.Contains(t, out, "payload BLOB")
}
