package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const messyDDL = "create   table customers(id INTEGER primary key,name TEXT not null);"

const canonicalDDL = `CREATE TABLE customers (
  id INTEGER NOT NULL,
  name TEXT NOT NULL,
  PRIMARY KEY (id)
);
`

func TestFmt_Stdin(t *testing.T) {
	out, _, err := execute(t, messyDDL, "fmt", "--repr", "sql")
	require.NoError(t, err)
	assert.Equal(t, canonicalDDL, out)
}

func TestFmt_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "customers.sql")
	require.NoError(t, os.WriteFile(path, []byte(messyDDL), 0o644))

	out, _, err := execute(t, "", "fmt", "--repr", "sql", "-w", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	rewritten, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, canonicalDDL, string(rewritten))
}

func TestFmt_WriteNeedsFile(t *testing.T) {
	_, _, err := execute(t, messyDDL, "fmt", "--repr", "sql", "-w")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFmt_Idempotent(t *testing.T) {
	once, _, err := execute(t, messyDDL, "fmt", "--repr", "sql")
	require.NoError(t, err)
	twice, _, err := execute(t, once, "fmt", "--repr", "sql")
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestFmt_ParseErrorFails(t *testing.T) {
	out, _, err := execute(t, "CREATE TABLE (", "fmt", "--repr", "sql")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E200")
}
