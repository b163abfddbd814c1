package cli

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestDB(t *testing.T, stmts ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, "statement: %s", stmt)
	}
	return path
}

func TestExtract_DefaultTarget(t *testing.T) {
	path := createTestDB(t,
		`CREATE TABLE customers (id INTEGER NOT NULL PRIMARY KEY, name TEXT NOT NULL, email TEXT UNIQUE)`)

	out, _, err := execute(t, "", "extract", path)
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE customers")
	assert.Contains(t, out, "PRIMARY KEY (id)")
	assert.Contains(t, out, "UNIQUE (email)")
}

func TestExtract_SetTarget(t *testing.T) {
	path := createTestDB(t,
		`CREATE TABLE customers (id INTEGER NOT NULL PRIMARY KEY, name TEXT NOT NULL)`)

	out, _, err := execute(t, "", "extract", "--to", "set", path)
	require.NoError(t, err)
	assert.Contains(t, out, "relation customers")
	assert.Contains(t, out, "key customers (id)")
}

func TestExtract_AllTablesJSON(t *testing.T) {
	path := createTestDB(t,
		`CREATE TABLE customers (id INTEGER NOT NULL PRIMARY KEY)`,
		`CREATE TABLE orders (id INTEGER NOT NULL PRIMARY KEY)`)

	out, _, err := execute(t, "", "--format", "json", "extract", path)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	tables := resp.Data.([]any)
	require.Len(t, tables, 2)
	first := tables[0].(map[string]any)
	assert.Equal(t, "customers", first["table"])
	assert.Len(t, first["fingerprint"], 64)
}

func TestExtract_SingleTable(t *testing.T) {
	path := createTestDB(t,
		`CREATE TABLE customers (id INTEGER NOT NULL PRIMARY KEY)`,
		`CREATE TABLE orders (id INTEGER NOT NULL PRIMARY KEY)`)

	out, _, err := execute(t, "", "extract", "--table", "orders", path)
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE orders")
	assert.NotContains(t, out, "customers")
}

func TestExtract_MissingDatabase(t *testing.T) {
	_, _, err := execute(t, "", "extract", filepath.Join(t.TempDir(), "absent.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestExtract_UnknownDeclaredType(t *testing.T) {
	path := createTestDB(t,
		`CREATE TABLE t (id INTEGER NOT NULL PRIMARY KEY, price MONEY)`)

	out, _, err := execute(t, "", "extract", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E100")
}
