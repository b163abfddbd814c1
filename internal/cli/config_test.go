package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fourfold/fourfold/internal/ir"
	"github.com/fourfold/fourfold/internal/repr"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "format.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFormatConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadFormatConfig("")
	require.NoError(t, err)
	assert.Equal(t, repr.DefaultFormat(), cfg)
}

func TestLoadFormatConfig_Full(t *testing.T) {
	path := writeConfig(t, `
indent: "    "
type_choices:
  declarative-query:
    bytes: BYTEA
`)
	cfg, err := LoadFormatConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "    ", cfg.Indent)
	assert.Equal(t, "BYTEA", cfg.TypeChoice(repr.DeclarativeQuery, ir.TypeBytes))
}

func TestLoadFormatConfig_IndentDefaulted(t *testing.T) {
	path := writeConfig(t, "type_choices: {}\n")
	cfg, err := LoadFormatConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "  ", cfg.Indent)
}

func TestLoadFormatConfig_UnknownField(t *testing.T) {
	path := writeConfig(t, "indentation: two\n")
	_, err := LoadFormatConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "indentation")
}

func TestLoadFormatConfig_MissingFile(t *testing.T) {
	_, err := LoadFormatConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
