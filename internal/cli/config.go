package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fourfold/fourfold/internal/repr"
)

// LoadFormatConfig reads a YAML formatting configuration file:
//
//	indent: "    "
//	type_choices:
//	  declarative-query:
//	    bytes: BLOB
//
// An empty path yields the defaults. Unknown fields are rejected so a
// typo in a config file fails loudly instead of being ignored.
func LoadFormatConfig(path string) (*repr.FormatConfig, error) {
	if path == "" {
		return repr.DefaultFormat(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := repr.DefaultFormat()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Indent == "" {
		cfg.Indent = repr.DefaultFormat().Indent
	}
	return cfg, nil
}
