// Package repr defines the surface-representation vocabulary shared by
// all adapters: representation tags, the Adapter interface, formatting
// configuration, and the parse/generate error types.
package repr

import (
	"fmt"

	"github.com/fourfold/fourfold/internal/ir"
)

// Representation tags one of the four surface syntaxes.
type Representation string

const (
	DeclarativeQuery Representation = "declarative-query"
	FunctionalCall   Representation = "functional-call"
	Graph            Representation = "graph"
	Set              Representation = "set"
)

// All lists every representation in stable order.
var All = []Representation{DeclarativeQuery, FunctionalCall, Graph, Set}

// Parse resolves a user-supplied representation name. Accepts the
// canonical tag plus common short spellings used by the CLI.
func Parse(s string) (Representation, error) {
	switch s {
	case "declarative-query", "declarative", "sql", "ddl":
		return DeclarativeQuery, nil
	case "functional-call", "functional", "call":
		return FunctionalCall, nil
	case "graph":
		return Graph, nil
	case "set":
		return Set, nil
	default:
		return "", fmt.Errorf("unknown representation %q: must be one of %v", s, All)
	}
}

// FormatConfig carries the formatting choices generation is a pure
// function of. Identical document + identical config always yields
// byte-identical text.
type FormatConfig struct {
	// Indent is the indentation unit for block syntaxes.
	Indent string `yaml:"indent"`

	// TypeChoices resolves ambiguous type spellings: canonical type
	// name -> chosen spelling, per representation. Consulted only when
	// the catalog reports more than one equally preferred spelling.
	TypeChoices map[Representation]map[string]string `yaml:"type_choices"`
}

// DefaultFormat returns the default formatting configuration.
func DefaultFormat() *FormatConfig {
	return &FormatConfig{Indent: "  "}
}

// TypeChoice returns the configured spelling for a canonical type in
// the given representation, or "" if none is configured.
func (c *FormatConfig) TypeChoice(r Representation, canonical ir.Type) string {
	if c == nil || c.TypeChoices == nil {
		return ""
	}
	return c.TypeChoices[r][string(canonical)]
}

// Adapter is the parse/generate pair for one surface syntax.
//
// Parse builds a fresh ir.Document from native text, resolving every
// type and constraint token through the catalog; any construct without
// a catalog entry is an UnsupportedConstructError, never a silent drop.
//
// Generate walks the document deterministically (fixed column order;
// constraint iteration order primary-key, not-null, unique, foreign-key,
// default) and emits native text. A document holding a construct this
// representation cannot express fails with UnsupportedConstructError
// rather than omitting it.
type Adapter interface {
	Representation() Representation
	Parse(text string) (*ir.Document, error)
	Generate(doc *ir.Document, cfg *FormatConfig) (string, error)
}
