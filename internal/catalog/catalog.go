// Package catalog holds the immutable mapping tables between canonical
// types, constraint kinds, and default tokens and their spellings in
// each surface representation.
//
// The catalog is the single source of truth for what each
// representation can express. Adapters resolve every token through it
// and never hard-code a spelling, so adding a type or a representation
// is a catalog change, not an adapter rewrite.
//
// Lifecycle: built once before any translation request is served and
// never mutated afterward. Shared by immutable reference across
// concurrent requests with no synchronization.
package catalog

import (
	"sort"
	"strings"

	"github.com/fourfold/fourfold/internal/ir"
	"github.com/fourfold/fourfold/internal/repr"
)

// spellings is the per-representation spelling set for one canonical
// entry. Preferred indexes into Names; a negative Preferred with more
// than one name means the entry is ambiguous and needs a formatting
// choice (AmbiguousMappingError otherwise). An empty Names slice means
// the representation cannot express the entry at all.
type spellings struct {
	Names     []string
	Preferred int
}

// Catalog is the immutable mapping table set.
type Catalog struct {
	types       map[ir.Type]map[repr.Representation]spellings
	tokens      map[ir.Token]map[repr.Representation]spellings
	constraints map[ir.ConstraintKind]map[repr.Representation]spellings

	// reverse indexes, keyed by folded spelling
	typeBySpelling       map[repr.Representation]map[string]ir.Type
	tokenBySpelling      map[repr.Representation]map[string]ir.Token
	constraintBySpelling map[repr.Representation]map[string]ir.ConstraintKind
}

// fold normalizes a spelling for case-insensitive lookup.
func fold(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// MapType returns the spelling for a canonical type in the target
// representation. cfg may carry a tie-break choice for ambiguous
// entries; pass nil for defaults. Fails with UnknownTypeError when the
// type has no entry and AmbiguousMappingError when several spellings
// are equally preferred and unchosen.
func (c *Catalog) MapType(t ir.Type, target repr.Representation, cfg *repr.FormatConfig) (string, error) {
	sp, ok := c.types[t][target]
	if !ok || len(sp.Names) == 0 {
		return "", &UnknownTypeError{Token: string(t), Representation: target}
	}
	if sp.Preferred >= 0 {
		return sp.Names[sp.Preferred], nil
	}
	if choice := cfg.TypeChoice(target, t); choice != "" {
		for _, name := range sp.Names {
			if fold(name) == fold(choice) {
				return name, nil
			}
		}
	}
	return "", &AmbiguousMappingError{
		Construct:      string(t),
		Representation: target,
		Candidates:     append([]string(nil), sp.Names...),
	}
}

// ResolveType resolves a source spelling to its canonical type.
// Lookup is case-insensitive. Fails with UnknownTypeError when the
// spelling has no canonical counterpart.
func (c *Catalog) ResolveType(spelling string, source repr.Representation) (ir.Type, error) {
	if t, ok := c.typeBySpelling[source][fold(spelling)]; ok {
		return t, nil
	}
	return "", &UnknownTypeError{Token: spelling, Representation: source}
}

// MapToken returns the spelling for a canonical default token. A token
// a representation cannot spell fails here; callers must surface that
// as an unsupported construct rather than substituting a literal.
func (c *Catalog) MapToken(tok ir.Token, target repr.Representation) (string, error) {
	sp, ok := c.tokens[tok][target]
	if !ok || len(sp.Names) == 0 {
		return "", &UnknownTokenError{Token: string(tok), Representation: target}
	}
	return sp.Names[sp.Preferred], nil
}

// ResolveToken resolves a source spelling to a canonical default token.
func (c *Catalog) ResolveToken(spelling string, source repr.Representation) (ir.Token, error) {
	if tok, ok := c.tokenBySpelling[source][fold(spelling)]; ok {
		return tok, nil
	}
	return "", &UnknownTokenError{Token: spelling, Representation: source}
}

// MapConstraint returns the spelling for a constraint kind.
func (c *Catalog) MapConstraint(k ir.ConstraintKind, target repr.Representation) (string, error) {
	sp, ok := c.constraints[k][target]
	if !ok || len(sp.Names) == 0 {
		return "", &UnknownConstraintError{Token: string(k), Representation: target}
	}
	return sp.Names[sp.Preferred], nil
}

// ResolveConstraint resolves a constraint spelling to its kind.
func (c *Catalog) ResolveConstraint(spelling string, source repr.Representation) (ir.ConstraintKind, error) {
	if k, ok := c.constraintBySpelling[source][fold(spelling)]; ok {
		return k, nil
	}
	return "", &UnknownConstraintError{Token: spelling, Representation: source}
}

// Types lists the canonical types with an entry for at least one
// representation, sorted by name. Used by the CLI catalog listing.
func (c *Catalog) Types() []ir.Type {
	out := make([]ir.Type, 0, len(c.types))
	for t := range c.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Tokens lists the canonical default tokens, sorted.
func (c *Catalog) Tokens() []ir.Token {
	out := make([]ir.Token, 0, len(c.tokens))
	for t := range c.tokens {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Kinds lists the constraint kinds, sorted.
func (c *Catalog) Kinds() []ir.ConstraintKind {
	out := make([]ir.ConstraintKind, 0, len(c.constraints))
	for k := range c.constraints {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Spellings returns every spelling of a canonical type in the given
// representation (empty when inexpressible). The returned slice is a
// copy; the catalog itself is never mutated after construction.
func (c *Catalog) Spellings(t ir.Type, r repr.Representation) []string {
	return append([]string(nil), c.types[t][r].Names...)
}

// TokenSpellings returns every spelling of a default token in the
// given representation.
func (c *Catalog) TokenSpellings(tok ir.Token, r repr.Representation) []string {
	return append([]string(nil), c.tokens[tok][r].Names...)
}

// ConstraintSpellings returns every spelling of a constraint kind in
// the given representation.
func (c *Catalog) ConstraintSpellings(k ir.ConstraintKind, r repr.Representation) []string {
	return append([]string(nil), c.constraints[k][r].Names...)
}

// LiteralCompatible reports whether a default literal kind is
// compatible with a canonical column type. The catalog, not the
// adapters, owns this table: a representation-level spelling never
// decides compatibility.
func (c *Catalog) LiteralCompatible(kind ir.LiteralKind, t ir.Type) bool {
	switch kind {
	case ir.LitInt:
		return t == ir.TypeInt32 || t == ir.TypeInt64 || t == ir.TypeDecimal
	case ir.LitNumber:
		return t == ir.TypeDecimal
	case ir.LitString:
		return t == ir.TypeText || t == ir.TypeDate || t == ir.TypeTimestamp || t == ir.TypeUUID || t == ir.TypeBytes
	case ir.LitBool:
		return t == ir.TypeBool
	default:
		return false
	}
}

// TokenCompatible reports whether a default token is compatible with a
// canonical column type.
func (c *Catalog) TokenCompatible(tok ir.Token, t ir.Type) bool {
	switch tok {
	case ir.TokenCurrentTimestamp:
		return t == ir.TypeTimestamp
	case ir.TokenCurrentDate:
		return t == ir.TypeDate
	case ir.TokenGenerateUUID:
		return t == ir.TypeUUID
	default:
		return false
	}
}
