package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefix for content-addressed document identity. The version
// suffix enables future algorithm migration.
const DomainDocument = "fourfold/document/v1"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the content-addressed identity of a Document.
// Two documents with the same fingerprint are structurally identical;
// the fingerprint is stable across processes and never depends on
// surface-text formatting. Returns error only if the document contains
// something canonical JSON cannot carry, which Validate rules out.
func Fingerprint(d *Document) (string, error) {
	canonical, err := MarshalCanonical(d.CanonicalMap())
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDocument, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(d *Document) string {
	fp, err := Fingerprint(d)
	if err != nil {
		panic(err)
	}
	return fp
}

// CanonicalMap converts the Document to the plain map form consumed by
// MarshalCanonical. Empty optional fields are omitted so that a field
// left unset and a field never spelled are the same document.
func (d *Document) CanonicalMap() map[string]any {
	m := map[string]any{
		"schema": schemaMap(&d.Schema),
		"ops":    opsList(d.Ops),
	}
	if d.Comment != "" {
		m["comment"] = d.Comment
	}
	if len(d.Lineage) > 0 {
		edges := make([]any, len(d.Lineage))
		for i, e := range d.Lineage {
			em := map[string]any{"from": e.From, "to": e.To}
			if e.Via != "" {
				em["via"] = e.Via
			}
			edges[i] = em
		}
		m["lineage"] = edges
	}
	return m
}

func schemaMap(s *SchemaDefinition) map[string]any {
	cols := make([]any, len(s.Columns))
	for i := range s.Columns {
		cols[i] = columnMap(&s.Columns[i])
	}
	m := map[string]any{
		"name":    s.Name,
		"columns": cols,
	}
	if s.PrimaryKey != nil {
		pk := map[string]any{"columns": stringList(s.PrimaryKey.Columns)}
		if s.PrimaryKey.Name != "" {
			pk["name"] = s.PrimaryKey.Name
		}
		m["primary_key"] = pk
	}
	if len(s.ForeignKeys) > 0 {
		fks := make([]any, len(s.ForeignKeys))
		for i, fk := range s.ForeignKeys {
			fm := map[string]any{
				"columns":     stringList(fk.Columns),
				"ref_table":   fk.RefTable,
				"ref_columns": stringList(fk.RefColumns),
			}
			if fk.Name != "" {
				fm["name"] = fk.Name
			}
			fks[i] = fm
		}
		m["foreign_keys"] = fks
	}
	if len(s.Uniques) > 0 {
		us := make([]any, len(s.Uniques))
		for i, u := range s.Uniques {
			um := map[string]any{"columns": stringList(u.Columns)}
			if u.Name != "" {
				um["name"] = u.Name
			}
			us[i] = um
		}
		m["uniques"] = us
	}
	if len(s.Indexes) > 0 {
		ixs := make([]any, len(s.Indexes))
		for i, ix := range s.Indexes {
			ixs[i] = indexMap(&ix)
		}
		m["indexes"] = ixs
	}
	return m
}

func columnMap(c *ColumnDef) map[string]any {
	m := map[string]any{
		"name":     c.Name,
		"type":     string(c.Type),
		"nullable": c.Nullable,
	}
	if c.Default != nil {
		m["default"] = defaultMap(c.Default)
	}
	if c.Comment != "" {
		m["comment"] = c.Comment
	}
	return m
}

func defaultMap(d *DefaultDef) map[string]any {
	if d.Token != "" {
		return map[string]any{"token": string(d.Token)}
	}
	return map[string]any{"literal": map[string]any{
		"kind": string(d.Literal.Kind),
		"text": d.Literal.Text,
	}}
}

func indexMap(ix *IndexDef) map[string]any {
	m := map[string]any{"columns": stringList(ix.Columns)}
	if ix.Name != "" {
		m["name"] = ix.Name
	}
	if ix.Unique {
		m["unique"] = true
	}
	return m
}

func opsList(ops []Operation) []any {
	out := make([]any, len(ops))
	for i, op := range ops {
		m := map[string]any{"kind": string(op.Kind)}
		switch {
		case op.Column != nil:
			m["column"] = columnMap(op.Column)
		case op.Constraint != nil:
			m["constraint"] = constraintMap(op.Constraint)
		case op.Drop != nil:
			dm := map[string]any{}
			if op.Drop.Name != "" {
				dm["name"] = op.Drop.Name
			}
			if op.Drop.Kind != "" {
				dm["kind"] = string(op.Drop.Kind)
			}
			if len(op.Drop.Columns) > 0 {
				dm["columns"] = stringList(op.Drop.Columns)
			}
			m["drop"] = dm
		case op.Index != nil:
			m["index"] = indexMap(op.Index)
		}
		out[i] = m
	}
	return out
}

func constraintMap(c *ConstraintDef) map[string]any {
	m := map[string]any{
		"kind":    string(c.Kind),
		"columns": stringList(c.Columns),
	}
	if c.Name != "" {
		m["name"] = c.Name
	}
	if c.RefTable != "" {
		m["ref_table"] = c.RefTable
		m["ref_columns"] = stringList(c.RefColumns)
	}
	if c.Default != nil {
		m["default"] = defaultMap(c.Default)
	}
	return m
}

func stringList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
