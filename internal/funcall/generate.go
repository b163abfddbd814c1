package funcall

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/literal"

	"github.com/fourfold/fourfold/internal/ir"
	"github.com/fourfold/fourfold/internal/repr"
)

// Generate emits call-tree CUE text for a canonical document.
// Generation is a pure function of the document and the formatting
// configuration: identical inputs yield byte-identical text.
func (a *Adapter) Generate(doc *ir.Document, cfg *repr.FormatConfig) (string, error) {
	if cfg == nil {
		cfg = repr.DefaultFormat()
	}
	if len(doc.Lineage) > 0 {
		return "", &repr.UnsupportedConstructError{
			Construct: "lineage edge",
			Target:    repr.FunctionalCall,
		}
	}

	var sb strings.Builder
	if doc.Comment != "" {
		sb.WriteString("comment: " + quote(doc.Comment) + "\n")
	}
	sb.WriteString("ops: [\n")
	ind := cfg.Indent

	for _, op := range doc.Ops {
		switch op.Kind {
		case ir.OpCreateTable:
			if err := a.writeCreateTable(&sb, doc, cfg); err != nil {
				return "", err
			}
		case ir.OpAddColumn:
			col, err := a.columnStruct(op.Column, cfg)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&sb, "%s{call: \"add_column\", column_def: %s},\n", ind, col)
		case ir.OpAddConstraint:
			c, err := a.constraintStruct(op.Constraint, cfg)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&sb, "%s{call: \"add_constraint\", constraint: %s},\n", ind, c)
		case ir.OpDropConstraint:
			fields, err := a.dropRefFields(op.Drop)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&sb, "%s{call: \"drop_constraint\"%s},\n", ind, fields)
		case ir.OpCreateIndex:
			fmt.Fprintf(&sb, "%s{call: \"create_index\", %s},\n", ind, indexFields(op.Index))
		default:
			return "", &repr.GenerationError{
				Target:  repr.FunctionalCall,
				Message: fmt.Sprintf("unknown operation kind %q", op.Kind),
			}
		}
	}
	sb.WriteString("]\n")
	return sb.String(), nil
}

func (a *Adapter) writeCreateTable(sb *strings.Builder, doc *ir.Document, cfg *repr.FormatConfig) error {
	s := &doc.Schema
	ind := cfg.Indent
	in2 := ind + ind
	in3 := in2 + ind

	// Single-column unnamed uniques become column-level flags only when
	// flag placement reproduces the declaration order on reparse: they
	// must lead the uniques list and follow column order. Otherwise all
	// uniques stay in unique_defs.
	flagged := map[string]bool{}
	var listed []ir.UniqueDef
	if prefix := columnFlagPrefix(s); prefix > 0 {
		for _, u := range s.Uniques[:prefix] {
			flagged[u.Columns[0]] = true
		}
		listed = s.Uniques[prefix:]
	} else {
		listed = s.Uniques
	}

	sb.WriteString(ind + "{\n")
	sb.WriteString(in2 + "call: \"create_table\"\n")
	sb.WriteString(in2 + "target_table: " + quote(s.Name) + "\n")
	sb.WriteString(in2 + "column_defs: [\n")
	for i := range s.Columns {
		col := s.Columns[i]
		str, err := a.columnStructOpts(&col, flagged[col.Name], cfg)
		if err != nil {
			return err
		}
		sb.WriteString(in3 + str + ",\n")
	}
	sb.WriteString(in2 + "]\n")

	if pk := s.PrimaryKey; pk != nil {
		if pk.Name == "" && len(pk.Columns) == 1 {
			sb.WriteString(in2 + "primary_key: " + quote(pk.Columns[0]) + "\n")
		} else {
			sb.WriteString(in2 + "primary_key: {")
			if pk.Name != "" {
				sb.WriteString("name: " + quote(pk.Name) + ", ")
			}
			sb.WriteString("columns: " + quoteList(pk.Columns) + "}\n")
		}
	}

	if len(listed) > 0 {
		sb.WriteString(in2 + "unique_defs: [\n")
		for _, u := range listed {
			sb.WriteString(in3 + "{")
			if u.Name != "" {
				sb.WriteString("name: " + quote(u.Name) + ", ")
			}
			sb.WriteString("columns: " + quoteList(u.Columns) + "},\n")
		}
		sb.WriteString(in2 + "]\n")
	}

	if len(s.ForeignKeys) > 0 {
		sb.WriteString(in2 + "foreign_keys: [\n")
		for _, fk := range s.ForeignKeys {
			sb.WriteString(in3 + "{")
			if fk.Name != "" {
				sb.WriteString("name: " + quote(fk.Name) + ", ")
			}
			fmt.Fprintf(sb, "columns: %s, ref_table: %s, ref_columns: %s},\n",
				quoteList(fk.Columns), quote(fk.RefTable), quoteList(fk.RefColumns))
		}
		sb.WriteString(in2 + "]\n")
	}

	if len(s.Indexes) > 0 {
		sb.WriteString(in2 + "indexes: [\n")
		for i := range s.Indexes {
			sb.WriteString(in3 + "{" + indexFields(&s.Indexes[i]) + "},\n")
		}
		sb.WriteString(in2 + "]\n")
	}

	sb.WriteString(ind + "},\n")
	return nil
}

// columnFlagPrefix returns how many leading uniques qualify as
// column-level flags: each single-column, unnamed, on a schema column,
// with strictly increasing column positions.
func columnFlagPrefix(s *ir.SchemaDefinition) int {
	pos := make(map[string]int, len(s.Columns))
	for i, c := range s.Columns {
		pos[c.Name] = i
	}
	prev := -1
	for i, u := range s.Uniques {
		if u.Name != "" || len(u.Columns) != 1 {
			return i
		}
		p, ok := pos[u.Columns[0]]
		if !ok || p <= prev {
			return i
		}
		prev = p
	}
	return len(s.Uniques)
}

func (a *Adapter) columnStruct(col *ir.ColumnDef, cfg *repr.FormatConfig) (string, error) {
	return a.columnStructOpts(col, false, cfg)
}

func (a *Adapter) columnStructOpts(col *ir.ColumnDef, unique bool, cfg *repr.FormatConfig) (string, error) {
	spelling, err := a.cat.MapType(col.Type, repr.FunctionalCall, cfg)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("{name: " + quote(col.Name) + ", type: " + quote(spelling))
	if !col.Nullable {
		b.WriteString(", not_null: true")
	}
	if unique {
		b.WriteString(", unique: true")
	}
	if col.Default != nil {
		dv, err := a.defaultValue(col.Default)
		if err != nil {
			return "", err
		}
		b.WriteString(", default: " + dv)
	}
	if col.Comment != "" {
		b.WriteString(", comment: " + quote(col.Comment))
	}
	b.WriteString("}")
	return b.String(), nil
}

// defaultValue renders a default. A string literal that collides with
// a token spelling uses the explicit {string: ...} form so it survives
// reparsing as a literal.
func (a *Adapter) defaultValue(def *ir.DefaultDef) (string, error) {
	if def.IsToken() {
		spelling, err := a.cat.MapToken(def.Token, repr.FunctionalCall)
		if err != nil {
			return "", err
		}
		return quote(spelling), nil
	}
	lit := def.Literal
	switch lit.Kind {
	case ir.LitString:
		if _, err := a.cat.ResolveToken(lit.Text, repr.FunctionalCall); err == nil {
			return "{string: " + quote(lit.Text) + "}", nil
		}
		return quote(lit.Text), nil
	case ir.LitInt, ir.LitBool:
		return lit.Text, nil
	case ir.LitNumber:
		return "{number: " + quote(lit.Text) + "}", nil
	default:
		return "", &repr.GenerationError{
			Target:  repr.FunctionalCall,
			Message: fmt.Sprintf("unknown literal kind %q", lit.Kind),
		}
	}
}

func (a *Adapter) constraintStruct(c *ir.ConstraintDef, cfg *repr.FormatConfig) (string, error) {
	spelling, err := a.cat.MapConstraint(c.Kind, repr.FunctionalCall)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("{kind: " + quote(spelling))
	if c.Name != "" {
		b.WriteString(", name: " + quote(c.Name))
	}
	if len(c.Columns) > 0 {
		b.WriteString(", columns: " + quoteList(c.Columns))
	}
	if c.RefTable != "" {
		b.WriteString(", ref_table: " + quote(c.RefTable))
	}
	if len(c.RefColumns) > 0 {
		b.WriteString(", ref_columns: " + quoteList(c.RefColumns))
	}
	if c.Default != nil {
		dv, err := a.defaultValue(c.Default)
		if err != nil {
			return "", err
		}
		b.WriteString(", default: " + dv)
	}
	b.WriteString("}")
	return b.String(), nil
}

func (a *Adapter) dropRefFields(ref *ir.ConstraintRef) (string, error) {
	var b strings.Builder
	if ref.Name != "" {
		b.WriteString(", name: " + quote(ref.Name))
	}
	if ref.Kind != "" {
		spelling, err := a.cat.MapConstraint(ref.Kind, repr.FunctionalCall)
		if err != nil {
			return "", err
		}
		b.WriteString(", kind: " + quote(spelling))
	}
	if len(ref.Columns) > 0 {
		b.WriteString(", columns: " + quoteList(ref.Columns))
	}
	return b.String(), nil
}

func indexFields(ix *ir.IndexDef) string {
	var b strings.Builder
	b.WriteString("name: " + quote(ix.Name) + ", columns: " + quoteList(ix.Columns))
	if ix.Unique {
		b.WriteString(", unique: true")
	}
	return b.String()
}

func quote(s string) string {
	return literal.String.Quote(s)
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = quote(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
