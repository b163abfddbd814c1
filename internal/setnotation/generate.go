package setnotation

import (
	"fmt"
	"strings"

	"github.com/fourfold/fourfold/internal/ir"
	"github.com/fourfold/fourfold/internal/repr"
)

// Generate emits set notation for a canonical document. Generation is
// a pure function of the document and the formatting configuration:
// identical inputs yield byte-identical text. Single-line column
// comments trail the member; multi-line comments precede it.
func (a *Adapter) Generate(doc *ir.Document, cfg *repr.FormatConfig) (string, error) {
	if cfg == nil {
		cfg = repr.DefaultFormat()
	}
	if len(doc.Lineage) > 0 {
		return "", &repr.UnsupportedConstructError{
			Construct: "lineage edge",
			Target:    repr.Set,
		}
	}

	var sb strings.Builder
	writeComment(&sb, doc.Comment, "")

	for _, op := range doc.Ops {
		switch op.Kind {
		case ir.OpCreateTable:
			if err := a.writeRelation(&sb, doc, cfg); err != nil {
				return "", err
			}
		case ir.OpAddColumn:
			if err := a.writeExtend(&sb, doc.Schema.Name, op.Column, cfg); err != nil {
				return "", err
			}
		case ir.OpAddConstraint:
			if err := a.writeConstrain(&sb, doc.Schema.Name, op.Constraint); err != nil {
				return "", err
			}
		case ir.OpDropConstraint:
			if err := a.writeDrop(&sb, doc.Schema.Name, op.Drop); err != nil {
				return "", err
			}
		case ir.OpCreateIndex:
			writeIndex(&sb, doc.Schema.Name, op.Index)
		default:
			return "", &repr.GenerationError{
				Target:  repr.Set,
				Message: fmt.Sprintf("unknown operation kind %q", op.Kind),
			}
		}
	}
	for i := range doc.Schema.Indexes {
		writeIndex(&sb, doc.Schema.Name, &doc.Schema.Indexes[i])
	}
	return sb.String(), nil
}

func writeComment(sb *strings.Builder, comment, indent string) {
	if comment == "" {
		return
	}
	for _, line := range strings.Split(comment, "\n") {
		sb.WriteString(indent + "# " + line + "\n")
	}
}

func (a *Adapter) writeRelation(sb *strings.Builder, doc *ir.Document, cfg *repr.FormatConfig) error {
	s := &doc.Schema
	fmt.Fprintf(sb, "relation %s = {\n", s.Name)
	for i := range s.Columns {
		col := &s.Columns[i]
		line, err := a.memberLine(col, cfg)
		if err != nil {
			return err
		}
		if strings.Contains(col.Comment, "\n") {
			writeComment(sb, col.Comment, cfg.Indent)
			sb.WriteString(cfg.Indent + line + ",\n")
		} else if col.Comment != "" {
			sb.WriteString(cfg.Indent + line + ", # " + col.Comment + "\n")
		} else {
			sb.WriteString(cfg.Indent + line + ",\n")
		}
	}
	sb.WriteString("}\n")

	if pk := s.PrimaryKey; pk != nil {
		fmt.Fprintf(sb, "key %s %s%s\n", s.Name, colList(pk.Columns), nameSuffix(pk.Name))
	}
	for _, u := range s.Uniques {
		fmt.Fprintf(sb, "unique %s %s%s\n", s.Name, colList(u.Columns), nameSuffix(u.Name))
	}
	for _, fk := range s.ForeignKeys {
		fmt.Fprintf(sb, "subset %s %s of %s %s%s\n",
			s.Name, colList(fk.Columns), fk.RefTable, colList(fk.RefColumns), nameSuffix(fk.Name))
	}
	return nil
}

// memberLine renders "name in type [- {null}] [default value]" with no
// comment. Comment placement is the caller's concern.
func (a *Adapter) memberLine(col *ir.ColumnDef, cfg *repr.FormatConfig) (string, error) {
	spelling, err := a.cat.MapType(col.Type, repr.Set, cfg)
	if err != nil {
		return "", err
	}
	line := col.Name + " in " + spelling
	if !col.Nullable {
		line += " - {null}"
	}
	if col.Default != nil {
		v, err := a.value(col.Default)
		if err != nil {
			return "", err
		}
		line += " default " + v
	}
	return line, nil
}

func (a *Adapter) value(def *ir.DefaultDef) (string, error) {
	if def.IsToken() {
		return a.cat.MapToken(def.Token, repr.Set)
	}
	lit := def.Literal
	switch lit.Kind {
	case ir.LitString:
		return `"` + strings.ReplaceAll(lit.Text, `"`, `""`) + `"`, nil
	case ir.LitInt, ir.LitNumber, ir.LitBool:
		return lit.Text, nil
	default:
		return "", &repr.GenerationError{
			Target:  repr.Set,
			Message: fmt.Sprintf("unknown literal kind %q", lit.Kind),
		}
	}
}

func (a *Adapter) writeExtend(sb *strings.Builder, table string, col *ir.ColumnDef, cfg *repr.FormatConfig) error {
	line, err := a.memberLine(col, cfg)
	if err != nil {
		return err
	}
	if strings.Contains(col.Comment, "\n") {
		writeComment(sb, col.Comment, "")
		fmt.Fprintf(sb, "extend %s with %s\n", table, line)
	} else if col.Comment != "" {
		fmt.Fprintf(sb, "extend %s with %s # %s\n", table, line, col.Comment)
	} else {
		fmt.Fprintf(sb, "extend %s with %s\n", table, line)
	}
	return nil
}

func (a *Adapter) writeConstrain(sb *strings.Builder, table string, c *ir.ConstraintDef) error {
	spelling, err := a.cat.MapConstraint(c.Kind, repr.Set)
	if err != nil {
		return err
	}
	switch c.Kind {
	case ir.ConstraintPrimaryKey, ir.ConstraintUnique:
		fmt.Fprintf(sb, "constrain %s with %s %s%s\n", table, spelling, colList(c.Columns), nameSuffix(c.Name))
	case ir.ConstraintNotNull:
		fmt.Fprintf(sb, "constrain %s with %s %s\n", table, spelling, colList(c.Columns))
	case ir.ConstraintForeignKey:
		fmt.Fprintf(sb, "constrain %s with %s %s of %s %s%s\n",
			table, spelling, colList(c.Columns), c.RefTable, colList(c.RefColumns), nameSuffix(c.Name))
	case ir.ConstraintDefault:
		v, err := a.value(c.Default)
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, "constrain %s with %s %s = %s\n", table, spelling, colList(c.Columns), v)
	default:
		return &repr.GenerationError{
			Target:  repr.Set,
			Message: fmt.Sprintf("unknown constraint kind %q", c.Kind),
		}
	}
	return nil
}

func (a *Adapter) writeDrop(sb *strings.Builder, table string, ref *ir.ConstraintRef) error {
	if ref.Name != "" {
		fmt.Fprintf(sb, "drop constraint %s from %s\n", ref.Name, table)
		return nil
	}
	spelling, err := a.cat.MapConstraint(ref.Kind, repr.Set)
	if err != nil {
		return err
	}
	fmt.Fprintf(sb, "drop %s %s from %s\n", spelling, colList(ref.Columns), table)
	return nil
}

func writeIndex(sb *strings.Builder, table string, ix *ir.IndexDef) {
	suffix := ""
	if ix.Unique {
		suffix = " unique"
	}
	fmt.Fprintf(sb, "index %s on %s %s%s\n", ix.Name, table, colList(ix.Columns), suffix)
}

func colList(cols []string) string {
	return "(" + strings.Join(cols, ", ") + ")"
}

func nameSuffix(name string) string {
	if name == "" {
		return ""
	}
	return " as " + name
}
