package declarative

import (
	"fmt"
	"strings"

	"github.com/fourfold/fourfold/internal/ir"
	"github.com/fourfold/fourfold/internal/repr"
)

// Generate emits DDL text for a canonical document. Generation is a
// pure function of the document and the formatting configuration:
// identical inputs yield byte-identical text. Constraint iteration
// order is fixed (primary key, not-null, unique, foreign key, default);
// not-null and default are column options, the rest are table items.
func (a *Adapter) Generate(doc *ir.Document, cfg *repr.FormatConfig) (string, error) {
	if cfg == nil {
		cfg = repr.DefaultFormat()
	}
	if len(doc.Lineage) > 0 {
		return "", &repr.UnsupportedConstructError{
			Construct: "lineage edge",
			Target:    repr.DeclarativeQuery,
		}
	}

	var sb strings.Builder
	writeComment(&sb, doc.Comment, "")

	for _, op := range doc.Ops {
		switch op.Kind {
		case ir.OpCreateTable:
			if err := a.writeCreateTable(&sb, doc, cfg); err != nil {
				return "", err
			}
		case ir.OpAddColumn:
			if err := a.writeAddColumn(&sb, doc.Schema.Name, op.Column, cfg); err != nil {
				return "", err
			}
		case ir.OpAddConstraint:
			if err := a.writeAddConstraint(&sb, doc.Schema.Name, op.Constraint, cfg); err != nil {
				return "", err
			}
		case ir.OpDropConstraint:
			if err := writeDropConstraint(&sb, doc.Schema.Name, op.Drop); err != nil {
				return "", err
			}
		case ir.OpCreateIndex:
			writeCreateIndex(&sb, doc.Schema.Name, op.Index)
		default:
			return "", &repr.GenerationError{
				Target:  repr.DeclarativeQuery,
				Message: fmt.Sprintf("unknown operation kind %q", op.Kind),
			}
		}
	}
	// Indexes declared on the schema itself (not via an operation) are
	// emitted after all operations, in declaration order.
	for i := range doc.Schema.Indexes {
		writeCreateIndex(&sb, doc.Schema.Name, &doc.Schema.Indexes[i])
	}
	return sb.String(), nil
}

func writeComment(sb *strings.Builder, comment, indent string) {
	if comment == "" {
		return
	}
	for _, line := range strings.Split(comment, "\n") {
		sb.WriteString(indent + "-- " + line + "\n")
	}
}

func (a *Adapter) writeCreateTable(sb *strings.Builder, doc *ir.Document, cfg *repr.FormatConfig) error {
	s := &doc.Schema
	fmt.Fprintf(sb, "CREATE TABLE %s (\n", s.Name)

	// item pairs the structural text with the column comment, if any.
	// Single-line comments trail the item; multi-line comments are
	// emitted as own-line comments before it, which the parser
	// attaches to the following column.
	type item struct {
		structural string
		comment    string
	}
	var items []item
	for i := range s.Columns {
		line, err := a.columnLine(&s.Columns[i], cfg)
		if err != nil {
			return err
		}
		items = append(items, item{structural: line, comment: s.Columns[i].Comment})
	}
	if s.PrimaryKey != nil {
		items = append(items, item{structural: constraintPrefix(s.PrimaryKey.Name) +
			fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(s.PrimaryKey.Columns, ", "))})
	}
	for _, u := range s.Uniques {
		items = append(items, item{structural: constraintPrefix(u.Name) +
			fmt.Sprintf("UNIQUE (%s)", strings.Join(u.Columns, ", "))})
	}
	for _, fk := range s.ForeignKeys {
		items = append(items, item{structural: constraintPrefix(fk.Name) +
			fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
				strings.Join(fk.Columns, ", "), fk.RefTable, strings.Join(fk.RefColumns, ", "))})
	}

	for i, it := range items {
		multiline := strings.Contains(it.comment, "\n")
		if multiline {
			writeComment(sb, it.comment, cfg.Indent)
		}
		sb.WriteString(cfg.Indent + it.structural)
		if i < len(items)-1 {
			sb.WriteString(",")
		}
		if it.comment != "" && !multiline {
			sb.WriteString(" -- " + it.comment)
		}
		sb.WriteString("\n")
	}
	sb.WriteString(");\n")
	return nil
}

func constraintPrefix(name string) string {
	if name == "" {
		return ""
	}
	return fmt.Sprintf("CONSTRAINT %s ", name)
}

// columnLine renders the structural "name TYPE [NOT NULL] [DEFAULT v]"
// part of a column item; the comment is the caller's concern.
func (a *Adapter) columnLine(col *ir.ColumnDef, cfg *repr.FormatConfig) (string, error) {
	spelling, err := a.cat.MapType(col.Type, repr.DeclarativeQuery, cfg)
	if err != nil {
		return "", err
	}
	var parts []string
	parts = append(parts, col.Name, spelling)
	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if col.Default != nil {
		v, err := a.defaultValue(col.Default)
		if err != nil {
			return "", err
		}
		parts = append(parts, "DEFAULT", v)
	}
	return strings.Join(parts, " "), nil
}

func (a *Adapter) defaultValue(def *ir.DefaultDef) (string, error) {
	if def.IsToken() {
		return a.cat.MapToken(def.Token, repr.DeclarativeQuery)
	}
	lit := def.Literal
	switch lit.Kind {
	case ir.LitString:
		return "'" + strings.ReplaceAll(lit.Text, "'", "''") + "'", nil
	case ir.LitBool:
		return strings.ToUpper(lit.Text), nil
	default:
		return lit.Text, nil
	}
}

func (a *Adapter) writeAddColumn(sb *strings.Builder, table string, col *ir.ColumnDef, cfg *repr.FormatConfig) error {
	line, err := a.columnLine(col, cfg)
	if err != nil {
		return err
	}
	multiline := strings.Contains(col.Comment, "\n")
	if multiline {
		writeComment(sb, col.Comment, "")
	}
	fmt.Fprintf(sb, "ALTER TABLE %s ADD COLUMN %s;", table, line)
	if col.Comment != "" && !multiline {
		sb.WriteString(" -- " + col.Comment)
	}
	sb.WriteString("\n")
	return nil
}

func (a *Adapter) writeAddConstraint(sb *strings.Builder, table string, c *ir.ConstraintDef, cfg *repr.FormatConfig) error {
	var body string
	switch c.Kind {
	case ir.ConstraintPrimaryKey:
		body = fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(c.Columns, ", "))
	case ir.ConstraintUnique:
		body = fmt.Sprintf("UNIQUE (%s)", strings.Join(c.Columns, ", "))
	case ir.ConstraintForeignKey:
		body = fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			strings.Join(c.Columns, ", "), c.RefTable, strings.Join(c.RefColumns, ", "))
	case ir.ConstraintNotNull, ir.ConstraintDefault:
		// No portable ALTER spelling in this subset.
		return &repr.UnsupportedConstructError{
			Construct: fmt.Sprintf("add-constraint %s", c.Kind),
			Target:    repr.DeclarativeQuery,
		}
	default:
		return &repr.GenerationError{
			Target:  repr.DeclarativeQuery,
			Message: fmt.Sprintf("unknown constraint kind %q", c.Kind),
		}
	}
	if c.Name != "" {
		fmt.Fprintf(sb, "ALTER TABLE %s ADD CONSTRAINT %s %s;\n", table, c.Name, body)
	} else {
		fmt.Fprintf(sb, "ALTER TABLE %s ADD %s;\n", table, body)
	}
	return nil
}

func writeDropConstraint(sb *strings.Builder, table string, ref *ir.ConstraintRef) error {
	if ref.Name == "" {
		// The declarative form drops constraints by name only.
		return &repr.UnsupportedConstructError{
			Construct: fmt.Sprintf("drop unnamed %s constraint", ref.Kind),
			Target:    repr.DeclarativeQuery,
		}
	}
	fmt.Fprintf(sb, "ALTER TABLE %s DROP CONSTRAINT %s;\n", table, ref.Name)
	return nil
}

func writeCreateIndex(sb *strings.Builder, table string, ix *ir.IndexDef) {
	unique := ""
	if ix.Unique {
		unique = "UNIQUE "
	}
	fmt.Fprintf(sb, "CREATE %sINDEX %s ON %s (%s);\n", unique, ix.Name, table, strings.Join(ix.Columns, ", "))
}
