package graphdoc

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fourfold/fourfold/internal/ir"
	"github.com/fourfold/fourfold/internal/repr"
)

// Generate emits graph YAML for a canonical document. Generation is a
// pure function of the document and the formatting configuration:
// identical inputs yield byte-identical text. Lineage edges are
// emitted after foreign-key edges.
func (a *Adapter) Generate(doc *ir.Document, cfg *repr.FormatConfig) (string, error) {
	if cfg == nil {
		cfg = repr.DefaultFormat()
	}

	y := yamlDoc{Comment: doc.Comment}

	node := yamlNode{Table: doc.Schema.Name}
	for i := range doc.Schema.Columns {
		col, err := a.yamlColumn(&doc.Schema.Columns[i], cfg)
		if err != nil {
			return "", err
		}
		node.Columns = append(node.Columns, *col)
	}
	if pk := doc.Schema.PrimaryKey; pk != nil {
		node.PrimaryKey = &yamlKey{Name: pk.Name, Columns: pk.Columns}
	}
	for _, u := range doc.Schema.Uniques {
		node.Uniques = append(node.Uniques, yamlKey{Name: u.Name, Columns: u.Columns})
	}
	for _, ix := range doc.Schema.Indexes {
		node.Indexes = append(node.Indexes, yamlIndex{Name: ix.Name, Columns: ix.Columns, Unique: ix.Unique})
	}
	y.Nodes = []yamlNode{node}

	fkSpelling, err := a.cat.MapConstraint(ir.ConstraintForeignKey, repr.Graph)
	if err != nil {
		return "", err
	}
	for _, fk := range doc.Schema.ForeignKeys {
		y.Edges = append(y.Edges, yamlEdge{
			Kind:       fkSpelling,
			From:       doc.Schema.Name,
			To:         fk.RefTable,
			Name:       fk.Name,
			Columns:    fk.Columns,
			RefColumns: fk.RefColumns,
		})
	}
	for _, l := range doc.Lineage {
		y.Edges = append(y.Edges, yamlEdge{Kind: edgeDerivedFrom, From: l.From, To: l.To, Via: l.Via})
	}

	for _, op := range doc.Ops {
		switch op.Kind {
		case ir.OpCreateTable:
			// Implied by the node declaration.
		case ir.OpAddColumn:
			col, err := a.yamlColumn(op.Column, cfg)
			if err != nil {
				return "", err
			}
			y.Operations = append(y.Operations, yamlOp{Op: string(ir.OpAddColumn), Column: col})
		case ir.OpAddConstraint:
			c, err := a.yamlConstraint(op.Constraint, cfg)
			if err != nil {
				return "", err
			}
			y.Operations = append(y.Operations, yamlOp{Op: string(ir.OpAddConstraint), Constraint: c})
		case ir.OpDropConstraint:
			o := yamlOp{Op: string(ir.OpDropConstraint), Name: op.Drop.Name, Columns: op.Drop.Columns}
			if op.Drop.Kind != "" {
				spelling, err := a.cat.MapConstraint(op.Drop.Kind, repr.Graph)
				if err != nil {
					return "", err
				}
				o.Kind = spelling
			}
			y.Operations = append(y.Operations, o)
		case ir.OpCreateIndex:
			y.Operations = append(y.Operations, yamlOp{Op: string(ir.OpCreateIndex), Index: &yamlIndex{
				Name: op.Index.Name, Columns: op.Index.Columns, Unique: op.Index.Unique,
			}})
		default:
			return "", &repr.GenerationError{
				Target:  repr.Graph,
				Message: fmt.Sprintf("unknown operation kind %q", op.Kind),
			}
		}
	}

	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	indent := len(cfg.Indent)
	if indent < 2 {
		indent = 2
	}
	enc.SetIndent(indent)
	if err := enc.Encode(&y); err != nil {
		return "", &repr.GenerationError{Target: repr.Graph, Message: err.Error()}
	}
	if err := enc.Close(); err != nil {
		return "", &repr.GenerationError{Target: repr.Graph, Message: err.Error()}
	}
	return sb.String(), nil
}

func (a *Adapter) yamlColumn(col *ir.ColumnDef, cfg *repr.FormatConfig) (*yamlColumn, error) {
	spelling, err := a.cat.MapType(col.Type, repr.Graph, cfg)
	if err != nil {
		return nil, err
	}
	y := &yamlColumn{
		Name:    col.Name,
		Type:    spelling,
		NotNull: !col.Nullable,
		Comment: col.Comment,
	}
	if col.Default != nil {
		if y.Default, err = a.defaultNode(col.Default); err != nil {
			return nil, err
		}
	}
	return y, nil
}

func (a *Adapter) yamlConstraint(c *ir.ConstraintDef, cfg *repr.FormatConfig) (*yamlConstraint, error) {
	spelling, err := a.cat.MapConstraint(c.Kind, repr.Graph)
	if err != nil {
		return nil, err
	}
	y := &yamlConstraint{
		Kind:       spelling,
		Name:       c.Name,
		Columns:    c.Columns,
		RefTable:   c.RefTable,
		RefColumns: c.RefColumns,
	}
	if c.Default != nil {
		if y.Default, err = a.defaultNode(c.Default); err != nil {
			return nil, err
		}
	}
	return y, nil
}

// defaultNode renders a default as a single-key mapping. String and
// number values are double-quoted so digit-like text stays text on
// reparse; int and bool stay plain scalars.
func (a *Adapter) defaultNode(def *ir.DefaultDef) (*yaml.Node, error) {
	if def.IsToken() {
		spelling, err := a.cat.MapToken(def.Token, repr.Graph)
		if err != nil {
			return nil, err
		}
		return mappingNode("token", scalar(spelling, 0)), nil
	}
	lit := def.Literal
	switch lit.Kind {
	case ir.LitString:
		return mappingNode("string", scalar(lit.Text, yaml.DoubleQuotedStyle)), nil
	case ir.LitInt:
		return mappingNode("int", scalar(lit.Text, 0)), nil
	case ir.LitNumber:
		return mappingNode("number", scalar(lit.Text, yaml.DoubleQuotedStyle)), nil
	case ir.LitBool:
		return mappingNode("bool", scalar(lit.Text, 0)), nil
	default:
		return nil, &repr.GenerationError{
			Target:  repr.Graph,
			Message: fmt.Sprintf("unknown literal kind %q", lit.Kind),
		}
	}
}

func mappingNode(key string, value *yaml.Node) *yaml.Node {
	return &yaml.Node{
		Kind:    yaml.MappingNode,
		Content: []*yaml.Node{scalar(key, 0), value},
	}
}

func scalar(value string, style yaml.Style) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: value, Style: style}
}
