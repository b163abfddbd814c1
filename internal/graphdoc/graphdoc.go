// Package graphdoc implements the graph adapter. The surface syntax is
// a YAML document of nodes (tables), edges (references between tables),
// and an ordered operations list:
//
//	nodes:
//	  - table: customers
//	    columns:
//	      - {name: id, type: int64}
//	edges:
//	  - {kind: foreign-key, from: orders, to: customers}
//	  - {kind: derived-from, from: staging_customers, to: customers, via: nightly load}
//	operations:
//	  - {op: add-column, column: {name: phone, type: text}}
//
// The graph form is the only representation that expresses lineage:
// derived-from edges record which table a table was computed from.
// Decoding is strict; unknown fields fail as unsupported constructs.
package graphdoc

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fourfold/fourfold/internal/catalog"
	"github.com/fourfold/fourfold/internal/ir"
	"github.com/fourfold/fourfold/internal/repr"
)

// Edge kinds. Constraint edges use catalog spellings; derived-from is
// a lineage edge and never reaches the constraint catalog.
const edgeDerivedFrom = "derived-from"

// Adapter is the graph parse/generate pair.
type Adapter struct {
	cat *catalog.Catalog
}

// New returns the graph adapter.
func New(cat *catalog.Catalog) *Adapter {
	return &Adapter{cat: cat}
}

// Representation implements repr.Adapter.
func (a *Adapter) Representation() repr.Representation {
	return repr.Graph
}

type yamlDoc struct {
	Comment    string     `yaml:"comment,omitempty"`
	Nodes      []yamlNode `yaml:"nodes"`
	Edges      []yamlEdge `yaml:"edges,omitempty"`
	Operations []yamlOp   `yaml:"operations,omitempty"`
}

type yamlNode struct {
	Table      string       `yaml:"table"`
	Columns    []yamlColumn `yaml:"columns"`
	PrimaryKey *yamlKey     `yaml:"primary_key,omitempty"`
	Uniques    []yamlKey    `yaml:"uniques,omitempty"`
	Indexes    []yamlIndex  `yaml:"indexes,omitempty"`
}

type yamlColumn struct {
	Name    string     `yaml:"name"`
	Type    string     `yaml:"type"`
	NotNull bool       `yaml:"not_null,omitempty"`
	Default *yaml.Node `yaml:"default,omitempty"`
	Comment string     `yaml:"comment,omitempty"`
}

type yamlKey struct {
	Name    string   `yaml:"name,omitempty"`
	Columns []string `yaml:"columns"`
}

type yamlIndex struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique,omitempty"`
}

type yamlEdge struct {
	Kind       string   `yaml:"kind"`
	From       string   `yaml:"from"`
	To         string   `yaml:"to"`
	Name       string   `yaml:"name,omitempty"`
	Columns    []string `yaml:"columns,omitempty"`
	RefColumns []string `yaml:"ref_columns,omitempty"`
	Via        string   `yaml:"via,omitempty"`
}

type yamlOp struct {
	Op         string          `yaml:"op"`
	Column     *yamlColumn     `yaml:"column,omitempty"`
	Constraint *yamlConstraint `yaml:"constraint,omitempty"`
	Name       string          `yaml:"name,omitempty"`
	Kind       string          `yaml:"kind,omitempty"`
	Columns    []string        `yaml:"columns,omitempty"`
	Index      *yamlIndex      `yaml:"index,omitempty"`
}

type yamlConstraint struct {
	Kind       string     `yaml:"kind"`
	Name       string     `yaml:"name,omitempty"`
	Columns    []string   `yaml:"columns,omitempty"`
	RefTable   string     `yaml:"ref_table,omitempty"`
	RefColumns []string   `yaml:"ref_columns,omitempty"`
	Default    *yaml.Node `yaml:"default,omitempty"`
}

// Parse decodes a graph document into a canonical document.
func (a *Adapter) Parse(text string) (*ir.Document, error) {
	dec := yaml.NewDecoder(strings.NewReader(text))
	dec.KnownFields(true)

	var y yamlDoc
	if err := dec.Decode(&y); err != nil {
		return nil, yamlError(err)
	}

	if len(y.Nodes) == 0 {
		return nil, &repr.ParseError{
			Source:  repr.Graph,
			Message: "document must declare exactly one node",
		}
	}
	if len(y.Nodes) > 1 {
		return nil, &repr.UnsupportedConstructError{
			Construct: "multiple nodes",
			Source:    repr.Graph,
		}
	}

	node := y.Nodes[0]
	doc := &ir.Document{Comment: y.Comment}
	doc.Schema.Name = node.Table

	for i := range node.Columns {
		col, err := a.column(&node.Columns[i])
		if err != nil {
			return nil, err
		}
		doc.Schema.Columns = append(doc.Schema.Columns, *col)
	}
	if node.PrimaryKey != nil {
		doc.Schema.PrimaryKey = &ir.PrimaryKeyDef{
			Name:    node.PrimaryKey.Name,
			Columns: node.PrimaryKey.Columns,
		}
	}
	for _, u := range node.Uniques {
		doc.Schema.Uniques = append(doc.Schema.Uniques, ir.UniqueDef{Name: u.Name, Columns: u.Columns})
	}
	for _, ix := range node.Indexes {
		doc.Schema.Indexes = append(doc.Schema.Indexes, ir.IndexDef{
			Name: ix.Name, Columns: ix.Columns, Unique: ix.Unique,
		})
	}

	for _, e := range y.Edges {
		switch {
		case e.Kind == edgeDerivedFrom:
			doc.Lineage = append(doc.Lineage, ir.LineageEdge{From: e.From, To: e.To, Via: e.Via})
		default:
			kind, err := a.cat.ResolveConstraint(e.Kind, repr.Graph)
			if err != nil {
				return nil, err
			}
			if kind != ir.ConstraintForeignKey {
				return nil, &repr.UnsupportedConstructError{
					Construct: fmt.Sprintf("edge kind %q", e.Kind),
					Source:    repr.Graph,
				}
			}
			if e.From != doc.Schema.Name {
				return nil, &repr.ParseError{
					Source:  repr.Graph,
					Message: fmt.Sprintf("foreign-key edge starts at %q, not the declared node %q", e.From, doc.Schema.Name),
				}
			}
			doc.Schema.ForeignKeys = append(doc.Schema.ForeignKeys, ir.ForeignKeyDef{
				Name:       e.Name,
				Columns:    e.Columns,
				RefTable:   e.To,
				RefColumns: e.RefColumns,
			})
		}
	}

	doc.Ops = append(doc.Ops, ir.Operation{Kind: ir.OpCreateTable})
	for i := range y.Operations {
		op, err := a.operation(&y.Operations[i])
		if err != nil {
			return nil, err
		}
		doc.Ops = append(doc.Ops, *op)
	}

	ir.Normalize(doc)
	return doc, nil
}

func (a *Adapter) column(y *yamlColumn) (*ir.ColumnDef, error) {
	canonical, err := a.cat.ResolveType(y.Type, repr.Graph)
	if err != nil {
		return nil, err
	}
	col := &ir.ColumnDef{
		Name:     y.Name,
		Type:     canonical,
		Nullable: !y.NotNull,
		Comment:  y.Comment,
	}
	if y.Default != nil {
		if col.Default, err = a.defaultDef(y.Default); err != nil {
			return nil, err
		}
	}
	return col, nil
}

// defaultDef decodes a default mapping of exactly one key: token,
// string, int, number, or bool. Scalar values are taken as raw node
// text, so decimal defaults keep their exact digits.
func (a *Adapter) defaultDef(n *yaml.Node) (*ir.DefaultDef, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return nil, &repr.ParseError{
			Source:  repr.Graph,
			Span:    repr.Span{Line: n.Line, Col: n.Column},
			Message: "default must be a single-key mapping (token, string, int, number, or bool)",
		}
	}
	key, val := n.Content[0].Value, n.Content[1]
	switch key {
	case "token":
		tok, err := a.cat.ResolveToken(val.Value, repr.Graph)
		if err != nil {
			return nil, err
		}
		return &ir.DefaultDef{Token: tok}, nil
	case "string":
		return &ir.DefaultDef{Literal: &ir.Literal{Kind: ir.LitString, Text: val.Value}}, nil
	case "int":
		if _, err := strconv.ParseInt(val.Value, 10, 64); err != nil {
			return nil, &repr.ParseError{
				Source:  repr.Graph,
				Span:    repr.Span{Line: val.Line, Col: val.Column},
				Message: fmt.Sprintf("invalid int default %q", val.Value),
			}
		}
		return &ir.DefaultDef{Literal: &ir.Literal{Kind: ir.LitInt, Text: val.Value}}, nil
	case "number":
		return &ir.DefaultDef{Literal: &ir.Literal{Kind: ir.LitNumber, Text: val.Value}}, nil
	case "bool":
		b, err := strconv.ParseBool(val.Value)
		if err != nil {
			return nil, &repr.ParseError{
				Source:  repr.Graph,
				Span:    repr.Span{Line: val.Line, Col: val.Column},
				Message: fmt.Sprintf("invalid bool default %q", val.Value),
			}
		}
		return &ir.DefaultDef{Literal: &ir.Literal{Kind: ir.LitBool, Text: strconv.FormatBool(b)}}, nil
	default:
		return nil, &repr.UnsupportedConstructError{
			Construct: fmt.Sprintf("default key %q", key),
			Span:      repr.Span{Line: n.Line, Col: n.Column},
			Source:    repr.Graph,
		}
	}
}

func (a *Adapter) operation(y *yamlOp) (*ir.Operation, error) {
	switch ir.OpKind(y.Op) {
	case ir.OpAddColumn:
		if y.Column == nil {
			return nil, opError(y.Op, "requires column")
		}
		col, err := a.column(y.Column)
		if err != nil {
			return nil, err
		}
		return &ir.Operation{Kind: ir.OpAddColumn, Column: col}, nil
	case ir.OpAddConstraint:
		if y.Constraint == nil {
			return nil, opError(y.Op, "requires constraint")
		}
		c, err := a.constraint(y.Constraint)
		if err != nil {
			return nil, err
		}
		return &ir.Operation{Kind: ir.OpAddConstraint, Constraint: c}, nil
	case ir.OpDropConstraint:
		ref := &ir.ConstraintRef{Name: y.Name, Columns: y.Columns}
		if y.Kind != "" {
			kind, err := a.cat.ResolveConstraint(y.Kind, repr.Graph)
			if err != nil {
				return nil, err
			}
			ref.Kind = kind
		}
		if ref.Name == "" && ref.Kind == "" {
			return nil, opError(y.Op, "requires name or kind with columns")
		}
		return &ir.Operation{Kind: ir.OpDropConstraint, Drop: ref}, nil
	case ir.OpCreateIndex:
		if y.Index == nil {
			return nil, opError(y.Op, "requires index")
		}
		return &ir.Operation{Kind: ir.OpCreateIndex, Index: &ir.IndexDef{
			Name: y.Index.Name, Columns: y.Index.Columns, Unique: y.Index.Unique,
		}}, nil
	case ir.OpCreateTable:
		return nil, &repr.ParseError{
			Source:  repr.Graph,
			Message: "create-table is implied by the node declaration",
		}
	default:
		return nil, &repr.UnsupportedConstructError{
			Construct: fmt.Sprintf("operation %q", y.Op),
			Source:    repr.Graph,
		}
	}
}

func (a *Adapter) constraint(y *yamlConstraint) (*ir.ConstraintDef, error) {
	kind, err := a.cat.ResolveConstraint(y.Kind, repr.Graph)
	if err != nil {
		return nil, err
	}
	c := &ir.ConstraintDef{
		Kind:       kind,
		Name:       y.Name,
		Columns:    y.Columns,
		RefTable:   y.RefTable,
		RefColumns: y.RefColumns,
	}
	if y.Default != nil {
		if c.Default, err = a.defaultDef(y.Default); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func opError(op, msg string) error {
	return &repr.ParseError{
		Source:  repr.Graph,
		Message: fmt.Sprintf("operation %s %s", op, msg),
	}
}

// yamlError maps yaml.v3 decode failures onto the adapter error
// taxonomy. Strict-mode unknown-field failures become unsupported
// constructs; everything else is a syntax error.
func yamlError(err error) error {
	msg := err.Error()
	if te, ok := err.(*yaml.TypeError); ok && len(te.Errors) > 0 {
		msg = te.Errors[0]
	}
	line := 0
	if _, rest, ok := strings.Cut(msg, "line "); ok {
		if n, _, found := strings.Cut(rest, ":"); found {
			line, _ = strconv.Atoi(n)
		}
	}
	if _, rest, ok := strings.Cut(msg, "field "); ok {
		if name, _, found := strings.Cut(rest, " not found"); found {
			return &repr.UnsupportedConstructError{
				Construct: fmt.Sprintf("field %q", name),
				Span:      repr.Span{Line: line},
				Source:    repr.Graph,
			}
		}
	}
	return &repr.ParseError{
		Source:  repr.Graph,
		Span:    repr.Span{Line: line},
		Message: strings.TrimSpace(msg),
	}
}
