// Package funcall implements the functional-call adapter. The surface
// syntax is a CUE document holding an ordered `ops` list of call
// structs, e.g.
//
//	ops: [
//		{
//			call: "create_table"
//			target_table: "customers"
//			column_defs: [
//				{name: "id", type: "INTEGER"},
//				{name: "name", type: "TEXT", not_null: true},
//			]
//			primary_key: "id"
//		},
//	]
//
// Parsing uses the CUE SDK's Go API directly (not a CLI subprocess).
// Unknown call names and unknown struct fields fail closed as
// unsupported constructs.
package funcall

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/fourfold/fourfold/internal/catalog"
	"github.com/fourfold/fourfold/internal/ir"
	"github.com/fourfold/fourfold/internal/repr"
)

// Adapter is the functional-call parse/generate pair.
type Adapter struct {
	cat *catalog.Catalog
}

// New returns the functional-call adapter.
func New(cat *catalog.Catalog) *Adapter {
	return &Adapter{cat: cat}
}

// Representation implements repr.Adapter.
func (a *Adapter) Representation() repr.Representation {
	return repr.FunctionalCall
}

// Parse decodes a call-tree document into a canonical document.
func (a *Adapter) Parse(text string) (*ir.Document, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(text)
	if err := v.Err(); err != nil {
		return nil, cueParseError(err)
	}

	doc := &ir.Document{}

	if err := rejectUnknownFields(v, "comment", "ops"); err != nil {
		return nil, err
	}

	if cv := v.LookupPath(cue.ParsePath("comment")); cv.Exists() {
		comment, err := cv.String()
		if err != nil {
			return nil, cueParseError(err)
		}
		doc.Comment = comment
	}

	opsVal := v.LookupPath(cue.ParsePath("ops"))
	if !opsVal.Exists() {
		return nil, &repr.ParseError{
			Source:  repr.FunctionalCall,
			Message: "ops list is required",
		}
	}
	iter, err := opsVal.List()
	if err != nil {
		return nil, cueParseError(err)
	}

	seenCreate := false
	for iter.Next() {
		opVal := iter.Value()
		call, err := stringField(opVal, "call", true)
		if err != nil {
			return nil, err
		}
		switch call {
		case "create_table":
			if seenCreate {
				return nil, parseErrorAt(opVal, "duplicate create_table call")
			}
			seenCreate = true
			if err := a.parseCreateTable(opVal, doc); err != nil {
				return nil, err
			}
			doc.Ops = append(doc.Ops, ir.Operation{Kind: ir.OpCreateTable})
		case "add_column":
			if err := rejectUnknownFields(opVal, "call", "column_def"); err != nil {
				return nil, err
			}
			colVal := opVal.LookupPath(cue.ParsePath("column_def"))
			if !colVal.Exists() {
				return nil, parseErrorAt(opVal, "add_column requires column_def")
			}
			col, uq, err := a.parseColumn(colVal)
			if err != nil {
				return nil, err
			}
			doc.Ops = append(doc.Ops, ir.Operation{Kind: ir.OpAddColumn, Column: col})
			if uq {
				doc.Ops = append(doc.Ops, ir.Operation{
					Kind: ir.OpAddConstraint,
					Constraint: &ir.ConstraintDef{
						Kind:    ir.ConstraintUnique,
						Columns: []string{col.Name},
					},
				})
			}
		case "add_constraint":
			if err := rejectUnknownFields(opVal, "call", "constraint"); err != nil {
				return nil, err
			}
			cVal := opVal.LookupPath(cue.ParsePath("constraint"))
			if !cVal.Exists() {
				return nil, parseErrorAt(opVal, "add_constraint requires constraint")
			}
			c, err := a.parseConstraint(cVal)
			if err != nil {
				return nil, err
			}
			doc.Ops = append(doc.Ops, ir.Operation{Kind: ir.OpAddConstraint, Constraint: c})
		case "drop_constraint":
			if err := rejectUnknownFields(opVal, "call", "name", "kind", "columns"); err != nil {
				return nil, err
			}
			ref := &ir.ConstraintRef{}
			if ref.Name, err = stringField(opVal, "name", false); err != nil {
				return nil, err
			}
			kind, err := stringField(opVal, "kind", false)
			if err != nil {
				return nil, err
			}
			if kind != "" {
				k, err := a.cat.ResolveConstraint(kind, repr.FunctionalCall)
				if err != nil {
					return nil, err
				}
				ref.Kind = k
			}
			if ref.Columns, err = stringListField(opVal, "columns"); err != nil {
				return nil, err
			}
			if ref.Name == "" && ref.Kind == "" {
				return nil, parseErrorAt(opVal, "drop_constraint requires name or kind+columns")
			}
			doc.Ops = append(doc.Ops, ir.Operation{Kind: ir.OpDropConstraint, Drop: ref})
		case "create_index":
			if err := rejectUnknownFields(opVal, "call", "name", "columns", "unique"); err != nil {
				return nil, err
			}
			ix := &ir.IndexDef{}
			if ix.Name, err = stringField(opVal, "name", true); err != nil {
				return nil, err
			}
			if ix.Columns, err = stringListField(opVal, "columns"); err != nil {
				return nil, err
			}
			if ix.Unique, err = boolField(opVal, "unique"); err != nil {
				return nil, err
			}
			doc.Ops = append(doc.Ops, ir.Operation{Kind: ir.OpCreateIndex, Index: ix})
		default:
			return nil, &repr.UnsupportedConstructError{
				Construct: fmt.Sprintf("call %q", call),
				Span:      spanOf(opVal),
				Source:    repr.FunctionalCall,
			}
		}
	}
	if !seenCreate {
		return nil, &repr.ParseError{
			Source:  repr.FunctionalCall,
			Message: "document must contain a create_table call",
		}
	}

	ir.Normalize(doc)
	return doc, nil
}

var createTableFields = []string{
	"call", "target_table", "column_defs", "primary_key",
	"unique_defs", "foreign_keys", "indexes",
}

func (a *Adapter) parseCreateTable(v cue.Value, doc *ir.Document) error {
	if err := rejectUnknownFields(v, createTableFields...); err != nil {
		return err
	}

	name, err := stringField(v, "target_table", true)
	if err != nil {
		return err
	}
	doc.Schema.Name = name

	colsVal := v.LookupPath(cue.ParsePath("column_defs"))
	if !colsVal.Exists() {
		return parseErrorAt(v, "create_table requires column_defs")
	}
	colIter, err := colsVal.List()
	if err != nil {
		return cueParseError(err)
	}
	// Column-level unique flags lift to table-level definitions, in
	// column order, before any explicit unique_defs entries.
	for colIter.Next() {
		col, uq, err := a.parseColumn(colIter.Value())
		if err != nil {
			return err
		}
		doc.Schema.Columns = append(doc.Schema.Columns, *col)
		if uq {
			doc.Schema.Uniques = append(doc.Schema.Uniques, ir.UniqueDef{Columns: []string{col.Name}})
		}
	}

	if pkVal := v.LookupPath(cue.ParsePath("primary_key")); pkVal.Exists() {
		pk, err := parsePrimaryKey(pkVal)
		if err != nil {
			return err
		}
		doc.Schema.PrimaryKey = pk
	}

	if uVal := v.LookupPath(cue.ParsePath("unique_defs")); uVal.Exists() {
		uIter, err := uVal.List()
		if err != nil {
			return cueParseError(err)
		}
		for uIter.Next() {
			uv := uIter.Value()
			if err := rejectUnknownFields(uv, "name", "columns"); err != nil {
				return err
			}
			u := ir.UniqueDef{}
			if u.Name, err = stringField(uv, "name", false); err != nil {
				return err
			}
			if u.Columns, err = stringListField(uv, "columns"); err != nil {
				return err
			}
			doc.Schema.Uniques = append(doc.Schema.Uniques, u)
		}
	}

	if fkVal := v.LookupPath(cue.ParsePath("foreign_keys")); fkVal.Exists() {
		fkIter, err := fkVal.List()
		if err != nil {
			return cueParseError(err)
		}
		for fkIter.Next() {
			fv := fkIter.Value()
			if err := rejectUnknownFields(fv, "name", "columns", "ref_table", "ref_columns"); err != nil {
				return err
			}
			fk := ir.ForeignKeyDef{}
			if fk.Name, err = stringField(fv, "name", false); err != nil {
				return err
			}
			if fk.Columns, err = stringListField(fv, "columns"); err != nil {
				return err
			}
			if fk.RefTable, err = stringField(fv, "ref_table", true); err != nil {
				return err
			}
			if fk.RefColumns, err = stringListField(fv, "ref_columns"); err != nil {
				return err
			}
			doc.Schema.ForeignKeys = append(doc.Schema.ForeignKeys, fk)
		}
	}

	if ixVal := v.LookupPath(cue.ParsePath("indexes")); ixVal.Exists() {
		ixIter, err := ixVal.List()
		if err != nil {
			return cueParseError(err)
		}
		for ixIter.Next() {
			iv := ixIter.Value()
			if err := rejectUnknownFields(iv, "name", "columns", "unique"); err != nil {
				return err
			}
			ix := ir.IndexDef{}
			if ix.Name, err = stringField(iv, "name", false); err != nil {
				return err
			}
			if ix.Columns, err = stringListField(iv, "columns"); err != nil {
				return err
			}
			if ix.Unique, err = boolField(iv, "unique"); err != nil {
				return err
			}
			doc.Schema.Indexes = append(doc.Schema.Indexes, ix)
		}
	}
	return nil
}

var columnFields = []string{"name", "type", "not_null", "unique", "default", "comment"}

func (a *Adapter) parseColumn(v cue.Value) (col *ir.ColumnDef, unique bool, err error) {
	if err := rejectUnknownFields(v, columnFields...); err != nil {
		return nil, false, err
	}

	name, err := stringField(v, "name", true)
	if err != nil {
		return nil, false, err
	}
	spelling, err := stringField(v, "type", true)
	if err != nil {
		return nil, false, err
	}
	canonical, err := a.cat.ResolveType(spelling, repr.FunctionalCall)
	if err != nil {
		return nil, false, err
	}

	col = &ir.ColumnDef{Name: name, Type: canonical, Nullable: true}

	notNull, err := boolField(v, "not_null")
	if err != nil {
		return nil, false, err
	}
	col.Nullable = !notNull

	if unique, err = boolField(v, "unique"); err != nil {
		return nil, false, err
	}

	if col.Comment, err = stringField(v, "comment", false); err != nil {
		return nil, false, err
	}

	if dv := v.LookupPath(cue.ParsePath("default")); dv.Exists() {
		def, err := a.parseDefault(dv)
		if err != nil {
			return nil, false, err
		}
		col.Default = def
	}
	return col, unique, nil
}

// parseDefault decodes a default value. Plain strings are resolved as
// catalog tokens first and fall back to string literals; the explicit
// struct forms {string: s} and {number: n} force a literal, which is
// how a string that happens to spell a token stays a literal.
func (a *Adapter) parseDefault(v cue.Value) (*ir.DefaultDef, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, cueParseError(err)
		}
		if tok, err := a.cat.ResolveToken(s, repr.FunctionalCall); err == nil {
			return &ir.DefaultDef{Token: tok}, nil
		}
		return &ir.DefaultDef{Literal: &ir.Literal{Kind: ir.LitString, Text: s}}, nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, cueParseError(err)
		}
		return &ir.DefaultDef{Literal: &ir.Literal{Kind: ir.LitInt, Text: fmt.Sprintf("%d", i)}}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, cueParseError(err)
		}
		return &ir.DefaultDef{Literal: &ir.Literal{Kind: ir.LitBool, Text: fmt.Sprintf("%t", b)}}, nil
	case cue.StructKind:
		if err := rejectUnknownFields(v, "string", "number"); err != nil {
			return nil, err
		}
		if sv := v.LookupPath(cue.ParsePath("string")); sv.Exists() {
			s, err := sv.String()
			if err != nil {
				return nil, cueParseError(err)
			}
			return &ir.DefaultDef{Literal: &ir.Literal{Kind: ir.LitString, Text: s}}, nil
		}
		if nv := v.LookupPath(cue.ParsePath("number")); nv.Exists() {
			s, err := nv.String()
			if err != nil {
				return nil, cueParseError(err)
			}
			return &ir.DefaultDef{Literal: &ir.Literal{Kind: ir.LitNumber, Text: s}}, nil
		}
		return nil, parseErrorAt(v, "default struct requires string or number")
	case cue.FloatKind, cue.NumberKind:
		// Exact decimal text must be quoted: {number: "0.05"}. A bare
		// CUE float would round through binary floating point.
		return nil, parseErrorAt(v, "numeric defaults must use {number: \"...\"} to stay exact")
	default:
		return nil, parseErrorAt(v, "unsupported default value")
	}
}

var constraintFields = []string{
	"kind", "name", "columns", "ref_table", "ref_columns", "default",
}

func (a *Adapter) parseConstraint(v cue.Value) (*ir.ConstraintDef, error) {
	if err := rejectUnknownFields(v, constraintFields...); err != nil {
		return nil, err
	}
	spelling, err := stringField(v, "kind", true)
	if err != nil {
		return nil, err
	}
	kind, err := a.cat.ResolveConstraint(spelling, repr.FunctionalCall)
	if err != nil {
		return nil, err
	}
	c := &ir.ConstraintDef{Kind: kind}
	if c.Name, err = stringField(v, "name", false); err != nil {
		return nil, err
	}
	if c.Columns, err = stringListField(v, "columns"); err != nil {
		return nil, err
	}
	if c.RefTable, err = stringField(v, "ref_table", false); err != nil {
		return nil, err
	}
	if c.RefColumns, err = stringListField(v, "ref_columns"); err != nil {
		return nil, err
	}
	if dv := v.LookupPath(cue.ParsePath("default")); dv.Exists() {
		if c.Default, err = a.parseDefault(dv); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func parsePrimaryKey(v cue.Value) (*ir.PrimaryKeyDef, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, cueParseError(err)
		}
		return &ir.PrimaryKeyDef{Columns: []string{s}}, nil
	case cue.StructKind:
		if err := rejectUnknownFields(v, "name", "columns"); err != nil {
			return nil, err
		}
		pk := &ir.PrimaryKeyDef{}
		var err error
		if pk.Name, err = stringField(v, "name", false); err != nil {
			return nil, err
		}
		if pk.Columns, err = stringListField(v, "columns"); err != nil {
			return nil, err
		}
		return pk, nil
	default:
		return nil, parseErrorAt(v, "primary_key must be a column name or {columns: [...]}")
	}
}

// rejectUnknownFields fails closed on struct fields outside the
// allowed set, naming the offending field and its location.
func rejectUnknownFields(v cue.Value, allowed ...string) error {
	if v.Kind() != cue.StructKind {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return cueParseError(err)
	}
	set := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		set[f] = true
	}
	for iter.Next() {
		if !set[iter.Selector().Unquoted()] {
			return &repr.UnsupportedConstructError{
				Construct: fmt.Sprintf("field %q", iter.Selector().Unquoted()),
				Span:      spanOf(iter.Value()),
				Source:    repr.FunctionalCall,
			}
		}
	}
	return nil
}

func stringField(v cue.Value, name string, required bool) (string, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		if required {
			return "", parseErrorAt(v, "%s is required", name)
		}
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", cueParseError(err)
	}
	return s, nil
}

func boolField(v cue.Value, name string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, cueParseError(err)
	}
	return b, nil
}

func stringListField(v cue.Value, name string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, cueParseError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, cueParseError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func spanOf(v cue.Value) repr.Span {
	pos := v.Pos()
	if !pos.IsValid() {
		return repr.Span{}
	}
	return repr.Span{Line: pos.Line(), Col: pos.Column()}
}

func parseErrorAt(v cue.Value, format string, args ...any) error {
	return &repr.ParseError{
		Source:  repr.FunctionalCall,
		Span:    spanOf(v),
		Message: fmt.Sprintf(format, args...),
	}
}

// cueParseError extracts position info from CUE's multi-error values.
func cueParseError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &repr.ParseError{Source: repr.FunctionalCall, Message: err.Error()}
	}
	first := errs[0]
	pe := &repr.ParseError{
		Source:  repr.FunctionalCall,
		Message: strings.TrimSpace(first.Error()),
	}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		pe.Span = repr.Span{Line: positions[0].Line(), Col: positions[0].Column()}
	}
	return pe
}
