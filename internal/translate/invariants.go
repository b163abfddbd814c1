package translate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fourfold/fourfold/internal/ir"
)

// Compare checks the five translation invariants between a source
// document and the document re-parsed from generated text. Returns all
// violations found. The context is checked once per operation so large
// documents stay cancellable.
//
// Structural lists with set semantics (uniques, foreign keys, indexes)
// are compared order-insensitively; columns and operations are ordered
// and compared in sequence.
func Compare(ctx context.Context, want, got *ir.Document) ([]Violation, error) {
	var vs []Violation

	// The effective view makes the comparison immune to how a
	// representation splits a definition between the base schema and
	// operations.
	ws := want.EffectiveSchema()
	gs := got.EffectiveSchema()

	// Cardinality: every column of one side exists on the other.
	wantCols := columnNames(ws.Columns)
	gotCols := columnNames(gs.Columns)
	wantSet := toSet(wantCols)
	gotSet := toSet(gotCols)
	for _, name := range wantCols {
		if !gotSet[name] {
			vs = append(vs, Violation{
				Category: CategoryCardinality,
				Field:    "column " + name,
				Got:      "absent", Want: "present",
			})
		}
	}
	for _, name := range gotCols {
		if !wantSet[name] {
			vs = append(vs, Violation{
				Category: CategoryCardinality,
				Field:    "column " + name,
				Got:      "present", Want: "absent",
			})
		}
	}

	// Types and per-column constraints on the columns both sides have.
	for i := range ws.Columns {
		wc := &ws.Columns[i]
		gc := gs.Column(wc.Name)
		if gc == nil {
			continue
		}
		if wc.Type != gc.Type {
			vs = append(vs, Violation{
				Category: CategoryTypes,
				Field:    "column " + wc.Name,
				Got:      string(gc.Type), Want: string(wc.Type),
			})
		}
		if wc.Nullable != gc.Nullable {
			vs = append(vs, Violation{
				Category: CategoryConstraints,
				Field:    "column " + wc.Name + " nullability",
				Got:      nullability(gc.Nullable), Want: nullability(wc.Nullable),
			})
		}
		if d := defaultSummary(wc.Default); d != defaultSummary(gc.Default) {
			vs = append(vs, Violation{
				Category: CategoryConstraints,
				Field:    "column " + wc.Name + " default",
				Got:      defaultSummary(gc.Default), Want: d,
			})
		}
		if wc.Comment != gc.Comment {
			vs = append(vs, Violation{
				Category: CategoryMetadata,
				Field:    "column " + wc.Name + " comment",
				Got:      fmt.Sprintf("%q", gc.Comment), Want: fmt.Sprintf("%q", wc.Comment),
			})
		}
	}

	// Table-level constraints.
	if pw, pg := pkSummary(ws.PrimaryKey), pkSummary(gs.PrimaryKey); pw != pg {
		vs = append(vs, Violation{
			Category: CategoryConstraints, Field: "primary key",
			Got: pg, Want: pw,
		})
	}
	vs = append(vs, compareSets(CategoryConstraints, "unique", uniqueSummaries(ws.Uniques), uniqueSummaries(gs.Uniques))...)
	vs = append(vs, compareSets(CategoryConstraints, "foreign key", fkSummaries(ws.ForeignKeys), fkSummaries(gs.ForeignKeys))...)
	vs = append(vs, compareSets(CategoryConstraints, "index", indexSummaries(ws.Indexes), indexSummaries(gs.Indexes))...)

	// Operation order: the op sequences must match element for element.
	wantOps := hoistedOps(want)
	gotOps := hoistedOps(got)
	for i := 0; i < len(wantOps) || i < len(gotOps); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var w, g string
		if i < len(wantOps) {
			w = opSummary(&wantOps[i])
		}
		if i < len(gotOps) {
			g = opSummary(&gotOps[i])
		}
		if w != g {
			vs = append(vs, Violation{
				Category: CategoryOperationOrder,
				Field:    fmt.Sprintf("ops[%d]", i),
				Got:      orNone(g), Want: orNone(w),
			})
		}
	}

	// Metadata: document comment and lineage.
	if want.Comment != got.Comment {
		vs = append(vs, Violation{
			Category: CategoryMetadata, Field: "document comment",
			Got: fmt.Sprintf("%q", got.Comment), Want: fmt.Sprintf("%q", want.Comment),
		})
	}
	vs = append(vs, compareSets(CategoryMetadata, "lineage", lineageSummaries(want.Lineage), lineageSummaries(got.Lineage))...)

	return vs, nil
}

// hoistedOps returns the op sequence with schema-declared indexes
// appended as trailing create-index ops. A generator may emit a
// schema-declared index as an index statement, which re-parses as an
// operation; hoisting both sides makes the sequences comparable.
func hoistedOps(d *ir.Document) []ir.Operation {
	ops := append([]ir.Operation(nil), d.Ops...)
	for i := range d.Schema.Indexes {
		ix := d.Schema.Indexes[i]
		ops = append(ops, ir.Operation{Kind: ir.OpCreateIndex, Index: &ix})
	}
	return ops
}

func columnNames(cols []ir.ColumnDef) []string {
	names := make([]string, len(cols))
	for i := range cols {
		names[i] = cols[i].Name
	}
	return names
}

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}

func nullability(nullable bool) string {
	if nullable {
		return "nullable"
	}
	return "not-null"
}

func defaultSummary(d *ir.DefaultDef) string {
	switch {
	case d == nil:
		return "none"
	case d.IsToken():
		return "token " + string(d.Token)
	default:
		return fmt.Sprintf("%s %q", d.Literal.Kind, d.Literal.Text)
	}
}

func pkSummary(pk *ir.PrimaryKeyDef) string {
	if pk == nil {
		return "none"
	}
	return named(pk.Name, "("+strings.Join(pk.Columns, ", ")+")")
}

func named(name, body string) string {
	if name == "" {
		return body
	}
	return name + " " + body
}

func uniqueSummaries(us []ir.UniqueDef) []string {
	out := make([]string, len(us))
	for i, u := range us {
		out[i] = named(u.Name, "("+strings.Join(u.Columns, ", ")+")")
	}
	return out
}

func fkSummaries(fks []ir.ForeignKeyDef) []string {
	out := make([]string, len(fks))
	for i, fk := range fks {
		out[i] = named(fk.Name, fmt.Sprintf("(%s) -> %s (%s)",
			strings.Join(fk.Columns, ", "), fk.RefTable, strings.Join(fk.RefColumns, ", ")))
	}
	return out
}

func indexSummaries(ixs []ir.IndexDef) []string {
	out := make([]string, len(ixs))
	for i, ix := range ixs {
		s := named(ix.Name, "("+strings.Join(ix.Columns, ", ")+")")
		if ix.Unique {
			s += " unique"
		}
		out[i] = s
	}
	return out
}

func lineageSummaries(edges []ir.LineageEdge) []string {
	out := make([]string, len(edges))
	for i, e := range edges {
		s := e.From + " -> " + e.To
		if e.Via != "" {
			s += " via " + e.Via
		}
		out[i] = s
	}
	return out
}

func opSummary(op *ir.Operation) string {
	switch op.Kind {
	case ir.OpCreateTable:
		return "create-table"
	case ir.OpAddColumn:
		if op.Column == nil {
			return "add-column ?"
		}
		return fmt.Sprintf("add-column %s %s %s default=%s comment=%q",
			op.Column.Name, op.Column.Type, nullability(op.Column.Nullable),
			defaultSummary(op.Column.Default), op.Column.Comment)
	case ir.OpAddConstraint:
		if op.Constraint == nil {
			return "add-constraint ?"
		}
		c := op.Constraint
		s := fmt.Sprintf("add-constraint %s %s", c.Kind,
			named(c.Name, "("+strings.Join(c.Columns, ", ")+")"))
		if c.RefTable != "" {
			s += fmt.Sprintf(" -> %s (%s)", c.RefTable, strings.Join(c.RefColumns, ", "))
		}
		if c.Default != nil {
			s += " default=" + defaultSummary(c.Default)
		}
		return s
	case ir.OpDropConstraint:
		if op.Drop == nil {
			return "drop-constraint ?"
		}
		if op.Drop.Name != "" {
			return "drop-constraint " + op.Drop.Name
		}
		return fmt.Sprintf("drop-constraint %s (%s)", op.Drop.Kind, strings.Join(op.Drop.Columns, ", "))
	case ir.OpCreateIndex:
		if op.Index == nil {
			return "create-index ?"
		}
		s := "create-index " + named(op.Index.Name, "("+strings.Join(op.Index.Columns, ", ")+")")
		if op.Index.Unique {
			s += " unique"
		}
		return s
	default:
		return string(op.Kind)
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// compareSets reports elements present on one side only. Summaries are
// compared as multisets: order is not semantic for these lists.
func compareSets(cat Category, field string, want, got []string) []Violation {
	var vs []Violation
	wantCount := counts(want)
	gotCount := counts(got)

	keys := make([]string, 0, len(wantCount)+len(gotCount))
	for k := range wantCount {
		keys = append(keys, k)
	}
	for k := range gotCount {
		if _, ok := wantCount[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		w, g := wantCount[k], gotCount[k]
		if w != g {
			vs = append(vs, Violation{
				Category: cat,
				Field:    field + " " + k,
				Got:      fmt.Sprintf("%d occurrence(s)", g),
				Want:     fmt.Sprintf("%d occurrence(s)", w),
			})
		}
	}
	return vs
}

func counts(ss []string) map[string]int {
	m := make(map[string]int, len(ss))
	for _, s := range ss {
		m[s]++
	}
	return m
}
