package setnotation

import (
	"fmt"
	"strings"

	"github.com/fourfold/fourfold/internal/catalog"
	"github.com/fourfold/fourfold/internal/ir"
	"github.com/fourfold/fourfold/internal/repr"
)

// Adapter is the set-notation parse/generate pair. Stateless beyond
// the shared read-only catalog; safe for concurrent use.
type Adapter struct {
	cat *catalog.Catalog
}

// New returns the set-notation adapter.
func New(cat *catalog.Catalog) *Adapter {
	return &Adapter{cat: cat}
}

// Representation implements repr.Adapter.
func (a *Adapter) Representation() repr.Representation {
	return repr.Set
}

// Parse decodes set notation into a canonical document. The first
// statement must be a relation declaration; key, unique, subset and
// index statements describe the relation, and extend, constrain and
// drop statements become the ordered operation sequence.
func (a *Adapter) Parse(text string) (*ir.Document, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, cat: a.cat}
	doc, err := p.parseDocument()
	if err != nil {
		return nil, err
	}
	ir.Normalize(doc)
	return doc, nil
}

type parser struct {
	toks    []token
	pos     int
	cat     *catalog.Catalog
	pending []string // own-line comments awaiting attachment
}

func (p *parser) raw() token { return p.toks[p.pos] }

func (p *parser) drainComments() {
	for p.raw().kind == tokComment {
		p.pending = append(p.pending, p.raw().text)
		p.pos++
	}
}

func (p *parser) takePending() string {
	s := strings.Join(p.pending, "\n")
	p.pending = nil
	return s
}

func (p *parser) peek() token {
	p.drainComments()
	return p.raw()
}

func (p *parser) next() token {
	t := p.peek()
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// trailingComment returns a comment token sitting on the same line as
// the given one, consuming it if present.
func (p *parser) trailingComment(after token) string {
	if p.raw().kind == tokComment && p.raw().line == after.line {
		text := p.raw().text
		p.pos++
		return text
	}
	return ""
}

func (p *parser) errorf(at token, format string, args ...any) error {
	return &repr.ParseError{
		Source:  repr.Set,
		Span:    repr.Span{Line: at.line, Col: at.col},
		Message: fmt.Sprintf(format, args...),
		Snippet: at.text,
	}
}

func (p *parser) expectIdent() (token, error) {
	t := p.next()
	if t.kind != tokIdent {
		return t, p.errorf(t, "expected identifier")
	}
	return t, nil
}

func (p *parser) expectKeyword(kw string) (token, error) {
	t := p.next()
	if !t.keywordIs(kw) {
		return t, p.errorf(t, "expected %s", kw)
	}
	return t, nil
}

func (p *parser) expectPunct(s string) (token, error) {
	t := p.next()
	if t.kind != tokPunct || t.text != s {
		return t, p.errorf(t, "expected %q", s)
	}
	return t, nil
}

func (p *parser) parseDocument() (*ir.Document, error) {
	p.drainComments()
	doc := &ir.Document{Comment: p.takePending()}

	first := p.peek()
	if first.kind == tokEOF {
		return nil, p.errorf(first, "empty input: expected relation declaration")
	}
	if err := p.parseRelation(doc); err != nil {
		return nil, err
	}
	doc.Ops = append(doc.Ops, ir.Operation{Kind: ir.OpCreateTable})

	for {
		t := p.peek()
		if t.kind == tokEOF {
			break
		}
		var err error
		switch {
		case t.keywordIs("key"):
			err = p.parseKey(doc)
		case t.keywordIs("unique"):
			err = p.parseUnique(doc)
		case t.keywordIs("subset"):
			err = p.parseSubset(doc)
		case t.keywordIs("index"):
			err = p.parseIndex(doc)
		case t.keywordIs("extend"):
			err = p.parseExtend(doc)
		case t.keywordIs("constrain"):
			err = p.parseConstrain(doc)
		case t.keywordIs("drop"):
			err = p.parseDrop(doc)
		default:
			return nil, p.errorf(t, "expected key, unique, subset, index, extend, constrain or drop statement")
		}
		if err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// parseRelation parses "relation NAME = { member, ... }".
func (p *parser) parseRelation(doc *ir.Document) error {
	if _, err := p.expectKeyword("relation"); err != nil {
		return err
	}
	name, err := p.expectIdent()
	if err != nil {
		return err
	}
	doc.Schema.Name = name.text
	if _, err := p.expectPunct("="); err != nil {
		return err
	}
	if _, err := p.expectPunct("{"); err != nil {
		return err
	}

	for {
		t := p.peek()
		if t.kind == tokPunct && t.text == "}" {
			p.next()
			break
		}
		preceding := p.takePending()
		col, err := p.parseMember()
		if err != nil {
			return err
		}
		if preceding != "" {
			col.Comment = preceding
		}
		doc.Schema.Columns = append(doc.Schema.Columns, *col)
		if c := p.trailingComment(p.toks[p.pos-1]); c != "" {
			attachToLastColumn(doc, c)
		}

		t = p.next()
		switch {
		case t.kind == tokPunct && t.text == ",":
			if c := p.trailingComment(t); c != "" {
				attachToLastColumn(doc, c)
			}
		case t.kind == tokPunct && t.text == "}":
			return nil
		default:
			return p.errorf(t, "expected ',' or '}' in relation body")
		}
	}
	return nil
}

func attachToLastColumn(doc *ir.Document, comment string) {
	if n := len(doc.Schema.Columns); n > 0 {
		col := &doc.Schema.Columns[n-1]
		if col.Comment == "" {
			col.Comment = comment
		} else {
			col.Comment += "\n" + comment
		}
	}
}

// parseMember parses "name in TYPE [- {null}] [default VALUE]".
func (p *parser) parseMember() (*ir.ColumnDef, error) {
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	typeTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	canonical, err := p.cat.ResolveType(typeTok.text, repr.Set)
	if err != nil {
		return nil, err
	}
	col := &ir.ColumnDef{Name: name.text, Type: canonical, Nullable: true}

	for {
		// A comment on the member's own line ends it. Left in the
		// stream so the caller attaches it to this column; draining it
		// here would migrate it onto the next statement.
		if c := p.raw(); c.kind == tokComment && c.line == p.toks[p.pos-1].line {
			return col, nil
		}
		t := p.peek()
		switch {
		case t.kind == tokPunct && t.text == "-":
			p.next()
			if _, err := p.expectPunct("{"); err != nil {
				return nil, err
			}
			if _, err := p.expectKeyword("null"); err != nil {
				return nil, err
			}
			if _, err := p.expectPunct("}"); err != nil {
				return nil, err
			}
			col.Nullable = false
		case t.keywordIs("default"):
			p.next()
			def, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			col.Default = def
		default:
			return col, nil
		}
	}
}

func (p *parser) parseValue() (*ir.DefaultDef, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return &ir.DefaultDef{Literal: &ir.Literal{Kind: ir.LitString, Text: t.text}}, nil
	case tokNumber:
		kind := ir.LitInt
		if strings.Contains(t.text, ".") {
			kind = ir.LitNumber
		}
		return &ir.DefaultDef{Literal: &ir.Literal{Kind: kind, Text: t.text}}, nil
	case tokIdent:
		if t.keywordIs("true") || t.keywordIs("false") {
			return &ir.DefaultDef{Literal: &ir.Literal{Kind: ir.LitBool, Text: strings.ToLower(t.text)}}, nil
		}
		tok, err := p.cat.ResolveToken(t.text, repr.Set)
		if err != nil {
			return nil, err
		}
		return &ir.DefaultDef{Token: tok}, nil
	default:
		return nil, p.errorf(t, "expected default value")
	}
}

// checkTable verifies a statement targets the declared relation.
func (p *parser) checkTable(doc *ir.Document, t token) error {
	if t.text != doc.Schema.Name {
		return p.errorf(t, "statement targets relation %q, document defines %q", t.text, doc.Schema.Name)
	}
	return nil
}

func (p *parser) parseColumnList() ([]string, error) {
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var cols []string
	for {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		cols = append(cols, name.text)
		t := p.next()
		if t.kind == tokPunct && t.text == "," {
			continue
		}
		if t.kind == tokPunct && t.text == ")" {
			return cols, nil
		}
		return nil, p.errorf(t, "expected ',' or ')' in column list")
	}
}

// parseName consumes an optional "as NAME" suffix.
func (p *parser) parseName() (string, error) {
	if p.peek().keywordIs("as") {
		p.next()
		name, err := p.expectIdent()
		if err != nil {
			return "", err
		}
		return name.text, nil
	}
	return "", nil
}

// parseKey parses "key TABLE (cols) [as NAME]".
func (p *parser) parseKey(doc *ir.Document) error {
	p.next()
	table, err := p.expectIdent()
	if err != nil {
		return err
	}
	if err := p.checkTable(doc, table); err != nil {
		return err
	}
	cols, err := p.parseColumnList()
	if err != nil {
		return err
	}
	name, err := p.parseName()
	if err != nil {
		return err
	}
	if doc.Schema.PrimaryKey != nil {
		return p.errorf(table, "multiple keys for relation %q", doc.Schema.Name)
	}
	doc.Schema.PrimaryKey = &ir.PrimaryKeyDef{Name: name, Columns: cols}
	return nil
}

// parseUnique parses "unique TABLE (cols) [as NAME]".
func (p *parser) parseUnique(doc *ir.Document) error {
	p.next()
	table, err := p.expectIdent()
	if err != nil {
		return err
	}
	if err := p.checkTable(doc, table); err != nil {
		return err
	}
	cols, err := p.parseColumnList()
	if err != nil {
		return err
	}
	name, err := p.parseName()
	if err != nil {
		return err
	}
	doc.Schema.Uniques = append(doc.Schema.Uniques, ir.UniqueDef{Name: name, Columns: cols})
	return nil
}

// parseSubset parses "subset TABLE (cols) of REF (refcols) [as NAME]":
// the projection of TABLE onto cols is a subset of REF's refcols,
// which is how the notation spells a foreign key.
func (p *parser) parseSubset(doc *ir.Document) error {
	p.next()
	table, err := p.expectIdent()
	if err != nil {
		return err
	}
	if err := p.checkTable(doc, table); err != nil {
		return err
	}
	cols, err := p.parseColumnList()
	if err != nil {
		return err
	}
	if _, err := p.expectKeyword("of"); err != nil {
		return err
	}
	ref, err := p.expectIdent()
	if err != nil {
		return err
	}
	refCols, err := p.parseColumnList()
	if err != nil {
		return err
	}
	name, err := p.parseName()
	if err != nil {
		return err
	}
	doc.Schema.ForeignKeys = append(doc.Schema.ForeignKeys, ir.ForeignKeyDef{
		Name: name, Columns: cols, RefTable: ref.text, RefColumns: refCols,
	})
	return nil
}

// parseIndex parses "index NAME on TABLE (cols) [unique]".
func (p *parser) parseIndex(doc *ir.Document) error {
	p.next()
	name, err := p.expectIdent()
	if err != nil {
		return err
	}
	if _, err := p.expectKeyword("on"); err != nil {
		return err
	}
	table, err := p.expectIdent()
	if err != nil {
		return err
	}
	if err := p.checkTable(doc, table); err != nil {
		return err
	}
	cols, err := p.parseColumnList()
	if err != nil {
		return err
	}
	unique := false
	if p.peek().keywordIs("unique") {
		p.next()
		unique = true
	}
	doc.Ops = append(doc.Ops, ir.Operation{
		Kind:  ir.OpCreateIndex,
		Index: &ir.IndexDef{Name: name.text, Columns: cols, Unique: unique},
	})
	return nil
}

// parseExtend parses "extend TABLE with member".
func (p *parser) parseExtend(doc *ir.Document) error {
	preceding := p.takePending()
	start := p.next()
	table, err := p.expectIdent()
	if err != nil {
		return err
	}
	if err := p.checkTable(doc, table); err != nil {
		return err
	}
	if _, err := p.expectKeyword("with"); err != nil {
		return err
	}
	col, err := p.parseMember()
	if err != nil {
		return err
	}
	if preceding != "" {
		col.Comment = preceding
	}
	if c := p.trailingComment(start); c != "" {
		if col.Comment == "" {
			col.Comment = c
		} else {
			col.Comment += "\n" + c
		}
	}
	doc.Ops = append(doc.Ops, ir.Operation{Kind: ir.OpAddColumn, Column: col})
	return nil
}

// parseConstrain parses "constrain TABLE with CLAUSE" where CLAUSE is
// one of:
//
//	unique (cols) [as NAME]
//	not-null (cols)
//	subset (cols) of REF (refcols) [as NAME]
//	default (col) = VALUE
func (p *parser) parseConstrain(doc *ir.Document) error {
	p.next()
	table, err := p.expectIdent()
	if err != nil {
		return err
	}
	if err := p.checkTable(doc, table); err != nil {
		return err
	}
	if _, err := p.expectKeyword("with"); err != nil {
		return err
	}

	kindTok, err := p.expectIdent()
	if err != nil {
		return err
	}
	kind, err := p.cat.ResolveConstraint(kindTok.text, repr.Set)
	if err != nil {
		return err
	}

	c := &ir.ConstraintDef{Kind: kind}
	switch kind {
	case ir.ConstraintUnique, ir.ConstraintPrimaryKey:
		if c.Columns, err = p.parseColumnList(); err != nil {
			return err
		}
		if c.Name, err = p.parseName(); err != nil {
			return err
		}
	case ir.ConstraintNotNull:
		if c.Columns, err = p.parseColumnList(); err != nil {
			return err
		}
	case ir.ConstraintForeignKey:
		if c.Columns, err = p.parseColumnList(); err != nil {
			return err
		}
		if _, err := p.expectKeyword("of"); err != nil {
			return err
		}
		ref, err := p.expectIdent()
		if err != nil {
			return err
		}
		c.RefTable = ref.text
		if c.RefColumns, err = p.parseColumnList(); err != nil {
			return err
		}
		if c.Name, err = p.parseName(); err != nil {
			return err
		}
	case ir.ConstraintDefault:
		if c.Columns, err = p.parseColumnList(); err != nil {
			return err
		}
		if _, err := p.expectPunct("="); err != nil {
			return err
		}
		if c.Default, err = p.parseValue(); err != nil {
			return err
		}
	default:
		return &repr.UnsupportedConstructError{
			Construct: fmt.Sprintf("constraint %q", kindTok.text),
			Span:      repr.Span{Line: kindTok.line, Col: kindTok.col},
			Source:    repr.Set,
		}
	}
	doc.Ops = append(doc.Ops, ir.Operation{Kind: ir.OpAddConstraint, Constraint: c})
	return nil
}

// parseDrop parses "drop constraint NAME from TABLE" or
// "drop KIND (cols) from TABLE".
func (p *parser) parseDrop(doc *ir.Document) error {
	p.next()
	ref := &ir.ConstraintRef{}

	t := p.next()
	switch {
	case t.keywordIs("constraint"):
		name, err := p.expectIdent()
		if err != nil {
			return err
		}
		ref.Name = name.text
	case t.kind == tokIdent:
		kind, err := p.cat.ResolveConstraint(t.text, repr.Set)
		if err != nil {
			return err
		}
		ref.Kind = kind
		if ref.Columns, err = p.parseColumnList(); err != nil {
			return err
		}
	default:
		return p.errorf(t, "expected constraint name or kind")
	}

	if _, err := p.expectKeyword("from"); err != nil {
		return err
	}
	table, err := p.expectIdent()
	if err != nil {
		return err
	}
	if err := p.checkTable(doc, table); err != nil {
		return err
	}
	doc.Ops = append(doc.Ops, ir.Operation{Kind: ir.OpDropConstraint, Drop: ref})
	return nil
}
