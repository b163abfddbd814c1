package declarative

import (
	"fmt"
	"strings"

	"github.com/fourfold/fourfold/internal/catalog"
	"github.com/fourfold/fourfold/internal/ir"
	"github.com/fourfold/fourfold/internal/repr"
)

// Adapter is the declarative-query parse/generate pair. Stateless
// beyond the shared read-only catalog; safe for concurrent use.
type Adapter struct {
	cat *catalog.Catalog
}

// New returns the declarative-query adapter.
func New(cat *catalog.Catalog) *Adapter {
	return &Adapter{cat: cat}
}

// Representation implements repr.Adapter.
func (a *Adapter) Representation() repr.Representation {
	return repr.DeclarativeQuery
}

// Parse decodes DDL text into a canonical document. The first
// statement must be CREATE TABLE; subsequent ALTER TABLE and CREATE
// INDEX statements become the ordered operation sequence.
func (a *Adapter) Parse(text string) (*ir.Document, error) {
	toks, err := lex(text, repr.DeclarativeQuery)
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

// parser consumes the token stream. Comments are not skipped silently:
// they are drained into pending so they can be attached as schema or
// column metadata; comments are never dropped inside a statement.
type parser struct {
	toks    []token
	pos     int
	cat     *catalog.Catalog
	pending []string // own-line comments awaiting attachment

	// pkPending carries a column-level PRIMARY KEY up to the table
	// without threading extra return values through every option branch.
	pkPending *ir.PrimaryKeyDef
}

func (p *parser) raw() token { return p.toks[p.pos] }

// drainComments consumes consecutive comment tokens into pending.
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

// peek returns the next non-comment token without consuming it.
func (p *parser) peek() token {
	p.drainComments()
	return p.raw()
}

// next consumes and returns the next non-comment token.
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
	// The comma or closing paren may sit between the item and its
	// comment; callers pass the last structural token of the line.
	if p.raw().kind == tokComment && p.raw().line == after.line {
		text := p.raw().text
		p.pos++
		return text
	}
	return ""
}

func (p *parser) errorf(at token, format string, args ...any) error {
	return &repr.ParseError{
		Source:  repr.DeclarativeQuery,
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
		return nil, p.errorf(first, "empty input: expected CREATE TABLE")
	}
	if err := p.parseCreateTable(doc); err != nil {
		return nil, err
	}
	doc.Ops = append(doc.Ops, ir.Operation{Kind: ir.OpCreateTable})

	for {
		t := p.peek()
		if t.kind == tokEOF {
			break
		}
		switch {
		case t.keywordIs("ALTER"):
			if err := p.parseAlter(doc); err != nil {
				return nil, err
			}
		case t.keywordIs("CREATE"):
			if err := p.parseCreateIndex(doc); err != nil {
				return nil, err
			}
		default:
			return nil, p.errorf(t, "expected ALTER TABLE or CREATE INDEX statement")
		}
	}
	return doc, nil
}

func (p *parser) parseCreateTable(doc *ir.Document) error {
	if _, err := p.expectKeyword("CREATE"); err != nil {
		return err
	}
	if _, err := p.expectKeyword("TABLE"); err != nil {
		return err
	}
	name, err := p.expectIdent()
	if err != nil {
		return err
	}
	doc.Schema.Name = name.text
	if _, err := p.expectPunct("("); err != nil {
		return err
	}

	for {
		p.drainComments()
		if err := p.parseTableItem(doc); err != nil {
			return err
		}
		// A comment on the item's own line, before the comma or the
		// closing paren, belongs to that item.
		if p.pos > 0 {
			if c := p.trailingComment(p.toks[p.pos-1]); c != "" {
				attachToLastColumn(doc, c)
			}
		}
		t := p.next()
		if t.kind == tokPunct && t.text == "," {
			// A trailing comment after the comma belongs to the item
			// just parsed.
			if c := p.trailingComment(t); c != "" {
				attachToLastColumn(doc, c)
			}
			continue
		}
		if t.kind == tokPunct && t.text == ")" {
			break
		}
		return p.errorf(t, "expected ',' or ')' in table body")
	}
	if _, err := p.expectPunct(";"); err != nil {
		return err
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

// parseTableItem parses one comma-separated item of a CREATE TABLE
// body: a column definition or a table-level constraint. Recognized
// constructs with no catalog mapping (CHECK, EXCLUDE) fail closed.
func (p *parser) parseTableItem(doc *ir.Document) error {
	t := p.peek()
	switch {
	case t.keywordIs("CHECK") || t.keywordIs("EXCLUDE"):
		return p.unsupportedFragment(t)
	case t.keywordIs("CONSTRAINT"):
		p.next()
		name, err := p.expectIdent()
		if err != nil {
			return err
		}
		return p.parseTableConstraint(doc, name.text)
	case t.keywordIs("PRIMARY") || t.keywordIs("UNIQUE") || t.keywordIs("FOREIGN"):
		return p.parseTableConstraint(doc, "")
	default:
		return p.parseColumnItem(doc)
	}
}

// unsupportedFragment consumes a recognized-but-unmappable construct
// through its balanced parentheses and reports it with its source
// fragment and location.
func (p *parser) unsupportedFragment(start token) error {
	var frag strings.Builder
	frag.WriteString(start.text)
	p.next()
	depth := 0
	for {
		t := p.raw()
		if t.kind == tokEOF {
			break
		}
		if t.kind == tokPunct {
			switch t.text {
			case "(":
				depth++
			case ")":
				if depth == 0 {
					// closing paren of the table body
					goto done
				}
				depth--
			case ",", ";":
				if depth == 0 {
					goto done
				}
			}
		}
		if t.kind == tokString {
			frag.WriteString(" '" + t.text + "'")
		} else if t.kind != tokComment {
			if t.text == "(" || t.text == ")" || t.text == "," {
				frag.WriteString(t.text)
			} else {
				frag.WriteString(" " + t.text)
			}
		}
		p.pos++
	}
done:
	return &repr.UnsupportedConstructError{
		Construct: strings.TrimSpace(frag.String()),
		Span:      repr.Span{Line: start.line, Col: start.col},
		Source:    repr.DeclarativeQuery,
	}
}

func (p *parser) parseColumnItem(doc *ir.Document) error {
	preceding := p.takePending()
	col, fks, uniques, err := p.parseColumnDef()
	if err != nil {
		return err
	}
	if preceding != "" {
		col.Comment = preceding
	}
	doc.Schema.Columns = append(doc.Schema.Columns, *col)
	doc.Schema.ForeignKeys = append(doc.Schema.ForeignKeys, fks...)
	doc.Schema.Uniques = append(doc.Schema.Uniques, uniques...)
	if p.pkPending != nil {
		if doc.Schema.PrimaryKey != nil {
			return p.errorf(p.raw(), "multiple primary keys for table %q", doc.Schema.Name)
		}
		doc.Schema.PrimaryKey = p.pkPending
		p.pkPending = nil
	}
	return nil
}

// parseColumnDef parses "name TYPE [options...]". Column-level
// PRIMARY KEY, UNIQUE and REFERENCES lift to table-level definitions.
func (p *parser) parseColumnDef() (*ir.ColumnDef, []ir.ForeignKeyDef, []ir.UniqueDef, error) {
	name, err := p.expectIdent()
	if err != nil {
		return nil, nil, nil, err
	}
	typeTok, err := p.expectIdent()
	if err != nil {
		return nil, nil, nil, err
	}
	canonical, err := p.cat.ResolveType(typeTok.text, repr.DeclarativeQuery)
	if err != nil {
		return nil, nil, nil, err
	}

	col := &ir.ColumnDef{Name: name.text, Type: canonical, Nullable: true}
	var fks []ir.ForeignKeyDef
	var uniques []ir.UniqueDef

	for {
		// A comment on the definition's own line ends the option list.
		// Left in the stream so the caller attaches it to this column;
		// draining it here would migrate it onto the next item.
		if c := p.raw(); c.kind == tokComment && c.line == p.toks[p.pos-1].line {
			return col, fks, uniques, nil
		}
		t := p.peek()
		switch {
		case t.keywordIs("NOT"):
			p.next()
			if _, err := p.expectKeyword("NULL"); err != nil {
				return nil, nil, nil, err
			}
			col.Nullable = false
		case t.keywordIs("NULL"):
			p.next()
			col.Nullable = true
		case t.keywordIs("PRIMARY"):
			p.next()
			if _, err := p.expectKeyword("KEY"); err != nil {
				return nil, nil, nil, err
			}
			p.pkPending = &ir.PrimaryKeyDef{Columns: []string{col.Name}}
		case t.keywordIs("UNIQUE"):
			p.next()
			uniques = append(uniques, ir.UniqueDef{Columns: []string{col.Name}})
		case t.keywordIs("DEFAULT"):
			p.next()
			def, err := p.parseDefaultValue()
			if err != nil {
				return nil, nil, nil, err
			}
			col.Default = def
		case t.keywordIs("REFERENCES"):
			p.next()
			fk, err := p.parseReferences([]string{col.Name})
			if err != nil {
				return nil, nil, nil, err
			}
			fks = append(fks, *fk)
		case t.keywordIs("CHECK"):
			return nil, nil, nil, p.unsupportedFragment(t)
		default:
			return col, fks, uniques, nil
		}
	}
}

func (p *parser) parseDefaultValue() (*ir.DefaultDef, error) {
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
		if t.keywordIs("TRUE") || t.keywordIs("FALSE") {
			return &ir.DefaultDef{Literal: &ir.Literal{Kind: ir.LitBool, Text: strings.ToLower(t.text)}}, nil
		}
		tok, err := p.cat.ResolveToken(t.text, repr.DeclarativeQuery)
		if err != nil {
			return nil, err
		}
		return &ir.DefaultDef{Token: tok}, nil
	default:
		return nil, p.errorf(t, "expected default value")
	}
}

func (p *parser) parseReferences(local []string) (*ir.ForeignKeyDef, error) {
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	refCols, err := p.parseColumnList()
	if err != nil {
		return nil, err
	}
	return &ir.ForeignKeyDef{Columns: local, RefTable: table.text, RefColumns: refCols}, nil
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

// parseTableConstraint parses a table-level PRIMARY KEY, UNIQUE or
// FOREIGN KEY item and records it on the schema.
func (p *parser) parseTableConstraint(doc *ir.Document, name string) error {
	c, err := p.parseConstraintBody(name)
	if err != nil {
		return err
	}
	switch c.Kind {
	case ir.ConstraintPrimaryKey:
		if doc.Schema.PrimaryKey != nil {
			return p.errorf(p.raw(), "multiple primary keys for table %q", doc.Schema.Name)
		}
		doc.Schema.PrimaryKey = &ir.PrimaryKeyDef{Name: c.Name, Columns: c.Columns}
	case ir.ConstraintUnique:
		doc.Schema.Uniques = append(doc.Schema.Uniques, ir.UniqueDef{Name: c.Name, Columns: c.Columns})
	case ir.ConstraintForeignKey:
		doc.Schema.ForeignKeys = append(doc.Schema.ForeignKeys, ir.ForeignKeyDef{
			Name: c.Name, Columns: c.Columns, RefTable: c.RefTable, RefColumns: c.RefColumns,
		})
	}
	return nil
}

// parseConstraintBody parses the shared constraint grammar used by
// table items and ALTER TABLE ADD CONSTRAINT.
func (p *parser) parseConstraintBody(name string) (*ir.ConstraintDef, error) {
	t := p.next()
	switch {
	case t.keywordIs("PRIMARY"):
		if _, err := p.expectKeyword("KEY"); err != nil {
			return nil, err
		}
		cols, err := p.parseColumnList()
		if err != nil {
			return nil, err
		}
		return &ir.ConstraintDef{Kind: ir.ConstraintPrimaryKey, Name: name, Columns: cols}, nil
	case t.keywordIs("UNIQUE"):
		cols, err := p.parseColumnList()
		if err != nil {
			return nil, err
		}
		return &ir.ConstraintDef{Kind: ir.ConstraintUnique, Name: name, Columns: cols}, nil
	case t.keywordIs("FOREIGN"):
		if _, err := p.expectKeyword("KEY"); err != nil {
			return nil, err
		}
		local, err := p.parseColumnList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKeyword("REFERENCES"); err != nil {
			return nil, err
		}
		fk, err := p.parseReferences(local)
		if err != nil {
			return nil, err
		}
		return &ir.ConstraintDef{
			Kind: ir.ConstraintForeignKey, Name: name,
			Columns: fk.Columns, RefTable: fk.RefTable, RefColumns: fk.RefColumns,
		}, nil
	case t.keywordIs("CHECK") || t.keywordIs("EXCLUDE"):
		return nil, p.unsupportedFragment(t)
	default:
		return nil, p.errorf(t, "expected PRIMARY KEY, UNIQUE or FOREIGN KEY")
	}
}

func (p *parser) parseAlter(doc *ir.Document) error {
	if _, err := p.expectKeyword("ALTER"); err != nil {
		return err
	}
	if _, err := p.expectKeyword("TABLE"); err != nil {
		return err
	}
	table, err := p.expectIdent()
	if err != nil {
		return err
	}
	if table.text != doc.Schema.Name {
		return p.errorf(table, "statement targets table %q, document defines %q", table.text, doc.Schema.Name)
	}

	t := p.next()
	switch {
	case t.keywordIs("ADD"):
		return p.parseAlterAdd(doc)
	case t.keywordIs("DROP"):
		if _, err := p.expectKeyword("CONSTRAINT"); err != nil {
			return err
		}
		name, err := p.expectIdent()
		if err != nil {
			return err
		}
		if _, err := p.expectPunct(";"); err != nil {
			return err
		}
		doc.Ops = append(doc.Ops, ir.Operation{
			Kind: ir.OpDropConstraint,
			Drop: &ir.ConstraintRef{Name: name.text},
		})
		return nil
	default:
		return p.errorf(t, "expected ADD or DROP CONSTRAINT")
	}
}

func (p *parser) parseAlterAdd(doc *ir.Document) error {
	t := p.peek()
	switch {
	case t.keywordIs("COLUMN"):
		p.next()
		preceding := p.takePending()
		col, fks, uniques, err := p.parseColumnDef()
		if err != nil {
			return err
		}
		if p.pkPending != nil {
			return p.errorf(t, "ADD COLUMN cannot declare a primary key")
		}
		end, err := p.expectPunct(";")
		if err != nil {
			return err
		}
		if preceding != "" {
			col.Comment = preceding
		}
		if c := p.trailingComment(end); c != "" {
			if col.Comment == "" {
				col.Comment = c
			} else {
				col.Comment += "\n" + c
			}
		}
		doc.Ops = append(doc.Ops, ir.Operation{Kind: ir.OpAddColumn, Column: col})
		// Column-level UNIQUE / REFERENCES become follow-on constraint
		// operations so the sequence stays faithful to the source.
		for _, u := range uniques {
			u := u
			doc.Ops = append(doc.Ops, ir.Operation{Kind: ir.OpAddConstraint, Constraint: &ir.ConstraintDef{
				Kind: ir.ConstraintUnique, Columns: u.Columns,
			}})
		}
		for _, fk := range fks {
			fk := fk
			doc.Ops = append(doc.Ops, ir.Operation{Kind: ir.OpAddConstraint, Constraint: &ir.ConstraintDef{
				Kind: ir.ConstraintForeignKey, Columns: fk.Columns,
				RefTable: fk.RefTable, RefColumns: fk.RefColumns,
			}})
		}
		return nil
	case t.keywordIs("CONSTRAINT"):
		p.next()
		name, err := p.expectIdent()
		if err != nil {
			return err
		}
		c, err := p.parseConstraintBody(name.text)
		if err != nil {
			return err
		}
		if _, err := p.expectPunct(";"); err != nil {
			return err
		}
		doc.Ops = append(doc.Ops, ir.Operation{Kind: ir.OpAddConstraint, Constraint: c})
		return nil
	default:
		c, err := p.parseConstraintBody("")
		if err != nil {
			return err
		}
		if _, err := p.expectPunct(";"); err != nil {
			return err
		}
		doc.Ops = append(doc.Ops, ir.Operation{Kind: ir.OpAddConstraint, Constraint: c})
		return nil
	}
}

func (p *parser) parseCreateIndex(doc *ir.Document) error {
	if _, err := p.expectKeyword("CREATE"); err != nil {
		return err
	}
	unique := false
	t := p.peek()
	if t.keywordIs("UNIQUE") {
		p.next()
		unique = true
	}
	if _, err := p.expectKeyword("INDEX"); err != nil {
		return err
	}
	name, err := p.expectIdent()
	if err != nil {
		return err
	}
	if _, err := p.expectKeyword("ON"); err != nil {
		return err
	}
	table, err := p.expectIdent()
	if err != nil {
		return err
	}
	if table.text != doc.Schema.Name {
		return p.errorf(table, "statement targets table %q, document defines %q", table.text, doc.Schema.Name)
	}
	cols, err := p.parseColumnList()
	if err != nil {
		return err
	}
	if _, err := p.expectPunct(";"); err != nil {
		return err
	}
	doc.Ops = append(doc.Ops, ir.Operation{
		Kind:  ir.OpCreateIndex,
		Index: &ir.IndexDef{Name: name.text, Columns: cols, Unique: unique},
	})
	return nil
}
