package declarative

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fourfold/fourfold/internal/catalog"
	"github.com/fourfold/fourfold/internal/ir"
	"github.com/fourfold/fourfold/internal/repr"
)

func newAdapter() *Adapter {
	return New(catalog.New())
}

const customersDDL = `CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT UNIQUE, created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP);`

func TestParse_CreateTable(t *testing.T) {
	doc, err := newAdapter().Parse(customersDDL)
	require.NoError(t, err)

	assert.Equal(t, "customers", doc.Schema.Name)
	require.Len(t, doc.Schema.Columns, 4)

	id := doc.Schema.Columns[0]
	assert.Equal(t, ir.TypeInt64, id.Type)
	assert.False(t, id.Nullable, "primary-key column is implicitly not-null")

	name := doc.Schema.Columns[1]
	assert.Equal(t, ir.TypeText, name.Type)
	assert.False(t, name.Nullable)

	email := doc.Schema.Columns[2]
	assert.True(t, email.Nullable)

	created := doc.Schema.Columns[3]
	assert.Equal(t, ir.TypeTimestamp, created.Type)
	require.True(t, created.Default.IsToken())
	assert.Equal(t, ir.TokenCurrentTimestamp, created.Default.Token)

	require.NotNil(t, doc.Schema.PrimaryKey)
	assert.Equal(t, []string{"id"}, doc.Schema.PrimaryKey.Columns)

	require.Len(t, doc.Schema.Uniques, 1)
	assert.Equal(t, []string{"email"}, doc.Schema.Uniques[0].Columns)

	require.Len(t, doc.Ops, 1)
	assert.Equal(t, ir.OpCreateTable, doc.Ops[0].Kind)
}

func TestParse_TableLevelConstraints(t *testing.T) {
	doc, err := newAdapter().Parse(`CREATE TABLE order_items (
  order_id INTEGER NOT NULL,
  item_no INT NOT NULL,
  sku TEXT NOT NULL,
  PRIMARY KEY (order_id, item_no),
  CONSTRAINT uq_sku UNIQUE (sku),
  FOREIGN KEY (order_id) REFERENCES orders (id)
);`)
	require.NoError(t, err)

	require.NotNil(t, doc.Schema.PrimaryKey)
	assert.Equal(t, []string{"order_id", "item_no"}, doc.Schema.PrimaryKey.Columns)

	require.Len(t, doc.Schema.Uniques, 1)
	assert.Equal(t, "uq_sku", doc.Schema.Uniques[0].Name)

	require.Len(t, doc.Schema.ForeignKeys, 1)
	fk := doc.Schema.ForeignKeys[0]
	assert.Equal(t, []string{"order_id"}, fk.Columns)
	assert.Equal(t, "orders", fk.RefTable)
	assert.Equal(t, []string{"id"}, fk.RefColumns)
}

func TestParse_ColumnLevelReferences(t *testing.T) {
	doc, err := newAdapter().Parse(
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, customer_id INTEGER REFERENCES customers (id));`)
	require.NoError(t, err)
	require.Len(t, doc.Schema.ForeignKeys, 1)
	assert.Equal(t, []string{"customer_id"}, doc.Schema.ForeignKeys[0].Columns)
}

func TestParse_Operations(t *testing.T) {
	doc, err := newAdapter().Parse(customersDDL + `
ALTER TABLE customers ADD COLUMN phone TEXT;
ALTER TABLE customers ADD CONSTRAINT uq_phone UNIQUE (phone);
ALTER TABLE customers DROP CONSTRAINT uq_phone;
CREATE UNIQUE INDEX ix_email ON customers (email);`)
	require.NoError(t, err)

	require.Len(t, doc.Ops, 5)
	assert.Equal(t, ir.OpCreateTable, doc.Ops[0].Kind)
	assert.Equal(t, ir.OpAddColumn, doc.Ops[1].Kind)
	assert.Equal(t, "phone", doc.Ops[1].Column.Name)
	assert.Equal(t, ir.OpAddConstraint, doc.Ops[2].Kind)
	assert.Equal(t, "uq_phone", doc.Ops[2].Constraint.Name)
	assert.Equal(t, ir.OpDropConstraint, doc.Ops[3].Kind)
	assert.Equal(t, "uq_phone", doc.Ops[3].Drop.Name)
	assert.Equal(t, ir.OpCreateIndex, doc.Ops[4].Kind)
	assert.True(t, doc.Ops[4].Index.Unique)
}

func TestParse_Comments(t *testing.T) {
	doc, err := newAdapter().Parse(`-- Customer registry.
-- One row per signup.
CREATE TABLE customers (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL, -- display name
  email TEXT
);`)
	require.NoError(t, err)

	assert.Equal(t, "Customer registry.\nOne row per signup.", doc.Comment)
	assert.Equal(t, "display name", doc.Schema.Columns[1].Comment)
	assert.Empty(t, doc.Schema.Columns[2].Comment)
}

func TestParse_PrecedingColumnComment(t *testing.T) {
	doc, err := newAdapter().Parse(`CREATE TABLE customers (
  id INTEGER PRIMARY KEY,
  -- normalized to lowercase
  -- before storage
  email TEXT
);`)
	require.NoError(t, err)
	assert.Equal(t, "normalized to lowercase\nbefore storage", doc.Schema.Columns[1].Comment)
}

func TestParse_TrailingCommentOnLastColumn(t *testing.T) {
	doc, err := newAdapter().Parse(`CREATE TABLE customers (
  id INTEGER PRIMARY KEY,
  note TEXT -- remark
);`)
	require.NoError(t, err)
	assert.Equal(t, "remark", doc.Schema.Columns[1].Comment)
}

func TestParse_TrailingCommentStaysWithItsColumn(t *testing.T) {
	doc, err := newAdapter().Parse(`CREATE TABLE customers (
  id INTEGER PRIMARY KEY,
  note TEXT -- remark
);
ALTER TABLE customers ADD COLUMN phone TEXT;`)
	require.NoError(t, err)

	assert.Equal(t, "remark", doc.Schema.Columns[1].Comment)
	require.Len(t, doc.Ops, 2)
	assert.Empty(t, doc.Ops[1].Column.Comment)
}

func TestParse_CheckIsUnsupportedNotDropped(t *testing.T) {
	_, err := newAdapter().Parse(
		`CREATE TABLE products (id INTEGER PRIMARY KEY, price DECIMAL, CHECK (price > 0));`)
	require.Error(t, err)

	var ue *repr.UnsupportedConstructError
	require.ErrorAs(t, err, &ue)
	assert.Contains(t, ue.Construct, "CHECK")
	assert.Equal(t, repr.DeclarativeQuery, ue.Source)
	assert.NotZero(t, ue.Span.Line)
}

func TestParse_UnknownTypeSurfacesToken(t *testing.T) {
	_, err := newAdapter().Parse(`CREATE TABLE t (amount MONEY);`)
	require.Error(t, err)

	var te *catalog.UnknownTypeError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "MONEY", te.Token)
}

func TestParse_UnknownDefaultToken(t *testing.T) {
	_, err := newAdapter().Parse(`CREATE TABLE t (ts TIMESTAMP DEFAULT SOMEDAY);`)
	require.Error(t, err)

	var te *catalog.UnknownTokenError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "SOMEDAY", te.Token)
}

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty input", ""},
		{"missing paren", `CREATE TABLE t id INTEGER;`},
		{"missing semicolon", `CREATE TABLE t (id INTEGER)`},
		{"unterminated string", `CREATE TABLE t (name TEXT DEFAULT 'abc);`},
		{"double primary key", `CREATE TABLE t (a INTEGER PRIMARY KEY, b INTEGER PRIMARY KEY);`},
		{"alter before create", `ALTER TABLE t ADD COLUMN x TEXT;`},
		{"alter wrong table", customersDDL + `ALTER TABLE orders ADD COLUMN x TEXT;`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newAdapter().Parse(tt.input)
			require.Error(t, err)
			assert.True(t, repr.IsParseError(err), "want ParseError, got %T: %v", err, err)
		})
	}
}

func TestParse_DefaultLiterals(t *testing.T) {
	doc, err := newAdapter().Parse(`CREATE TABLE t (
  active BOOLEAN DEFAULT TRUE,
  qty INTEGER DEFAULT 0,
  rate DECIMAL DEFAULT 0.05,
  label TEXT DEFAULT 'it''s new'
);`)
	require.NoError(t, err)

	cols := doc.Schema.Columns
	assert.Equal(t, ir.Literal{Kind: ir.LitBool, Text: "true"}, *cols[0].Default.Literal)
	assert.Equal(t, ir.Literal{Kind: ir.LitInt, Text: "0"}, *cols[1].Default.Literal)
	assert.Equal(t, ir.Literal{Kind: ir.LitNumber, Text: "0.05"}, *cols[2].Default.Literal,
		"numeric defaults keep exact source text")
	assert.Equal(t, ir.Literal{Kind: ir.LitString, Text: "it's new"}, *cols[3].Default.Literal)
}
