package setnotation

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

const customersSet = `# Customer registry.
relation customers = {
  id in int64 - {null},
  name in text - {null},
  email in text,
  created_at in timestamp - {null} default current-timestamp,
}
key customers (id)
unique customers (email)
extend customers with phone in text
constrain customers with unique (phone) as uq_phone
drop constraint uq_phone from customers
index ix_email on customers (email) unique
`

func TestParse_Relation(t *testing.T) {
	doc, err := newAdapter().Parse(customersSet)
	require.NoError(t, err)

	assert.Equal(t, "Customer registry.", doc.Comment)
	assert.Equal(t, "customers", doc.Schema.Name)
	require.Len(t, doc.Schema.Columns, 4)

	id := doc.Schema.Columns[0]
	assert.Equal(t, ir.TypeInt64, id.Type)
	assert.False(t, id.Nullable, "key column is implicitly not-null")

	assert.False(t, doc.Schema.Columns[1].Nullable)
	assert.True(t, doc.Schema.Columns[2].Nullable)

	created := doc.Schema.Columns[3]
	assert.Equal(t, ir.TypeTimestamp, created.Type)
	require.True(t, created.Default.IsToken())
	assert.Equal(t, ir.TokenCurrentTimestamp, created.Default.Token)

	require.NotNil(t, doc.Schema.PrimaryKey)
	assert.Equal(t, []string{"id"}, doc.Schema.PrimaryKey.Columns)

	require.Len(t, doc.Schema.Uniques, 1)
	assert.Equal(t, []string{"email"}, doc.Schema.Uniques[0].Columns)
}

func TestParse_Operations(t *testing.T) {
	doc, err := newAdapter().Parse(customersSet)
	require.NoError(t, err)

	require.Len(t, doc.Ops, 5)
	assert.Equal(t, ir.OpCreateTable, doc.Ops[0].Kind)
	assert.Equal(t, ir.OpAddColumn, doc.Ops[1].Kind)
	assert.Equal(t, "phone", doc.Ops[1].Column.Name)

	assert.Equal(t, ir.OpAddConstraint, doc.Ops[2].Kind)
	c := doc.Ops[2].Constraint
	assert.Equal(t, ir.ConstraintUnique, c.Kind)
	assert.Equal(t, "uq_phone", c.Name)
	assert.Equal(t, []string{"phone"}, c.Columns)

	assert.Equal(t, ir.OpDropConstraint, doc.Ops[3].Kind)
	assert.Equal(t, "uq_phone", doc.Ops[3].Drop.Name)

	assert.Equal(t, ir.OpCreateIndex, doc.Ops[4].Kind)
	assert.True(t, doc.Ops[4].Index.Unique)
}

func TestParse_Subset(t *testing.T) {
	doc, err := newAdapter().Parse(`relation orders = {
	id in int64,
	customer_id in int64 - {null},
}
key orders (id)
subset orders (customer_id) of customers (id) as fk_customer
`)
	require.NoError(t, err)

	require.Len(t, doc.Schema.ForeignKeys, 1)
	fk := doc.Schema.ForeignKeys[0]
	assert.Equal(t, "fk_customer", fk.Name)
	assert.Equal(t, []string{"customer_id"}, fk.Columns)
	assert.Equal(t, "customers", fk.RefTable)
	assert.Equal(t, []string{"id"}, fk.RefColumns)
}

func TestParse_Comments(t *testing.T) {
	doc, err := newAdapter().Parse(`# Orders ledger.
relation orders = {
	id in int64,
	total in decimal - {null}, # gross amount
	# spans
	# two lines
	note in text,
}
key orders (id)
`)
	require.NoError(t, err)

	assert.Equal(t, "Orders ledger.", doc.Comment)
	assert.Equal(t, "gross amount", doc.Schema.Columns[1].Comment)
	assert.Equal(t, "spans\ntwo lines", doc.Schema.Columns[2].Comment)
}

func TestParse_TrailingCommentOnLastMember(t *testing.T) {
	doc, err := newAdapter().Parse(`relation orders = {
	id in int64,
	note in text # remark
}
key orders (id)
`)
	require.NoError(t, err)
	assert.Equal(t, "remark", doc.Schema.Columns[1].Comment)
}

func TestParse_ExtendTrailingComment(t *testing.T) {
	doc, err := newAdapter().Parse(`relation customers = {
	id in int64,
}
key customers (id)
extend customers with phone in text # E.164
extend customers with fax in text
`)
	require.NoError(t, err)

	require.Len(t, doc.Ops, 3)
	assert.Equal(t, "E.164", doc.Ops[1].Column.Comment)
	assert.Empty(t, doc.Ops[2].Column.Comment)
}

func TestGenerate_ExtendCommentRoundTrip(t *testing.T) {
	a := newAdapter()
	doc, err := a.Parse(`relation customers = {
	id in int64,
}
key customers (id)
extend customers with phone in text # E.164
`)
	require.NoError(t, err)
	out, err := a.Generate(doc, nil)
	require.NoError(t, err)

	again, err := a.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, ir.MustFingerprint(doc), ir.MustFingerprint(again))
	assert.Equal(t, "E.164", again.Ops[1].Column.Comment)
}

func TestParse_DefaultLiterals(t *testing.T) {
	doc, err := newAdapter().Parse(`relation products = {
	id in int64,
	stock in int32 default 0,
	rate in decimal default 0.05,
	active in bool default true,
	status in text default "it""s new",
}
key products (id)
`)
	require.NoError(t, err)

	cols := doc.Schema.Columns
	assert.Equal(t, ir.Literal{Kind: ir.LitInt, Text: "0"}, *cols[1].Default.Literal)
	assert.Equal(t, ir.Literal{Kind: ir.LitNumber, Text: "0.05"}, *cols[2].Default.Literal)
	assert.Equal(t, ir.Literal{Kind: ir.LitBool, Text: "true"}, *cols[3].Default.Literal)
	assert.Equal(t, ir.Literal{Kind: ir.LitString, Text: `it"s new`}, *cols[4].Default.Literal)
}

func TestParse_ConstrainKinds(t *testing.T) {
	doc, err := newAdapter().Parse(`relation t = {
	id in int64,
	a in text,
	b in int64,
}
key t (id)
constrain t with not-null (a)
constrain t with subset (b) of refs (id)
constrain t with default (a) = "x"
`)
	require.NoError(t, err)

	require.Len(t, doc.Ops, 4)
	assert.Equal(t, ir.ConstraintNotNull, doc.Ops[1].Constraint.Kind)
	assert.Equal(t, ir.ConstraintForeignKey, doc.Ops[2].Constraint.Kind)
	assert.Equal(t, "refs", doc.Ops[2].Constraint.RefTable)
	d := doc.Ops[3].Constraint
	assert.Equal(t, ir.ConstraintDefault, d.Kind)
	assert.Equal(t, "x", d.Default.Literal.Text)
}

func TestParse_DropByKind(t *testing.T) {
	doc, err := newAdapter().Parse(`relation t = {
	id in int64,
	a in text,
}
key t (id)
drop unique (a) from t
`)
	require.NoError(t, err)

	require.Len(t, doc.Ops, 2)
	ref := doc.Ops[1].Drop
	assert.Equal(t, ir.ConstraintUnique, ref.Kind)
	assert.Equal(t, []string{"a"}, ref.Columns)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty input", ""},
		{"missing relation", "key t (id)\n"},
		{"unterminated string", `relation t = { a in text default "x }` + "\n"},
		{"missing brace", "relation t = {\n\tid in int64,\n"},
		{"bad member", "relation t = {\n\tid int64,\n}\n"},
		{"wrong table", "relation t = {\n\tid in int64,\n}\nkey other (id)\n"},
		{"double key", "relation t = {\n\tid in int64,\n}\nkey t (id)\nkey t (id)\n"},
		{"unknown statement", "relation t = {\n\tid in int64,\n}\nmerge t\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newAdapter().Parse(tt.input)
			require.Error(t, err)
			assert.True(t, repr.IsParseError(err), "got %v", err)
		})
	}
}

func TestParse_UnknownType(t *testing.T) {
	_, err := newAdapter().Parse("relation t = {\n\tprice in money,\n}\n")
	require.Error(t, err)
	assert.True(t, catalog.IsUnknownType(err))
}

func TestGenerate_CanonicalForm(t *testing.T) {
	a := newAdapter()
	doc, err := a.Parse(customersSet)
	require.NoError(t, err)

	out, err := a.Generate(doc, nil)
	require.NoError(t, err)
	assert.Equal(t, customersSet, out)
}

func TestGenerate_Deterministic(t *testing.T) {
	a := newAdapter()
	doc, err := a.Parse(customersSet)
	require.NoError(t, err)

	first, err := a.Generate(doc, nil)
	require.NoError(t, err)
	second, err := a.Generate(doc, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerate_RoundTripFingerprint(t *testing.T) {
	a := newAdapter()

	doc, err := a.Parse(customersSet)
	require.NoError(t, err)
	out, err := a.Generate(doc, nil)
	require.NoError(t, err)

	again, err := a.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, ir.MustFingerprint(doc), ir.MustFingerprint(again))
}

func TestGenerate_CommentRoundTrip(t *testing.T) {
	a := newAdapter()
	in := `# Orders ledger.
relation orders = {
	id in int64,
	total in decimal - {null}, # gross amount
	# spans
	# two lines
	note in text,
}
key orders (id)
`
	doc, err := a.Parse(in)
	require.NoError(t, err)
	out, err := a.Generate(doc, nil)
	require.NoError(t, err)

	again, err := a.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, ir.MustFingerprint(doc), ir.MustFingerprint(again))
	assert.Equal(t, "gross amount", again.Schema.Columns[1].Comment)
	assert.Equal(t, "spans\ntwo lines", again.Schema.Columns[2].Comment)
}

func TestGenerate_LineageNotExpressible(t *testing.T) {
	a := newAdapter()
	doc, err := a.Parse(customersSet)
	require.NoError(t, err)
	doc.Lineage = []ir.LineageEdge{{From: "staging", To: "customers", Via: "copy"}}

	_, err = a.Generate(doc, nil)
	require.Error(t, err)
	assert.True(t, repr.IsUnsupportedConstruct(err))
}
