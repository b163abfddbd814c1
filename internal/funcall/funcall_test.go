package funcall

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

const customersCalls = `comment: "Customer registry."
ops: [
	{
		call: "create_table"
		target_table: "customers"
		column_defs: [
			{name: "id", type: "INTEGER"},
			{name: "name", type: "TEXT", not_null: true},
			{name: "email", type: "TEXT", unique: true},
			{name: "created_at", type: "TIMESTAMP", not_null: true, default: "CURRENT_TIMESTAMP"},
		]
		primary_key: "id"
	},
	{call: "add_column", column_def: {name: "phone", type: "TEXT"}},
	{call: "add_constraint", constraint: {kind: "unique", name: "uq_phone", columns: ["phone"]}},
	{call: "drop_constraint", name: "uq_phone"},
	{call: "create_index", name: "ix_email", columns: ["email"], unique: true},
]
`

func TestParse_CreateTable(t *testing.T) {
	doc, err := newAdapter().Parse(customersCalls)
	require.NoError(t, err)

	assert.Equal(t, "Customer registry.", doc.Comment)
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
}

func TestParse_Operations(t *testing.T) {
	doc, err := newAdapter().Parse(customersCalls)
	require.NoError(t, err)

	require.Len(t, doc.Ops, 5)
	assert.Equal(t, ir.OpCreateTable, doc.Ops[0].Kind)

	assert.Equal(t, ir.OpAddColumn, doc.Ops[1].Kind)
	assert.Equal(t, "phone", doc.Ops[1].Column.Name)
	assert.True(t, doc.Ops[1].Column.Nullable)

	assert.Equal(t, ir.OpAddConstraint, doc.Ops[2].Kind)
	c := doc.Ops[2].Constraint
	assert.Equal(t, ir.ConstraintUnique, c.Kind)
	assert.Equal(t, "uq_phone", c.Name)
	assert.Equal(t, []string{"phone"}, c.Columns)

	assert.Equal(t, ir.OpDropConstraint, doc.Ops[3].Kind)
	assert.Equal(t, "uq_phone", doc.Ops[3].Drop.Name)

	assert.Equal(t, ir.OpCreateIndex, doc.Ops[4].Kind)
	ix := doc.Ops[4].Index
	assert.Equal(t, "ix_email", ix.Name)
	assert.Equal(t, []string{"email"}, ix.Columns)
	assert.True(t, ix.Unique)
}

func TestParse_TableLevelDefs(t *testing.T) {
	doc, err := newAdapter().Parse(`ops: [
	{
		call: "create_table"
		target_table: "order_items"
		column_defs: [
			{name: "order_id", type: "INTEGER", not_null: true},
			{name: "item_no", type: "INT", not_null: true},
			{name: "sku", type: "TEXT", not_null: true},
		]
		primary_key: {columns: ["order_id", "item_no"]}
		unique_defs: [{name: "uq_sku", columns: ["sku"]}]
		foreign_keys: [{columns: ["order_id"], ref_table: "orders", ref_columns: ["id"]}]
	},
]`)
	require.NoError(t, err)

	assert.Equal(t, ir.TypeInt32, doc.Schema.Columns[1].Type)

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

func TestParse_DefaultShapes(t *testing.T) {
	doc, err := newAdapter().Parse(`ops: [
	{
		call: "create_table"
		target_table: "products"
		column_defs: [
			{name: "id", type: "INTEGER"},
			{name: "stock", type: "INT", default: 0},
			{name: "rate", type: "DECIMAL", default: {number: "0.05"}},
			{name: "active", type: "BOOLEAN", default: true},
			{name: "status", type: "TEXT", default: "new"},
			{name: "label", type: "TEXT", default: {string: "CURRENT_TIMESTAMP"}},
		]
		primary_key: "id"
	},
]`)
	require.NoError(t, err)

	cols := doc.Schema.Columns
	assert.Equal(t, ir.Literal{Kind: ir.LitInt, Text: "0"}, *cols[1].Default.Literal)
	assert.Equal(t, ir.Literal{Kind: ir.LitNumber, Text: "0.05"}, *cols[2].Default.Literal)
	assert.Equal(t, ir.Literal{Kind: ir.LitBool, Text: "true"}, *cols[3].Default.Literal)
	assert.Equal(t, ir.Literal{Kind: ir.LitString, Text: "new"}, *cols[4].Default.Literal)

	// The explicit string form shields token-colliding text.
	label := cols[5].Default
	assert.False(t, label.IsToken())
	assert.Equal(t, "CURRENT_TIMESTAMP", label.Literal.Text)
}

func TestParse_BareFloatDefaultRejected(t *testing.T) {
	_, err := newAdapter().Parse(`ops: [
	{
		call: "create_table"
		target_table: "products"
		column_defs: [{name: "rate", type: "DECIMAL", default: 0.05}]
	},
]`)
	require.Error(t, err)
	assert.True(t, repr.IsParseError(err))
	assert.Contains(t, err.Error(), "exact")
}

func TestParse_UnsupportedCall(t *testing.T) {
	_, err := newAdapter().Parse(`ops: [
	{call: "create_table", target_table: "t", column_defs: [{name: "id", type: "INTEGER"}]},
	{call: "rename_table", target_table: "t2"},
]`)
	require.Error(t, err)
	assert.True(t, repr.IsUnsupportedConstruct(err))
	assert.Contains(t, err.Error(), "rename_table")
}

func TestParse_UnknownColumnField(t *testing.T) {
	_, err := newAdapter().Parse(`ops: [
	{
		call: "create_table"
		target_table: "t"
		column_defs: [{name: "id", type: "INTEGER", collation: "C"}]
	},
]`)
	require.Error(t, err)
	assert.True(t, repr.IsUnsupportedConstruct(err))
	assert.Contains(t, err.Error(), "collation")
}

func TestParse_UnknownType(t *testing.T) {
	_, err := newAdapter().Parse(`ops: [
	{
		call: "create_table"
		target_table: "t"
		column_defs: [{name: "price", type: "MONEY"}]
	},
]`)
	require.Error(t, err)
	assert.True(t, catalog.IsUnknownType(err))

	var ute *catalog.UnknownTypeError
	require.ErrorAs(t, err, &ute)
	assert.Equal(t, "MONEY", ute.Token)
}

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"malformed cue", `ops: [{call: "create_table",`},
		{"missing ops", `comment: "no calls"`},
		{"missing create_table", `ops: [{call: "add_column", column_def: {name: "x", type: "TEXT"}}]`},
		{"duplicate create_table", `ops: [
	{call: "create_table", target_table: "a", column_defs: [{name: "id", type: "INTEGER"}]},
	{call: "create_table", target_table: "b", column_defs: [{name: "id", type: "INTEGER"}]},
]`},
		{"create_table without columns", `ops: [{call: "create_table", target_table: "t"}]`},
		{"drop without ref", `ops: [
	{call: "create_table", target_table: "t", column_defs: [{name: "id", type: "INTEGER"}]},
	{call: "drop_constraint"},
]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newAdapter().Parse(tt.input)
			require.Error(t, err)
			assert.True(t, repr.IsParseError(err))
		})
	}
}

func TestGenerate_CanonicalForm(t *testing.T) {
	a := newAdapter()
	doc, err := a.Parse(customersCalls)
	require.NoError(t, err)

	out, err := a.Generate(doc, nil)
	require.NoError(t, err)

	want := `comment: "Customer registry."
ops: [
  {
    call: "create_table"
    target_table: "customers"
    column_defs: [
      {name: "id", type: "INTEGER", not_null: true},
      {name: "name", type: "TEXT", not_null: true},
      {name: "email", type: "TEXT", unique: true},
      {name: "created_at", type: "TIMESTAMP", not_null: true, default: "CURRENT_TIMESTAMP"},
    ]
    primary_key: "id"
  },
  {call: "add_column", column_def: {name: "phone", type: "TEXT"}},
  {call: "add_constraint", constraint: {kind: "unique", name: "uq_phone", columns: ["phone"]}},
  {call: "drop_constraint", name: "uq_phone"},
  {call: "create_index", name: "ix_email", columns: ["email"], unique: true},
]
`
	assert.Equal(t, want, out)
}

func TestGenerate_Deterministic(t *testing.T) {
	a := newAdapter()
	doc, err := a.Parse(customersCalls)
	require.NoError(t, err)

	first, err := a.Generate(doc, nil)
	require.NoError(t, err)
	second, err := a.Generate(doc, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerate_RoundTripFingerprint(t *testing.T) {
	a := newAdapter()

	doc, err := a.Parse(customersCalls)
	require.NoError(t, err)
	out, err := a.Generate(doc, nil)
	require.NoError(t, err)

	again, err := a.Parse(out)
	require.NoError(t, err)

	assert.Equal(t, ir.MustFingerprint(doc), ir.MustFingerprint(again))
}

func TestGenerate_NamedPrimaryKeyAndMultiUnique(t *testing.T) {
	a := newAdapter()
	doc := &ir.Document{
		Schema: ir.SchemaDefinition{
			Name: "shipments",
			Columns: []ir.ColumnDef{
				{Name: "carrier", Type: ir.TypeText},
				{Name: "tracking", Type: ir.TypeText},
			},
			PrimaryKey: &ir.PrimaryKeyDef{Name: "pk_shipments", Columns: []string{"carrier", "tracking"}},
			Uniques:    []ir.UniqueDef{{Name: "uq_track", Columns: []string{"carrier", "tracking"}}},
		},
		Ops: []ir.Operation{{Kind: ir.OpCreateTable}},
	}
	ir.Normalize(doc)

	out, err := a.Generate(doc, nil)
	require.NoError(t, err)
	assert.Contains(t, out, `primary_key: {name: "pk_shipments", columns: ["carrier", "tracking"]}`)
	assert.Contains(t, out, `unique_defs`)

	again, err := a.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, ir.MustFingerprint(doc), ir.MustFingerprint(again))
}

func TestGenerate_TokenCollidingLiteral(t *testing.T) {
	a := newAdapter()
	doc := &ir.Document{
		Schema: ir.SchemaDefinition{
			Name: "notes",
			Columns: []ir.ColumnDef{
				{Name: "id", Type: ir.TypeInt64},
				{Name: "body", Type: ir.TypeText, Nullable: true,
					Default: &ir.DefaultDef{Literal: &ir.Literal{Kind: ir.LitString, Text: "CURRENT_DATE"}}},
			},
			PrimaryKey: &ir.PrimaryKeyDef{Columns: []string{"id"}},
		},
		Ops: []ir.Operation{{Kind: ir.OpCreateTable}},
	}
	ir.Normalize(doc)

	out, err := a.Generate(doc, nil)
	require.NoError(t, err)
	assert.Contains(t, out, `default: {string: "CURRENT_DATE"}`)

	again, err := a.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, ir.MustFingerprint(doc), ir.MustFingerprint(again))
}

func TestGenerate_LineageNotExpressible(t *testing.T) {
	a := newAdapter()
	doc, err := a.Parse(customersCalls)
	require.NoError(t, err)
	doc.Lineage = []ir.LineageEdge{{From: "staging", To: "customers", Via: "copy"}}

	_, err = a.Generate(doc, nil)
	require.Error(t, err)
	assert.True(t, repr.IsUnsupportedConstruct(err))
}
