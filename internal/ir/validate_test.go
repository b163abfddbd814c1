package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate_CleanDocument(t *testing.T) {
	assert.Empty(t, Validate(testDoc()))
}

func TestValidate_SchemaLevel(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(d *Document)
		wantCode string
	}{
		{
			name:     "empty schema name",
			mutate:   func(d *Document) { d.Schema.Name = " " },
			wantCode: ErrSchemaNameEmpty,
		},
		{
			name:     "no columns",
			mutate:   func(d *Document) { d.Schema.Columns = nil },
			wantCode: ErrNoColumns,
		},
		{
			name: "duplicate column",
			mutate: func(d *Document) {
				d.Schema.Columns = append(d.Schema.Columns, ColumnDef{Name: "id", Type: TypeInt64})
			},
			wantCode: ErrDuplicateColumn,
		},
		{
			name: "primary key references missing column",
			mutate: func(d *Document) {
				d.Schema.PrimaryKey = &PrimaryKeyDef{Columns: []string{"nope"}}
			},
			wantCode: ErrUnknownColumnRef,
		},
		{
			name: "unique with no columns",
			mutate: func(d *Document) {
				d.Schema.Uniques = append(d.Schema.Uniques, UniqueDef{})
			},
			wantCode: ErrEmptyConstraint,
		},
		{
			name: "foreign key arity mismatch",
			mutate: func(d *Document) {
				d.Schema.ForeignKeys = append(d.Schema.ForeignKeys, ForeignKeyDef{
					Columns: []string{"id"}, RefTable: "orders", RefColumns: []string{"a", "b"},
				})
			},
			wantCode: ErrBadForeignKeyArity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testDoc()
			tt.mutate(doc)
			errs := Validate(doc)
			require.NotEmpty(t, errs)
			assert.Contains(t, codes(errs), tt.wantCode)
		})
	}
}

func TestValidate_DefaultShape(t *testing.T) {
	doc := testDoc()
	doc.Schema.Columns[2].Default = &DefaultDef{} // neither token nor literal
	errs := Validate(doc)
	assert.Contains(t, codes(errs), ErrBadDefaultShape)

	doc.Schema.Columns[2].Default = &DefaultDef{
		Token:   TokenCurrentTimestamp,
		Literal: &Literal{Kind: LitString, Text: "x"},
	}
	errs = Validate(doc)
	assert.Contains(t, codes(errs), ErrBadDefaultShape)
}

func TestValidate_OperationShape(t *testing.T) {
	doc := testDoc()
	doc.Ops = append(doc.Ops, Operation{Kind: OpAddColumn}) // missing payload
	errs := Validate(doc)
	assert.Contains(t, codes(errs), ErrBadOperationShape)
}

func TestValidate_ConstraintOnAddedColumn(t *testing.T) {
	// A constraint added after the column it references is valid:
	// references resolve against the effective schema, not the base.
	doc := testDoc()
	doc.Ops = append(doc.Ops,
		Operation{Kind: OpAddColumn, Column: &ColumnDef{Name: "phone", Type: TypeText, Nullable: true}},
		Operation{Kind: OpAddConstraint, Constraint: &ConstraintDef{
			Kind: ConstraintUnique, Columns: []string{"phone"},
		}},
	)
	assert.Empty(t, Validate(doc))
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	doc := testDoc()
	doc.Schema.Name = ""
	doc.Schema.PrimaryKey = &PrimaryKeyDef{Columns: []string{"nope"}}
	errs := Validate(doc)
	assert.GreaterOrEqual(t, len(errs), 2, "validation does not fail-fast")
}
