package ir

import (
	"fmt"
	"strings"
)

// Structural validation error codes (E001-E019).
const (
	ErrSchemaNameEmpty    = "E001" // schema name is required
	ErrNoColumns          = "E002" // at least one column required
	ErrDuplicateColumn    = "E003" // duplicate column name
	ErrUnknownColumnRef   = "E004" // constraint references missing column
	ErrEmptyConstraint    = "E005" // constraint has no columns
	ErrBadDefaultShape    = "E006" // default must be exactly token or literal
	ErrBadOperationShape  = "E007" // operation payload doesn't match its kind
	ErrUnresolvedDropRef  = "E008" // drop-constraint matches nothing
	ErrBadForeignKeyArity = "E009" // fk column count != referenced column count
)

// ValidationError reports one structural defect of a Document.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks the representation-neutral invariants of a Document:
// every column referenced by a constraint exists, defaults have exactly
// one variant set, operation payloads match their kind. Returns all
// errors found (does not fail-fast). Catalog-dependent checks (type
// compatibility of defaults) live with the catalog, not here.
func Validate(d *Document) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(d.Schema.Name) == "" {
		errs = append(errs, ValidationError{
			Field: "schema.name", Code: ErrSchemaNameEmpty,
			Message: "schema name is required and must be non-empty",
		})
	}
	if len(d.Schema.Columns) == 0 {
		errs = append(errs, ValidationError{
			Field: "schema.columns", Code: ErrNoColumns,
			Message: "at least one column is required",
		})
	}

	seen := make(map[string]bool)
	for i, col := range d.Schema.Columns {
		field := fmt.Sprintf("schema.columns[%d]", i)
		if seen[col.Name] {
			errs = append(errs, ValidationError{
				Field: field, Code: ErrDuplicateColumn,
				Message: fmt.Sprintf("duplicate column name %q", col.Name),
			})
		}
		seen[col.Name] = true
		errs = append(errs, validateDefault(field, col.Default)...)
	}

	// Constraint references are checked against the effective schema so
	// constraints added after add-column operations resolve.
	eff := d.EffectiveSchema()
	effCols := make(map[string]bool, len(eff.Columns))
	for _, col := range eff.Columns {
		effCols[col.Name] = true
	}

	checkCols := func(field string, cols []string) {
		if len(cols) == 0 {
			errs = append(errs, ValidationError{
				Field: field, Code: ErrEmptyConstraint,
				Message: "constraint must name at least one column",
			})
			return
		}
		for _, name := range cols {
			if !effCols[name] {
				errs = append(errs, ValidationError{
					Field: field, Code: ErrUnknownColumnRef,
					Message: fmt.Sprintf("column %q does not exist", name),
				})
			}
		}
	}

	if pk := eff.PrimaryKey; pk != nil {
		checkCols("schema.primary_key", pk.Columns)
	}
	for i, u := range eff.Uniques {
		checkCols(fmt.Sprintf("schema.uniques[%d]", i), u.Columns)
	}
	for i, fk := range eff.ForeignKeys {
		field := fmt.Sprintf("schema.foreign_keys[%d]", i)
		checkCols(field, fk.Columns)
		if len(fk.Columns) != len(fk.RefColumns) {
			errs = append(errs, ValidationError{
				Field: field, Code: ErrBadForeignKeyArity,
				Message: fmt.Sprintf("%d local columns reference %d columns of %q",
					len(fk.Columns), len(fk.RefColumns), fk.RefTable),
			})
		}
	}
	for i, ix := range eff.Indexes {
		checkCols(fmt.Sprintf("schema.indexes[%d]", i), ix.Columns)
	}

	errs = append(errs, validateOps(d)...)
	return errs
}

func validateDefault(field string, def *DefaultDef) []ValidationError {
	if def == nil {
		return nil
	}
	hasToken := def.Token != ""
	hasLit := def.Literal != nil
	if hasToken == hasLit {
		return []ValidationError{{
			Field: field + ".default", Code: ErrBadDefaultShape,
			Message: "default must be exactly one of token or literal",
		}}
	}
	return nil
}

func validateOps(d *Document) []ValidationError {
	var errs []ValidationError
	for i, op := range d.Ops {
		field := fmt.Sprintf("ops[%d]", i)
		ok := false
		switch op.Kind {
		case OpCreateTable:
			ok = op.Column == nil && op.Constraint == nil && op.Drop == nil && op.Index == nil
		case OpAddColumn:
			ok = op.Column != nil
			if ok {
				errs = append(errs, validateDefault(field+".column", op.Column.Default)...)
			}
		case OpAddConstraint:
			ok = op.Constraint != nil
		case OpDropConstraint:
			ok = op.Drop != nil
		case OpCreateIndex:
			ok = op.Index != nil
		}
		if !ok {
			errs = append(errs, ValidationError{
				Field: field, Code: ErrBadOperationShape,
				Message: fmt.Sprintf("payload does not match operation kind %q", op.Kind),
			})
		}
	}
	return errs
}

// Normalize applies representation-neutral normalization rules in
// place. Currently one rule: primary-key columns are implicitly
// not-nullable, so their Nullable flag is forced false regardless of
// how the source representation spelled it. Parsers call this before
// handing a Document to the core so that round-trip comparison never
// sees a spelling-level difference here.
func Normalize(d *Document) {
	pinNotNull := func(cols []string) {
		for _, name := range cols {
			if col := d.Schema.Column(name); col != nil {
				col.Nullable = false
			}
			for i := range d.Ops {
				if d.Ops[i].Kind == OpAddColumn && d.Ops[i].Column != nil && d.Ops[i].Column.Name == name {
					d.Ops[i].Column.Nullable = false
				}
			}
		}
	}
	if d.Schema.PrimaryKey != nil {
		pinNotNull(d.Schema.PrimaryKey.Columns)
	}
	for _, op := range d.Ops {
		if op.Kind == OpAddConstraint && op.Constraint != nil && op.Constraint.Kind == ConstraintPrimaryKey {
			pinNotNull(op.Constraint.Columns)
		}
	}
}
