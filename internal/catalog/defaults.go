package catalog

import (
	"fmt"

	"github.com/fourfold/fourfold/internal/ir"
)

// CheckDefaults verifies every default in the document's effective
// schema against the compatibility tables. Structural shape (exactly
// one of token or literal) is ir.Validate's job; this covers the
// catalog-dependent half. Returns all problems found.
func (c *Catalog) CheckDefaults(d *ir.Document) []*IncompatibleDefaultError {
	var errs []*IncompatibleDefaultError
	eff := d.EffectiveSchema()
	for i := range eff.Columns {
		col := &eff.Columns[i]
		if err := c.checkDefault(col.Name, col.Type, col.Default); err != nil {
			errs = append(errs, err)
		}
	}
	// Defaults attached by add-constraint ops are checked where they
	// land; constraint ops naming a missing column are ir.Validate's
	// problem, not a compatibility one.
	return errs
}

func (c *Catalog) checkDefault(column string, t ir.Type, def *ir.DefaultDef) *IncompatibleDefaultError {
	if def == nil {
		return nil
	}
	if def.IsToken() {
		if !c.TokenCompatible(def.Token, t) {
			return &IncompatibleDefaultError{
				Column: column, Type: t,
				Value: fmt.Sprintf("token %s", def.Token),
			}
		}
		return nil
	}
	if def.Literal != nil && !c.LiteralCompatible(def.Literal.Kind, t) {
		return &IncompatibleDefaultError{
			Column: column, Type: t,
			Value: fmt.Sprintf("%s literal", def.Literal.Kind),
		}
	}
	return nil
}
