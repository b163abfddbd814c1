package catalog

import (
	"github.com/fourfold/fourfold/internal/ir"
	"github.com/fourfold/fourfold/internal/repr"
)

// preferred builds a spelling set whose first name is the tie-break
// winner; the remaining names are accepted on resolve only.
func preferred(names ...string) spellings {
	return spellings{Names: names, Preferred: 0}
}

// ambiguous builds a spelling set with no tie-break winner. Mapping to
// it requires a formatting-config choice; resolving from any of the
// names always works.
func ambiguous(names ...string) spellings {
	return spellings{Names: names, Preferred: -1}
}

// none marks an entry a representation cannot express.
func none() spellings { return spellings{} }

// New builds the default catalog. Called once at startup; the result
// is shared read-only for the life of the process.
func New() *Catalog {
	c := &Catalog{
		types: map[ir.Type]map[repr.Representation]spellings{
			ir.TypeInt32: {
				repr.DeclarativeQuery: preferred("INT", "SMALLINT"),
				repr.FunctionalCall:   preferred("INT"),
				repr.Graph:            preferred("int32"),
				repr.Set:              preferred("int32"),
			},
			ir.TypeInt64: {
				repr.DeclarativeQuery: preferred("INTEGER", "BIGINT"),
				repr.FunctionalCall:   preferred("INTEGER"),
				repr.Graph:            preferred("int64"),
				repr.Set:              preferred("int64"),
			},
			ir.TypeDecimal: {
				repr.DeclarativeQuery: preferred("DECIMAL", "NUMERIC"),
				repr.FunctionalCall:   preferred("DECIMAL"),
				repr.Graph:            preferred("decimal"),
				repr.Set:              preferred("decimal"),
			},
			ir.TypeText: {
				repr.DeclarativeQuery: preferred("TEXT", "VARCHAR"),
				repr.FunctionalCall:   preferred("TEXT"),
				repr.Graph:            preferred("text"),
				repr.Set:              preferred("text"),
			},
			ir.TypeBool: {
				repr.DeclarativeQuery: preferred("BOOLEAN", "BOOL"),
				repr.FunctionalCall:   preferred("BOOLEAN"),
				repr.Graph:            preferred("bool"),
				repr.Set:              preferred("bool"),
			},
			// BLOB and BYTEA are equally idiomatic; no tie-break rule
			// exists, so mapping bytes into the declarative form needs
			// an explicit formatting choice.
			ir.TypeBytes: {
				repr.DeclarativeQuery: ambiguous("BLOB", "BYTEA"),
				repr.FunctionalCall:   preferred("BYTES"),
				repr.Graph:            preferred("bytes"),
				repr.Set:              preferred("bytes"),
			},
			ir.TypeDate: {
				repr.DeclarativeQuery: preferred("DATE"),
				repr.FunctionalCall:   preferred("DATE"),
				repr.Graph:            preferred("date"),
				repr.Set:              preferred("date"),
			},
			ir.TypeTimestamp: {
				repr.DeclarativeQuery: preferred("TIMESTAMP", "DATETIME"),
				repr.FunctionalCall:   preferred("TIMESTAMP"),
				repr.Graph:            preferred("timestamp"),
				repr.Set:              preferred("timestamp"),
			},
			ir.TypeUUID: {
				repr.DeclarativeQuery: preferred("UUID"),
				repr.FunctionalCall:   preferred("UUID"),
				repr.Graph:            preferred("uuid"),
				repr.Set:              preferred("uuid"),
			},
		},
		tokens: map[ir.Token]map[repr.Representation]spellings{
			ir.TokenCurrentTimestamp: {
				repr.DeclarativeQuery: preferred("CURRENT_TIMESTAMP"),
				repr.FunctionalCall:   preferred("CURRENT_TIMESTAMP"),
				repr.Graph:            preferred("current-timestamp"),
				repr.Set:              preferred("current-timestamp"),
			},
			ir.TokenCurrentDate: {
				repr.DeclarativeQuery: preferred("CURRENT_DATE"),
				repr.FunctionalCall:   preferred("CURRENT_DATE"),
				repr.Graph:            preferred("current-date"),
				repr.Set:              preferred("current-date"),
			},
			// No portable declarative spelling exists for UUID
			// generation; translating such a default into the
			// declarative form fails rather than approximating.
			ir.TokenGenerateUUID: {
				repr.DeclarativeQuery: none(),
				repr.FunctionalCall:   preferred("GENERATE_UUID"),
				repr.Graph:            preferred("generate-uuid"),
				repr.Set:              preferred("generate-uuid"),
			},
		},
		constraints: map[ir.ConstraintKind]map[repr.Representation]spellings{
			ir.ConstraintPrimaryKey: {
				repr.DeclarativeQuery: preferred("PRIMARY KEY"),
				repr.FunctionalCall:   preferred("primary_key"),
				repr.Graph:            preferred("primary-key"),
				repr.Set:              preferred("key"),
			},
			ir.ConstraintNotNull: {
				repr.DeclarativeQuery: preferred("NOT NULL"),
				repr.FunctionalCall:   preferred("not_null"),
				repr.Graph:            preferred("not-null"),
				repr.Set:              preferred("not-null"),
			},
			ir.ConstraintUnique: {
				repr.DeclarativeQuery: preferred("UNIQUE"),
				repr.FunctionalCall:   preferred("unique"),
				repr.Graph:            preferred("unique"),
				repr.Set:              preferred("unique"),
			},
			ir.ConstraintForeignKey: {
				repr.DeclarativeQuery: preferred("FOREIGN KEY"),
				repr.FunctionalCall:   preferred("foreign_key"),
				repr.Graph:            preferred("foreign-key"),
				repr.Set:              preferred("subset"),
			},
			ir.ConstraintDefault: {
				repr.DeclarativeQuery: preferred("DEFAULT"),
				repr.FunctionalCall:   preferred("default"),
				repr.Graph:            preferred("default"),
				repr.Set:              preferred("default"),
			},
		},
	}
	c.buildReverseIndexes()
	return c
}

// buildReverseIndexes derives the spelling -> canonical lookups from
// the forward tables. Every listed spelling resolves, not only the
// preferred one, so alternate source spellings parse fine.
func (c *Catalog) buildReverseIndexes() {
	c.typeBySpelling = make(map[repr.Representation]map[string]ir.Type)
	c.tokenBySpelling = make(map[repr.Representation]map[string]ir.Token)
	c.constraintBySpelling = make(map[repr.Representation]map[string]ir.ConstraintKind)
	for _, r := range repr.All {
		c.typeBySpelling[r] = make(map[string]ir.Type)
		c.tokenBySpelling[r] = make(map[string]ir.Token)
		c.constraintBySpelling[r] = make(map[string]ir.ConstraintKind)
	}
	for t, byRepr := range c.types {
		for r, sp := range byRepr {
			for _, name := range sp.Names {
				c.typeBySpelling[r][fold(name)] = t
			}
		}
	}
	for tok, byRepr := range c.tokens {
		for r, sp := range byRepr {
			for _, name := range sp.Names {
				c.tokenBySpelling[r][fold(name)] = tok
			}
		}
	}
	for k, byRepr := range c.constraints {
		for r, sp := range byRepr {
			for _, name := range sp.Names {
				c.constraintBySpelling[r][fold(name)] = k
			}
		}
	}
}
