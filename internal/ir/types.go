package ir

// Type is a canonical logical column type. The catalog package owns the
// mapping between canonical types and per-representation spellings;
// nothing outside the catalog may hard-code a spelling.
type Type string

const (
	TypeInt32     Type = "int32"
	TypeInt64     Type = "int64"
	TypeDecimal   Type = "decimal"
	TypeText      Type = "text"
	TypeBool      Type = "bool"
	TypeBytes     Type = "bytes"
	TypeDate      Type = "date"
	TypeTimestamp Type = "timestamp"
	TypeUUID      Type = "uuid"
)

// Token is a canonical default-expression token ("current-timestamp"
// and friends). Tokens round-trip as tokens: a representation that
// cannot spell a token fails generation rather than substituting a
// representation-specific literal.
type Token string

const (
	TokenCurrentTimestamp Token = "current-timestamp"
	TokenCurrentDate      Token = "current-date"
	TokenGenerateUUID     Token = "generate-uuid"
)

// ConstraintKind tags the closed set of constraint variants.
type ConstraintKind string

const (
	ConstraintPrimaryKey ConstraintKind = "primary-key"
	ConstraintNotNull    ConstraintKind = "not-null"
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintForeignKey ConstraintKind = "foreign-key"
	ConstraintDefault    ConstraintKind = "default"
)

// LiteralKind tags a default literal.
type LiteralKind string

const (
	LitString LiteralKind = "string"
	LitInt    LiteralKind = "int"
	LitNumber LiteralKind = "number" // exact decimal text, never float64
	LitBool   LiteralKind = "bool"
)

// Literal is a typed default literal. Text holds the exact source
// spelling (for LitString, without its quotes) so numeric defaults
// round-trip byte-identical without float types in the IR.
type Literal struct {
	Kind LiteralKind `json:"kind"`
	Text string      `json:"text"`
}

// DefaultDef is a column default: exactly one of Token or Literal is set.
type DefaultDef struct {
	Token   Token    `json:"token,omitempty"`
	Literal *Literal `json:"literal,omitempty"`
}

// IsToken reports whether the default is a catalog token.
func (d *DefaultDef) IsToken() bool { return d != nil && d.Token != "" }

// ColumnDef is one column of a SchemaDefinition.
type ColumnDef struct {
	Name     string      `json:"name"`
	Type     Type        `json:"type"`
	Nullable bool        `json:"nullable"`
	Default  *DefaultDef `json:"default,omitempty"`
	Comment  string      `json:"comment,omitempty"`
}

// PrimaryKeyDef names the primary-key column set. Column order is
// significant (composite keys).
type PrimaryKeyDef struct {
	Name    string   `json:"name,omitempty"`
	Columns []string `json:"columns"`
}

// ForeignKeyDef is a reference from Columns to RefColumns of RefTable.
// The referenced schema is usually external; whether the referenced
// columns are unique there is checked only when that schema is supplied.
type ForeignKeyDef struct {
	Name       string   `json:"name,omitempty"`
	Columns    []string `json:"columns"`
	RefTable   string   `json:"ref_table"`
	RefColumns []string `json:"ref_columns"`
}

// UniqueDef is a uniqueness constraint over a column set.
type UniqueDef struct {
	Name    string   `json:"name,omitempty"`
	Columns []string `json:"columns"`
}

// IndexDef is a secondary index definition.
type IndexDef struct {
	Name    string   `json:"name,omitempty"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique,omitempty"`
}

// SchemaDefinition is one table-shaped entity: an ordered column
// sequence plus constraint sets.
type SchemaDefinition struct {
	Name        string          `json:"name"`
	Columns     []ColumnDef     `json:"columns"`
	PrimaryKey  *PrimaryKeyDef  `json:"primary_key,omitempty"`
	ForeignKeys []ForeignKeyDef `json:"foreign_keys,omitempty"`
	Uniques     []UniqueDef     `json:"uniques,omitempty"`
	Indexes     []IndexDef      `json:"indexes,omitempty"`
}

// Column returns the column with the given name, or nil.
func (s *SchemaDefinition) Column(name string) *ColumnDef {
	for i := range s.Columns {
		if s.Columns[i].Name == name {
			return &s.Columns[i]
		}
	}
	return nil
}

// OpKind tags the closed set of operation variants.
type OpKind string

const (
	OpCreateTable    OpKind = "create-table"
	OpAddColumn      OpKind = "add-column"
	OpAddConstraint  OpKind = "add-constraint"
	OpDropConstraint OpKind = "drop-constraint"
	OpCreateIndex    OpKind = "create-index"
)

// ConstraintDef is the tagged constraint variant carried by an
// add-constraint operation. Exactly the fields relevant to Kind are
// set; the closed shape makes unsupported constructs a construction
// error, never a silent drop.
type ConstraintDef struct {
	Kind       ConstraintKind `json:"kind"`
	Name       string         `json:"name,omitempty"`
	Columns    []string       `json:"columns"`
	RefTable   string         `json:"ref_table,omitempty"`
	RefColumns []string       `json:"ref_columns,omitempty"`
	Default    *DefaultDef    `json:"default,omitempty"`
}

// ConstraintRef addresses an existing constraint for drop-constraint.
// Named constraints are addressed by Name; unnamed ones by Kind plus
// their column set.
type ConstraintRef struct {
	Name    string         `json:"name,omitempty"`
	Kind    ConstraintKind `json:"kind,omitempty"`
	Columns []string       `json:"columns,omitempty"`
}

// Operation is one entry of the ordered operation sequence. Kind
// selects which payload pointer is set (tagged struct, exactly one).
// Operation order is semantic: translations never reorder operations.
type Operation struct {
	Kind       OpKind         `json:"kind"`
	Column     *ColumnDef     `json:"column,omitempty"`     // add-column
	Constraint *ConstraintDef `json:"constraint,omitempty"` // add-constraint
	Drop       *ConstraintRef `json:"drop,omitempty"`       // drop-constraint
	Index      *IndexDef      `json:"index,omitempty"`      // create-index
}

// LineageEdge records a derivation relationship between entities.
// Only the graph representation can express lineage; the other three
// fail generation when lineage is present.
type LineageEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Via  string `json:"via,omitempty"` // transformation label, free text
}

// Document is the canonical IR for one translation request: one
// SchemaDefinition, the ordered operation sequence applied to it, and
// optional lineage records. The document owns every entity reachable
// from it; adapters only borrow a read view during generation.
type Document struct {
	Comment string           `json:"comment,omitempty"`
	Schema  SchemaDefinition `json:"schema"`
	Ops     []Operation      `json:"ops"`
	Lineage []LineageEdge    `json:"lineage,omitempty"`
}

// EffectiveSchema applies the operation sequence to the base schema
// and returns the resulting definition. Used by validation so that
// constraints added by later operations can reference columns added
// by earlier ones.
func (d *Document) EffectiveSchema() SchemaDefinition {
	s := SchemaDefinition{
		Name:       d.Schema.Name,
		Columns:    append([]ColumnDef(nil), d.Schema.Columns...),
		PrimaryKey: d.Schema.PrimaryKey,
	}
	s.ForeignKeys = append(s.ForeignKeys, d.Schema.ForeignKeys...)
	s.Uniques = append(s.Uniques, d.Schema.Uniques...)
	s.Indexes = append(s.Indexes, d.Schema.Indexes...)

	for _, op := range d.Ops {
		switch op.Kind {
		case OpAddColumn:
			if op.Column != nil {
				s.Columns = append(s.Columns, *op.Column)
			}
		case OpAddConstraint:
			if op.Constraint != nil {
				applyConstraint(&s, op.Constraint)
			}
		case OpDropConstraint:
			if op.Drop != nil {
				dropConstraint(&s, op.Drop)
			}
		case OpCreateIndex:
			if op.Index != nil {
				s.Indexes = append(s.Indexes, *op.Index)
			}
		}
	}
	return s
}

func applyConstraint(s *SchemaDefinition, c *ConstraintDef) {
	switch c.Kind {
	case ConstraintPrimaryKey:
		s.PrimaryKey = &PrimaryKeyDef{Name: c.Name, Columns: c.Columns}
	case ConstraintUnique:
		s.Uniques = append(s.Uniques, UniqueDef{Name: c.Name, Columns: c.Columns})
	case ConstraintForeignKey:
		s.ForeignKeys = append(s.ForeignKeys, ForeignKeyDef{
			Name: c.Name, Columns: c.Columns,
			RefTable: c.RefTable, RefColumns: c.RefColumns,
		})
	case ConstraintNotNull:
		if len(c.Columns) == 1 {
			if col := s.Column(c.Columns[0]); col != nil {
				col.Nullable = false
			}
		}
	case ConstraintDefault:
		if len(c.Columns) == 1 {
			if col := s.Column(c.Columns[0]); col != nil {
				col.Default = c.Default
			}
		}
	}
}

func dropConstraint(s *SchemaDefinition, ref *ConstraintRef) {
	match := func(name string, kind ConstraintKind, cols []string) bool {
		if ref.Name != "" {
			return name == ref.Name
		}
		return kind == ref.Kind && sameColumns(cols, ref.Columns)
	}
	if s.PrimaryKey != nil && match(s.PrimaryKey.Name, ConstraintPrimaryKey, s.PrimaryKey.Columns) {
		s.PrimaryKey = nil
		return
	}
	for i, u := range s.Uniques {
		if match(u.Name, ConstraintUnique, u.Columns) {
			s.Uniques = append(s.Uniques[:i], s.Uniques[i+1:]...)
			return
		}
	}
	for i, fk := range s.ForeignKeys {
		if match(fk.Name, ConstraintForeignKey, fk.Columns) {
			s.ForeignKeys = append(s.ForeignKeys[:i], s.ForeignKeys[i+1:]...)
			return
		}
	}
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
