// Package extract introspects an existing SQLite database and builds
// canonical documents from its schema, one document per table. The
// PRAGMA output is resolved through the catalog exactly like parsed
// text: a declared type or default with no catalog mapping fails the
// extraction rather than being guessed at.
package extract

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fourfold/fourfold/internal/catalog"
	"github.com/fourfold/fourfold/internal/ir"
	"github.com/fourfold/fourfold/internal/repr"
)

// DB is a read-only handle on a SQLite database.
type DB struct {
	db  *sql.DB
	cat *catalog.Catalog
}

// Open opens the database at path read-only. The file must exist;
// extraction never creates or mutates a database.
func Open(path string, cat *catalog.Catalog) (*DB, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &DB{db: db, cat: cat}, nil
}

// Close releases the database handle.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Tables lists the user tables in name order. SQLite internal tables
// are excluded.
func (d *DB) Tables(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master
		 WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Extract builds the canonical document for one table.
func (d *DB) Extract(ctx context.Context, table string) (*ir.Document, error) {
	exists, err := d.tableExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("table %q not found", table)
	}

	schema := ir.SchemaDefinition{Name: table}
	if err := d.readColumns(ctx, &schema); err != nil {
		return nil, err
	}
	if err := d.readIndexes(ctx, &schema); err != nil {
		return nil, err
	}
	if err := d.readForeignKeys(ctx, &schema); err != nil {
		return nil, err
	}

	doc := &ir.Document{
		Schema: schema,
		Ops:    []ir.Operation{{Kind: ir.OpCreateTable}},
	}
	ir.Normalize(doc)
	if errs := ir.Validate(doc); len(errs) > 0 {
		return nil, fmt.Errorf("extracted schema for %q is invalid: %v", table, errs[0])
	}
	return doc, nil
}

func (d *DB) tableExists(ctx context.Context, table string) (bool, error) {
	var n int
	err := d.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
		table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("look up table %q: %w", table, err)
	}
	return n > 0, nil
}

// readColumns fills columns and the primary key from PRAGMA table_info.
// The pk field gives the 1-based position of a column within the
// primary key, so composite keys come back in declaration order.
func (d *DB) readColumns(ctx context.Context, s *ir.SchemaDefinition) error {
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", s.Name))
	if err != nil {
		return fmt.Errorf("table_info %q: %w", s.Name, err)
	}
	defer rows.Close()

	type pkCol struct {
		pos  int
		name string
	}
	var pkCols []pkCol

	for rows.Next() {
		var (
			cid, notNull, pk int
			name, declType   string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &declType, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("scan table_info row: %w", err)
		}

		t, err := d.cat.ResolveType(declType, repr.DeclarativeQuery)
		if err != nil {
			return err
		}
		col := ir.ColumnDef{Name: name, Type: t, Nullable: notNull == 0}
		if dflt.Valid {
			def, err := d.parseDefault(dflt.String)
			if err != nil {
				return fmt.Errorf("column %q: %w", name, err)
			}
			col.Default = def
		}
		s.Columns = append(s.Columns, col)

		if pk > 0 {
			pkCols = append(pkCols, pkCol{pos: pk, name: name})
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(pkCols) > 0 {
		sort.Slice(pkCols, func(i, j int) bool { return pkCols[i].pos < pkCols[j].pos })
		pk := &ir.PrimaryKeyDef{}
		for _, c := range pkCols {
			pk.Columns = append(pk.Columns, c.name)
		}
		s.PrimaryKey = pk
	}
	return nil
}

// parseDefault interprets the raw dflt_value text from table_info:
// quoted strings, integer and decimal numerics, TRUE/FALSE, or a
// default token recognized by the catalog.
func (d *DB) parseDefault(raw string) (*ir.DefaultDef, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 && raw[0] == '\'' && raw[len(raw)-1] == '\'' {
		text := strings.ReplaceAll(raw[1:len(raw)-1], "''", "'")
		return &ir.DefaultDef{Literal: &ir.Literal{Kind: ir.LitString, Text: text}}, nil
	}
	switch strings.ToUpper(raw) {
	case "TRUE", "FALSE":
		return &ir.DefaultDef{Literal: &ir.Literal{Kind: ir.LitBool, Text: strings.ToLower(raw)}}, nil
	}
	if isNumeric(raw) {
		kind := ir.LitInt
		if strings.Contains(raw, ".") {
			kind = ir.LitNumber
		}
		return &ir.DefaultDef{Literal: &ir.Literal{Kind: kind, Text: raw}}, nil
	}
	tok, err := d.cat.ResolveToken(raw, repr.DeclarativeQuery)
	if err != nil {
		return nil, err
	}
	return &ir.DefaultDef{Token: tok}, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	dot := false
	for _, r := range s {
		if r == '.' {
			if dot {
				return false
			}
			dot = true
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != "" && s != "."
}

// readIndexes fills unique constraints and secondary indexes from
// PRAGMA index_list / index_info. The origin column tells them apart:
// 'u' is a UNIQUE constraint, 'c' an explicit CREATE INDEX, 'pk' the
// primary key (already covered by table_info).
func (d *DB) readIndexes(ctx context.Context, s *ir.SchemaDefinition) error {
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%q)", s.Name))
	if err != nil {
		return fmt.Errorf("index_list %q: %w", s.Name, err)
	}

	type indexMeta struct {
		name   string
		unique bool
		origin string
	}
	var metas []indexMeta
	for rows.Next() {
		var (
			seq, unique, partial int
			name, origin         string
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return fmt.Errorf("scan index_list row: %w", err)
		}
		metas = append(metas, indexMeta{name: name, unique: unique == 1, origin: origin})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	// index_list reports newest first; reverse for declaration order.
	for i := len(metas) - 1; i >= 0; i-- {
		m := metas[i]
		if m.origin == "pk" {
			continue
		}
		cols, err := d.indexColumns(ctx, m.name)
		if err != nil {
			return err
		}
		switch m.origin {
		case "u":
			u := ir.UniqueDef{Columns: cols}
			if !strings.HasPrefix(m.name, "sqlite_autoindex") {
				u.Name = m.name
			}
			s.Uniques = append(s.Uniques, u)
		default:
			s.Indexes = append(s.Indexes, ir.IndexDef{Name: m.name, Columns: cols, Unique: m.unique})
		}
	}
	return nil
}

func (d *DB) indexColumns(ctx context.Context, index string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%q)", index))
	if err != nil {
		return nil, fmt.Errorf("index_info %q: %w", index, err)
	}
	defer rows.Close()

	type entry struct {
		seqno int
		name  string
	}
	var entries []entry
	for rows.Next() {
		var (
			seqno, cid int
			name       sql.NullString
		)
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, fmt.Errorf("scan index_info row: %w", err)
		}
		if !name.Valid {
			return nil, fmt.Errorf("index %q covers an expression, not a column", index)
		}
		entries = append(entries, entry{seqno: seqno, name: name.String})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seqno < entries[j].seqno })
	cols := make([]string, len(entries))
	for i, e := range entries {
		cols[i] = e.name
	}
	return cols, nil
}

// readForeignKeys fills foreign keys from PRAGMA foreign_key_list.
// Rows of one constraint share an id; seq orders its column pairs.
func (d *DB) readForeignKeys(ctx context.Context, s *ir.SchemaDefinition) error {
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%q)", s.Name))
	if err != nil {
		return fmt.Errorf("foreign_key_list %q: %w", s.Name, err)
	}
	defer rows.Close()

	type fkRow struct {
		id, seq  int
		refTable string
		from     string
		to       sql.NullString
	}
	var fkRows []fkRow
	for rows.Next() {
		var (
			r                         fkRow
			onUpdate, onDelete, match string
		)
		if err := rows.Scan(&r.id, &r.seq, &r.refTable, &r.from, &r.to,
			&onUpdate, &onDelete, &match); err != nil {
			return fmt.Errorf("scan foreign_key_list row: %w", err)
		}
		fkRows = append(fkRows, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	sort.Slice(fkRows, func(i, j int) bool {
		if fkRows[i].id != fkRows[j].id {
			return fkRows[i].id < fkRows[j].id
		}
		return fkRows[i].seq < fkRows[j].seq
	})

	byID := map[int]*ir.ForeignKeyDef{}
	var order []int
	for _, r := range fkRows {
		fk, ok := byID[r.id]
		if !ok {
			fk = &ir.ForeignKeyDef{RefTable: r.refTable}
			byID[r.id] = fk
			order = append(order, r.id)
		}
		if !r.to.Valid {
			return fmt.Errorf("foreign key on %q references an implicit primary key; name the referenced columns", s.Name)
		}
		fk.Columns = append(fk.Columns, r.from)
		fk.RefColumns = append(fk.RefColumns, r.to.String)
	}
	// foreign_key_list reports newest first by id; reverse for
	// declaration order.
	for i := len(order) - 1; i >= 0; i-- {
		s.ForeignKeys = append(s.ForeignKeys, *byID[order[i]])
	}
	return nil
}
