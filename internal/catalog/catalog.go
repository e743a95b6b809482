// Package catalog implements the single catalog page (page 1) that lists
// every table in the database, its column schema, and its B+Tree root page.
// The catalog is rewritten in full on every change — the same "whole page"
// discipline the file header uses — which keeps its format simple at the
// scale this core targets.
package catalog

import (
	"fmt"

	"golang.org/x/text/cases"

	"github.com/pagedb/sqlt/internal/pager"
)

var foldCase = cases.Fold()

// fold normalizes an identifier for case-insensitive comparison. Original
// casing is always preserved separately for diagnostics (§4.3).
func fold(name string) string {
	return foldCase.String(name)
}

// ColType tags a column's declared type. The tag values match the wire
// tags used for stored values (btree.KindInteger / btree.KindText) so a
// column's type and a cell's value tag can be compared directly.
type ColType uint8

const (
	TypeInteger ColType = 0x01
	TypeText    ColType = 0x02
)

// Constraint is a bitfield of per-column constraints.
type Constraint uint8

const (
	ConstraintPrimaryKey Constraint = 1 << 0
	ConstraintNotNull    Constraint = 1 << 1
	ConstraintUnique     Constraint = 1 << 2
)

func (c Constraint) Has(flag Constraint) bool { return c&flag != 0 }

// Column describes one column of a table's schema.
type Column struct {
	Name        string
	Type        ColType
	Constraints Constraint
}

// Table is one catalog entry: a name, its column schema, and its B+Tree
// root page.
type Table struct {
	Name     string // original casing, preserved for diagnostics
	Columns  []Column
	RootPage pager.PageID
}

// PrimaryKeyIndex returns the index of the PRIMARY KEY column, or -1 if the
// table has none.
func (t *Table) PrimaryKeyIndex() int {
	for i, c := range t.Columns {
		if c.Constraints.Has(ConstraintPrimaryKey) {
			return i
		}
	}
	return -1
}

// ColumnIndex returns the index of the column matching name
// case-insensitively, or -1 if none matches.
func (t *Table) ColumnIndex(name string) int {
	folded := fold(name)
	for i, c := range t.Columns {
		if fold(c.Name) == folded {
			return i
		}
	}
	return -1
}

// Catalog manages the system catalog page.
type Catalog struct {
	p    *pager.Pager
	page pager.PageID

	// tables is keyed by the folded (case-insensitive) name; order records
	// insertion order so catalog rewrites are deterministic.
	tables map[string]*Table
	order  []string
}

// Open loads the catalog from the page the file header points to.
func Open(p *pager.Pager) (*Catalog, error) {
	page := p.Header().CatalogPage
	buf, err := p.ReadPage(page)
	if err != nil {
		return nil, fmt.Errorf("catalog: open: %w", err)
	}
	c := &Catalog{p: p, page: page, tables: make(map[string]*Table)}
	if err := c.decode(buf); err != nil {
		return nil, fmt.Errorf("catalog: open: %w", err)
	}
	return c, nil
}

// Lookup finds a table by case-insensitive name.
func (c *Catalog) Lookup(name string) (*Table, bool) {
	t, ok := c.tables[fold(name)]
	return t, ok
}

// Tables returns every table in the catalog, in creation order.
func (c *Catalog) Tables() []*Table {
	out := make([]*Table, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.tables[k])
	}
	return out
}

// CreateTable registers a new table with a freshly allocated B+Tree. It
// fails with an *Error of Kind SchemaConflict if the normalized name
// collides or if more than one column carries the PRIMARY KEY bit.
func (c *Catalog) CreateTable(name string, columns []Column) (*Table, error) {
	folded := fold(name)
	if _, exists := c.tables[folded]; exists {
		return nil, &Error{Kind: SchemaConflict, Msg: fmt.Sprintf("table %q already exists", name)}
	}
	pkCount := 0
	for _, col := range columns {
		if col.Constraints.Has(ConstraintPrimaryKey) {
			pkCount++
		}
	}
	if pkCount > 1 {
		return nil, &Error{Kind: SchemaConflict, Msg: "more than one PRIMARY KEY column"}
	}

	tree, err := newTree(c.p)
	if err != nil {
		return nil, fmt.Errorf("catalog: create table %q: %w", name, err)
	}

	t := &Table{Name: name, Columns: append([]Column(nil), columns...), RootPage: tree}
	c.tables[folded] = t
	c.order = append(c.order, folded)

	if err := c.flush(); err != nil {
		return nil, fmt.Errorf("catalog: create table %q: %w", name, err)
	}
	return t, nil
}

// UpdateRoot rewrites a table's tree root (called by the executor after a
// root promotion) and persists the catalog.
func (c *Catalog) UpdateRoot(name string, root pager.PageID) error {
	t, ok := c.Lookup(name)
	if !ok {
		return fmt.Errorf("catalog: update root: table %q not found", name)
	}
	if t.RootPage == root {
		return nil
	}
	t.RootPage = root
	return c.flush()
}

func (c *Catalog) flush() error {
	buf, err := c.encode(c.p.PageSize())
	if err != nil {
		return err
	}
	return c.p.WritePage(c.page, buf)
}
