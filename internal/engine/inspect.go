package engine

import (
	"fmt"

	"github.com/pagedb/sqlt/internal/btree"
	"github.com/pagedb/sqlt/internal/pager"
)

// TableSnapshot summarizes one table's schema and tree shape.
type TableSnapshot struct {
	Name     string
	Columns  int
	RootPage pager.PageID
	Tree     btree.Stats
}

// Snapshot is a read-only diagnostics view of the whole database: the file
// header, the catalog's table list, and each table's tree shape. Inspect
// never mutates the file.
type Snapshot struct {
	Header pager.FileHeader
	Tables []TableSnapshot
}

// Inspect walks the header, catalog, and every table's tree and returns a
// point-in-time diagnostics snapshot.
func (d *DB) Inspect() (Snapshot, error) {
	snap := Snapshot{Header: d.p.Header()}
	for _, t := range d.cat.Tables() {
		tree := btree.Open(d.p, t.RootPage)
		stats, err := tree.Stats()
		if err != nil {
			return Snapshot{}, fmt.Errorf("engine: inspect table %q: %w", t.Name, err)
		}
		snap.Tables = append(snap.Tables, TableSnapshot{
			Name:     t.Name,
			Columns:  len(t.Columns),
			RootPage: t.RootPage,
			Tree:     stats,
		})
	}
	return snap, nil
}
