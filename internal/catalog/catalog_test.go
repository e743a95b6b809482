package catalog

import (
	"path/filepath"
	"testing"

	"github.com/pagedb/sqlt/internal/pager"
)

func openTestPager(t *testing.T) *pager.Pager {
	t.Helper()
	dir := t.TempDir()
	p, err := pager.Open(filepath.Join(dir, "test.db"), pager.Config{})
	if err != nil {
		t.Fatalf("pager.Open: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestCatalog_OpenEmpty(t *testing.T) {
	p := openTestPager(t)
	c, err := Open(p)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(c.Tables()) != 0 {
		t.Fatalf("expected no tables, got %d", len(c.Tables()))
	}
}

func TestCatalog_CreateTableAndLookup(t *testing.T) {
	p := openTestPager(t)
	c, err := Open(p)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	cols := []Column{
		{Name: "id", Type: TypeInteger, Constraints: ConstraintPrimaryKey},
		{Name: "name", Type: TypeText, Constraints: ConstraintNotNull},
	}
	table, err := c.CreateTable("Users", cols)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if table.RootPage == 0 {
		t.Fatalf("expected non-zero root page")
	}
	if table.PrimaryKeyIndex() != 0 {
		t.Fatalf("PrimaryKeyIndex = %d, want 0", table.PrimaryKeyIndex())
	}

	got, ok := c.Lookup("users")
	if !ok {
		t.Fatalf("Lookup(\"users\") should find case-insensitive match")
	}
	if got.Name != "Users" {
		t.Fatalf("Lookup preserved name = %q, want %q", got.Name, "Users")
	}
	if got.ColumnIndex("NAME") != 1 {
		t.Fatalf("ColumnIndex(NAME) = %d, want 1", got.ColumnIndex("NAME"))
	}
}

func TestCatalog_DuplicateTableNameRejected(t *testing.T) {
	p := openTestPager(t)
	c, err := Open(p)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := c.CreateTable("Items", []Column{{Name: "id", Type: TypeInteger}}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if _, err := c.CreateTable("items", []Column{{Name: "id", Type: TypeInteger}}); err == nil {
		t.Fatalf("expected error creating duplicate (case-insensitive) table name")
	}
}

func TestCatalog_MultiplePrimaryKeysRejected(t *testing.T) {
	p := openTestPager(t)
	c, err := Open(p)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	cols := []Column{
		{Name: "a", Type: TypeInteger, Constraints: ConstraintPrimaryKey},
		{Name: "b", Type: TypeInteger, Constraints: ConstraintPrimaryKey},
	}
	if _, err := c.CreateTable("bad", cols); err == nil {
		t.Fatalf("expected error for multiple PRIMARY KEY columns")
	}
}

func TestCatalog_UpdateRootPersists(t *testing.T) {
	p := openTestPager(t)
	c, err := Open(p)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	table, err := c.CreateTable("t", []Column{{Name: "id", Type: TypeInteger}})
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := c.UpdateRoot("t", table.RootPage+5); err != nil {
		t.Fatalf("UpdateRoot: %v", err)
	}

	c2, err := Open(p)
	if err != nil {
		t.Fatalf("reopen Open: %v", err)
	}
	got, ok := c2.Lookup("t")
	if !ok {
		t.Fatalf("table vanished after reopen")
	}
	if got.RootPage != table.RootPage+5 {
		t.Fatalf("RootPage = %d, want %d", got.RootPage, table.RootPage+5)
	}
}

func TestCatalog_ReopenAcrossClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	p1, err := pager.Open(path, pager.Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	c1, err := Open(p1)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	cols := []Column{
		{Name: "id", Type: TypeInteger, Constraints: ConstraintPrimaryKey},
		{Name: "email", Type: TypeText, Constraints: ConstraintUnique},
	}
	if _, err := c1.CreateTable("accounts", cols); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := p1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	p2, err := pager.Open(path, pager.Config{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer p2.Close()
	c2, err := Open(p2)
	if err != nil {
		t.Fatalf("catalog.Open after reopen: %v", err)
	}
	table, ok := c2.Lookup("Accounts")
	if !ok {
		t.Fatalf("table not found after reopen")
	}
	if len(table.Columns) != 2 || table.Columns[1].Name != "email" {
		t.Fatalf("columns mismatch after reopen: %+v", table.Columns)
	}
	if !table.Columns[1].Constraints.Has(ConstraintUnique) {
		t.Fatalf("expected UNIQUE constraint preserved after reopen")
	}
}
