package engine

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/pagedb/sqlt/internal/catalog"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "test.db"), Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func usersSchema() []catalog.Column {
	return []catalog.Column{
		{Name: "id", Type: catalog.TypeInteger, Constraints: catalog.ConstraintPrimaryKey},
		{Name: "name", Type: catalog.TypeText},
	}
}

func TestExecute_CreateTable(t *testing.T) {
	db := openTestDB(t)
	res, err := db.Execute(CreateTable{Table: "users", Columns: usersSchema()})
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if res.Message != "Table 'users' created" {
		t.Fatalf("message = %q", res.Message)
	}
	if db.p.Header().TotalPages != 3 {
		t.Fatalf("totalPages = %d, want 3 (header, catalog, root leaf)", db.p.Header().TotalPages)
	}
}

func TestExecute_InsertAndSelect(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Execute(CreateTable{Table: "users", Columns: usersSchema()}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if _, err := db.Execute(Insert{Table: "users", Columns: []string{"id", "name"}, Values: []Value{Int(1), Str("Alice")}}); err != nil {
		t.Fatalf("Insert(1): %v", err)
	}
	if _, err := db.Execute(Insert{Table: "users", Columns: []string{"id", "name"}, Values: []Value{Int(2), Str("Bob")}}); err != nil {
		t.Fatalf("Insert(2): %v", err)
	}

	res, err := db.Execute(Select{Table: "users", Columns: []string{"*"}})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(res.Columns) != 2 || res.Columns[0] != "id" || res.Columns[1] != "name" {
		t.Fatalf("columns = %v", res.Columns)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(res.Rows))
	}
	if res.Rows[0][0].Int != 1 || res.Rows[0][1].Text != "Alice" {
		t.Fatalf("row 0 = %+v", res.Rows[0])
	}
	if res.Rows[1][0].Int != 2 || res.Rows[1][1].Text != "Bob" {
		t.Fatalf("row 1 = %+v", res.Rows[1])
	}
}

func TestExecute_DuplicatePrimaryKeyRejected(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Execute(CreateTable{Table: "users", Columns: usersSchema()}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if _, err := db.Execute(Insert{Table: "users", Columns: []string{"id", "name"}, Values: []Value{Int(1), Str("Alice")}}); err != nil {
		t.Fatalf("Insert(1): %v", err)
	}
	if _, err := db.Execute(Insert{Table: "users", Columns: []string{"id", "name"}, Values: []Value{Int(2), Str("Bob")}}); err != nil {
		t.Fatalf("Insert(2): %v", err)
	}

	_, err := db.Execute(Insert{Table: "users", Columns: []string{"id", "name"}, Values: []Value{Int(1), Str("Clara")}})
	if err == nil {
		t.Fatalf("expected duplicate primary key error")
	}
	var eerr *Error
	if !errors.As(err, &eerr) || eerr.Kind != DuplicatePrimaryKey {
		t.Fatalf("expected DuplicatePrimaryKey, got %v", err)
	}

	res, err := db.Execute(Select{Table: "users", Columns: []string{"*"}})
	if err != nil {
		t.Fatalf("Select after rejected insert: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("rows = %d, want 2 (unchanged)", len(res.Rows))
	}
}

func TestExecute_LeafSplitProducesExpectedShape(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Execute(CreateTable{Table: "t", Columns: usersSchema()}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	for k := int32(1); k <= 5; k++ {
		if _, err := db.Execute(Insert{Table: "t", Columns: []string{"id", "name"}, Values: []Value{Int(k), Str("x")}}); err != nil {
			t.Fatalf("Insert(%d): %v", k, err)
		}
	}

	snap, err := db.Inspect()
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if len(snap.Tables) != 1 {
		t.Fatalf("tables = %d, want 1", len(snap.Tables))
	}
	ts := snap.Tables[0]
	if ts.Tree.Height != 2 {
		t.Fatalf("height = %d, want 2", ts.Tree.Height)
	}
	if ts.Tree.LeafCount != 2 {
		t.Fatalf("leafCount = %d, want 2", ts.Tree.LeafCount)
	}

	res, err := db.Execute(Select{Table: "t", Columns: []string{"*"}})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	for i, row := range res.Rows {
		if row[0].Int != int32(i+1) {
			t.Fatalf("row %d id = %d, want %d", i, row[0].Int, i+1)
		}
	}
}

func TestExecute_SynthesizedKeysSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	db, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	cols := []catalog.Column{{Name: "n", Type: catalog.TypeInteger}}
	if _, err := db.Execute(CreateTable{Table: "t", Columns: cols}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	for k := int32(10); k >= 1; k-- {
		if _, err := db.Execute(Insert{Table: "t", Columns: []string{"n"}, Values: []Value{Int(k)}}); err != nil {
			t.Fatalf("Insert(%d): %v", k, err)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db2, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()

	res, err := db2.Execute(Select{Table: "t", Columns: []string{"*"}})
	if err != nil {
		t.Fatalf("Select after reopen: %v", err)
	}
	if len(res.Rows) != 10 {
		t.Fatalf("rows = %d, want 10", len(res.Rows))
	}
	expected := []int32{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
	for i, row := range res.Rows {
		if row[0].Int != expected[i] {
			t.Fatalf("row %d n = %d, want %d (synthesized keys ascend in insertion order)", i, row[0].Int, expected[i])
		}
	}
}

func TestExecute_DuplicateTableNameCaseInsensitive(t *testing.T) {
	db := openTestDB(t)
	cols := []catalog.Column{{Name: "id", Type: catalog.TypeInteger, Constraints: catalog.ConstraintPrimaryKey}}
	if _, err := db.Execute(CreateTable{Table: "users", Columns: cols}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	_, err := db.Execute(CreateTable{Table: "USERS", Columns: []catalog.Column{{Name: "id", Type: catalog.TypeInteger}}})
	if err == nil {
		t.Fatalf("expected table-already-exists error")
	}
	var eerr *Error
	if !errors.As(err, &eerr) || eerr.Kind != SchemaConflict {
		t.Fatalf("expected SchemaConflict, got %v", err)
	}
}

func TestExecute_WhereClauseFiltersAndNullNeverMatches(t *testing.T) {
	db := openTestDB(t)
	cols := []catalog.Column{
		{Name: "id", Type: catalog.TypeInteger, Constraints: catalog.ConstraintPrimaryKey},
		{Name: "tag", Type: catalog.TypeText},
	}
	if _, err := db.Execute(CreateTable{Table: "items", Columns: cols}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if _, err := db.Execute(Insert{Table: "items", Columns: []string{"id", "tag"}, Values: []Value{Int(1), Str("a")}}); err != nil {
		t.Fatalf("Insert(1): %v", err)
	}
	if _, err := db.Execute(Insert{Table: "items", Columns: []string{"id"}, Values: []Value{Int(2)}}); err != nil {
		t.Fatalf("Insert(2): %v", err)
	}

	res, err := db.Execute(Select{
		Table:   "items",
		Columns: []string{"*"},
		Where:   []Predicate{{Column: "tag", Op: Eq, Literal: Str("a")}},
	})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(res.Rows) != 1 || res.Rows[0][0].Int != 1 {
		t.Fatalf("expected only row 1 to match, got %+v", res.Rows)
	}

	res2, err := db.Execute(Select{
		Table:   "items",
		Columns: []string{"*"},
		Where:   []Predicate{{Column: "id", Op: Ge, Literal: Int(1)}},
	})
	if err != nil {
		t.Fatalf("Select numeric: %v", err)
	}
	if len(res2.Rows) != 2 {
		t.Fatalf("expected both rows to match id >= 1, got %d", len(res2.Rows))
	}
}

func TestExecute_UnknownTableAndColumnRejected(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Execute(Insert{Table: "missing", Columns: []string{"id"}, Values: []Value{Int(1)}}); err == nil {
		t.Fatalf("expected Resolution error for unknown table")
	}

	if _, err := db.Execute(CreateTable{Table: "t", Columns: usersSchema()}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if _, err := db.Execute(Insert{Table: "t", Columns: []string{"nope"}, Values: []Value{Int(1)}}); err == nil {
		t.Fatalf("expected Resolution error for unknown column")
	}
}

func TestExecute_ArityMismatchRejected(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Execute(CreateTable{Table: "t", Columns: usersSchema()}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	_, err := db.Execute(Insert{Table: "t", Columns: []string{"id", "name"}, Values: []Value{Int(1)}})
	if err == nil {
		t.Fatalf("expected Arity error")
	}
	var eerr *Error
	if !errors.As(err, &eerr) || eerr.Kind != Arity {
		t.Fatalf("expected Arity, got %v", err)
	}
}

func TestExecute_NotNullViolationRejected(t *testing.T) {
	db := openTestDB(t)
	cols := []catalog.Column{
		{Name: "id", Type: catalog.TypeInteger, Constraints: catalog.ConstraintPrimaryKey},
		{Name: "name", Type: catalog.TypeText, Constraints: catalog.ConstraintNotNull},
	}
	if _, err := db.Execute(CreateTable{Table: "t", Columns: cols}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	_, err := db.Execute(Insert{Table: "t", Columns: []string{"id"}, Values: []Value{Int(1)}})
	if err == nil {
		t.Fatalf("expected Constraint error for missing NOT NULL column")
	}
	var eerr *Error
	if !errors.As(err, &eerr) || eerr.Kind != Constraint {
		t.Fatalf("expected Constraint, got %v", err)
	}
}

func TestInspect_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Execute(CreateTable{Table: "t", Columns: usersSchema()}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	snap, err := db.Inspect()
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if len(snap.Tables) != 1 {
		t.Fatalf("tables = %d, want 1", len(snap.Tables))
	}
	if snap.Tables[0].Tree.Height != 1 || snap.Tables[0].Tree.LeafCount != 1 || snap.Tables[0].Tree.TotalCells != 0 {
		t.Fatalf("fresh table stats = %+v, want height 1, 1 leaf, 0 cells", snap.Tables[0].Tree)
	}
}
