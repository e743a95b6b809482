package engine

import "github.com/pagedb/sqlt/internal/catalog"

// Operator is a WHERE-clause comparison operator.
type Operator int

const (
	Eq Operator = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// Predicate is one (column, operator, literal) comparison. A Select's WHERE
// clause is the conjunction (AND) of its Predicates.
type Predicate struct {
	Column  string
	Op      Operator
	Literal Literal
}

// Literal is the value shape a parsed statement hands the executor before
// column-type conversion — an integer, a string, or (for completeness) an
// explicit NULL. It reuses the tree's tagged-value shape since both are the
// same three-way union.
type Literal = Value

// CreateTable statement: declare a table with its column schema.
type CreateTable struct {
	Table   string
	Columns []catalog.Column
}

// Insert statement: insert one row, given as parallel column-name/value
// slices (only the columns the statement mentions; the rest default to
// NULL).
type Insert struct {
	Table   string
	Columns []string
	Values  []Literal
}

// Select statement: project Columns ("*" alone means all declared columns)
// from Table, filtered by the conjunction of Where.
type Select struct {
	Table   string
	Columns []string
	Where   []Predicate
}

// Record is one projected output row, positionally aligned with a Result's
// Columns.
type Record []Literal

// Result is what a successful Execute returns: a human-readable message and,
// for SELECT, the projected columns and rows.
type Result struct {
	Message string
	Columns []string
	Rows    []Record
}
