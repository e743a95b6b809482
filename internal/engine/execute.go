package engine

import (
	"strconv"
	"time"

	"github.com/pagedb/sqlt/internal/btree"
	"github.com/pagedb/sqlt/internal/catalog"
)

func (d *DB) executeCreateTable(s CreateTable) (Result, error) {
	start := time.Now()
	if _, err := d.cat.CreateTable(s.Table, s.Columns); err != nil {
		if _, exists := d.cat.Lookup(s.Table); exists {
			return Result{}, newErr(SchemaConflict, "table %q already exists", s.Table)
		}
		return Result{}, wrapErr(SchemaConflict, err, "create table %q", s.Table)
	}

	d.log.Debug("create table", "table", s.Table, "columns", len(s.Columns), "elapsed", time.Since(start))
	return Result{Message: "Table '" + s.Table + "' created"}, nil
}

func (d *DB) executeInsert(s Insert) (Result, error) {
	start := time.Now()
	table, ok := d.cat.Lookup(s.Table)
	if !ok {
		return Result{}, newErr(Resolution, "unknown table %q", s.Table)
	}
	if len(s.Columns) != len(s.Values) {
		return Result{}, newErr(Arity, "table %q: %d columns given, %d values given", s.Table, len(s.Columns), len(s.Values))
	}

	row := make(btree.Row, len(table.Columns))
	for i := range row {
		row[i] = btree.Null()
	}
	for i, colName := range s.Columns {
		idx := table.ColumnIndex(colName)
		if idx < 0 {
			return Result{}, newErr(Resolution, "table %q has no column %q", s.Table, colName)
		}
		converted, err := convertValue(table.Columns[idx].Type, s.Values[i])
		if err != nil {
			return Result{}, newErr(Conversion, "column %q: %v", colName, err)
		}
		row[idx] = converted
	}

	for i, col := range table.Columns {
		if col.Constraints.Has(catalog.ConstraintNotNull) && row[i].IsNull() {
			return Result{}, newErr(Constraint, "column %q is NOT NULL", col.Name)
		}
	}

	tree := btree.Open(d.p, table.RootPage)

	pkIdx := table.PrimaryKeyIndex()
	var key uint32
	if pkIdx >= 0 {
		if row[pkIdx].IsNull() || row[pkIdx].Kind != btree.KindInteger {
			return Result{}, newErr(Constraint, "column %q: PRIMARY KEY value must be an integer", table.Columns[pkIdx].Name)
		}
		if row[pkIdx].Int < 0 {
			return Result{}, newErr(Constraint, "column %q: PRIMARY KEY value must be non-negative", table.Columns[pkIdx].Name)
		}
		key = uint32(row[pkIdx].Int)
	} else {
		next, err := nextSyntheticKey(tree)
		if err != nil {
			return Result{}, wrapErr(IO, err, "table %q: compute synthetic key", s.Table)
		}
		key = next
	}

	if err := tree.Insert(key, row); err != nil {
		if err == btree.ErrDuplicateKey {
			if pkIdx >= 0 {
				return Result{}, newErr(DuplicatePrimaryKey, "table %q: duplicate primary key %d", s.Table, key)
			}
			return Result{}, wrapErr(IO, err, "table %q: synthetic key %d collided", s.Table, key)
		}
		return Result{}, wrapErr(IO, err, "table %q: insert", s.Table)
	}

	if tree.RootPage() != table.RootPage {
		if err := d.cat.UpdateRoot(table.Name, tree.RootPage()); err != nil {
			return Result{}, wrapErr(IO, err, "table %q: persist new root", s.Table)
		}
	}

	d.log.Debug("insert", "table", s.Table, "key", key, "elapsed", time.Since(start))
	return Result{Message: "1 row inserted"}, nil
}

// nextSyntheticKey scans the whole tree for max(key)+1, or 1 if empty. O(n)
// per insert — see the design document's discussion of this tradeoff.
func nextSyntheticKey(tree *btree.Tree) (uint32, error) {
	cells, err := tree.Scan()
	if err != nil {
		return 0, err
	}
	if len(cells) == 0 {
		return 1, nil
	}
	max := cells[0].Key
	for _, c := range cells[1:] {
		if c.Key > max {
			max = c.Key
		}
	}
	return max + 1, nil
}

func (d *DB) executeSelect(s Select) (Result, error) {
	start := time.Now()
	table, ok := d.cat.Lookup(s.Table)
	if !ok {
		return Result{}, newErr(Resolution, "unknown table %q", s.Table)
	}

	projected, err := resolveProjection(table, s.Columns)
	if err != nil {
		return Result{}, err
	}

	tree := btree.Open(d.p, table.RootPage)
	cells, err := tree.Scan()
	if err != nil {
		return Result{}, wrapErr(IO, err, "table %q: scan", s.Table)
	}

	var rows []Record
	for _, cell := range cells {
		match, err := evaluateWhere(table, cell.Row, s.Where)
		if err != nil {
			return Result{}, err
		}
		if !match {
			continue
		}
		rec := make(Record, len(projected))
		for i, idx := range projected {
			rec[i] = cell.Row[idx]
		}
		rows = append(rows, rec)
	}

	names := make([]string, len(projected))
	for i, idx := range projected {
		names[i] = table.Columns[idx].Name
	}

	d.log.Debug("select", "table", s.Table, "rows", len(rows), "elapsed", time.Since(start))
	return Result{
		Message: rowCountMessage(len(rows)),
		Columns: names,
		Rows:    rows,
	}, nil
}

func rowCountMessage(n int) string {
	if n == 1 {
		return "1 row"
	}
	return strconv.Itoa(n) + " rows"
}

// resolveProjection returns the column indexes to project, in the order the
// caller asked for. A single "*" entry means every declared column in
// declared order.
func resolveProjection(table *catalog.Table, columns []string) ([]int, error) {
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "*") {
		idx := make([]int, len(table.Columns))
		for i := range table.Columns {
			idx[i] = i
		}
		return idx, nil
	}
	idx := make([]int, len(columns))
	for i, name := range columns {
		pos := table.ColumnIndex(name)
		if pos < 0 {
			return nil, newErr(Resolution, "table %q has no column %q", table.Name, name)
		}
		idx[i] = pos
	}
	return idx, nil
}

func evaluateWhere(table *catalog.Table, row btree.Row, predicates []Predicate) (bool, error) {
	for _, pred := range predicates {
		idx := table.ColumnIndex(pred.Column)
		if idx < 0 {
			return false, newErr(Resolution, "table %q has no column %q", table.Name, pred.Column)
		}
		ok, err := evaluatePredicate(row[idx], pred)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// evaluatePredicate applies numeric-first coercion: if the stored value is
// an integer and the literal parses as an integer, compare numerically;
// otherwise compare as strings. A NULL left-hand side never matches.
func evaluatePredicate(left btree.Value, pred Predicate) (bool, error) {
	if left.IsNull() {
		return false, nil
	}

	if left.Kind == btree.KindInteger {
		if rhs, ok := literalAsInt(pred.Literal); ok {
			return compareInt(left.Int, pred.Op, rhs), nil
		}
	}

	lhsText := left.String()
	rhsText := literalAsText(pred.Literal)
	return compareText(lhsText, pred.Op, rhsText), nil
}

func literalAsInt(v btree.Value) (int32, bool) {
	switch v.Kind {
	case btree.KindInteger:
		return v.Int, true
	case btree.KindText:
		n, err := strconv.ParseInt(v.Text, 10, 32)
		if err != nil {
			return 0, false
		}
		return int32(n), true
	default:
		return 0, false
	}
}

func literalAsText(v btree.Value) string {
	return v.String()
}

func compareInt(a int32, op Operator, b int32) bool {
	switch op {
	case Eq:
		return a == b
	case Ne:
		return a != b
	case Lt:
		return a < b
	case Le:
		return a <= b
	case Gt:
		return a > b
	case Ge:
		return a >= b
	default:
		return false
	}
}

func compareText(a string, op Operator, b string) bool {
	switch op {
	case Eq:
		return a == b
	case Ne:
		return a != b
	case Lt:
		return a < b
	case Le:
		return a <= b
	case Gt:
		return a > b
	case Ge:
		return a >= b
	default:
		return false
	}
}

// convertValue applies the column conversion rules: an INTEGER column
// accepts an integer literal directly, or a TEXT literal that parses as a
// whole decimal integer; a TEXT column accepts any literal coerced to its
// string form.
func convertValue(colType catalog.ColType, lit Value) (Value, error) {
	if lit.IsNull() {
		return btree.Null(), nil
	}
	switch colType {
	case catalog.TypeInteger:
		switch lit.Kind {
		case btree.KindInteger:
			return lit, nil
		case btree.KindText:
			n, err := strconv.ParseInt(lit.Text, 10, 32)
			if err != nil {
				return Value{}, newConversionErr(lit.Text)
			}
			return btree.Int(int32(n)), nil
		default:
			return Value{}, newConversionErr(lit.String())
		}
	case catalog.TypeText:
		return btree.Str(lit.String()), nil
	default:
		return Value{}, newConversionErr(lit.String())
	}
}

func newConversionErr(repr string) error {
	return newErr(Conversion, "cannot convert %q", repr)
}
