package tabular

// Table is a parsed tabular input: an ordered list of column names plus rows
// of string cells. No type coercion happens here; the validator and
// normalizer decide what each cell means.
//
// Rows may be ragged (shorter than the header). A cell beyond the end of its
// row is treated as missing, which the validator counts the same as an empty
// value.
type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// New builds a Table and its column-name index. Column matching is exact and
// case-sensitive.
func New(columns []string, rows [][]string) *Table {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, ok := idx[c]; !ok {
			idx[c] = i
		}
	}
	return &Table{Columns: columns, Rows: rows, index: idx}
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Cell returns the raw string cell for the given row and column. The second
// return is false when the column does not exist or the row is too short to
// contain it.
func (t *Table) Cell(row int, column string) (string, bool) {
	col, ok := t.index[column]
	if !ok {
		return "", false
	}
	if row < 0 || row >= len(t.Rows) {
		return "", false
	}
	r := t.Rows[row]
	if col >= len(r) {
		return "", false
	}
	return r[col], true
}

// RowCount returns the number of data rows (the header is not a row).
func (t *Table) RowCount() int {
	return len(t.Rows)
}
