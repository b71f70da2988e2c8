package table

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrUnknownColumn is returned when a column name is not part of a table.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrShape is returned when row widths do not match the column list.
	ErrShape = errors.New("row width does not match column count")
)

// Row is a single record addressed by column name.
type Row map[string]any

// Table is an immutable, row-major table of loosely typed cells. Cells hold
// nil, float64, string, bool or []any values.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]any
	// groups names the grouping columns set by GroupBy.
	groups []string
	// origin maps each row to its position before the first SortStable,
	// nil when the table is unordered.
	origin []int
}

// New builds a table from a column list and row-major cells. The slices are
// copied, so the caller may reuse them.
func New(columns []string, rows [][]any) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		index[c] = i
	}
	cp := make([][]any, len(rows))
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("row %d: %w", i, ErrShape)
		}
		cp[i] = slices.Clone(r)
	}
	return &Table{columns: slices.Clone(columns), index: index, rows: cp}, nil
}

// MustNew is New for tables known to be well formed. It panics on error.
func MustNew(columns []string, rows [][]any) *Table {
	t, err := New(columns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// FromRecords builds a table from records. Missing cells become nil.
func FromRecords(columns []string, records []Row) *Table {
	rows := make([][]any, len(records))
	for i, rec := range records {
		r := make([]any, len(columns))
		for j, c := range columns {
			r[j] = rec[c]
		}
		rows[i] = r
	}
	return MustNew(columns, rows)
}

// Empty returns a table with the given columns and no rows.
func Empty(columns ...string) *Table {
	return MustNew(columns, nil)
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.rows) }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.columns) }

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string { return slices.Clone(t.columns) }

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, error) {
	i, ok := t.index[name]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return i, nil
}

// Get returns a single cell.
func (t *Table) Get(column string, row int) (any, error) {
	i, err := t.ColumnIndex(column)
	if err != nil {
		return nil, err
	}
	if row < 0 || row >= len(t.rows) {
		return nil, fmt.Errorf("row index %d out of range [0,%d)", row, len(t.rows))
	}
	return t.rows[row][i], nil
}

// Column returns a copy of all values of a column.
func (t *Table) Column(name string) ([]any, error) {
	i, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i]
	}
	return out, nil
}

// Values returns a copy of the cells of row i in column order.
func (t *Table) Values(i int) []any { return slices.Clone(t.rows[i]) }

// Row returns row i as a record.
func (t *Table) Row(i int) Row {
	rec := make(Row, len(t.columns))
	for j, c := range t.columns {
		rec[c] = t.rows[i][j]
	}
	return rec
}

// Records returns every row as a record.
func (t *Table) Records() []Row {
	out := make([]Row, len(t.rows))
	for i := range t.rows {
		out[i] = t.Row(i)
	}
	return out
}

// RequireColumns returns ErrUnknownColumn for the first missing name.
func (t *Table) RequireColumns(names ...string) error {
	for _, n := range names {
		if !t.HasColumn(n) {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, n)
		}
	}
	return nil
}

type tableJSON struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// MarshalJSON encodes the table as {"columns": [...], "rows": [[...]]}.
func (t *Table) MarshalJSON() ([]byte, error) {
	rows := t.rows
	if rows == nil {
		rows = [][]any{}
	}
	return json.Marshal(tableJSON{Columns: t.columns, Rows: rows})
}

// UnmarshalJSON accepts the MarshalJSON form.
func (t *Table) UnmarshalJSON(data []byte) error {
	var raw tableJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	nt, err := New(raw.Columns, raw.Rows)
	if err != nil {
		return err
	}
	*t = *nt
	return nil
}
