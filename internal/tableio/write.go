package tableio

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/vk/wrangler/internal/table"
)

// WriteCSV encodes t as comma separated text with a header row.
func WriteCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return err
	}
	rec := make([]string, t.NumCols())
	for i := 0; i < t.NumRows(); i++ {
		for j, v := range t.Values(i) {
			rec[j] = table.Format(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteText renders t as an aligned text grid, truncated to maxRows rows
// when maxRows is positive.
func WriteText(w io.Writer, t *table.Table, maxRows int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Columns(), "\t"))
	n := t.NumRows()
	if maxRows > 0 && n > maxRows {
		n = maxRows
	}
	for i := 0; i < n; i++ {
		vals := t.Values(i)
		cells := make([]string, len(vals))
		for j, v := range vals {
			cells[j] = table.Format(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if n < t.NumRows() {
		fmt.Fprintf(tw, "... %d more rows\n", t.NumRows()-n)
	}
	return tw.Flush()
}

// WriteSQL replaces the database table name with the contents of t. Column
// types are left to SQLite's dynamic typing.
func WriteSQL(ctx context.Context, db *sql.DB, name string, t *table.Table) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cols := make([]string, t.NumCols())
	marks := make([]string, t.NumCols())
	for i, c := range t.Columns() {
		cols[i] = quoteIdent(c)
		marks[i] = "?"
	}

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(name)); err != nil {
		return fmt.Errorf("failed to drop %s: %w", name, err)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(cols, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(name), strings.Join(cols, ", "), strings.Join(marks, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < t.NumRows(); i++ {
		vals := t.Values(i)
		for j, v := range vals {
			if arr, ok := v.([]any); ok {
				vals[j] = table.Format(arr)
			}
		}
		if _, err := stmt.ExecContext(ctx, vals...); err != nil {
			return fmt.Errorf("failed to insert row %d into %s: %w", i, name, err)
		}
	}
	return tx.Commit()
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
