package app

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vk/wrangler/internal/table"
	"github.com/vk/wrangler/internal/tableio"
)

// exportSQLite writes every result as a table of the configured SQLite
// database, replacing tables of the same name.
func (a *App) exportSQLite(ctx context.Context, results map[string]*table.Table) error {
	db, err := sql.Open("sqlite3", a.config.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", a.config.SQLitePath, err)
	}
	defer db.Close()

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := tableio.WriteSQL(ctx, db, name, results[name]); err != nil {
			return fmt.Errorf("export %q: %w", name, err)
		}
		a.logger.Debugw("Output exported.", "output", name, "database", a.config.SQLitePath, "rows", results[name].NumRows())
	}
	a.logger.Infow("Outputs exported to SQLite.", "database", a.config.SQLitePath, "tables", len(names))
	return nil
}
