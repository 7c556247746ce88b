// Package migrations embeds the SQL migration files for the per-platform
// stores and provides a function to apply them.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed telegram/*.sql discord/*.sql twitter/*.sql
var all embed.FS

// Dir returns the embedded migration directory for one platform store.
func Dir(platform string) (fs.FS, error) {
	if _, err := fs.Stat(all, platform); err != nil {
		return nil, fmt.Errorf("migrations for %s: %w", platform, err)
	}
	sub, err := fs.Sub(all, platform)
	if err != nil {
		return nil, fmt.Errorf("migrations for %s: %w", platform, err)
	}
	return sub, nil
}

// Run applies all pending migrations for the given platform to db.
func Run(db *sql.DB, platform string) error {
	dir, err := Dir(platform)
	if err != nil {
		return err
	}

	goose.SetBaseFS(dir)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
