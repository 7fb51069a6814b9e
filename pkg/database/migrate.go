package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"

	"github.com/ovaphlow/pitchfork/service-member-go/internal/migrations"
)

// gooseUp is a seam for tests.
var gooseUp = func(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys fs.FS) (int, error) {
	p, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return 0, err
	}
	res, err := p.Up(ctx)
	return len(res), err
}

// Migrate applies the embedded migrations for driver and returns how many
// were applied by this call.
func Migrate(ctx context.Context, db *sql.DB, driver string) (int, error) {
	dir, dialect, err := dialectFor(driver)
	if err != nil {
		return 0, err
	}
	sub, err := fs.Sub(migrations.Migrations, dir)
	if err != nil {
		return 0, fmt.Errorf("migrations dir %s: %w", dir, err)
	}
	n, err := gooseUp(ctx, dialect, db, sub)
	if err != nil {
		return n, fmt.Errorf("migrate: %w", err)
	}
	return n, nil
}

func dialectFor(driver string) (string, goose.Dialect, error) {
	switch driver {
	case DriverPostgres, DriverPgx:
		return "postgres", goose.DialectPostgres, nil
	case DriverSQLite:
		return "sqlite", goose.DialectSQLite3, nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", driver)
	}
}
