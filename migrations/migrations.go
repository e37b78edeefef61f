// Package migrations holds the schema of the record store, one directory per
// SQL dialect, and applies it with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

/* Run applies every pending up migration for the dialect.
 * The postgres driver pins a connection until the migrator is closed, and closing
 * the migrator closes db: pass a handle dedicated to migrating.
 */
func Run(db *sql.DB, dialect string) error {
	if db == nil {
		return errors.New("migrating: nil database handle")
	}
	defer db.Close()

	var (
		driver database.Driver
		err    error
	)
	switch dialect {
	case Postgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	case SQLite:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		return fmt.Errorf("unsupported migration dialect %q", dialect)
	}
	if err != nil {
		return fmt.Errorf("creating %s migration driver: %w", dialect, err)
	}

	src, err := iofs.New(files, dialect)
	if err != nil {
		return fmt.Errorf("opening embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dialect, driver)
	if err != nil {
		src.Close()
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}
