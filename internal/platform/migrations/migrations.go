// Package migrations embeds the service's numbered SQL schema and applies it
// on startup, grounded on the golang-migrate + embed.FS pattern used for
// tarsy's pkg/database/client.go.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql
var sqlFS embed.FS

// Apply runs every pending up migration against db. databaseName is used by
// golang-migrate to scope its schema_migrations tracking table.
func Apply(db *sql.DB, databaseName string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migrations: create postgres driver: %w", err)
	}

	source, err := iofs.New(sqlFS, "sql")
	if err != nil {
		return fmt.Errorf("migrations: create source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, databaseName, driver)
	if err != nil {
		return fmt.Errorf("migrations: create instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migrations: apply: %w", err)
	}

	// Do not call m.Close(): it would close the shared *sql.DB passed via
	// postgres.WithInstance. Close only the source.
	if err := source.Close(); err != nil {
		return fmt.Errorf("migrations: close source: %w", err)
	}
	return nil
}
