package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrations embed.FS

// Migrate brings the kv schema up to date.
func (db *DB) Migrate() error {
	var (
		drv  database.Driver
		dir  string
		name string
		err  error
	)
	switch db.conn.DriverName() {
	case DriverPostgres:
		dir, name = "migrations/postgres", "pgx5"
		drv, err = pgxmigrate.WithInstance(db.conn.DB, &pgxmigrate.Config{})
	case DriverSQLite:
		dir, name = "migrations/sqlite", "sqlite"
		drv, err = sqlitemigrate.WithInstance(db.conn.DB, &sqlitemigrate.Config{})
	default:
		return fmt.Errorf("migrations are not supported for driver %q", db.conn.DriverName())
	}
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	src, err := iofs.New(migrations, dir)
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, name, drv)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	db.log.Info("kv schema is up to date", "driver", db.conn.DriverName())
	return nil
}
