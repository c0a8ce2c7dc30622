package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql
var files embed.FS

const (
	Postgres = "postgres"
	MySQL    = "mysql"
)

// Up applies every pending migration for dialect.
func Up(db *sql.DB, dialect string) error {
	m, err := newMigrate(db, dialect)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run %s migrations: %w", dialect, err)
	}
	return nil
}

// Down rolls back the given number of migrations.
func Down(db *sql.DB, dialect string, steps int) error {
	m, err := newMigrate(db, dialect)
	if err != nil {
		return err
	}

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back %s migrations: %w", dialect, err)
	}
	return nil
}

// Version reports the applied schema version.
func Version(db *sql.DB, dialect string) (uint, bool, error) {
	m, err := newMigrate(db, dialect)
	if err != nil {
		return 0, false, err
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func newMigrate(db *sql.DB, dialect string) (*migrate.Migrate, error) {
	var (
		driver database.Driver
		err    error
	)

	switch dialect {
	case Postgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	case MySQL:
		driver, err = mysql.WithInstance(db, &mysql.Config{})
	default:
		return nil, fmt.Errorf("unsupported migration dialect: %s", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s migration driver: %w", dialect, err)
	}

	source, err := iofs.New(files, "sql/"+dialect)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dialect, driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}
