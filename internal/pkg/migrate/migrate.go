package migrate

import (
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
)

// Up applies pending migrations from path against the given connection.
func Up(db *sqlx.DB, path string) error {
	driver, err := pgx.WithInstance(db.DB, &pgx.Config{})
	if err != nil {
		return fmt.Errorf("create pgx migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+path, "pgx", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
