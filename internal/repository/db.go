package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSQLite   = "sqlite"
)

// Open connects to the remote store and tunes the pool for the driver.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverPostgres, DriverPgx, DriverSQLite:
	default:
		return nil, fmt.Errorf("repository.Open: unsupported driver %q", driver)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := sqlx.ConnectContext(connectCtx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("repository.Open: %w", classify(err))
	}

	if driver == DriverSQLite {
		// one connection keeps :memory: databases and write locks coherent
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		return db, nil
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return db, nil
}

func init() {
	// modernc registers as "sqlite", which sqlx does not know by name
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}
