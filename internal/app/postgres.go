package app

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/guttosm/cryptonorm/config"

	_ "github.com/lib/pq" // PostgreSQL driver for database/sql
)

const (
	maxOpenConns    = 16
	maxIdleConns    = 8
	connMaxLifetime = 30 * time.Minute
)

// sqlOpener is an indirection for unit testing; defaults to sql.Open
var sqlOpener = sql.Open

// InitPostgres initializes a PostgreSQL connection using the provided configuration.
//
// The pool is sized for the import workers, which each hold a connection for
// the length of a COPY transaction, and pinged once before being returned.
//
// Example usage:
//
//	db, err := app.InitPostgres(config.AppConfig)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
func InitPostgres(cfg config.Config) (*sql.DB, error) {
	// Construct PostgreSQL DSN from configuration
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)

	// Initialize database handle (does not establish a real connection yet)
	db, err := sqlOpener("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	// Verify connectivity by pinging the database
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return db, nil
}

// postgresOpener is an indirection used by InitializeApp; overridden in tests to avoid real connections.
var postgresOpener = InitPostgres
