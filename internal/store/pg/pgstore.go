// Package pg implements the remote backend tables on PostgreSQL.
package pg

import (
	"context"
	"database/sql"
	"embed"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Migrations holds the goose migrations for the remote schema.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// Store owns the connection pool shared by every Table.
type Store struct {
	db *sql.DB
}

// Open connects through the pgx stdlib driver with pool defaults tuned for
// a small admin workload.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing handle (tests pass a sqlmock DB).
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Ping is used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
