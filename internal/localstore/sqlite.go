package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite persists collections in a single table of a local database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the collection database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("localstore: sqlite path is required")
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `
		create table if not exists collections (
			name       text primary key,
			payload    blob not null,
			updated_at text not null
		)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create collections table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Load(ctx context.Context, name string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `select payload from collections where name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (s *SQLite) Store(ctx context.Context, name string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		insert into collections (name, payload, updated_at) values (?, ?, ?)
		on conflict(name) do update set payload = excluded.payload, updated_at = excluded.updated_at
	`, name, payload, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLite) Sizes(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `select name, length(payload) from collections`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			name string
			size int64
		)
		if err := rows.Scan(&name, &size); err != nil {
			return nil, err
		}
		out[name] = size
	}
	return out, rows.Err()
}

// Ping is used by the readiness probe.
func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) Close() error { return s.db.Close() }
