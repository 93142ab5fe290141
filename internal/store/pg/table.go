package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/upsolucions/up-control-access/internal/localstore"
	"github.com/upsolucions/up-control-access/internal/remote"
)

const (
	pgErrUniqueViolation = "23505"
	pgErrUndefinedTable  = "42P01"
)

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Table stores records of one remote table as jsonb payloads keyed by id.
type Table[T localstore.Record] struct {
	db   *sql.DB
	name string
}

// NewTable binds a table. The name is interpolated into SQL, so it must be
// a plain identifier.
func NewTable[T localstore.Record](s *Store, name string) (*Table[T], error) {
	if !identPattern.MatchString(name) {
		return nil, fmt.Errorf("pg: invalid table name %q", name)
	}
	return &Table[T]{db: s.db, name: name}, nil
}

func (t *Table[T]) Name() string { return t.name }

func (t *Table[T]) List(ctx context.Context) ([]T, error) {
	rows, err := t.db.QueryContext(ctx, fmt.Sprintf(`select payload from %s order by created_at asc, id asc`, t.name))
	if err != nil {
		return nil, t.wrap(err)
	}
	return t.scanAll(rows)
}

func (t *Table[T]) Get(ctx context.Context, id string) (T, error) {
	var (
		zero T
		raw  []byte
	)
	err := t.db.QueryRowContext(ctx, fmt.Sprintf(`select payload from %s where id = $1`, t.name), id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, fmt.Errorf("%w: %s/%s", remote.ErrNotFound, t.name, id)
	}
	if err != nil {
		return zero, t.wrap(err)
	}
	var rec T
	if err := json.Unmarshal(raw, &rec); err != nil {
		return zero, fmt.Errorf("decode %s/%s: %w", t.name, id, err)
	}
	return rec, nil
}

func (t *Table[T]) Find(ctx context.Context, field, value string) ([]T, error) {
	if !identPattern.MatchString(field) {
		return nil, fmt.Errorf("pg: invalid field name %q", field)
	}
	rows, err := t.db.QueryContext(ctx,
		fmt.Sprintf(`select payload from %s where payload->>$1 = $2 order by created_at asc, id asc`, t.name),
		field, value,
	)
	if err != nil {
		return nil, t.wrap(err)
	}
	return t.scanAll(rows)
}

func (t *Table[T]) Upsert(ctx context.Context, rec T) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", t.name, rec.RecordID(), err)
	}
	_, err = t.db.ExecContext(ctx, fmt.Sprintf(`
		insert into %s (id, payload, created_at, updated_at)
		values ($1, $2, $3, now())
		on conflict (id) do update set payload = excluded.payload, updated_at = now()
	`, t.name), rec.RecordID(), payload, rec.RecordTime())
	if err != nil {
		return t.wrap(err)
	}
	return nil
}

func (t *Table[T]) Delete(ctx context.Context, id string) error {
	res, err := t.db.ExecContext(ctx, fmt.Sprintf(`delete from %s where id = $1`, t.name), id)
	if err != nil {
		return t.wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", remote.ErrNotFound, t.name, id)
	}
	return nil
}

func (t *Table[T]) scanAll(rows *sql.Rows) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode %s row: %w", t.name, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// wrap maps PostgreSQL error codes onto remote sentinels.
func (t *Table[T]) wrap(err error) error {
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return fmt.Errorf("%w: %s: %s", remote.ErrConflict, t.name, pgErr.ConstraintName)
		case pgErrUndefinedTable:
			return fmt.Errorf("pg: table %s missing, run migrations: %w", t.name, err)
		}
	}
	return err
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
