// Package migrate applies the remote PostgreSQL schema with goose.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/pressly/goose/v3"
)

// goose keeps its base FS and dialect in package state.
var gooseMu sync.Mutex

// Seams for tests.
var (
	gooseUp      = goose.UpContext
	gooseDown    = goose.DownContext
	gooseVersion = goose.GetDBVersionContext
)

// Manager runs embedded migrations against db.
type Manager struct {
	db      *sql.DB
	fsys    fs.FS
	dir     string
	dialect string
}

// Option configures Manager.
type Option func(*Manager)

// WithDir sets the directory inside fsys holding the .sql files.
func WithDir(dir string) Option {
	return func(m *Manager) {
		if dir != "" {
			m.dir = dir
		}
	}
}

// WithDialect overrides the goose dialect ("pgx" by default).
func WithDialect(dialect string) Option {
	return func(m *Manager) {
		if dialect != "" {
			m.dialect = dialect
		}
	}
}

// NewManager constructs a Manager.
func NewManager(db *sql.DB, fsys fs.FS, opts ...Option) (*Manager, error) {
	if db == nil {
		return nil, errors.New("migrate: database handle is required")
	}
	if fsys == nil {
		return nil, errors.New("migrate: migrations filesystem is required")
	}
	m := &Manager{db: db, fsys: fsys, dir: "migrations", dialect: "pgx"}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Up applies all pending migrations.
func (m *Manager) Up(ctx context.Context) error {
	return m.with(func() error {
		if err := gooseUp(ctx, m.db, m.dir); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		return nil
	})
}

// Down rolls back the latest migration.
func (m *Manager) Down(ctx context.Context) error {
	return m.with(func() error {
		if err := gooseDown(ctx, m.db, m.dir); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		return nil
	})
}

// Version reports the current schema version.
func (m *Manager) Version(ctx context.Context) (int64, error) {
	var v int64
	err := m.with(func() error {
		var err error
		v, err = gooseVersion(ctx, m.db)
		if err != nil {
			return fmt.Errorf("migrate version: %w", err)
		}
		return nil
	})
	return v, err
}

func (m *Manager) with(fn func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(m.fsys)
	if err := goose.SetDialect(m.dialect); err != nil {
		return fmt.Errorf("migrate dialect: %w", err)
	}
	return fn()
}
