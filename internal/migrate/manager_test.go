package migrate

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
)

func TestManagerUpUsesConfiguredDir(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	var gotDir string
	orig := gooseUp
	gooseUp = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}
	defer func() { gooseUp = orig }()

	fsys := fstest.MapFS{"sql/00001_init.sql": &fstest.MapFile{Data: []byte("-- +goose Up\n")}}
	mgr, err := NewManager(db, fsys, WithDir("sql"))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := mgr.Up(context.Background()); err != nil {
		t.Fatalf("Up: %v", err)
	}
	if gotDir != "sql" {
		t.Fatalf("unexpected dir %q", gotDir)
	}
}

func TestManagerWrapsErrors(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	boom := errors.New("boom")
	orig := gooseDown
	gooseDown = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error { return boom }
	defer func() { gooseDown = orig }()

	mgr, err := NewManager(db, fstest.MapFS{})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := mgr.Down(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestNewManagerValidates(t *testing.T) {
	if _, err := NewManager(nil, fstest.MapFS{}); err == nil {
		t.Fatal("expected error for nil db")
	}
}
