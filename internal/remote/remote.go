// Package remote describes the table-based backend that owns users,
// condominiums, people, logos and sessions, and mirrors it into the local
// store so the service keeps working while the backend is unreachable.
package remote

import (
	"context"
	"errors"

	"github.com/upsolucions/up-control-access/internal/localstore"
)

var (
	ErrNotFound = errors.New("remote: not found")
	ErrConflict = errors.New("remote: conflict")
)

// Remote table names.
const (
	TableUsers        = "users"
	TableCondominiums = "condominiums"
	TablePeople       = "people"
	TableLogos        = "logos"
	TableSessions     = "sessions"
)

// Table is a generic query client over one remote table.
type Table[T localstore.Record] interface {
	Name() string
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	// Find returns records whose top-level field equals value.
	Find(ctx context.Context, field, value string) ([]T, error)
	Upsert(ctx context.Context, rec T) error
	Delete(ctx context.Context, id string) error
}

// IsNotFound reports a missing record from either the remote or the local side.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, localstore.ErrNotFound)
}

// unavailable classifies errors that should trigger the local fallback.
// Not-found and conflict are answers, not outages.
func unavailable(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return false
	}
	return ctx.Err() == nil
}

// Repo is the record access domain services depend on. Mirror implements it.
type Repo[T localstore.Record] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Find(ctx context.Context, field, value string, match func(T) bool) ([]T, error)
	Put(ctx context.Context, rec T) error
	Delete(ctx context.Context, id string) error
}

var _ Repo[localstore.Record] = (*Mirror[localstore.Record])(nil)
