package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/upsolucions/up-control-access/internal/localstore"
	"github.com/upsolucions/up-control-access/internal/obs"
)

// Mirror reads and writes the remote table first and keeps the local
// collection as cache. When the remote fails for reasons other than
// not-found/conflict, reads are served locally and writes land locally only.
type Mirror[T localstore.Record] struct {
	remote Table[T]
	local  *localstore.Collection[T]
}

// NewMirror builds a Mirror. A nil remote makes it local-only.
func NewMirror[T localstore.Record](remote Table[T], local *localstore.Collection[T]) *Mirror[T] {
	return &Mirror[T]{remote: remote, local: local}
}

// Local exposes the cache collection.
func (m *Mirror[T]) Local() *localstore.Collection[T] { return m.local }

func (m *Mirror[T]) List(ctx context.Context) ([]T, error) {
	if m.remote == nil {
		return m.local.All(ctx)
	}
	recs, err := m.remote.List(ctx)
	if err != nil {
		if !unavailable(ctx, err) {
			return nil, err
		}
		m.fallback("list", err)
		return m.local.All(ctx)
	}
	if err := m.local.Replace(ctx, recs); err != nil {
		obs.Warn("local cache refresh failed", "collection", m.local.Name(), "error", err)
	}
	return recs, nil
}

func (m *Mirror[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if m.remote != nil {
		rec, err := m.remote.Get(ctx, id)
		switch {
		case err == nil:
			if perr := m.local.Put(ctx, rec); perr != nil {
				obs.Warn("local cache write failed", "collection", m.local.Name(), "error", perr)
			}
			return rec, nil
		case !unavailable(ctx, err):
			return zero, err
		default:
			m.fallback("get", err)
		}
	}
	rec, err := m.local.Get(ctx, id)
	if errors.Is(err, localstore.ErrNotFound) {
		return zero, fmt.Errorf("%w: %s/%s", ErrNotFound, m.local.Name(), id)
	}
	return rec, err
}

// Find queries the remote by field; the local fallback applies match instead.
func (m *Mirror[T]) Find(ctx context.Context, field, value string, match func(T) bool) ([]T, error) {
	if m.remote != nil {
		recs, err := m.remote.Find(ctx, field, value)
		if err == nil {
			return recs, nil
		}
		if !unavailable(ctx, err) {
			return nil, err
		}
		m.fallback("find", err)
	}
	all, err := m.local.All(ctx)
	if err != nil {
		return nil, err
	}
	var out []T
	for _, r := range all {
		if match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Mirror[T]) Put(ctx context.Context, rec T) error {
	return m.PutEvicting(ctx, rec, nil)
}

// PutEvicting is Put with a restriction on which cached records the local
// side may drop under quota pressure.
func (m *Mirror[T]) PutEvicting(ctx context.Context, rec T, evictable func(T) bool) error {
	remoteOK := false
	if m.remote != nil {
		err := m.remote.Upsert(ctx, rec)
		switch {
		case err == nil:
			remoteOK = true
		case !unavailable(ctx, err):
			return err
		default:
			m.fallback("put", err)
		}
	}
	if err := m.local.PutEvicting(ctx, rec, evictable); err != nil {
		if remoteOK {
			obs.Warn("local cache write failed", "collection", m.local.Name(), "error", err)
			return nil
		}
		return err
	}
	return nil
}

func (m *Mirror[T]) Delete(ctx context.Context, id string) error {
	remoteDeleted := false
	if m.remote != nil {
		err := m.remote.Delete(ctx, id)
		switch {
		case err == nil:
			remoteDeleted = true
		case errors.Is(err, ErrNotFound):
		case !unavailable(ctx, err):
			return err
		default:
			m.fallback("delete", err)
		}
	}
	err := m.local.Delete(ctx, id)
	if errors.Is(err, localstore.ErrNotFound) {
		if remoteDeleted {
			return nil
		}
		return fmt.Errorf("%w: %s/%s", ErrNotFound, m.local.Name(), id)
	}
	return err
}

func (m *Mirror[T]) fallback(op string, err error) {
	obs.RemoteFallbacks.WithLabelValues(m.remote.Name(), op).Inc()
	obs.Warn("remote unavailable, using local store", "table", m.remote.Name(), "op", op, "error", err)
}
