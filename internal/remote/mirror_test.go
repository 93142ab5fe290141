package remote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upsolucions/up-control-access/internal/localstore"
)

type item struct {
	ID    string    `json:"id"`
	Email string    `json:"email"`
	At    time.Time `json:"at"`
}

func (i item) RecordID() string      { return i.ID }
func (i item) RecordTime() time.Time { return i.At }

var errDown = errors.New("connection refused")

type fakeTable struct {
	mu   sync.Mutex
	rows map[string]item
	down bool
}

func newFakeTable() *fakeTable { return &fakeTable{rows: map[string]item{}} }

func (f *fakeTable) Name() string { return "items" }

func (f *fakeTable) List(context.Context) ([]item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, errDown
	}
	out := make([]item, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeTable) Get(_ context.Context, id string) (item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return item{}, errDown
	}
	r, ok := f.rows[id]
	if !ok {
		return item{}, ErrNotFound
	}
	return r, nil
}

func (f *fakeTable) Find(_ context.Context, field, value string) ([]item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, errDown
	}
	var out []item
	for _, r := range f.rows {
		if field == "email" && r.Email == value {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeTable) Upsert(_ context.Context, rec item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return errDown
	}
	for id, r := range f.rows {
		if id != rec.ID && r.Email == rec.Email {
			return ErrConflict
		}
	}
	f.rows[rec.ID] = rec
	return nil
}

func (f *fakeTable) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return errDown
	}
	if _, ok := f.rows[id]; !ok {
		return ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func newMirror(t *testing.T) (*Mirror[item], *fakeTable) {
	t.Helper()
	table := newFakeTable()
	local := localstore.NewCollection[item](localstore.New(localstore.NewMemory()), "items")
	return NewMirror[item](table, local), table
}

func TestMirrorListRefreshesCache(t *testing.T) {
	ctx := context.Background()
	m, table := newMirror(t)
	table.rows["a"] = item{ID: "a", Email: "a@x"}

	recs, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	cached, err := m.Local().All(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "a", cached[0].ID)

	table.down = true
	recs, err = m.List(ctx)
	require.NoError(t, err, "fallback must serve the cache")
	assert.Len(t, recs, 1)
}

func TestMirrorPutWhileRemoteDown(t *testing.T) {
	ctx := context.Background()
	m, table := newMirror(t)
	table.down = true

	require.NoError(t, m.Put(ctx, item{ID: "b", Email: "b@x"}))
	got, err := m.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "b@x", got.Email)

	found, err := m.Find(ctx, "email", "b@x", func(i item) bool { return i.Email == "b@x" })
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestMirrorConflictIsNotMasked(t *testing.T) {
	ctx := context.Background()
	m, _ := newMirror(t)
	require.NoError(t, m.Put(ctx, item{ID: "a", Email: "dup@x"}))

	err := m.Put(ctx, item{ID: "b", Email: "dup@x"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = m.Local().Get(ctx, "b")
	assert.ErrorIs(t, err, localstore.ErrNotFound)
}

func TestMirrorGetMissing(t *testing.T) {
	ctx := context.Background()
	m, table := newMirror(t)
	_, err := m.Get(ctx, "nope")
	assert.True(t, IsNotFound(err))

	table.down = true
	_, err = m.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMirrorDelete(t *testing.T) {
	ctx := context.Background()
	m, table := newMirror(t)
	require.NoError(t, m.Put(ctx, item{ID: "a", Email: "a@x"}))
	require.NoError(t, m.Delete(ctx, "a"))
	assert.Empty(t, table.rows)
	assert.ErrorIs(t, m.Delete(ctx, "a"), ErrNotFound)
}

func TestLocalOnlyMirror(t *testing.T) {
	ctx := context.Background()
	local := localstore.NewCollection[item](localstore.New(localstore.NewMemory()), "items")
	m := NewMirror[item](nil, local)
	require.NoError(t, m.Put(ctx, item{ID: "a"}))
	recs, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
