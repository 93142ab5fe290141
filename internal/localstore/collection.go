package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/upsolucions/up-control-access/internal/obs"
)

// Record is an element of a Collection.
type Record interface {
	RecordID() string
	RecordTime() time.Time
}

// Collection is a typed view over one named JSON array.
type Collection[T Record] struct {
	store *Store
	name  string
}

// NewCollection binds a typed collection to store.
func NewCollection[T Record](store *Store, name string) *Collection[T] {
	return &Collection[T]{store: store, name: name}
}

// Name returns the collection key.
func (c *Collection[T]) Name() string { return c.name }

// All returns every record in stored order.
func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	l := c.store.lock(c.name)
	l.Lock()
	defer l.Unlock()
	return c.load(ctx)
}

// Get returns the record with id or ErrNotFound.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	recs, err := c.All(ctx)
	if err != nil {
		return zero, err
	}
	for _, r := range recs {
		if r.RecordID() == id {
			return r, nil
		}
	}
	return zero, fmt.Errorf("%w: %s/%s", ErrNotFound, c.name, id)
}

// Put inserts or replaces rec. Under quota pressure the oldest other
// records are dropped and the write is retried once.
func (c *Collection[T]) Put(ctx context.Context, rec T) error {
	return c.PutEvicting(ctx, rec, nil)
}

// PutEvicting is Put with a restriction on which records may be dropped
// under quota pressure. A nil evictable allows any record except rec.
func (c *Collection[T]) PutEvicting(ctx context.Context, rec T, evictable func(T) bool) error {
	l := c.store.lock(c.name)
	l.Lock()
	defer l.Unlock()

	recs, err := c.load(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range recs {
		if recs[i].RecordID() == rec.RecordID() {
			recs[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		recs = append(recs, rec)
	}
	return c.saveTrimming(ctx, recs, func(r T) bool {
		if r.RecordID() == rec.RecordID() {
			return false
		}
		return evictable == nil || evictable(r)
	})
}

// Replace swaps the whole collection, trimming the oldest records if needed.
func (c *Collection[T]) Replace(ctx context.Context, recs []T) error {
	l := c.store.lock(c.name)
	l.Lock()
	defer l.Unlock()
	cp := make([]T, len(recs))
	copy(cp, recs)
	return c.saveTrimming(ctx, cp, nil)
}

// Delete removes the record with id.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	l := c.store.lock(c.name)
	l.Lock()
	defer l.Unlock()

	recs, err := c.load(ctx)
	if err != nil {
		return err
	}
	out := recs[:0]
	found := false
	for _, r := range recs {
		if r.RecordID() == id {
			found = true
			continue
		}
		out = append(out, r)
	}
	if !found {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, c.name, id)
	}
	return c.store.Save(ctx, c.name, out)
}

// DeleteWhere removes every record matching pred and returns how many went.
func (c *Collection[T]) DeleteWhere(ctx context.Context, pred func(T) bool) (int, error) {
	l := c.store.lock(c.name)
	l.Lock()
	defer l.Unlock()

	recs, err := c.load(ctx)
	if err != nil {
		return 0, err
	}
	out := recs[:0]
	removed := 0
	for _, r := range recs {
		if pred(r) {
			removed++
			continue
		}
		out = append(out, r)
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, c.store.Save(ctx, c.name, out)
}

// Truncate keeps only the newest keep records.
func (c *Collection[T]) Truncate(ctx context.Context, keep int) error {
	l := c.store.lock(c.name)
	l.Lock()
	defer l.Unlock()

	recs, err := c.load(ctx)
	if err != nil {
		return err
	}
	if len(recs) <= keep {
		return nil
	}
	sorted := sortedByAge(recs)
	drop := make(map[string]struct{}, len(recs)-keep)
	for _, r := range sorted[:len(recs)-keep] {
		drop[r.RecordID()] = struct{}{}
	}
	out := recs[:0]
	for _, r := range recs {
		if _, ok := drop[r.RecordID()]; !ok {
			out = append(out, r)
		}
	}
	obs.QuotaEvictions.WithLabelValues(c.name).Add(float64(len(drop)))
	return c.store.Save(ctx, c.name, out)
}

func (c *Collection[T]) load(ctx context.Context) ([]T, error) {
	var recs []T
	if err := c.store.Load(ctx, c.name, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// saveTrimming writes recs; on ErrQuotaExceeded it drops the oldest
// evictable records until the estimate fits and retries once.
func (c *Collection[T]) saveTrimming(ctx context.Context, recs []T, evictable func(T) bool) error {
	err := c.store.Save(ctx, c.name, recs)
	if !errors.Is(err, ErrQuotaExceeded) {
		return err
	}

	avail, aerr := c.store.available(ctx, c.name)
	if aerr != nil {
		return aerr
	}
	payload, merr := json.Marshal(recs)
	if merr != nil {
		return fmt.Errorf("encode %s: %w", c.name, merr)
	}
	excess := int64(len(payload)) - avail

	drop := make(map[string]struct{})
	for _, r := range sortedByAge(recs) {
		if excess <= 0 {
			break
		}
		if evictable != nil && !evictable(r) {
			continue
		}
		raw, _ := json.Marshal(r)
		excess -= int64(len(raw)) + 1
		drop[r.RecordID()] = struct{}{}
	}
	if len(drop) == 0 {
		return err
	}
	kept := make([]T, 0, len(recs)-len(drop))
	for _, r := range recs {
		if _, ok := drop[r.RecordID()]; !ok {
			kept = append(kept, r)
		}
	}
	if err := c.store.Save(ctx, c.name, kept); err != nil {
		return err
	}
	obs.QuotaEvictions.WithLabelValues(c.name).Add(float64(len(drop)))
	obs.Warn("local collection trimmed under quota pressure", "collection", c.name, "dropped", len(drop))
	return nil
}

// sortedByAge returns a copy ordered oldest first.
func sortedByAge[T Record](recs []T) []T {
	out := make([]T, len(recs))
	copy(out, recs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordTime().Before(out[j].RecordTime())
	})
	return out
}
