// Package localstore keeps named collections of records serialized as JSON
// arrays, the server-side counterpart of the dashboard's local cache.
// The total serialized size across collections is bounded by a quota.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/upsolucions/up-control-access/internal/obs"
)

// DefaultQuota mirrors the usual 5 MiB budget of browser local storage.
const DefaultQuota int64 = 5 << 20

var (
	ErrQuotaExceeded = errors.New("localstore: quota exceeded")
	ErrNotFound      = errors.New("localstore: not found")
)

// Backend persists raw collection payloads.
type Backend interface {
	// Load returns nil, nil when the collection does not exist.
	Load(ctx context.Context, name string) ([]byte, error)
	Store(ctx context.Context, name string, payload []byte) error
	Sizes(ctx context.Context) (map[string]int64, error)
	Close() error
}

// Usage describes how much of the quota is in use.
type Usage struct {
	Total       int64            `json:"total_bytes"`
	Quota       int64            `json:"quota_bytes"`
	Collections map[string]int64 `json:"collections"`
}

// Store serializes collections through a Backend and enforces the quota.
type Store struct {
	backend Backend
	quota   int64

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures Store.
type Option func(*Store)

// WithQuota overrides DefaultQuota. Non-positive values are ignored.
func WithQuota(bytes int64) Option {
	return func(s *Store) {
		if bytes > 0 {
			s.quota = bytes
		}
	}
}

// New constructs a Store on top of backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		quota:   DefaultQuota,
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the backend.
func (s *Store) Close() error { return s.backend.Close() }

// Quota returns the configured byte budget.
func (s *Store) Quota() int64 { return s.quota }

// Usage probes the serialized size of every collection.
func (s *Store) Usage(ctx context.Context) (Usage, error) {
	sizes, err := s.backend.Sizes(ctx)
	if err != nil {
		return Usage{}, fmt.Errorf("probe sizes: %w", err)
	}
	u := Usage{Quota: s.quota, Collections: sizes}
	for name, n := range sizes {
		u.Total += n
		obs.StorageBytes.WithLabelValues(name).Set(float64(n))
	}
	return u, nil
}

// Load decodes collection name into dst. A missing collection leaves dst untouched.
func (s *Store) Load(ctx context.Context, name string, dst any) error {
	raw, err := s.backend.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// Save encodes v and stores it under name, failing with ErrQuotaExceeded
// when the resulting total would not fit.
func (s *Store) Save(ctx context.Context, name string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	avail, err := s.available(ctx, name)
	if err != nil {
		return err
	}
	if int64(len(payload)) > avail {
		return fmt.Errorf("%w: %s needs %d bytes, %d available", ErrQuotaExceeded, name, len(payload), avail)
	}
	if err := s.backend.Store(ctx, name, payload); err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	obs.StorageBytes.WithLabelValues(name).Set(float64(len(payload)))
	return nil
}

// available returns the bytes collection name may occupy.
func (s *Store) available(ctx context.Context, name string) (int64, error) {
	sizes, err := s.backend.Sizes(ctx)
	if err != nil {
		return 0, fmt.Errorf("probe sizes: %w", err)
	}
	var others int64
	for n, size := range sizes {
		if n != name {
			others += size
		}
	}
	return s.quota - others, nil
}

func (s *Store) lock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}
