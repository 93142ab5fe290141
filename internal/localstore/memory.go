package localstore

import (
	"context"
	"sync"
)

// Memory is a process-local Backend, used in tests and when no data
// directory is configured.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Load(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.data[name]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

func (m *Memory) Store(_ context.Context, name string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.data[name] = cp
	return nil
}

func (m *Memory) Sizes(_ context.Context) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int64, len(m.data))
	for k, v := range m.data {
		out[k] = int64(len(v))
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
