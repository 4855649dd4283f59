package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryKV is the in-process KV adapter. It backs tests and the
// memory data backend, and shares Load's fallback semantics with the
// SQLite adapter.
type MemoryKV struct {
	mu    sync.Mutex
	items map[string]json.RawMessage
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{items: make(map[string]json.RawMessage)}
}

func (m *MemoryKV) Load(_ context.Context, key string, v any) error {
	m.mu.Lock()
	raw, ok := m.items[key]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		// Same recovery as the durable adapter: keep the zero default.
		return nil
	}
	return nil
}

func (m *MemoryKV) Save(_ context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	m.mu.Lock()
	m.items[key] = raw
	m.mu.Unlock()
	return nil
}
