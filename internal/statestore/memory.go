package statestore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"etlops/internal/config"
)

// Memory is an in-process Store. Bags are kept JSON-encoded so callers
// never share maps with the store.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory { return &Memory{data: map[string][]byte{}} }

func (m *Memory) Load(ctx context.Context, key string) (config.Options, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	b, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return decode(key, b)
}

func (m *Memory) Save(ctx context.Context, key string, state config.Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(state) == 0 {
		m.mu.Lock()
		delete(m.data, key)
		m.mu.Unlock()
		return nil
	}
	b, err := encode(state)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = b
	m.mu.Unlock()
	return nil
}

func (m *Memory) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) Close() error { return nil }
