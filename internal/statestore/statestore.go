// Package statestore persists trained-state bags between runs. Values are
// stored as JSON, so a bag read back carries float64 or json.Number where
// ints were saved; the trained package accepts both.
package statestore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"etlops/internal/config"
)

// Store loads and saves trained-state bags by key.
type Store interface {
	// Load returns the bag saved under key, or nil when there is none.
	Load(ctx context.Context, key string) (config.Options, error)
	// Save replaces the bag under key. A nil or empty bag deletes it.
	Save(ctx context.Context, key string, state config.Options) error
	// Keys lists stored keys with the given prefix in byte order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Open returns the store selected by cfg: "memory" (or empty) or "bolt".
func Open(cfg config.State) (Store, error) {
	switch cfg.Kind {
	case "", "memory":
		return NewMemory(), nil
	case "bolt":
		return OpenBolt(cfg.Path)
	}
	return nil, fmt.Errorf("unknown state kind %q", cfg.Kind)
}

// Key namespaces a step's trained-state by job and input so concurrent
// inputs never share state.
func Key(job, input, step string) string {
	return strings.Join([]string{job, input, step}, "/")
}

func encode(state config.Options) ([]byte, error) {
	b, err := json.Marshal(map[string]any(state))
	if err != nil {
		return nil, fmt.Errorf("statestore: encode: %w", err)
	}
	return b, nil
}

func decode(key string, b []byte) (config.Options, error) {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("statestore: decode %s: %w", key, err)
	}
	return config.Options(m), nil
}
