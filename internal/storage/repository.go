// Package storage defines the database sink abstraction and a small registry
// of backends. Backends register themselves from init (see the sqlite and
// postgres subpackages) so callers select one by kind without importing it.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config carries the connection settings shared by all backends.
type Config struct {
	Kind  string
	DSN   string
	Table string
}

// Repository is the minimal surface a database sink needs: bulk row loads,
// raw statements for DDL, and cleanup.
type Repository interface {
	// CopyFrom inserts rows into the configured table. Every row must have
	// len(columns) values.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	Exec(ctx context.Context, sql string) error
	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. Registering the same kind
// twice replaces the earlier factory.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds in sorted order.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
