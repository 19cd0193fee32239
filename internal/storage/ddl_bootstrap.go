package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/apache/arrow/go/arrow"
)

// DDLBootstrapper creates table for sch through repo.Exec when it does not
// exist yet. Backends register one per kind from init.
type DDLBootstrapper func(ctx context.Context, repo Repository, table string, sch *arrow.Schema) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers (or replaces) the DDLBootstrapper for kind.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable runs the DDLBootstrapper registered for kind.
func EnsureTable(ctx context.Context, kind string, repo Repository, table string, sch *arrow.Schema) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage.kind=%q", kind)
	}
	return fn(ctx, repo, table, sch)
}
