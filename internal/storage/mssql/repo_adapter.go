package mssql

import (
	"context"

	"etlops/internal/storage"
	msddl "etlops/internal/storage/mssql/ddl"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests replace it to avoid real DB connections.
var newRepository = NewRepository

// wrappedRepo implements storage.Repository by delegating to *Repository and
// calling the close function returned by NewRepository on Close.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Repository = (*wrappedRepo)(nil)

func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDDL("mssql", msddl.Bootstrap)
}
