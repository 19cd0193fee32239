package postgres

import (
	"context"

	"etlops/internal/storage"
	pgddl "etlops/internal/storage/postgres/ddl"
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

// init registers the "postgres" backend and its DDL bootstrapper so callers
// stay backend-agnostic:
//
//	sink, err := storage.NewDBSink(ctx, storage.Config{Kind: "postgres", ...}, 5000, true, log)
func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDDL("postgres", pgddl.Bootstrap)
}
