package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/apache/arrow/go/arrow/array"
)

// Sink receives output tables. Implementations must be safe for concurrent
// Write calls.
type Sink interface {
	// Write stores rec and returns the number of rows written. name identifies
	// the input the table came from.
	Write(ctx context.Context, name string, rec array.Record) (int64, error)
	Close() error
}

// DBSink writes tables into one database table through a Repository. Writes
// are serialised so SQLite sees a single writer and the DDL runs once.
type DBSink struct {
	Kind      string
	Table     string
	Repo      Repository
	BatchSize int
	// AutoCreate runs the kind's DDLBootstrapper before the first write.
	AutoCreate bool
	Logger     *slog.Logger

	mu      sync.Mutex
	created bool
}

// NewDBSink opens the backend registered for cfg.Kind.
func NewDBSink(ctx context.Context, cfg Config, batchSize int, autoCreate bool, log *slog.Logger) (*DBSink, error) {
	repo, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = 5000
	}
	if log == nil {
		log = slog.Default()
	}
	return &DBSink{
		Kind:       cfg.Kind,
		Table:      cfg.Table,
		Repo:       repo,
		BatchSize:  batchSize,
		AutoCreate: autoCreate,
		Logger:     log.With("sink", cfg.Kind, "table", cfg.Table),
	}, nil
}

func (s *DBSink) Write(ctx context.Context, name string, rec array.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.AutoCreate && !s.created {
		if err := EnsureTable(ctx, s.Kind, s.Repo, s.Table, rec.Schema()); err != nil {
			return 0, fmt.Errorf("ensure table %s: %w", s.Table, err)
		}
		s.created = true
	}
	n, err := LoadRecord(ctx, rec, s.BatchSize, s.Repo.CopyFrom, s.Logger.With("input", name))
	if err != nil {
		return n, fmt.Errorf("load %s into %s: %w", name, s.Table, err)
	}
	return n, nil
}

func (s *DBSink) Close() error {
	s.Repo.Close()
	return nil
}
