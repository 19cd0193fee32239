package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/apache/arrow/go/arrow/array"

	"etlops/internal/table"
)

// CopyFn abstracts a backend's bulk insert. Implementations insert rows in
// columns order and return the number of rows reported as inserted.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadRecord converts rec into rows of native Go values (nulls become nil,
// dates become time.Time) and hands them to copyFn in batches of batchSize.
// It returns the running total and the first error encountered; rows from
// batches that already succeeded stay counted.
func LoadRecord(ctx context.Context, rec array.Record, batchSize int, copyFn CopyFn, log *slog.Logger) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	columns := table.Names(rec)
	nrows := int(rec.NumRows())
	ncols := int(rec.NumCols())

	var (
		total   int64
		batches int
		start   = time.Now()
		last    = start
		batch   = make([][]any, 0, min(batchSize, nrows))
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		batch = batch[:0]
		if err != nil {
			log.Error("loader: copy failed", "inserted", n, "total", total, "err", err)
			return err
		}

		batches++
		now := time.Now()
		since := now.Sub(last)
		rps := float64(0)
		if since > 0 {
			rps = float64(n) / since.Seconds()
		}
		log.Debug("loader: batch flushed",
			"batch", batches,
			"rps", int64(rps),
			"inserted", n,
			"total", total,
			"elapsed", now.Sub(start).Truncate(time.Millisecond),
		)
		last = now
		return nil
	}

	for i := 0; i < nrows; i++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		row := make([]any, ncols)
		for c := 0; c < ncols; c++ {
			row[c] = table.Value(rec.Column(c), i)
		}
		batch = append(batch, row)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}
