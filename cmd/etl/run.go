package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/apache/arrow/go/arrow/array"
	"github.com/apache/arrow/go/arrow/memory"
	"golang.org/x/sync/errgroup"

	"etlops/internal/config"
	"etlops/internal/datasource"
	"etlops/internal/logging"
	"etlops/internal/metrics"
	"etlops/internal/operator"
	"etlops/internal/parser"
	"etlops/internal/statestore"
	"etlops/internal/storage"
	filesink "etlops/internal/storage/file"
)

// summary holds cross-goroutine counters for one run.
type summary struct {
	Inputs  int
	Read    atomic.Int64 // rows decoded from inputs
	Skipped atomic.Int64 // malformed lines dropped by the reader
	Written atomic.Int64 // rows accepted by the sink
	Batches atomic.Int64
}

// runner holds what every input of one run shares.
type runner struct {
	p      config.Pipeline
	rt     *operator.Runtime
	reader parser.Reader
	sink   storage.Sink
	store  statestore.Store
	sum    *summary
}

// run processes every input of p. Inputs run concurrently up to
// p.Runtime.Workers; the first failing input cancels the rest.
func run(ctx context.Context, p config.Pipeline) (*summary, error) {
	log := logging.FromContext(ctx)

	inputs, err := datasource.Resolve(p.Source, log)
	if err != nil {
		return nil, err
	}
	sum := &summary{Inputs: len(inputs)}

	mem := memory.NewGoAllocator()
	reader, err := parser.New(p.Source, p.Runtime.BatchSize, mem, log)
	if err != nil {
		return nil, err
	}

	store, err := statestore.Open(p.State)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	sink, err := openSink(ctx, p, len(inputs), log)
	if err != nil {
		return nil, err
	}

	r := &runner{
		p:      p,
		rt:     &operator.Runtime{Job: p.Job, Allocator: mem},
		reader: reader,
		sink:   sink,
		store:  store,
		sum:    sum,
	}

	workers := p.Runtime.Workers
	if workers <= 0 {
		workers = 1
	}
	log.Info("run started", "job", p.Job, "inputs", len(inputs), "steps", len(p.Steps), "workers", workers, "sink", p.Sink.Kind)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, in := range inputs {
		g.Go(func() error {
			if err := r.processInput(gctx, in); err != nil {
				return fmt.Errorf("input %s: %w", in.Name, err)
			}
			return nil
		})
	}
	err = g.Wait()
	if cerr := sink.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("close sink: %w", cerr))
	}
	return sum, err
}

// openSink picks the file sink for ipc/csv and the registered database
// backend otherwise. File sinks write one file per input when there are
// several inputs.
func openSink(ctx context.Context, p config.Pipeline, inputs int, log *slog.Logger) (storage.Sink, error) {
	switch p.Sink.Kind {
	case filesink.KindIPC, filesink.KindCSV:
		return filesink.New(p.Sink.Kind, p.Sink.Path, inputs > 1, log)
	}
	return storage.NewDBSink(ctx, storage.Config{
		Kind:  p.Sink.Kind,
		DSN:   p.Sink.DB.DSN,
		Table: p.Sink.DB.Table,
	}, p.Runtime.BatchSize, p.Sink.DB.AutoCreateTable, log)
}

// processInput streams one input through the steps. Trained state is loaded
// once, threaded through every batch, and saved after the last batch.
func (r *runner) processInput(ctx context.Context, in datasource.Input) error {
	log := logging.WithFields(ctx, "input", in.Name)
	job := r.p.Job

	states := make(map[string]config.Options, len(r.p.Steps))
	for _, st := range r.p.Steps {
		s, err := r.store.Load(ctx, statestore.Key(job, in.Name, st.Key()))
		if err != nil {
			return err
		}
		states[st.Key()] = s
	}

	rc, err := in.Source.Open(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()

	log.Info("input started", "location", in.Location)
	var read, written int64
	skipped, err := r.reader.Read(ctx, rc, func(rec array.Record) error {
		read += rec.NumRows()
		metrics.RecordRow(job, "read", rec.NumRows())

		out, err := r.applySteps(ctx, rec, states)
		if err != nil {
			return err
		}
		defer out.Release()

		n, err := r.sink.Write(ctx, in.Name, out)
		if err != nil {
			return fmt.Errorf("write: %w", err)
		}
		written += n
		metrics.RecordRow(job, "written", n)
		metrics.RecordBatches(job, 1)
		r.sum.Batches.Add(1)
		return nil
	})
	r.sum.Read.Add(read)
	r.sum.Written.Add(written)
	r.sum.Skipped.Add(int64(skipped))
	metrics.RecordRow(job, "csv_skipped", int64(skipped))
	if err != nil {
		return err
	}

	for _, st := range r.p.Steps {
		if err := r.store.Save(ctx, statestore.Key(job, in.Name, st.Key()), states[st.Key()]); err != nil {
			return err
		}
	}
	log.Info("input completed", "read", read, "skipped", skipped, "written", written)
	return nil
}

// applySteps runs the steps over rec and returns a record the caller owns.
// states is updated in place with each step's new trained state.
func (r *runner) applySteps(ctx context.Context, rec array.Record, states map[string]config.Options) (array.Record, error) {
	cur := rec
	cur.Retain()
	for _, st := range r.p.Steps {
		res, err := r.rt.Run(ctx, st, cur, states[st.Key()])
		cur.Release()
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", st.Key(), err)
		}
		states[st.Key()] = res.Trained
		cur = res.Table
	}
	return cur, nil
}
