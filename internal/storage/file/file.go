// Package file writes output tables to local files as Arrow IPC streams or
// CSV. With several inputs the sink path is a directory holding one file per
// input; otherwise it is the output file itself.
package file

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/apache/arrow/go/arrow"
	"github.com/apache/arrow/go/arrow/array"
	"github.com/apache/arrow/go/arrow/ipc"
	"github.com/apache/arrow/go/arrow/memory"

	"etlops/internal/storage"
	"etlops/internal/table"
)

// Kinds handled by this package.
const (
	KindIPC = "ipc"
	KindCSV = "csv"
)

// Sink implements storage.Sink for file outputs.
type Sink struct {
	kind string
	path string
	dir  bool
	mem  memory.Allocator
	log  *slog.Logger

	mu     sync.Mutex
	outs   map[string]*output
	closed bool
}

var _ storage.Sink = (*Sink)(nil)

type output struct {
	mu     sync.Mutex
	path   string
	f      *os.File
	schema *arrow.Schema
	ipcw   *ipc.Writer
	csvw   *csv.Writer
}

// New returns a Sink of kind ("ipc" or "csv") rooted at path. perInput makes
// path a directory with one <name>.arrow or <name>.csv per input.
func New(kind, path string, perInput bool, log *slog.Logger) (*Sink, error) {
	if kind != KindIPC && kind != KindCSV {
		return nil, fmt.Errorf("file sink: unknown kind %q", kind)
	}
	if path == "" {
		return nil, fmt.Errorf("file sink: path must not be empty")
	}
	if perInput {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("file sink: %w", err)
		}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sink{
		kind: kind,
		path: path,
		dir:  perInput,
		mem:  memory.NewGoAllocator(),
		log:  log.With("sink", kind),
		outs: map[string]*output{},
	}, nil
}

// Write appends rec to the output for name. Every record written for one
// name must share the first record's schema.
func (s *Sink) Write(ctx context.Context, name string, rec array.Record) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	out, err := s.output(name, rec.Schema())
	if err != nil {
		return 0, err
	}

	out.mu.Lock()
	defer out.mu.Unlock()
	if !out.schema.Equal(rec.Schema()) {
		return 0, fmt.Errorf("file sink: schema of %s changed between batches", name)
	}
	switch s.kind {
	case KindIPC:
		if err := out.ipcw.Write(rec); err != nil {
			return 0, fmt.Errorf("file sink: write %s: %w", out.path, err)
		}
	case KindCSV:
		if err := writeCSVRows(out.csvw, rec); err != nil {
			return 0, fmt.Errorf("file sink: write %s: %w", out.path, err)
		}
	}
	return rec.NumRows(), nil
}

func (s *Sink) output(name string, sch *arrow.Schema) (*output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("file sink: write after close")
	}
	if out, ok := s.outs[name]; ok {
		return out, nil
	}
	if !s.dir && len(s.outs) > 0 {
		return nil, fmt.Errorf("file sink: %s is a single file but a second input (%s) was written", s.path, name)
	}

	path := s.path
	if s.dir {
		path = filepath.Join(s.path, name+s.ext())
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("file sink: %w", err)
	}

	out := &output{path: path, f: f, schema: sch}
	switch s.kind {
	case KindIPC:
		out.ipcw = ipc.NewWriter(f, ipc.WithSchema(sch), ipc.WithAllocator(s.mem))
	case KindCSV:
		out.csvw = csv.NewWriter(f)
		header := make([]string, len(sch.Fields()))
		for i, fld := range sch.Fields() {
			header[i] = fld.Name
		}
		if err := out.csvw.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("file sink: write header: %w", err)
		}
	}
	s.outs[name] = out
	s.log.Debug("file sink: opened output", "input", name, "path", path)
	return out, nil
}

func (s *Sink) ext() string {
	if s.kind == KindIPC {
		return ".arrow"
	}
	return ".csv"
}

// writeCSVRows writes rec without a header. Nulls become empty fields and
// dates use table.DateLayout.
func writeCSVRows(w *csv.Writer, rec array.Record) error {
	ncols := int(rec.NumCols())
	row := make([]string, ncols)
	for i := 0; i < int(rec.NumRows()); i++ {
		for c := 0; c < ncols; c++ {
			v, ok := table.ValueString(rec.Column(c), i)
			if !ok {
				v = ""
			}
			row[c] = v
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Close finishes every output. The IPC end-of-stream marker is written here.
// Later calls are no-ops.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for _, out := range s.outs {
		out.mu.Lock()
		if out.ipcw != nil {
			if err := out.ipcw.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", out.path, err))
			}
		}
		if out.csvw != nil {
			out.csvw.Flush()
			if err := out.csvw.Error(); err != nil {
				errs = append(errs, fmt.Errorf("flush %s: %w", out.path, err))
			}
		}
		if err := out.f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", out.path, err))
		}
		out.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Paths returns the output files, keyed by input name.
func (s *Sink) Paths() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.outs))
	for name, o := range s.outs {
		out[name] = o.path
	}
	return out
}
