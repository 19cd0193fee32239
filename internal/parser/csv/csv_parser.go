// Package csv reads CSV input into Arrow records whose columns are all utf8.
// Typing is left to the operators. Input is streamed in batches; the whole
// file is never buffered. Known bad byte sequences in real-world data can be
// rewritten on the fly before they reach encoding/csv (see Rewrite).
package csv

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/arrow/array"
	"github.com/apache/arrow/go/arrow/memory"

	"etlops/internal/table"
)

// Options configures the CSV parser behavior. All fields are optional; sensible
// defaults are applied when a field is zero.
type Options struct {
	// HasHeader indicates whether the first row contains column headers.
	// Without a header, columns are named _c0, _c1, ...
	HasHeader bool

	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from each field value.
	TrimSpace bool

	// NormalizeHeaders lowercases header names and replaces spaces with
	// underscores. HeaderMap entries take precedence.
	NormalizeHeaders bool

	// HeaderMap maps source header names to canonical names. Only applies
	// when HasHeader is true.
	HeaderMap map[string]string

	// Scrub lists byte sequences rewritten before parsing. When set, the
	// reader is lenient about quotes and the width check after reading
	// drops malformed rows.
	Scrub []Rewrite

	// BatchSize caps the rows per emitted record. Zero emits one record.
	BatchSize int

	Allocator memory.Allocator
	Logger    *slog.Logger
}

// Rewrite replaces every occurrence of From with To.
type Rewrite struct {
	From string
	To   string
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs, but Parser itself is not concurrency-safe.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// skipLogLimit caps the per-row warnings logged for one input.
const skipLogLimit = 400

// streamingRewriter is an io.Reader that performs a streaming, rolling
// find/replace: it replaces all occurrences of pat with repl without buffering
// the entire stream. To correctly match sequences that may span chunk
// boundaries, it retains the last len(pat)-1 bytes (carry) from each processed
// block and prepends them to the next block before replacement.
type streamingRewriter struct {
	br    *bufio.Reader
	pat   []byte
	repl  []byte
	carry []byte       // last len(pat)-1 bytes retained between reads
	buf   bytes.Buffer // pending output to satisfy Read
	eof   bool
}

// newStreamingRewriter wraps r with a rewriter that replaces pat with repl.
func newStreamingRewriter(r io.Reader, pat, repl []byte) *streamingRewriter {
	capacity := 0
	if n := len(pat) - 1; n > 0 {
		capacity = n
	}
	return &streamingRewriter{
		br:    bufio.NewReaderSize(r, 64*1024),
		pat:   pat,
		repl:  repl,
		carry: make([]byte, 0, capacity),
	}
}

// Read implements io.Reader. It fills p from the internal buffer; when empty,
// it reads the next chunk from the underlying reader, performs rolling
// replacement, and withholds the trailing len(pat)-1 bytes as carry for the
// next call. On EOF it flushes the remaining carry.
func (sr *streamingRewriter) Read(p []byte) (int, error) {
	// Serve buffered output if present.
	if sr.buf.Len() > 0 {
		return sr.buf.Read(p)
	}
	if sr.eof {
		return 0, io.EOF
	}

	// Read next chunk.
	tmp := make([]byte, 64*1024)
	n, rerr := sr.br.Read(tmp)
	if n > 0 {
		block := tmp[:n]

		// Prepend carry to handle cross-boundary matches.
		if len(sr.carry) > 0 {
			joined := make([]byte, 0, len(sr.carry)+len(block))
			joined = append(joined, sr.carry...)
			joined = append(joined, block...)
			block = joined
		}

		// Replace occurrences in the working block.
		if len(sr.pat) > 0 && !bytes.Equal(sr.pat, sr.repl) {
			block = bytes.ReplaceAll(block, sr.pat, sr.repl)
		}

		// Retain the last k bytes as new carry; emit the rest.
		k := len(sr.pat) - 1
		if k < 0 {
			k = 0
		}
		if k == 0 {
			sr.buf.Write(block)
		} else if len(block) > k {
			emit := block[:len(block)-k]
			sr.buf.Write(emit)
			// Refresh carry.
			sr.carry = append(sr.carry[:0], block[len(block)-k:]...)
		} else {
			// Not enough to safely emit; keep entire block in carry.
			sr.carry = append(sr.carry[:0], block...)
		}
	}

	// Handle read error/EOF after processing chunk.
	if rerr == io.EOF {
		// Flush any remaining carry; no further reads will occur.
		if len(sr.carry) > 0 {
			sr.buf.Write(sr.carry)
			sr.carry = sr.carry[:0]
		}
		sr.eof = true
	} else if rerr != nil {
		// Propagate other read errors.
		return 0, rerr
	}

	// Serve buffered output if available.
	if sr.buf.Len() > 0 {
		return sr.buf.Read(p)
	}
	// If EOF reached and nothing buffered, signal EOF.
	if sr.eof {
		return 0, io.EOF
	}

	// No data yet; try again on next Read call (upper layers will call again).
	return 0, nil
}

// Read streams r into fn as records. Empty fields become nulls. Rows that
// fail to parse or whose width differs from the header are skipped and
// counted. Each record is released when fn returns; fn retains it to keep it.
// An input with a header and no rows yields one empty record so that the
// column names are still seen.
func (p *Parser) Read(ctx context.Context, r io.Reader, fn func(array.Record) error) (skipped int, err error) {
	log := p.opt.Logger
	if log == nil {
		log = slog.Default()
	}
	mem := p.opt.Allocator
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	for _, rw := range p.opt.Scrub {
		if rw.From != "" {
			r = newStreamingRewriter(r, []byte(rw.From), []byte(rw.To))
		}
	}
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	if len(p.opt.Scrub) > 0 {
		cr.LazyQuotes = true
	}

	var headers []string
	if p.opt.HasHeader {
		h, err := cr.Read()
		if err == io.EOF {
			return 0, nil
		}
		if err != nil {
			return 0, fmt.Errorf("read csv header: %w", err)
		}
		headers, err = normalizeHeaders(h, p.opt)
		if err != nil {
			return 0, err
		}
	}

	var b *batch
	emitted := false
	flush := func() error {
		rec, err := b.record(mem)
		if err != nil {
			return err
		}
		defer rec.Release()
		emitted = true
		return fn(rec)
	}

	for line := 1; ; line++ {
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return skipped, err
			}
		}
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return skipped, fmt.Errorf("read csv: %w", err)
			}
			if skipped < skipLogLimit {
				log.Warn("skipping csv row", "line", line, "err", err)
			}
			skipped++
			continue
		}
		if headers == nil {
			headers = make([]string, len(row))
			for i := range headers {
				headers[i] = "_c" + strconv.Itoa(i)
			}
		}
		if len(row) != len(headers) {
			if skipped < skipLogLimit {
				log.Warn("skipping csv row", "line", line,
					"err", fmt.Sprintf("incorrect number of fields (expected %d, got %d)", len(headers), len(row)))
			}
			skipped++
			continue
		}

		if b == nil {
			b = newBatch(mem, headers)
		}
		b.append(row, p.opt.TrimSpace)
		if p.opt.BatchSize > 0 && b.rows >= p.opt.BatchSize {
			if err := flush(); err != nil {
				return skipped, err
			}
		}
	}

	switch {
	case b != nil && b.rows > 0:
		err = flush()
	case !emitted && headers != nil:
		if b == nil {
			b = newBatch(mem, headers)
		}
		err = flush()
	}
	return skipped, err
}

// Parse reads all of r into a single record. The caller releases it. Empty
// input without a header yields a nil record.
func (p *Parser) Parse(r io.Reader) (array.Record, int, error) {
	opt := p.opt
	opt.BatchSize = 0
	var out array.Record
	skipped, err := NewParser(opt).Read(context.Background(), r, func(rec array.Record) error {
		rec.Retain()
		out = rec
		return nil
	})
	if err != nil {
		if out != nil {
			out.Release()
		}
		return nil, skipped, err
	}
	return out, skipped, nil
}

// batch accumulates rows as utf8 columns.
type batch struct {
	names    []string
	builders []*array.StringBuilder
	rows     int
}

func newBatch(mem memory.Allocator, names []string) *batch {
	b := &batch{names: names, builders: make([]*array.StringBuilder, len(names))}
	for i := range b.builders {
		b.builders[i] = array.NewStringBuilder(mem)
	}
	return b
}

func (b *batch) append(row []string, trim bool) {
	for i, val := range row {
		if trim {
			val = strings.TrimSpace(val)
		}
		if val == "" {
			b.builders[i].AppendNull()
		} else {
			b.builders[i].Append(val)
		}
	}
	b.rows++
}

// record moves the accumulated rows into a record and resets the batch.
func (b *batch) record(mem memory.Allocator) (array.Record, error) {
	cols := make([]array.Interface, len(b.builders))
	for i, bld := range b.builders {
		cols[i] = bld.NewArray()
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	b.rows = 0
	return table.New(b.names, cols)
}

// normalizeHeaders trims header cells, strips a UTF-8 BOM from the first one
// and applies HeaderMap and NormalizeHeaders. Empty names become _cN;
// duplicates are an error.
func normalizeHeaders(h []string, opt Options) ([]string, error) {
	res := StripHeaderBOM(append([]string(nil), h...))
	seen := make(map[string]int, len(res))
	for i, col := range res {
		c := strings.TrimSpace(col)
		if m, ok := opt.HeaderMap[c]; ok {
			c = m
		} else if opt.NormalizeHeaders {
			c = strings.ReplaceAll(strings.ToLower(c), " ", "_")
		}
		if c == "" {
			c = "_c" + strconv.Itoa(i)
		}
		if j, dup := seen[c]; dup {
			return nil, fmt.Errorf("csv header: column %q appears at positions %d and %d", c, j, i)
		}
		seen[c] = i
		res[i] = c
	}
	return res, nil
}
