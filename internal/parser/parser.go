// Package parser selects the input reader for a pipeline source format.
package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/apache/arrow/go/arrow/array"
	"github.com/apache/arrow/go/arrow/memory"

	"etlops/internal/config"
	"etlops/internal/parser/csv"
	"etlops/internal/parser/ipc"
)

// Reader streams an input as Arrow records. fn sees each record only for
// the duration of the call. The returned count is the number of input rows
// dropped as malformed.
type Reader interface {
	Read(ctx context.Context, r io.Reader, fn func(array.Record) error) (int, error)
}

// New returns the Reader for src.Format. batchSize caps rows per record for
// formats that choose their own batching (CSV).
func New(src config.Source, batchSize int, mem memory.Allocator, log *slog.Logger) (Reader, error) {
	switch strings.ToLower(src.Format) {
	case "", "csv":
		opt, err := csvOptions(src.Options)
		if err != nil {
			return nil, err
		}
		opt.BatchSize = batchSize
		opt.Allocator = mem
		opt.Logger = log
		return csv.NewParser(opt), nil
	case "arrow", "ipc":
		return ipc.Reader{Allocator: mem}, nil
	}
	return nil, fmt.Errorf("unknown source format %q", src.Format)
}

// csvOptions maps source.options onto the CSV parser:
//
//	has_header (default true), comma, trim_space, normalize_headers,
//	header_map {from: to}, scrub [{from, to}]
func csvOptions(o config.Options) (csv.Options, error) {
	opt := csv.Options{
		HasHeader:        o.Bool("has_header", true),
		Comma:            o.Rune("comma", ','),
		TrimSpace:        o.Bool("trim_space", false),
		NormalizeHeaders: o.Bool("normalize_headers", false),
	}

	if hm := o.Sub("header_map"); len(hm) > 0 {
		opt.HeaderMap = make(map[string]string, len(hm))
		for k := range hm {
			v := hm.String(k, "")
			if v == "" {
				return csv.Options{}, fmt.Errorf("source.options.header_map.%s: expected a non-empty string", k)
			}
			opt.HeaderMap[k] = v
		}
	}

	if raw := o.Any("scrub"); raw != nil {
		items, ok := raw.([]any)
		if !ok {
			return csv.Options{}, fmt.Errorf("source.options.scrub: expected a list of {from, to}")
		}
		for i, it := range items {
			m, ok := asOptions(it)
			if !ok || m.String("from", "") == "" {
				return csv.Options{}, fmt.Errorf("source.options.scrub[%d]: expected {from, to} with non-empty from", i)
			}
			opt.Scrub = append(opt.Scrub, csv.Rewrite{From: m.String("from", ""), To: m.String("to", "")})
		}
	}
	return opt, nil
}

func asOptions(v any) (config.Options, bool) {
	switch m := v.(type) {
	case map[string]any:
		return config.Options(m), true
	case config.Options:
		return m, true
	}
	return nil, false
}
