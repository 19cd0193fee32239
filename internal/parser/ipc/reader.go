// Package ipc reads Arrow IPC streams as pipeline input. Columns keep the
// types they were written with; operators pass through columns whose storage
// already matches.
package ipc

import (
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow/go/arrow/array"
	"github.com/apache/arrow/go/arrow/ipc"
	"github.com/apache/arrow/go/arrow/memory"
)

// Reader decodes IPC stream batches.
type Reader struct {
	Allocator memory.Allocator
}

// Read calls fn for every record batch in r. The record is only valid during
// fn; callers that keep it must Retain it. Streams never skip rows, so the
// skipped count is always zero.
func (rd Reader) Read(ctx context.Context, r io.Reader, fn func(array.Record) error) (int, error) {
	mem := rd.Allocator
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	sr, err := ipc.NewReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return 0, fmt.Errorf("ipc: open stream: %w", err)
	}
	defer sr.Release()

	for sr.Next() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := fn(sr.Record()); err != nil {
			return 0, err
		}
	}
	if err := sr.Err(); err != nil && err != io.EOF {
		return 0, fmt.Errorf("ipc: read stream: %w", err)
	}
	return 0, nil
}
