package table

import (
	"fmt"

	"github.com/apache/arrow/go/arrow/array"
	"github.com/apache/arrow/go/arrow/memory"
)

// Take returns a new array holding arr's rows at idx, in idx order. Runs of
// consecutive indices are sliced and joined with array.Concatenate, so every
// storage type is supported.
func Take(mem memory.Allocator, arr array.Interface, idx []int) (array.Interface, error) {
	if len(idx) == 0 {
		return array.NewSlice(arr, 0, 0), nil
	}
	var pieces []array.Interface
	defer func() {
		for _, p := range pieces {
			p.Release()
		}
	}()
	for start := 0; start < len(idx); {
		end := start + 1
		for end < len(idx) && idx[end] == idx[end-1]+1 {
			end++
		}
		lo, hi := idx[start], idx[end-1]+1
		if lo < 0 || hi > arr.Len() {
			return nil, fmt.Errorf("table: row %d out of range [0, %d)", idx[end-1], arr.Len())
		}
		pieces = append(pieces, array.NewSlice(arr, int64(lo), int64(hi)))
		start = end
	}
	if len(pieces) == 1 {
		pieces[0].Retain()
		return pieces[0], nil
	}
	out, err := array.Concatenate(pieces, mem)
	if err != nil {
		return nil, fmt.Errorf("table: %w", err)
	}
	return out, nil
}
