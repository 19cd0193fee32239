// Package table holds small helpers over Arrow records: building records from
// arrays, column lookup, row selection and value extraction. Records are
// treated as immutable; every helper returns new arrays or records.
package table

import (
	"fmt"
	"strconv"
	"time"

	"github.com/apache/arrow/go/arrow"
	"github.com/apache/arrow/go/arrow/array"
	"github.com/apache/arrow/go/arrow/memory"
)

// DateLayout is the textual form used for date32/date64 values.
const DateLayout = "2006-01-02"

const secondsPerDay = 86400

// New assembles a record from named columns. Every column must have the same
// length. The record retains the arrays; callers release their own references.
func New(names []string, cols []array.Interface) (array.Record, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("table: %d names for %d columns", len(names), len(cols))
	}
	fields := make([]arrow.Field, len(cols))
	rows := -1
	for i, c := range cols {
		if rows >= 0 && c.Len() != rows {
			return nil, fmt.Errorf("table: column %q has %d rows, want %d", names[i], c.Len(), rows)
		}
		rows = c.Len()
		fields[i] = arrow.Field{Name: names[i], Type: c.DataType(), Nullable: true}
	}
	if rows < 0 {
		rows = 0
	}
	return array.NewRecord(arrow.NewSchema(fields, nil), cols, int64(rows)), nil
}

// Names returns the column names of rec in order.
func Names(rec array.Record) []string {
	out := make([]string, rec.NumCols())
	for i := range out {
		out[i] = rec.ColumnName(i)
	}
	return out
}

// Index returns the position of the column called name, or -1.
func Index(rec array.Record, name string) int {
	for i := 0; i < int(rec.NumCols()); i++ {
		if rec.ColumnName(i) == name {
			return i
		}
	}
	return -1
}

// Select builds a record from columns of rec picked by position, named by
// names. The arrays are shared with rec.
func Select(rec array.Record, idx []int, names []string) (array.Record, error) {
	cols := make([]array.Interface, len(idx))
	for i, j := range idx {
		if j < 0 || j >= int(rec.NumCols()) {
			return nil, fmt.Errorf("table: column index %d out of range", j)
		}
		cols[i] = rec.Column(j)
	}
	return New(names, cols)
}

// Head returns a zero-copy view of the first n rows. The caller releases it.
func Head(rec array.Record, n int) array.Record {
	if n < 0 || int64(n) > rec.NumRows() {
		n = int(rec.NumRows())
	}
	return rec.NewSlice(0, int64(n))
}

// Strings builds a utf8 array. A nil valid slice marks every value present.
func Strings(mem memory.Allocator, vals []string, valid []bool) array.Interface {
	b := array.NewStringBuilder(mem)
	defer b.Release()
	b.AppendValues(vals, valid)
	return b.NewArray()
}

// Int64s builds an int64 array. A nil valid slice marks every value present.
func Int64s(mem memory.Allocator, vals []int64, valid []bool) array.Interface {
	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.AppendValues(vals, valid)
	return b.NewArray()
}

// Float64s builds a float64 array. A nil valid slice marks every value present.
func Float64s(mem memory.Allocator, vals []float64, valid []bool) array.Interface {
	b := array.NewFloat64Builder(mem)
	defer b.Release()
	b.AppendValues(vals, valid)
	return b.NewArray()
}

// Bools builds a boolean array. A nil valid slice marks every value present.
func Bools(mem memory.Allocator, vals []bool, valid []bool) array.Interface {
	b := array.NewBooleanBuilder(mem)
	defer b.Release()
	b.AppendValues(vals, valid)
	return b.NewArray()
}

// DaysSinceEpoch converts t to an Arrow date32 value.
func DaysSinceEpoch(t time.Time) arrow.Date32 {
	y, m, d := t.Date()
	return arrow.Date32(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay)
}

// Date32Time converts an Arrow date32 value to a UTC midnight time.
func Date32Time(d arrow.Date32) time.Time {
	return time.Unix(int64(d)*secondsPerDay, 0).UTC()
}

// Value returns row i of arr as a plain Go value, or nil when the slot is
// null. Integers come back as int64 (or uint64), floats as float64 and dates
// as time.Time.
func Value(arr array.Interface, i int) any {
	if arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.Boolean:
		return a.Value(i)
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return uint64(a.Value(i))
	case *array.Uint16:
		return uint64(a.Value(i))
	case *array.Uint32:
		return uint64(a.Value(i))
	case *array.Uint64:
		return a.Value(i)
	case *array.Float16:
		return float64(a.Value(i).Float32())
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.Binary:
		return a.Value(i)
	case *array.Date32:
		return Date32Time(a.Value(i))
	case *array.Date64:
		return time.UnixMilli(int64(a.Value(i))).UTC()
	}
	return nil
}

// ValueString formats row i of arr as text. ok is false for nulls and for
// storage types with no textual form.
func ValueString(arr array.Interface, i int) (s string, ok bool) {
	v := Value(arr, i)
	switch x := v.(type) {
	case nil:
		return "", false
	case bool:
		return strconv.FormatBool(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), true
	case string:
		return x, true
	case []byte:
		return string(x), true
	case time.Time:
		return x.Format(DateLayout), true
	}
	return "", false
}
