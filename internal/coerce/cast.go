package coerce

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow/go/arrow"
	"github.com/apache/arrow/go/arrow/array"
	"github.com/apache/arrow/go/arrow/memory"
	"golang.org/x/text/unicode/norm"

	"etlops/internal/schema"
	"etlops/internal/table"
)

// Converted values are carried as int64 (long), float64 (float), bool,
// string or arrow.Date32 (date). A nil value is a null.

// valueFunc converts row i of a source array. ok is false when the row is
// null or does not convert.
type valueFunc func(i int) (v any, ok bool)

type sourceKind int

const (
	srcUnsupported sourceKind = iota
	srcInt
	srcUint
	srcFloat
	srcBool
	srcString
	srcDate
)

func kindOf(dt arrow.DataType) sourceKind {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64:
		return srcInt
	case arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return srcUint
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return srcFloat
	case arrow.BOOL:
		return srcBool
	case arrow.STRING, arrow.BINARY:
		return srcString
	case arrow.DATE32, arrow.DATE64:
		return srcDate
	}
	return srcUnsupported
}

// castable reports whether values of kind k can be converted to target.
func castable(k sourceKind, target schema.Type) bool {
	switch k {
	case srcUnsupported:
		return false
	case srcString:
		return true
	case srcDate:
		return target == schema.Date || target == schema.String
	default:
		return target != schema.Date
	}
}

// converter compiles a per-row conversion for arr into target. The caller
// must have checked castable.
func converter(arr array.Interface, target schema.Type, layout string) valueFunc {
	wrap := func(get func(i int) any) valueFunc {
		return func(i int) (any, bool) {
			if arr.IsNull(i) {
				return nil, false
			}
			return convertScalar(get(i), target, layout)
		}
	}

	switch kindOf(arr.DataType()) {
	case srcString:
		return func(i int) (any, bool) {
			s, ok := table.ValueString(arr, i)
			if !ok {
				return nil, false
			}
			return fromString(s, target, layout)
		}
	case srcDate:
		return wrap(func(i int) any { return table.DaysSinceEpoch(table.Value(arr, i).(time.Time)) })
	default:
		return wrap(func(i int) any { return table.Value(arr, i) })
	}
}

// convertScalar converts a plain Go value to target using the same rules as
// row conversion. It also validates replacement literals.
func convertScalar(v any, target schema.Type, layout string) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case string:
		return fromString(x, target, layout)
	case bool:
		return fromBool(x, target)
	case int:
		return fromInt(int64(x), target)
	case int32:
		return fromInt(int64(x), target)
	case int64:
		return fromInt(x, target)
	case uint64:
		if x > math.MaxInt64 {
			return fromFloat(float64(x), target)
		}
		return fromInt(int64(x), target)
	case float32:
		return fromFloat(float64(x), target)
	case float64:
		return fromFloat(x, target)
	case json.Number:
		return fromString(x.String(), target, layout)
	case arrow.Date32:
		return fromDate(x, target)
	case time.Time:
		return fromDate(table.DaysSinceEpoch(x), target)
	}
	return nil, false
}

func fromInt(v int64, target schema.Type) (any, bool) {
	switch target {
	case schema.Long:
		return v, true
	case schema.Float:
		return float64(v), true
	case schema.Bool:
		return v != 0, true
	case schema.String:
		return strconv.FormatInt(v, 10), true
	}
	return nil, false
}

func fromFloat(v float64, target schema.Type) (any, bool) {
	switch target {
	case schema.Long:
		return floatToLong(v)
	case schema.Float:
		return v, true
	case schema.Bool:
		return v != 0, true
	case schema.String:
		return strconv.FormatFloat(v, 'g', -1, 64), true
	}
	return nil, false
}

func fromBool(v bool, target schema.Type) (any, bool) {
	n := int64(0)
	if v {
		n = 1
	}
	switch target {
	case schema.Long:
		return n, true
	case schema.Float:
		return float64(n), true
	case schema.Bool:
		return v, true
	case schema.String:
		return strconv.FormatBool(v), true
	}
	return nil, false
}

func fromDate(v arrow.Date32, target schema.Type) (any, bool) {
	switch target {
	case schema.Date:
		return v, true
	case schema.String:
		return table.Date32Time(v).Format(table.DateLayout), true
	}
	return nil, false
}

func fromString(s string, target schema.Type, layout string) (any, bool) {
	if target == schema.String {
		return s, true
	}
	t := strings.TrimSpace(s)
	if t == "" {
		return nil, false
	}
	switch target {
	case schema.Long:
		t = norm.NFKC.String(t)
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n, true
		}
		f, ok := parseFloat(t)
		if !ok {
			return nil, false
		}
		return floatToLong(f)
	case schema.Float:
		f, ok := parseFloat(norm.NFKC.String(t))
		if !ok {
			return nil, false
		}
		return f, true
	case schema.Bool:
		switch strings.ToLower(t) {
		case "t", "true", "y", "yes", "1":
			return true, true
		case "f", "false", "n", "no", "0":
			return false, true
		}
		return nil, false
	case schema.Date:
		d, err := time.Parse(layout, t)
		if err != nil {
			return nil, false
		}
		return table.DaysSinceEpoch(d), true
	}
	return nil, false
}

func parseFloat(s string) (float64, bool) {
	if strings.ContainsAny(s, "xX") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// floatToLong truncates toward zero. NaN, infinities and values outside the
// int64 range fail.
func floatToLong(f float64) (any, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	f = math.Trunc(f)
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, false
	}
	return int64(f), true
}

// newBuilder returns a builder for target's native storage.
func newBuilder(mem memory.Allocator, target schema.Type) array.Builder {
	dt, _ := target.Native()
	return array.NewBuilder(mem, dt)
}

// appendValue appends a converted value, or a null for nil.
func appendValue(b array.Builder, v any) {
	if v == nil {
		b.AppendNull()
		return
	}
	switch x := v.(type) {
	case int64:
		b.(*array.Int64Builder).Append(x)
	case float64:
		b.(*array.Float64Builder).Append(x)
	case bool:
		b.(*array.BooleanBuilder).Append(x)
	case string:
		b.(*array.StringBuilder).Append(x)
	case arrow.Date32:
		b.(*array.Date32Builder).Append(x)
	default:
		b.AppendNull()
	}
}
