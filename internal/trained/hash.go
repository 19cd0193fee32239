package trained

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"

	"etlops/internal/operr"
)

// hashMask keeps hashes within the range a float64 represents exactly, so a
// hash survives a trip through JSON numbers.
const hashMask = 1<<53 - 1

// Hash returns the canonical content hash of an operator's parameters. The
// trained-state key is ignored. Mapping key order does not affect the result;
// sequence order does. Integral floats hash like the equal integer, so a
// parameter bag decoded from JSON hashes like the same bag decoded from YAML.
func Hash(params map[string]any) (int64, error) {
	var buf bytes.Buffer
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == ParamsKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteString("m" + strconv.Itoa(len(keys)) + "{")
	for _, k := range keys {
		writeString(&buf, k)
		if err := encode(&buf, params[k], k); err != nil {
			return 0, err
		}
	}
	buf.WriteByte('}')
	return int64(xxh3.Hash(buf.Bytes()) & hashMask), nil
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('s')
	buf.WriteString(strconv.Itoa(len(s)))
	buf.WriteByte(':')
	buf.WriteString(s)
}

func writeInt(buf *bytes.Buffer, n int64) {
	buf.WriteByte('i')
	buf.WriteString(strconv.FormatInt(n, 10))
	buf.WriteByte(';')
}

func writeFloat(buf *bytes.Buffer, f float64) {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		writeInt(buf, int64(f))
		return
	}
	buf.WriteByte('d')
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	buf.WriteByte(';')
}

func encode(buf *bytes.Buffer, v any, path string) error {
	switch x := v.(type) {
	case nil:
		buf.WriteByte('n')
		return nil
	case bool:
		if x {
			buf.WriteByte('t')
		} else {
			buf.WriteByte('f')
		}
		return nil
	case string:
		writeString(buf, x)
		return nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			writeInt(buf, n)
			return nil
		}
		f, err := x.Float64()
		if err != nil {
			return &operr.SerializationError{Path: path, Msg: fmt.Sprintf("malformed number %q", x)}
		}
		writeFloat(buf, f)
		return nil
	case []byte:
		buf.WriteByte('b')
		buf.WriteString(strconv.Itoa(len(x)))
		buf.WriteByte(':')
		buf.Write(x)
		return nil
	case time.Time:
		buf.WriteByte('T')
		buf.WriteString(x.UTC().Format(time.RFC3339Nano))
		buf.WriteByte(';')
		return nil
	case json.Marshaler:
		// Types with their own JSON form (schemas, for one) hash by that form.
		b, err := x.MarshalJSON()
		if err != nil {
			return &operr.SerializationError{Path: path, Msg: err.Error()}
		}
		var generic any
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		if err := dec.Decode(&generic); err != nil {
			return &operr.SerializationError{Path: path, Msg: err.Error()}
		}
		return encode(buf, generic, path)
	}
	return encodeReflect(buf, reflect.ValueOf(v), path)
}

func encodeReflect(buf *bytes.Buffer, rv reflect.Value, path string) error {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		writeInt(buf, rv.Int())
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u <= math.MaxInt64 {
			writeInt(buf, int64(u))
			return nil
		}
		buf.WriteByte('u')
		buf.WriteString(strconv.FormatUint(u, 10))
		buf.WriteByte(';')
		return nil
	case reflect.Float32, reflect.Float64:
		writeFloat(buf, rv.Float())
		return nil
	case reflect.String:
		writeString(buf, rv.String())
		return nil
	case reflect.Bool:
		return encode(buf, rv.Bool(), path)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			buf.WriteByte('n')
			return nil
		}
		return encode(buf, rv.Elem().Interface(), path)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			buf.WriteByte('n')
			return nil
		}
		buf.WriteString("l" + strconv.Itoa(rv.Len()) + "[")
		for i := 0; i < rv.Len(); i++ {
			if err := encode(buf, rv.Index(i).Interface(), fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return &operr.SerializationError{Path: path, Msg: fmt.Sprintf("map key type %s is not a string", rv.Type().Key())}
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		buf.WriteString("m" + strconv.Itoa(len(keys)) + "{")
		for _, k := range keys {
			writeString(buf, k)
			val := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key()))
			if err := encode(buf, val.Interface(), path+"."+k); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	}
	return &operr.SerializationError{Path: path, Msg: fmt.Sprintf("unsupported type %s", rv.Type())}
}
