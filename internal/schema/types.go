// Package schema defines the semantic column types understood by the
// inference and coercion engines, their fixed mapping onto Arrow storage
// types, and the ordered Schema that binds column names to types.
package schema

import (
	"strings"

	"github.com/apache/arrow/go/arrow"

	"etlops/internal/operr"
)

// Type is a semantic column type. The set is closed.
type Type string

const (
	Bool   Type = "bool"
	Date   Type = "date"
	Float  Type = "float"
	Long   Type = "long"
	String Type = "string"
	// Object is the fallback for storage types that are not modelled
	// explicitly. Object columns are passed through untouched.
	Object Type = "object"
)

// Types lists every semantic type in declaration order.
var Types = []Type{Bool, Date, Float, Long, String, Object}

// ParseType parses a semantic type name case-insensitively. Both the value
// ("long") and the enumeration name ("LONG") are accepted.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case Bool:
		return Bool, nil
	case Date:
		return Date, nil
	case Float:
		return Float, nil
	case Long:
		return Long, nil
	case String:
		return String, nil
	case Object:
		return Object, nil
	}
	return "", operr.Configf("data_type", "%q is not a supported type; expected one of %s", s, typeNames())
}

func typeNames() string {
	names := make([]string, len(Types))
	for i, t := range Types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// Native returns the Arrow storage type a column of semantic type t is
// converted to. Object has no native type and returns (nil, false).
func (t Type) Native() (arrow.DataType, bool) {
	switch t {
	case Bool:
		return arrow.FixedWidthTypes.Boolean, true
	case Date:
		return arrow.FixedWidthTypes.Date32, true
	case Float:
		return arrow.PrimitiveTypes.Float64, true
	case Long:
		return arrow.PrimitiveTypes.Int64, true
	case String:
		return arrow.BinaryTypes.String, true
	}
	return nil, false
}

// Matches reports whether storage already is the native type for t, in which
// case a column needs no conversion.
func (t Type) Matches(storage arrow.DataType) bool {
	native, ok := t.Native()
	if !ok || storage == nil {
		return false
	}
	return native.ID() == storage.ID()
}

// FromStorage maps an Arrow storage type onto a semantic type without looking
// at any values. Strings map to String here; callers that want textual
// inference must handle arrow.STRING themselves.
func FromStorage(dt arrow.DataType) Type {
	if dt == nil {
		return Object
	}
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return Long
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return Float
	case arrow.BOOL:
		return Bool
	case arrow.STRING:
		return String
	default:
		return Object
	}
}
