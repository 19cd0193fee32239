package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"etlops/internal/operr"
)

// Column binds a column name to its semantic type.
type Column struct {
	Name string
	Type Type
}

// Schema is an ordered mapping from column name to semantic type. The zero
// value is an empty schema ready for use.
type Schema struct {
	cols  []Column
	index map[string]int
}

// New builds a schema from columns in order. Later duplicates overwrite the
// type of the first occurrence and keep its position.
func New(cols ...Column) Schema {
	var s Schema
	for _, c := range cols {
		s.Set(c.Name, c.Type)
	}
	return s
}

// Set assigns t to name, appending name if it is new.
func (s *Schema) Set(name string, t Type) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[name]; ok {
		s.cols[i].Type = t
		return
	}
	s.index[name] = len(s.cols)
	s.cols = append(s.cols, Column{Name: name, Type: t})
}

// Get returns the type of name.
func (s Schema) Get(name string) (Type, bool) {
	i, ok := s.index[name]
	if !ok {
		return "", false
	}
	return s.cols[i].Type, true
}

// Len returns the number of columns.
func (s Schema) Len() int { return len(s.cols) }

// Columns returns a copy of the columns in order.
func (s Schema) Columns() []Column {
	out := make([]Column, len(s.cols))
	copy(out, s.cols)
	return out
}

// Names returns column names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s.cols))
	for i, c := range s.cols {
		out[i] = c.Name
	}
	return out
}

// Equal reports whether both schemas hold the same columns in the same order.
func (s Schema) Equal(o Schema) bool {
	if len(s.cols) != len(o.cols) {
		return false
	}
	for i := range s.cols {
		if s.cols[i] != o.cols[i] {
			return false
		}
	}
	return true
}

// Validate checks that the schema covers exactly the given table columns:
// same cardinality and every schema column present in the table.
func (s Schema) Validate(columns []string) error {
	inTable := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		inTable[c] = struct{}{}
	}

	var missing, extra []string
	for _, c := range s.cols {
		if _, ok := inTable[c.Name]; !ok {
			missing = append(missing, c.Name)
		}
	}
	for _, c := range columns {
		if _, ok := s.index[c]; !ok {
			extra = append(extra, c)
		}
	}

	if len(columns) != len(s.cols) {
		return &operr.SchemaMismatchError{
			Msg: fmt.Sprintf("number of columns in schema should be equal to number of columns in table; schema columns: %d, table columns: %d",
				len(s.cols), len(columns)),
			Missing: missing,
			Extra:   extra,
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		return &operr.SchemaMismatchError{
			Msg:     "column in schema does not exist in table",
			Missing: missing,
			Extra:   extra,
		}
	}
	return nil
}

// Map returns the schema as a plain name -> type-string map, the shape stored
// inside trained-state bags.
func (s Schema) Map() map[string]any {
	out := make(map[string]any, len(s.cols))
	for _, c := range s.cols {
		out[c.Name] = string(c.Type)
	}
	return out
}

// MarshalJSON emits the schema as a JSON object in column order.
func (s Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range s.cols {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(string(c.Type))
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping key order.
func (s *Schema) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("schema: expected JSON object")
	}
	var out Schema
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var raw string
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("schema: column %q: %w", name, err)
		}
		t, err := ParseType(raw)
		if err != nil {
			return fmt.Errorf("schema: column %q: %w", name, err)
		}
		out.Set(name, t)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

// FromValue decodes a schema from the loosely-typed shapes found in
// configuration and trained-state bags: Schema, *Schema, map[string]string,
// or map[string]any with string values. Plain maps carry no order, so their
// columns are sorted by name.
func FromValue(v any) (Schema, error) {
	switch m := v.(type) {
	case Schema:
		return m, nil
	case *Schema:
		if m == nil {
			return Schema{}, fmt.Errorf("schema: nil")
		}
		return *m, nil
	case map[string]string:
		out := Schema{}
		for _, k := range sortedKeys(m) {
			t, err := ParseType(m[k])
			if err != nil {
				return Schema{}, fmt.Errorf("schema: column %q: %w", k, err)
			}
			out.Set(k, t)
		}
		return out, nil
	case map[string]any:
		out := Schema{}
		for _, k := range sortedKeys(m) {
			str, ok := m[k].(string)
			if !ok {
				return Schema{}, fmt.Errorf("schema: column %q: type must be a string, got %T", k, m[k])
			}
			t, err := ParseType(str)
			if err != nil {
				return Schema{}, fmt.Errorf("schema: column %q: %w", k, err)
			}
			out.Set(k, t)
		}
		return out, nil
	case nil:
		return Schema{}, fmt.Errorf("schema: missing")
	default:
		return Schema{}, fmt.Errorf("schema: unsupported value of type %T", v)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
